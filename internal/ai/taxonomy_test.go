package ai

import "testing"

func TestMatchCategory(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string
		ok    bool
	}{
		{name: "canonical label", label: "Food & Dining", want: "Food & Dining", ok: true},
		{name: "alias maps to canonical", label: "Groceries", want: "Food & Dining", ok: true},
		{name: "case insensitive", label: "public transit", want: "Transportation", ok: true},
		{name: "alias inside longer answer", label: "I would say Streaming.", want: "Entertainment", ok: true},
		{name: "answer inside alias", label: "Pharma", want: "Healthcare", ok: true},
		{name: "income alias", label: "freelance", want: "Salary", ok: true},
		{name: "whitespace trimmed", label: "  Rent \n", want: "Bills & Utilities", ok: true},
		{name: "unknown label", label: "Quantum Flux", want: "", ok: false},
		{name: "empty label never matches", label: "", want: "", ok: false},
		{name: "blank label never matches", label: "   ", want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchCategory(tt.label)
			if ok != tt.ok {
				t.Fatalf("matchCategory(%q) ok = %v, want %v", tt.label, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("matchCategory(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestCategoriesOrder(t *testing.T) {
	want := []string{
		"Food & Dining",
		"Transportation",
		"Shopping",
		"Entertainment",
		"Bills & Utilities",
		"Healthcare",
		"Salary",
		"Other",
	}
	got := Categories()
	if len(got) != len(want) {
		t.Fatalf("Categories() returned %d labels, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Categories()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
