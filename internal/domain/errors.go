package domain

import "fmt"

// ValidationError reports a source row that failed cleaning. Rows carrying it
// are skipped and counted; the batch continues.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record field %q: %s", e.Field, e.Reason)
}

// TransientCallError wraps a model or network failure that is safe to retry.
type TransientCallError struct {
	Op  string
	Err error
}

func (e *TransientCallError) Error() string {
	return fmt.Sprintf("%s: transient call failure: %v", e.Op, e.Err)
}

func (e *TransientCallError) Unwrap() error { return e.Err }

// StructuralResponseError reports model output that does not match the
// expected shape. It triggers retries under the same accounting as
// TransientCallError.
type StructuralResponseError struct {
	Op  string
	Err error
}

func (e *StructuralResponseError) Error() string {
	return fmt.Sprintf("%s: unusable model response: %v", e.Op, e.Err)
}

func (e *StructuralResponseError) Unwrap() error { return e.Err }

// PersistenceError reports a failed append or rewrite against the external
// store. Ledger state is unchanged when an operation returns it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence failure: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
