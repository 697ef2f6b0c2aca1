package ai

import "time"

// DefaultModelName is the Gemini model used when no override is configured.
const DefaultModelName = "gemini-2.5-flash"

const (
	// defaultAttempts bounds the retry loops of the multi-attempt
	// operations (insights, reports). Categorization and parsing are
	// single-shot.
	defaultAttempts = 3

	// defaultBaseDelay is the first backoff sleep. It doubles before each
	// further attempt.
	defaultBaseDelay = 500 * time.Millisecond

	// historyWindow is how many recent transactions feed the
	// categorization context block.
	historyWindow = 20

	// contextCap bounds the categorization context block in bytes.
	contextCap = 500

	// minReportLength rejects degenerate model replies when generating
	// reports.
	minReportLength = 50

	// maxDraftDescription caps the description captured by the parsing
	// fallback.
	maxDraftDescription = 50

	// reportRuleWidth is the width of the report banner.
	reportRuleWidth = 60
)
