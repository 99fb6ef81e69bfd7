package contract

import "errors"

// Configuration errors are raised before any batch state is created.
var (
	ErrNoActiveRuleSet     = errors.New("no active rule set")
	ErrNoComponents        = errors.New("no active components configured")
	ErrNoFallbackComponent = errors.New("no active OTHER component configured")
	ErrNoPromptTemplate    = errors.New("no prompt template configured")
	ErrInvalidTemplate     = errors.New("invalid prompt template")
)

// ErrInvalidJudgment marks a judgment response that failed schema validation.
var ErrInvalidJudgment = errors.New("invalid judgment")

// ErrBatchTerminal is returned when a transition is attempted on a completed or failed batch.
var ErrBatchTerminal = errors.New("batch is in a terminal state")

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")
