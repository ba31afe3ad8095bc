package domain

import "strings"

// Outcome classifies a settlement backend failure by its message content.
type Outcome int

const (
	// OutcomeRetryable marks a transient backend failure. The caller retries
	// the same epoch indefinitely.
	OutcomeRetryable Outcome = iota
	// OutcomeTerminal marks sweep exhaustion: the sweep has walked past the
	// last finalized distribution and should stop cleanly.
	OutcomeTerminal
	// OutcomeUnexpected marks any failure outside the known signatures.
	OutcomeUnexpected
)

// String returns the canonical outcome name used in logs and run records.
func (o Outcome) String() string {
	switch o {
	case OutcomeRetryable:
		return "retryable"
	case OutcomeTerminal:
		return "terminal"
	default:
		return "unexpected"
	}
}

// Known backend failure signatures. The backend reports failures as prose,
// so classification is substring matching against the exact phrases it
// emits today. Changing these changes the sweep termination contract; a
// backend that returns structured error kinds should replace this function
// rather than grow the lists.
var (
	retryableSignatures = []string{
		"unable to confirm transaction",
	}
	terminalSignatures = []string{
		"Record account not found at address",
		"Failed to fetch record",
	}
)

// Classify maps a backend failure onto a worker outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeUnexpected
	}
	message := err.Error()
	for _, signature := range retryableSignatures {
		if strings.Contains(message, signature) {
			return OutcomeRetryable
		}
	}
	for _, signature := range terminalSignatures {
		if strings.Contains(message, signature) {
			return OutcomeTerminal
		}
	}
	return OutcomeUnexpected
}
