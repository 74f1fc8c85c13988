package label

import "errors"

// Domain errors for label computation.
var (
	// ErrHashTooShort indicates a commit hash cannot be abbreviated.
	ErrHashTooShort = errors.New("commit hash shorter than abbreviation length")

	// ErrUnknownGrammar indicates an unsupported label grammar name.
	ErrUnknownGrammar = errors.New("unknown label grammar")

	// ErrNegativeVersion indicates a negative major or minor component.
	ErrNegativeVersion = errors.New("major and minor must not be negative")
)
