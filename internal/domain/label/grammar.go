package label

import (
	"fmt"
	"strconv"
	"strings"
)

// Grammar selects the textual shape of a label.
type Grammar string

// Supported grammars.
const (
	// GrammarLegacy renders "{cycle}-{abbreviatedHash}".
	GrammarLegacy Grammar = "legacy"
	// GrammarDotted renders "{major}.{minor}.{checkinCount}.{cycle}".
	GrammarDotted Grammar = "dotted"
)

// Grammars lists every supported grammar.
var Grammars = []Grammar{GrammarLegacy, GrammarDotted}

// ParseGrammar converts a configuration value into a Grammar.
func ParseGrammar(s string) (Grammar, error) {
	switch g := Grammar(strings.ToLower(strings.TrimSpace(s))); g {
	case GrammarLegacy, GrammarDotted:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGrammar, s)
	}
}

// String returns the grammar name.
func (g Grammar) String() string {
	return string(g)
}

// PreviousState holds the fields recovered from a previously stored label.
type PreviousState struct {
	// Label is the raw label the state was parsed from.
	Label string
	// BuildCycleNumber is the previous cycle number, 0 when unknown.
	BuildCycleNumber int
	// AbbreviatedHash is set by the legacy grammar.
	AbbreviatedHash string
	// Major, Minor and CheckinCount are set by the dotted grammar.
	Major        int
	Minor        int
	CheckinCount int
	// Recognized reports whether the label had the grammar's shape.
	Recognized bool
}

// Codec converts between label strings and version facts for one grammar.
type Codec interface {
	// Grammar returns the grammar handled by the codec.
	Grammar() Grammar
	// Parse recovers state from a previous label. It never fails; labels
	// of any other shape yield an unrecognized state.
	Parse(label string) PreviousState
	// Format renders facts as a label.
	Format(f VersionFacts) string
	// Unchanged reports whether current facts describe the same logical
	// revision as the previous state.
	Unchanged(current VersionFacts, previous PreviousState) bool
}

// CodecFor returns the codec for g.
func CodecFor(g Grammar) (Codec, error) {
	switch g {
	case GrammarLegacy:
		return legacyCodec{}, nil
	case GrammarDotted:
		return dottedCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGrammar, string(g))
	}
}

const (
	legacyDelimiter = "-"
	dottedDelimiter = "."
	dottedParts     = 4
)

type legacyCodec struct{}

func (legacyCodec) Grammar() Grammar {
	return GrammarLegacy
}

func (legacyCodec) Parse(label string) PreviousState {
	state := PreviousState{Label: label}

	parts := strings.Split(label, legacyDelimiter)
	if len(parts) != 2 {
		state.AbbreviatedHash = label
		return state
	}

	state.BuildCycleNumber = atoiOrZero(parts[0])
	state.AbbreviatedHash = parts[1]
	state.Recognized = true
	return state
}

func (legacyCodec) Format(f VersionFacts) string {
	return strconv.Itoa(f.buildCycleNumber) + legacyDelimiter + f.abbreviatedHash
}

func (legacyCodec) Unchanged(current VersionFacts, previous PreviousState) bool {
	return current.abbreviatedHash == previous.AbbreviatedHash
}

type dottedCodec struct{}

func (dottedCodec) Grammar() Grammar {
	return GrammarDotted
}

func (dottedCodec) Parse(label string) PreviousState {
	state := PreviousState{Label: label}

	parts := strings.Split(label, dottedDelimiter)
	if len(parts) != dottedParts {
		return state
	}

	// Non-numeric fields read as 0.
	state.Major = atoiOrZero(parts[0])
	state.Minor = atoiOrZero(parts[1])
	state.CheckinCount = atoiOrZero(parts[2])
	state.BuildCycleNumber = atoiOrZero(parts[3])
	state.Recognized = true
	return state
}

func (dottedCodec) Format(f VersionFacts) string {
	return strings.Join([]string{
		strconv.Itoa(f.major),
		strconv.Itoa(f.minor),
		strconv.Itoa(f.checkinCount),
		strconv.Itoa(f.buildCycleNumber),
	}, dottedDelimiter)
}

func (dottedCodec) Unchanged(current VersionFacts, previous PreviousState) bool {
	return previous.Recognized && current.checkinCount == previous.CheckinCount
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
