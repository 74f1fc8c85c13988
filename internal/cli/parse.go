package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/revlabel/internal/domain/label"
)

var parseGrammar string

var parseCmd = &cobra.Command{
	Use:   "parse <label>",
	Short: "Show the fields recovered from a label",
	Long: `Parse a label with the configured grammar (or --grammar) and show what a
following build would recover from it. Labels that do not match the grammar
are reported as unrecognized; they never match the current revision.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseGrammar, "grammar", "g", "", "label grammar (legacy, dotted); defaults to label.grammar")
}

// parsedLabel is the JSON view of a parsed label.
type parsedLabel struct {
	Label            string `json:"label"`
	Grammar          string `json:"grammar"`
	Recognized       bool   `json:"recognized"`
	BuildCycleNumber int    `json:"build_cycle_number"`
	AbbreviatedHash  string `json:"abbreviated_hash,omitempty"`
	Major            int    `json:"major,omitempty"`
	Minor            int    `json:"minor,omitempty"`
	CheckinCount     int    `json:"checkin_count,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	name := parseGrammar
	if name == "" {
		name = cfg.Label.Grammar
	}

	grammar, err := label.ParseGrammar(name)
	if err != nil {
		return err
	}
	codec, err := label.CodecFor(grammar)
	if err != nil {
		return err
	}

	state := codec.Parse(args[0])
	view := parsedLabel{
		Label:            state.Label,
		Grammar:          grammar.String(),
		Recognized:       state.Recognized,
		BuildCycleNumber: state.BuildCycleNumber,
	}
	switch grammar {
	case label.GrammarLegacy:
		view.AbbreviatedHash = state.AbbreviatedHash
	case label.GrammarDotted:
		view.Major = state.Major
		view.Minor = state.Minor
		view.CheckinCount = state.CheckinCount
	}

	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		return writeJSON(out, view)
	}
	printParsed(out, view)
	return nil
}

func printParsed(w io.Writer, v parsedLabel) {
	printTitle(w, v.Label)
	printField(w, "grammar", v.Grammar)
	printField(w, "recognized", strconv.FormatBool(v.Recognized))
	printField(w, "build cycle", strconv.Itoa(v.BuildCycleNumber))
	if v.Grammar == label.GrammarLegacy.String() {
		printField(w, "abbreviated hash", v.AbbreviatedHash)
		return
	}
	printField(w, "version", strconv.Itoa(v.Major)+"."+strconv.Itoa(v.Minor))
	printField(w, "checkin count", strconv.Itoa(v.CheckinCount))
}
