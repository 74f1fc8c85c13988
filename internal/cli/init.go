package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/revlabel/internal/config"
)

var (
	initForce   bool
	initFormat  string
	initDir     string
	initGrammar string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default revlabel configuration file",
	Long: `Write revlabel.config.<format> with the default settings into the target
directory. An existing file is only replaced with --force.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing configuration file")
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "file format (yaml, toml, json)")
	initCmd.Flags().StringVarP(&initDir, "dir", "d", ".", "directory to write the file into")
	initCmd.Flags().StringVarP(&initGrammar, "grammar", "g", "", "label grammar (legacy, dotted)")
}

func runInit(cmd *cobra.Command, args []string) error {
	if !slices.Contains([]string{"yaml", "toml", "json"}, initFormat) {
		return fmt.Errorf("unsupported format %q (expected yaml, toml or json)", initFormat)
	}

	path := filepath.Join(initDir, config.ConfigFileNames[0]+"."+initFormat)
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if config.ConfigExists(initDir) && !initForce {
		return fmt.Errorf("a configuration file already exists in %s (use --force to overwrite)", initDir)
	}

	defaults := config.DefaultConfig()
	if initGrammar != "" {
		defaults.Label.Grammar = initGrammar
	}
	if _, err := config.Validate(defaults); err != nil {
		return err
	}

	if err := config.WriteConfig(defaults, path); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSuccess(out, fmt.Sprintf("Created %s", path))
	printInfo(out, "Run 'revlabel next' in your build to compute the label")
	return nil
}
