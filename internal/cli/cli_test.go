package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/revlabel/internal/config"
	"github.com/relicta-tech/revlabel/internal/domain/build"
	"github.com/relicta-tech/revlabel/internal/infrastructure/publish"
)

// testEnv is a repository with one commit and a configuration that keeps
// its state next to it.
type testEnv struct {
	dir  string
	repo *git.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	env := &testEnv{dir: dir, repo: repo}
	env.commit(t, "initial")

	c := config.DefaultConfig()
	c.Git.WorkingDirectory = dir
	c.State.File = filepath.Join(dir, ".revlabel", "state.json")
	c.Publish.Log = false
	c.Output.Color = false

	prevCfg := cfg
	cfg = c
	logger.SetOutput(io.Discard)
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Cleanup(func() {
		cfg = prevCfg
		logger.SetOutput(os.Stderr)
		outputJSON = false
	})
	return env
}

func (e *testEnv) commit(t *testing.T, msg string) {
	t.Helper()

	wt, err := e.repo.Worktree()
	require.NoError(t, err)

	name := filepath.Join(e.dir, "file.txt")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(msg + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = wt.Add("file.txt")
	require.NoError(t, err)
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// resetFlags restores every local flag of cmd to its default.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// run invokes the RunE of cmd directly with the given flags set.
func run(t *testing.T, cmd *cobra.Command, flags map[string]string, args ...string) (string, error) {
	t.Helper()

	resetFlags(t, cmd)
	t.Cleanup(func() { resetFlags(t, cmd) })
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value))
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetContext(context.Background())
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})

	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func TestRootCommand_Silenced(t *testing.T) {
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)
}

func TestRootCommand_Subcommands(t *testing.T) {
	for _, name := range []string{"next", "record", "show", "parse", "exec", "watch", "init", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestExitError(t *testing.T) {
	var exitErr *ExitError
	wrapped := fmt.Errorf("exec: %w", &ExitError{Code: 3})
	require.ErrorAs(t, wrapped, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.False(t, errors.As(assert.AnError, &exitErr))
	assert.Equal(t, "command exited with status 3", (&ExitError{Code: 3}).Error())
}

func TestNewPublishers(t *testing.T) {
	c := config.DefaultConfig()
	got := newPublishers(c, serviceOptions{})
	require.Len(t, got, 1)
	assert.IsType(t, &publish.LogPublisher{}, got[0])

	c.Publish.Log = false
	c.Publish.Dotenv.Enabled = true
	c.Publish.Dotenv.File = filepath.Join(t.TempDir(), "build.env")
	c.Output.Format = "json"
	got = newPublishers(c, serviceOptions{out: &bytes.Buffer{}})
	require.Len(t, got, 2)
	assert.IsType(t, &publish.DotenvPublisher{}, got[0])
	assert.IsType(t, &publish.JSONPublisher{}, got[1])
}

func TestNext_BuildCycle(t *testing.T) {
	newTestEnv(t)

	out, err := run(t, nextCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, firstLine(out), "1.0.1.1")

	_, err = run(t, recordCmd, nil, "success")
	require.NoError(t, err)

	out, err = run(t, nextCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, firstLine(out), "1.0.1.2")

	_, err = run(t, recordCmd, nil, "failure")
	require.NoError(t, err)

	out, err = run(t, nextCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, firstLine(out), "1.0.1.1", "a failed build restarts the cycle")
}

func TestNext_NewCommitResetsCycle(t *testing.T) {
	env := newTestEnv(t)

	_, err := run(t, nextCmd, nil)
	require.NoError(t, err)
	_, err = run(t, recordCmd, nil, "success")
	require.NoError(t, err)

	env.commit(t, "second")

	out, err := run(t, nextCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, firstLine(out), "1.0.2.1")
}

func TestNext_Overrides(t *testing.T) {
	newTestEnv(t)

	out, err := run(t, nextCmd, map[string]string{
		"previous-label": "1.0.1.3",
		"last-status":    "success",
	})
	require.NoError(t, err)
	assert.Contains(t, firstLine(out), "1.0.1.4")

	out, err = run(t, nextCmd, map[string]string{
		"previous-label": "1.0.1.3",
		"last-status":    "failure",
	})
	require.NoError(t, err)
	assert.Contains(t, firstLine(out), "1.0.1.1")

	_, err = run(t, nextCmd, map[string]string{"last-status": "maybe"})
	assert.Error(t, err)
}

func TestNext_Legacy(t *testing.T) {
	env := newTestEnv(t)
	cfg.Label.Grammar = "legacy"

	head, err := env.repo.Head()
	require.NoError(t, err)
	abbrev := head.Hash().String()[:7]

	out, err := run(t, nextCmd, map[string]string{
		"previous-label": "4-" + abbrev,
		"last-status":    "success",
	})
	require.NoError(t, err)
	assert.Contains(t, firstLine(out), "5-"+abbrev)
}

func TestNext_DryRunRecordsNothing(t *testing.T) {
	newTestEnv(t)

	out, err := run(t, nextCmd, map[string]string{"dry-run": "true"})
	require.NoError(t, err)
	assert.Contains(t, firstLine(out), "1.0.1.1")

	_, err = os.Stat(cfg.State.File)
	assert.True(t, os.IsNotExist(err), "dry run must not write the state file")

	_, err = run(t, recordCmd, nil, "success")
	assert.ErrorIs(t, err, build.ErrNoBuildInProgress)
}

func TestNext_JSON(t *testing.T) {
	newTestEnv(t)
	cfg.Output.Format = "json"

	out, err := run(t, nextCmd, nil)
	require.NoError(t, err)

	var facts map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &facts))
	assert.Equal(t, "1.0.1.1", facts["CCNetLabel"])
	assert.Equal(t, "1", facts["CCNetGitCheckinCount"])
	assert.Equal(t, "1", facts["CCNetBuildCycleNumber"])
	assert.Len(t, facts["CCNetGitCommitHash"], 40)
}

func TestNext_Dotenv(t *testing.T) {
	env := newTestEnv(t)
	cfg.Publish.Dotenv.Enabled = true
	cfg.Publish.Dotenv.File = filepath.Join(env.dir, "build.env")

	_, err := run(t, nextCmd, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Publish.Dotenv.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CCNetLabel=1.0.1.1\n")
}

func TestRecord_InvalidStatus(t *testing.T) {
	newTestEnv(t)

	_, err := run(t, recordCmd, nil, "pending")
	assert.Error(t, err)
}

func TestShow(t *testing.T) {
	newTestEnv(t)

	_, err := run(t, nextCmd, nil)
	require.NoError(t, err)
	_, err = run(t, recordCmd, nil, "success")
	require.NoError(t, err)

	out, err := run(t, showCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Build state")
	assert.Contains(t, out, "1.0.1.1")

	cfg.Output.Format = "json"
	out, err = run(t, showCmd, nil)
	require.NoError(t, err)

	var state build.State
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, "1.0.1.1", state.LastSuccessfulLabel)
	assert.Len(t, state.History, 1)
}

func TestParse(t *testing.T) {
	newTestEnv(t)
	cfg.Output.Format = "json"

	tests := []struct {
		name       string
		grammar    string
		label      string
		recognized bool
		cycle      int
	}{
		{"dotted", "dotted", "1.0.5.3", true, 3},
		{"dotted sentinel", "dotted", "UNKNOWN", false, 0},
		{"legacy", "legacy", "4-abc1234", true, 4},
		{"legacy sentinel", "legacy", "UNKNOWN", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, parseCmd, map[string]string{"grammar": tt.grammar}, tt.label)
			require.NoError(t, err)

			var got parsedLabel
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.recognized, got.Recognized)
			assert.Equal(t, tt.cycle, got.BuildCycleNumber)
		})
	}

	_, err := run(t, parseCmd, map[string]string{"grammar": "semver"}, "1.2.3")
	assert.Error(t, err)
}

func TestExec(t *testing.T) {
	newTestEnv(t)

	_, err := run(t, execCmd, nil, "sh", "-c", `test "$CCNetLabel" = "1.0.1.1"`)
	require.NoError(t, err)

	_, err = run(t, execCmd, map[string]string{"record": "true"}, "sh", "-c", "exit 3")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)

	out, err := run(t, showCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "failure")
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, initCmd, map[string]string{"dir": dir, "format": "toml"})
	require.NoError(t, err)
	assert.Contains(t, out, "revlabel.config.toml")

	loaded, err := config.LoadFromFile(filepath.Join(dir, "revlabel.config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "dotted", loaded.Label.Grammar)

	_, err = run(t, initCmd, map[string]string{"dir": dir, "format": "toml"})
	assert.Error(t, err, "existing file without --force")

	_, err = run(t, initCmd, map[string]string{"dir": dir, "format": "toml", "force": "true", "grammar": "legacy"})
	require.NoError(t, err)

	loaded, err = config.LoadFromFile(filepath.Join(dir, "revlabel.config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "legacy", loaded.Label.Grammar)

	_, err = run(t, initCmd, map[string]string{"dir": t.TempDir(), "format": "ini"})
	assert.Error(t, err)
}

func TestWatchHelpers(t *testing.T) {
	env := newTestEnv(t)

	nested := filepath.Join(env.dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	gitDir, err := findGitDir(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.dir, ".git"), gitDir)

	_, err = findGitDir(t.TempDir())
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	prev := versionInfo
	t.Cleanup(func() { versionInfo = prev })

	SetVersionInfo("v9.9.9", "abc1234", "2026-01-01")

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })
	versionCmd.Run(versionCmd, nil)

	assert.Equal(t, "revlabel v9.9.9\n", out.String())
}
