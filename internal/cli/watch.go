package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/relicta-tech/revlabel/internal/service/labeller"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Preview the next label whenever the repository changes",
	Long: `Watch the repository's HEAD and refs and print the label the next build
would get after every commit, checkout or fetch. Nothing is recorded or
published. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := newLabeller(cfg, serviceOptions{})
	if err != nil {
		return err
	}

	gitDir, err := findGitDir(cfg.Git.WorkingDirectory)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := addGitWatches(watcher, gitDir); err != nil {
		return fmt.Errorf("failed to add watchers: %w", err)
	}

	out := cmd.OutOrStdout()
	printInfo(out, fmt.Sprintf("Watching %s (Ctrl+C to stop)", gitDir))

	preview := func() {
		res, err := svc.Preview(cmd.Context(), labeller.NextOptions{})
		if err != nil {
			logger.Error("preview failed", "error", err)
			return
		}
		if IsJSONOutput() {
			_ = writeJSON(out, res.Published.Map())
			return
		}
		fmt.Fprintf(out, "[%s] %s\n", time.Now().Format("15:04:05"), styles.Label.Render(res.Label()))
	}

	preview()
	return watchLoop(cmd.Context(), watcher, cfg.Watch.DebounceDuration(), preview)
}

// watchLoop calls onChange once per burst of relevant events, after the
// repository has been quiet for debounce.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, onChange func()) error {
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantGitEvent(event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			logger.Debug("repository changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case <-timer.C:
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}

// relevantGitEvent ignores lock files and pure attribute changes.
func relevantGitEvent(event fsnotify.Event) bool {
	if strings.HasSuffix(event.Name, ".lock") {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// addGitWatches watches the git directory itself (HEAD, packed-refs) and
// every directory below refs/.
func addGitWatches(watcher *fsnotify.Watcher, gitDir string) error {
	if err := watcher.Add(gitDir); err != nil {
		return err
	}
	refs := filepath.Join(gitDir, "refs")
	return filepath.WalkDir(refs, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// findGitDir walks up from dir to the nearest .git directory.
func findGitDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(abs, ".git")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("no .git directory found above %s", dir)
		}
		abs = parent
	}
}
