package git

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/relicta-tech/revlabel/internal/domain/sourcecontrol"
)

// revisionLogFormat prints commit, parents and tree on separate lines.
const revisionLogFormat = "--pretty=format:%H%n%P%n%T"

// revisionLogFields is the number of lines revisionLogFormat produces.
const revisionLogFields = 3

// parseRevisionLog parses the output of git log with revisionLogFormat.
// Single quotes left over from shell-quoted formats are ignored.
func parseRevisionLog(output string) (*sourcecontrol.Revision, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(output), "'", "")
	cleaned = strings.ReplaceAll(cleaned, "\r\n", "\n")

	lines := strings.Split(cleaned, "\n")
	if cleaned == "" || len(lines) < revisionLogFields {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", sourcecontrol.ErrIncompleteRevision, revisionLogFields, countNonEmpty(lines))
	}

	commit := strings.TrimSpace(lines[0])
	tree := strings.TrimSpace(lines[2])
	if commit == "" || tree == "" {
		return nil, fmt.Errorf("%w: missing commit or tree hash", sourcecontrol.ErrIncompleteRevision)
	}

	rev := &sourcecontrol.Revision{
		Hash: sourcecontrol.CommitHash(commit),
		Tree: sourcecontrol.CommitHash(tree),
	}
	for _, p := range strings.Fields(lines[1]) {
		rev.Parents = append(rev.Parents, sourcecontrol.CommitHash(p))
	}
	return rev, nil
}

func countNonEmpty(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}

// parseRemoteVerbose finds the fetch URL of remote in `git remote --verbose`
// output.
func parseRemoteVerbose(output, remote string) (string, bool) {
	var fallback string
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || fields[0] != remote {
			continue
		}
		if len(fields) >= 3 && fields[2] == "(fetch)" {
			return fields[1], true
		}
		if fallback == "" {
			fallback = fields[1]
		}
	}
	return fallback, fallback != ""
}

// resolveRepositoryPath returns remote as an absolute path when it names an
// existing local directory, relative to base. Other URLs are returned
// without credentials.
func resolveRepositoryPath(remote, base string) string {
	path := strings.TrimPrefix(remote, "file://")
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return stripCredentials(remote)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return remote
	}
	return abs
}

// stripCredentials removes the user info from http(s) remote URLs so tokens
// embedded in a clone URL are never published.
func stripCredentials(remote string) string {
	u, err := url.Parse(remote)
	if err != nil || u.User == nil {
		return remote
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return remote
	}
	u.User = nil
	return u.String()
}

// parseTagRefs parses `git for-each-ref --format=%(refname:short) %(objectname) %(*objectname) refs/tags`.
// Annotated tags report the peeled commit in the third column.
func parseTagRefs(output, prefix string) sourcecontrol.TagList {
	var tags sourcecontrol.TagList
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		hash := fields[1]
		if len(fields) >= 3 {
			hash = fields[2]
		}
		tags = append(tags, sourcecontrol.NewTag(fields[0], sourcecontrol.CommitHash(hash), prefix))
	}
	return tags
}
