package git

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// gitRefPattern validates safe git reference names.
// Allows: alphanumeric, ., -, _, /, ^, ~.
var gitRefPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/~^-]*$`)

// dangerousGitRefPatterns contains patterns that could be used for command injection.
var dangerousGitRefPatterns = []string{
	"--", // Option prefix
	";",  // Command separator
	"|",  // Pipe
	"&",  // Background/AND
	"`",  // Command substitution
	"$(", // Command substitution
	"${", // Variable expansion
	"\n", // Newline
	"\r", // Carriage return
	"..", // Range / path traversal
}

// maxRefLength is the longest reference accepted.
const maxRefLength = 250

// ErrInvalidGitRef is returned when a git reference contains invalid characters.
var ErrInvalidGitRef = errors.New("invalid git reference")

// ValidateGitRef validates that a reference or remote name is safe to pass
// to the git executable.
//
// Valid references include:
// - Branch names: main, feature/my-branch
// - Remote refs: origin/master, upstream/main
// - Commit SHAs and relative refs: abc1234, HEAD~1, main^2
func ValidateGitRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("%w: empty reference", ErrInvalidGitRef)
	}

	for _, pattern := range dangerousGitRefPatterns {
		if strings.Contains(ref, pattern) {
			return fmt.Errorf("%w: reference %q contains dangerous pattern %q", ErrInvalidGitRef, ref, pattern)
		}
	}

	if ref == "HEAD" {
		return nil
	}

	if len(ref) > maxRefLength {
		return fmt.Errorf("%w: reference %q exceeds maximum length", ErrInvalidGitRef, ref)
	}

	if !gitRefPattern.MatchString(ref) {
		return fmt.Errorf("%w: reference %q contains invalid characters", ErrInvalidGitRef, ref)
	}

	return nil
}
