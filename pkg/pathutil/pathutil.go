// Package pathutil validates virtual path components and mints random CIDs
// used to name directory entries on disk.
package pathutil

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/canmi21/rfs/pkg/rfserrors"
)

// CIDLength is the fixed length of a minted Content ID.
const CIDLength = 5

// cidAlphabet is the 62-symbol charset CIDs are drawn from.
const cidAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// safeNameRegexp matches the allowed character set for a path component:
// Unicode letters, Unicode numbers, and a small set of punctuation safe for
// filesystem names.
var safeNameRegexp = regexp.MustCompile(`^[\p{L}\p{N}_\-.@~()\[\]]+$`)

// GenerateCID draws CIDLength characters uniformly from the 62-symbol
// alphabet. No uniqueness check is performed here; callers that need
// uniqueness within a listing must check and re-mint.
func GenerateCID() string {
	b := make([]byte, CIDLength)
	for i := range b {
		b[i] = cidAlphabet[rand.IntN(len(cidAlphabet))]
	}
	return string(b)
}

// ValidateComponent accepts name if it is non-empty, matches the safe
// character set over Unicode, is not "." or "..", does not end in ".", and
// does not contain "..".
func ValidateComponent(name string) error {
	if name == "" {
		return rfserrors.NewEmptyComponentError()
	}
	if !safeNameRegexp.MatchString(name) {
		return rfserrors.NewInvalidComponentError(name)
	}
	if name == "." || name == ".." || strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
		return rfserrors.NewInvalidComponentError(name)
	}
	return nil
}

// ValidateAndSplitPath trims leading/trailing '/', splits on '/', drops
// empty segments, validates each remaining component, and returns the
// ordered list. An empty or all-slash path is legal and denotes the
// virtual root, returning an empty slice.
func ValidateAndSplitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}

	raw := strings.Split(trimmed, "/")
	components := make([]string, 0, len(raw))
	for _, c := range raw {
		if c == "" {
			continue
		}
		if err := ValidateComponent(c); err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	return components, nil
}
