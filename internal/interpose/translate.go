// Package interpose implements the path-translation logic of the
// syscall-interposition library (spec section 4.4): given a host-form
// prefix and the container-form working directory, rewrite a pathname
// argument that begins with the host prefix into its container-form
// equivalent. This package is pure Go and platform-independent; the
// cgo glue that resolves real libc entry points and exports the
// wrapped symbols lives in cmd/pathbridge-preload, so the matching
// logic here can be unit-tested without a C toolchain.
package interpose

import "strings"

// Translator holds the lazily-initialized prefix pair for one process
// lifetime (spec 4.4, step 2: "initialize the prefix pair lazily on
// first use").
type Translator struct {
	hostPrefix      string
	containerPrefix string
}

// NewTranslator builds a Translator from the host-form prefix (read
// from the interposition library's environment variable) and the
// container-form working directory (obtained via the real getcwd, not
// any wrapped version, to avoid recursion). A trailing separator is
// stripped from each, matching the original's normalization.
func NewTranslator(hostPrefix, containerCwd string) *Translator {
	return &Translator{
		hostPrefix:      stripTrailingSeparator(hostPrefix),
		containerPrefix: stripTrailingSeparator(containerCwd),
	}
}

// Ready reports whether both prefixes are non-empty; an empty
// Translator performs no translation (spec 4.4: "no mapping
// configured").
func (t *Translator) Ready() bool {
	return t.hostPrefix != "" && t.containerPrefix != ""
}

// Translate rewrites path if it begins with the host prefix (matching
// case-insensitively on the prefix's first character only — the
// narrowed rule of the REDESIGN FLAG, to tolerate drive-letter casing
// like "c:" vs "C:" while staying case-sensitive everywhere else),
// followed by '/', '\', or end-of-string. Backslashes in the remainder
// are converted to forward slashes. Returns the original path
// unchanged, with ok=false, when no translation applies.
func (t *Translator) Translate(path string) (translated string, ok bool) {
	if !t.Ready() || path == "" {
		return path, false
	}
	if !hasPrefixFirstCharInsensitive(path, t.hostPrefix) {
		return path, false
	}
	boundary := path[len(t.hostPrefix):]
	if len(boundary) > 0 && boundary[0] != '/' && boundary[0] != '\\' {
		return path, false
	}

	var b strings.Builder
	b.Grow(len(t.containerPrefix) + len(boundary))
	b.WriteString(t.containerPrefix)
	for i := 0; i < len(boundary); i++ {
		c := boundary[i]
		if c == '\\' {
			c = '/'
		}
		b.WriteByte(c)
	}
	return b.String(), true
}

// hasPrefixFirstCharInsensitive reports whether s starts with prefix,
// comparing the first byte case-insensitively and every remaining byte
// exactly.
func hasPrefixFirstCharInsensitive(s, prefix string) bool {
	if len(s) < len(prefix) || len(prefix) == 0 {
		return len(prefix) == 0
	}
	if toLowerASCII(s[0]) != toLowerASCII(prefix[0]) {
		return false
	}
	return s[1:len(prefix)] == prefix[1:]
}

func toLowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func stripTrailingSeparator(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '/' || s[len(s)-1] == '\\') {
		s = s[:len(s)-1]
	}
	return s
}
