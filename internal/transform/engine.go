// Package transform implements the two-pass byte-oriented content
// transform engine of spec section 4.2: Pass A rewrites absolute
// host-path prefixes (drive, UNC, and mount-prefix forms), Pass B
// rewrites directory-name segment encodings. The engine never parses
// JSON structurally; path tokens are recognized by lexical shape only,
// so it is safe to run against JSONL, concatenated JSON, or a
// partially-written file mid atomic-rename.
package transform

import (
	"bytes"

	"github.com/pathbridge/pathbridge/pkg/types"
)

// baseHeadroom is the fixed allocation slack added on top of the input
// length before a transform is abandoned as an overflow (spec 4.2
// "Overflow contract").
const baseHeadroom = 4096

// perMappingSlackFactor estimates how many times a single mapping might
// recur in one file; multiplied by each mapping's from/to size delta to
// pad the allocation further.
const perMappingSlackFactor = 16

// delimiters that end a path token inside a JSON-ish byte stream.
func isTokenDelimiter(b byte) bool {
	switch b {
	case '"', ',', '}', ']':
		return true
	default:
		return false
	}
}

func isRemainderStop(b byte) bool {
	return isTokenDelimiter(b) || b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func toLowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// Engine holds the immutable mapping tables used by both transform
// directions.
type Engine struct {
	pathMappings []types.PathMapping
	dirMappings  []types.DirMapping
	capLimit     func(inputLen int) int
}

// NewEngine builds an Engine from the path and directory mapping tables.
func NewEngine(pathMappings []types.PathMapping, dirMappings []types.DirMapping) *Engine {
	slack := 0
	for _, m := range pathMappings {
		delta := m.ToLen - m.FromLen
		if delta < 0 {
			delta = -delta
		}
		slack += delta * perMappingSlackFactor
	}
	return &Engine{
		pathMappings: pathMappings,
		dirMappings:  dirMappings,
		capLimit: func(inputLen int) int {
			return inputLen + baseHeadroom + slack
		},
	}
}

// ToContainer applies Pass A (host->container) then Pass B
// (native->container), the read-direction transform.
func (e *Engine) ToContainer(buf []byte) ([]byte, bool) {
	limit := e.capLimit(len(buf))

	a, changedA, overflow := e.passAToContainer(buf, limit)
	if overflow {
		return buf, false
	}
	b, changedB, overflow := e.passBDirs(a, e.nativeToContainer, limit)
	if overflow {
		return buf, false
	}
	if !changedA && !changedB {
		return buf, false
	}
	return b, true
}

// ToHost applies Pass A (container->host) then Pass B
// (container->native), the write-direction transform.
func (e *Engine) ToHost(buf []byte) ([]byte, bool) {
	limit := e.capLimit(len(buf))

	a, changedA, overflow := e.passAToHost(buf, limit)
	if overflow {
		return buf, false
	}
	b, changedB, overflow := e.passBDirs(a, e.containerToNative, limit)
	if overflow {
		return buf, false
	}
	if !changedA && !changedB {
		return buf, false
	}
	return b, true
}

// passAToContainer scans for drive, UNC, and mount-prefix host path
// shapes and rewrites each match to its container form.
func (e *Engine) passAToContainer(buf []byte, limit int) ([]byte, bool, bool) {
	out := make([]byte, 0, len(buf)+baseHeadroom/4)
	changed := false
	i := 0
	for i < len(buf) {
		if to, consumed, ok := e.matchDriveToContainer(buf, i); ok {
			out = append(out, to...)
			i += consumed
			changed = true
			continue
		}
		if to, consumed, ok := e.matchUNCToContainer(buf, i); ok {
			out = append(out, to...)
			i += consumed
			changed = true
			continue
		}
		if to, consumed, ok := e.matchMountPrefixToContainer(buf, i); ok {
			out = append(out, to...)
			i += consumed
			changed = true
			continue
		}
		out = append(out, buf[i])
		i++
		if len(out) > limit {
			return nil, false, true
		}
	}
	if len(out) > limit {
		return nil, false, true
	}
	return out, changed, false
}

// matchDriveToContainer attempts a drive-letter host path starting at
// buf[i] ("X:" followed by a JSON-escaped or literal path body).
func (e *Engine) matchDriveToContainer(buf []byte, i int) (emit []byte, consumed int, ok bool) {
	if i+1 >= len(buf) || !isASCIILetter(buf[i]) || buf[i+1] != ':' {
		return nil, 0, false
	}
	drive := toLowerByte(buf[i])
	body, bodyLen := normalizeJSONBody(buf[i+2:])

	for _, m := range e.pathMappings {
		if m.Kind != types.KindDrive || m.Drive != drive {
			continue
		}
		fromSuffix := m.From[2:]
		if !strHasPrefix(body, fromSuffix) {
			continue
		}
		if len(body) > len(fromSuffix) && body[len(fromSuffix)] != '/' {
			continue
		}
		remainder := body[len(fromSuffix):]
		out := make([]byte, 0, len(m.To)+len(remainder))
		out = append(out, m.To...)
		out = append(out, remainder...)
		return out, 2 + bodyLen, true
	}
	return nil, 0, false
}

// matchUNCToContainer attempts a UNC host path: a JSON-escaped leading
// "\\\\" (two escaped backslash pairs, decoding to the native "\\").
func (e *Engine) matchUNCToContainer(buf []byte, i int) (emit []byte, consumed int, ok bool) {
	if i+4 > len(buf) || buf[i] != '\\' || buf[i+1] != '\\' || buf[i+2] != '\\' || buf[i+3] != '\\' {
		return nil, 0, false
	}
	body, bodyLen := normalizeJSONBody(buf[i:])

	for _, m := range e.pathMappings {
		if m.Kind != types.KindUNC {
			continue
		}
		if !strHasPrefix(body, m.From) {
			continue
		}
		if len(body) > len(m.From) && body[len(m.From)] != '/' {
			continue
		}
		remainder := body[len(m.From):]
		out := make([]byte, 0, len(m.To)+len(remainder))
		out = append(out, m.To...)
		out = append(out, remainder...)
		return out, bodyLen, true
	}
	return nil, 0, false
}

// matchMountPrefixToContainer attempts a literal "/mnt/X/..." host path;
// no JSON-escape normalization applies since mount-prefix paths are
// already forward-slash native.
func (e *Engine) matchMountPrefixToContainer(buf []byte, i int) (emit []byte, consumed int, ok bool) {
	const marker = "/mnt/"
	if i+len(marker)+1 > len(buf) || string(buf[i:i+len(marker)]) != marker {
		return nil, 0, false
	}
	drive := toLowerByte(buf[i+len(marker)])

	for _, m := range e.pathMappings {
		if m.Kind != types.KindMountPrefix || m.Drive != drive {
			continue
		}
		if i+m.FromLen > len(buf) || string(buf[i:i+m.FromLen]) != m.From {
			continue
		}
		if i+m.FromLen < len(buf) && buf[i+m.FromLen] != '/' && !isRemainderStop(buf[i+m.FromLen]) {
			continue
		}
		end := i + m.FromLen
		for end < len(buf) && !isRemainderStop(buf[end]) {
			end++
		}
		remainder := buf[i+m.FromLen : end]
		out := make([]byte, 0, len(m.To)+len(remainder))
		out = append(out, m.To...)
		out = append(out, remainder...)
		return out, end - i, true
	}
	return nil, 0, false
}

// passAToHost scans for a mapping's container ("to") form and rewrites
// it back to host form, re-escaping forward slashes to the JSON "\\"
// pair when the original host form is a drive or UNC path.
func (e *Engine) passAToHost(buf []byte, limit int) ([]byte, bool, bool) {
	out := make([]byte, 0, len(buf)+baseHeadroom/4)
	changed := false
	i := 0
	for i < len(buf) {
		if emit, consumed, ok := e.matchContainerToHost(buf, i); ok {
			out = append(out, emit...)
			i += consumed
			changed = true
			if len(out) > limit {
				return nil, false, true
			}
			continue
		}
		out = append(out, buf[i])
		i++
		if len(out) > limit {
			return nil, false, true
		}
	}
	return out, changed, false
}

func (e *Engine) matchContainerToHost(buf []byte, i int) (emit []byte, consumed int, ok bool) {
	for _, m := range e.pathMappings {
		if i+m.ToLen > len(buf) || string(buf[i:i+m.ToLen]) != m.To {
			continue
		}
		if i+m.ToLen < len(buf) {
			next := buf[i+m.ToLen]
			if next != '/' && !isTokenDelimiter(next) {
				continue
			}
		}
		end := i + m.ToLen
		for end < len(buf) && !isRemainderStop(buf[end]) {
			end++
		}
		remainder := buf[i+m.ToLen : end]

		escape := m.Kind == types.KindDrive || m.Kind == types.KindUNC
		var result []byte
		if escape {
			result = append(result, escapeSlashes(m.From)...)
			result = append(result, escapeSlashes(string(remainder))...)
		} else {
			result = append(result, m.From...)
			result = append(result, remainder...)
		}
		return result, end - i, true
	}
	return nil, 0, false
}

// passBDirs applies a directory-name segment rewrite using lookup for
// find->replace strings, immediately after a '/' or JSON-escaped "\\"
// separator.
func (e *Engine) passBDirs(buf []byte, lookup func(segment string) (string, bool), limit int) ([]byte, bool, bool) {
	if len(e.dirMappings) == 0 {
		return buf, false, false
	}
	out := make([]byte, 0, len(buf)+baseHeadroom/8)
	changed := false
	i := 0
	for i < len(buf) {
		sepLen := 0
		if buf[i] == '/' {
			sepLen = 1
		} else if i+1 < len(buf) && buf[i] == '\\' && buf[i+1] == '\\' {
			sepLen = 2
		}
		if sepLen == 0 {
			out = append(out, buf[i])
			i++
			if len(out) > limit {
				return nil, false, true
			}
			continue
		}

		sep := buf[i : i+sepLen]
		rest := buf[i+sepLen:]
		matched := false
		for segLen := 1; segLen <= len(rest) && !matched; segLen++ {
			// Only candidates that end at a separator, delimiter,
			// whitespace byte, or the end of the buffer are looked up.
			if segLen < len(rest) && !isRemainderStop(rest[segLen]) && rest[segLen] != '/' &&
				!(segLen+1 < len(rest) && rest[segLen] == '\\' && rest[segLen+1] == '\\') {
				continue
			}
			candidate := string(rest[:segLen])
			if replacement, ok := lookup(candidate); ok {
				out = append(out, sep...)
				out = append(out, replacement...)
				i += sepLen + segLen
				changed = true
				matched = true
			}
		}
		if matched {
			if len(out) > limit {
				return nil, false, true
			}
			continue
		}
		out = append(out, sep...)
		i += sepLen
		if len(out) > limit {
			return nil, false, true
		}
	}
	return out, changed, false
}

func (e *Engine) nativeToContainer(segment string) (string, bool) {
	for _, d := range e.dirMappings {
		if d.NativeName == segment {
			return d.ContainerName, true
		}
	}
	return "", false
}

func (e *Engine) containerToNative(segment string) (string, bool) {
	for _, d := range e.dirMappings {
		if d.ContainerName == segment {
			return d.NativeName, true
		}
	}
	return "", false
}

// QuickScan reports whether the bounded prefix of a file contains no
// mapping signature (a drive-letter pattern, any configured mapping's
// container form, the literal "/mnt/", or a JSON-escaped backslash
// pair), making the file safe to treat as passthrough for this mtime.
func (e *Engine) QuickScan(prefix []byte) bool {
	for i := 0; i < len(prefix)-1; i++ {
		if isASCIILetter(prefix[i]) && prefix[i+1] == ':' {
			return false
		}
	}
	if bytes.Contains(prefix, []byte("\\\\")) {
		return false
	}
	if bytes.Contains(prefix, []byte("/mnt/")) {
		return false
	}
	for _, m := range e.pathMappings {
		if bytes.Contains(prefix, []byte(m.To)) {
			return false
		}
	}
	return true
}

// normalizeJSONBody reads from raw until a token delimiter, converting
// every JSON-escaped backslash pair ("\\") to a single forward slash and
// any remaining lone backslash to a forward slash. Returns the
// normalized body and the number of raw bytes consumed.
func normalizeJSONBody(raw []byte) (body string, consumed int) {
	var b bytes.Buffer
	i := 0
	for i < len(raw) {
		c := raw[i]
		if isTokenDelimiter(c) || c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		if c == '\\' {
			if i+1 < len(raw) && raw[i+1] == '\\' {
				b.WriteByte('/')
				i += 2
				continue
			}
			b.WriteByte('/')
			i++
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), i
}

// escapeSlashes converts every forward slash to the JSON-escaped
// backslash pair, the inverse of normalizeJSONBody's folding of "\\"
// pairs to "/".
func escapeSlashes(s string) string {
	return bytesReplaceAll(s, "/", "\\\\")
}

func bytesReplaceAll(s, old, new string) string {
	var b bytes.Buffer
	for i := 0; i < len(s); {
		if i+len(old) <= len(s) && s[i:i+len(old)] == old {
			b.WriteString(new)
			i += len(old)
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func strHasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
