// Package pathmap implements the directory-name translator of spec
// section 4.1: per-segment rewriting between the container-visible
// directory-name encoding and the name actually stored on the backing
// filesystem, plus its deduplication rule for directory listings.
package pathmap

import (
	"strings"

	pberrors "github.com/pathbridge/pathbridge/pkg/errors"
	"github.com/pathbridge/pathbridge/pkg/types"
)

// MaxSegmentLen bounds the length of each mapping's ContainerName and
// NativeName; NewDirTranslator rejects a longer one with
// ErrCodeNameTooLong. Request path segments are not checked here.
const MaxSegmentLen = 255

// DirTranslator implements types.DirTranslator over an immutable table
// of DirMappings built at startup.
type DirTranslator struct {
	// byNative and byContainer give O(1) segment lookup; the table
	// itself stays tiny (<=32 entries) so this is mostly about
	// readability, not asymptotic performance.
	byNative    map[string]string
	byContainer map[string]string
}

// NewDirTranslator builds a DirTranslator from configuration. Returns an
// error if the table exceeds types.MaxMappings or contains a segment
// longer than MaxSegmentLen.
func NewDirTranslator(mappings []types.DirMapping) (*DirTranslator, error) {
	if len(mappings) > types.MaxMappings {
		return nil, pberrors.New(pberrors.ErrCodeTooManyMappings, "too many directory mappings")
	}
	t := &DirTranslator{
		byNative:    make(map[string]string, len(mappings)),
		byContainer: make(map[string]string, len(mappings)),
	}
	for _, m := range mappings {
		if len(m.ContainerName) > MaxSegmentLen || len(m.NativeName) > MaxSegmentLen {
			return nil, pberrors.New(pberrors.ErrCodeNameTooLong, "directory mapping segment too long").
				WithContext("container_name", m.ContainerName).
				WithContext("native_name", m.NativeName)
		}
		t.byNative[m.NativeName] = m.ContainerName
		t.byContainer[m.ContainerName] = m.NativeName
	}
	return t, nil
}

// ToBacking rewrites each '/'-delimited segment of an absolute path that
// equals a known ContainerName to its NativeName. Non-matching segments
// pass through verbatim. Used to map a request path to the backing path
// before calling the underlying filesystem.
func (t *DirTranslator) ToBacking(path string) string {
	if len(t.byContainer) == 0 {
		return path
	}
	segments := strings.Split(path, "/")
	changed := false
	for i, seg := range segments {
		if native, ok := t.byContainer[seg]; ok {
			segments[i] = native
			changed = true
		}
	}
	if !changed {
		return path
	}
	return strings.Join(segments, "/")
}

// ToVisible maps a single backing directory entry name to the name it
// should be presented as inside the container, and reports whether the
// entry should be suppressed outright. Suppression happens when entry
// equals a known ContainerName and a sibling directory named its
// NativeName also exists: the translated native entry already
// represents it, so showing both would duplicate the directory.
func (t *DirTranslator) ToVisible(entryName string, siblingIsDir func(name string) bool) (visible string, suppress bool) {
	if container, ok := t.byNative[entryName]; ok {
		return container, false
	}
	if native, ok := t.byContainer[entryName]; ok {
		if siblingIsDir != nil && siblingIsDir(native) {
			return "", true
		}
	}
	return entryName, false
}

// SegmentToBacking rewrites a single path segment (no slashes) to its
// native form if it is a known ContainerName, otherwise returns it
// unchanged. Used by the FUSE dispatcher's per-segment Lookup, where
// ToBacking's whole-path splitting isn't needed.
func (t *DirTranslator) SegmentToBacking(segment string) string {
	if native, ok := t.byContainer[segment]; ok {
		return native
	}
	return segment
}

var _ types.DirTranslator = (*DirTranslator)(nil)
