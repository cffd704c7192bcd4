// Package config loads pathbridge's process-environment configuration:
// path mappings, directory-name mappings, the transformable extension
// set, the interposition layer's host prefix, and the tracing level.
// There is no on-disk configuration file — spec section 6 scopes
// configuration to environment variables and CLI mount options only.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"

	pberrors "github.com/pathbridge/pathbridge/pkg/errors"
	"github.com/pathbridge/pathbridge/pkg/types"
)

// Env var names, all under the PATHBRIDGE_ namespace.
const (
	EnvPathMap     = "PATHBRIDGE_PATH_MAP"
	EnvDirMap      = "PATHBRIDGE_DIR_MAP"
	EnvExtensions  = "PATHBRIDGE_EXTENSIONS"
	EnvHostPrefix  = "PATHBRIDGE_HOST_PREFIX"
	EnvTrace       = "PATHBRIDGE_TRACE"
	EnvLogPath     = "PATHBRIDGE_LOG_PATH"
	EnvMetricsPort = "PATHBRIDGE_METRICS_PORT"
)

// TraceLevel mirrors spec section 6's tracing levels.
type TraceLevel int

const (
	TraceOff           TraceLevel = 0
	TraceTransformOnly TraceLevel = 1
	TraceVerbose       TraceLevel = 2
)

// Configuration is the complete, immutable-after-startup process
// configuration.
type Configuration struct {
	SourceDir string

	PathMappings []types.PathMapping
	DirMappings  []types.DirMapping
	Extensions   types.ExtensionSet

	// HostPrefix is the interposition layer's host-form working
	// directory prefix (spec 4.4). The FS process parses it but does not
	// use it; the interposition library reads PATHBRIDGE_HOST_PREFIX
	// from its own environment at runtime.
	HostPrefix string

	Trace       TraceLevel
	LogPath     string
	MetricsPort int
}

// Default returns a configuration with the spec's defaults: no
// mappings, the default extension set, tracing off, metrics disabled.
func Default() *Configuration {
	return &Configuration{
		Extensions: types.DefaultExtensions(),
		Trace:      TraceOff,
		LogPath:    "/tmp/pathbridge.log",
	}
}

// LoadFromEnv populates c from the process environment using koanf's env
// provider, overlaying onto whatever c already holds (so CLI-parsed
// mount options, applied by the caller before or after this call per
// precedence, are not silently clobbered by an unset env var).
func (c *Configuration) LoadFromEnv() error {
	k := koanf.New(".")
	if err := k.Load(env.Provider(".", env.Opt{}), nil); err != nil {
		return pberrors.New(pberrors.ErrCodeConfigValidation, "failed to load environment").WithCause(err)
	}

	if v := k.String(EnvPathMap); v != "" {
		mappings, err := ParsePathMap(v)
		if err != nil {
			return err
		}
		c.PathMappings = mappings
	}
	if v := k.String(EnvDirMap); v != "" {
		mappings, err := ParseDirMap(v)
		if err != nil {
			return err
		}
		c.DirMappings = mappings
	}
	if v := k.String(EnvExtensions); v != "" {
		c.Extensions = types.NewExtensionSet(splitNonEmpty(v, ","))
	}
	if v := k.String(EnvHostPrefix); v != "" {
		c.HostPrefix = normalizeHostPrefix(v)
	}
	if v := k.String(EnvTrace); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Trace = TraceLevel(n)
		}
	}
	if v := k.String(EnvLogPath); v != "" {
		c.LogPath = v
	}
	if v := k.String(EnvMetricsPort); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MetricsPort = n
		}
	}

	return nil
}

// ParsePathMap parses a semicolon-separated `host-prefix:container-prefix`
// list, grounded in the original's add_mapping/parse_pathmap: the split on
// ':' must skip the colon that follows a single drive letter
// (`C:/Users/me:/ccbox/me` splits after `me`, not after `C`).
func ParsePathMap(spec string) ([]types.PathMapping, error) {
	var out []types.PathMapping
	for _, entry := range splitNonEmpty(spec, ";") {
		from, to, err := splitMappingEntry(entry)
		if err != nil {
			return nil, err
		}
		from = strings.TrimRight(normalizeSlashes(from), "/")
		to = strings.TrimRight(to, "/")

		m := types.PathMapping{From: from, To: to, FromLen: len(from), ToLen: len(to)}
		switch {
		case len(from) >= 2 && isASCIILetter(from[0]) && from[1] == ':':
			m.Kind = types.KindDrive
			m.Drive = toLowerByte(from[0])
		case strings.HasPrefix(from, "//"):
			m.Kind = types.KindUNC
		case strings.HasPrefix(from, "/mnt/") && len(from) > 5 && isASCIILetter(from[5]):
			m.Kind = types.KindMountPrefix
			m.Drive = toLowerByte(from[5])
		default:
			return nil, pberrors.New(pberrors.ErrCodeInvalidMapping, "unrecognized host prefix shape").
				WithContext("entry", entry)
		}
		out = append(out, m)
	}
	if len(out) > types.MaxMappings {
		return nil, pberrors.New(pberrors.ErrCodeTooManyMappings, "too many path mappings").
			WithDetail("count", len(out)).WithDetail("max", types.MaxMappings)
	}
	return out, nil
}

// splitMappingEntry splits "host:container" on the first colon that is
// not the drive-letter colon of a Windows-style prefix.
func splitMappingEntry(entry string) (from, to string, err error) {
	idx := strings.IndexByte(entry, ':')
	if idx < 0 {
		return "", "", pberrors.New(pberrors.ErrCodeInvalidMapping, "mapping entry missing ':'").
			WithContext("entry", entry)
	}
	// A lone drive letter immediately before the colon (e.g. "C:") is
	// part of the host prefix, not the from/to separator; look for the
	// next colon instead.
	if idx == 1 && isASCIILetter(entry[0]) {
		rest := entry[idx+1:]
		idx2 := strings.IndexByte(rest, ':')
		if idx2 < 0 {
			return "", "", pberrors.New(pberrors.ErrCodeInvalidMapping, "mapping entry missing container prefix").
				WithContext("entry", entry)
		}
		return entry[:idx+1+idx2], rest[idx2+1:], nil
	}
	return entry[:idx], entry[idx+1:], nil
}

// ParseDirMap parses a semicolon-separated `container-name:native-name`
// list.
func ParseDirMap(spec string) ([]types.DirMapping, error) {
	var out []types.DirMapping
	for _, entry := range splitNonEmpty(spec, ";") {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, pberrors.New(pberrors.ErrCodeInvalidMapping, "malformed directory mapping").
				WithContext("entry", entry)
		}
		if strings.ContainsAny(parts[0], "/\\") || strings.ContainsAny(parts[1], "/\\") {
			return nil, pberrors.New(pberrors.ErrCodeInvalidMapping, "directory mapping segments must not contain slashes").
				WithContext("entry", entry)
		}
		out = append(out, types.DirMapping{ContainerName: parts[0], NativeName: parts[1]})
	}
	if len(out) > types.MaxMappings {
		return nil, pberrors.New(pberrors.ErrCodeTooManyMappings, "too many directory mappings").
			WithDetail("count", len(out)).WithDetail("max", types.MaxMappings)
	}
	return out, nil
}

// Validate enforces spec section 9's Open Question resolution (reject
// case-colliding host prefixes at startup) plus the basic "source is
// required" startup check.
func (c *Configuration) Validate() error {
	if c.SourceDir == "" {
		return pberrors.New(pberrors.ErrCodeMissingSource, "source_dir is required").
			WithComponent("config")
	}

	seen := make(map[string]string, len(c.PathMappings))
	for _, m := range c.PathMappings {
		lower := strings.ToLower(m.From)
		if existing, ok := seen[lower]; ok && existing != m.From {
			return pberrors.New(pberrors.ErrCodeMappingCollision,
				"two host prefixes differ only in case").
				WithContext("first", existing).WithContext("second", m.From)
		}
		seen[lower] = m.From
	}

	names := make(map[string]bool, len(c.DirMappings)*2)
	for _, d := range c.DirMappings {
		if names[d.ContainerName] {
			return pberrors.New(pberrors.ErrCodeInvalidMapping, "duplicate container_name in directory mapping").
				WithContext("name", d.ContainerName)
		}
		names[d.ContainerName] = true
	}

	return nil
}

// SortedPathMappingSummary returns a deterministic human-readable summary,
// used in startup log lines.
func (c *Configuration) SortedPathMappingSummary() string {
	lines := make([]string, 0, len(c.PathMappings))
	for _, m := range c.PathMappings {
		lines = append(lines, fmt.Sprintf("%s(%s)->%s", m.From, m.Kind, m.To))
	}
	sort.Strings(lines)
	return strings.Join(lines, "; ")
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSlashes(s string) string {
	s = strings.ReplaceAll(s, "\\\\", "/")
	s = strings.ReplaceAll(s, "\\", "/")
	return s
}

func normalizeHostPrefix(s string) string {
	s = normalizeSlashes(s)
	return strings.TrimRight(s, "/")
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
