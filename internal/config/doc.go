// Package config loads and validates the environment-variable-driven
// configuration described in spec section 6: path mappings, directory
// mappings, the extension set, the interposition host prefix, and the
// tracing level. It has no on-disk file format of its own; CLI mount
// options parsed by cmd/pathbridgefs take precedence over the
// environment for the same setting.
package config
