// Package types holds the data model shared across pathbridge: path and
// directory mappings, cache entry shapes, the packed open-file handle
// encoding, and the small interfaces internal/fuse and
// internal/transform depend on without importing each other's packages.
package types
