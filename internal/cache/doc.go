// Package cache implements pathbridge's three fixed-slot caches:
// NegCache, ReadCache, and SkipCache (spec sections 3 and 4.5). All
// three are linear-scanned arrays guarded by a short-held mutex rather
// than a map, matching the spec's explicit call-out that this is faster
// than a map at these sizes and avoids lock contention on the hot read
// path.
package cache
