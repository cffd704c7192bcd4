// Package cache implements the three fixed-size caches of spec section
// 4.5: NegCache (recent ENOENT backing paths), ReadCache (transformed
// file content keyed by mtime), and SkipCache (files known to need no
// transform at a given mtime). Every cache is a flat array of slots
// scanned linearly; at the sizes involved (64/256/512) this beats a map
// under realistic hit rates and sidesteps lock contention on the hot
// read path, per spec section 9's "benign-race caches" design note.
package cache

import "time"

// MonotonicSeconds is the coarse time source used for TTL bookkeeping.
// It is a variable, not a function call wired at each use, so tests can
// substitute a fake clock without touching call sites.
var MonotonicSeconds = defaultMonotonicSeconds

var processStart = time.Now()

func defaultMonotonicSeconds() int64 {
	return int64(time.Since(processStart).Seconds())
}
