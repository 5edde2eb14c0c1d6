package sharedhashmap

import "time"

// nowUnixNano is the single call site producing origin timestamps for
// locally originated writes, kept as a variable rather than calling
// time.Now directly so tests can substitute a deterministic clock.
var nowUnixNano = func() int64 { return time.Now().UnixNano() }
