package sharedhashmap

import (
	"context"

	"github.com/gostonefire/sharedhashmap/internal/ctxregistry"
	"github.com/gostonefire/sharedhashmap/internal/lockctx"
	"github.com/gostonefire/sharedhashmap/internal/model"
)

// Context is a caller-held lock session against one segment, returned by
// Map.QueryContext and Map.UpdateContext. Every key passed to its methods
// must hash to the segment the Context locked; passing a key that hashes
// elsewhere fails with InvariantViolation rather than silently locking a
// second segment underneath the caller.
type Context[K, V any] struct {
	m      *Map[K, V]
	lc     *lockctx.Context
	handle *ctxregistry.Handle
	segIdx int64
}

func (c *Context[K, V]) resolve(key K) (uint64, []byte, error) {
	segIdx, sk, kb, err := c.m.locate(key)
	if err != nil {
		return 0, nil, err
	}
	if segIdx != c.segIdx {
		return 0, nil, InvariantViolation{Msg: "key does not belong to this context's locked segment"}
	}
	return sk, kb, nil
}

// Get reads key's value under this context's already-held lock.
func (c *Context[K, V]) Get(key K) (value V, ok bool, err error) {
	sk, kb, err := c.resolve(key)
	if err != nil {
		return value, false, err
	}
	entry, found, err := c.m.eng.Get(c.segIdx, sk, kb)
	if err != nil || !found || entry.Tombstone {
		return value, false, err
	}
	value, err = c.m.valCodec.DecodeValue(entry.Value)
	return value, err == nil, err
}

// ContainsKey reports whether key is currently present, under this
// context's already-held lock.
func (c *Context[K, V]) ContainsKey(key K) (bool, error) {
	sk, kb, err := c.resolve(key)
	if err != nil {
		return false, err
	}
	entry, found, err := c.m.eng.Get(c.segIdx, sk, kb)
	return found && !entry.Tombstone, err
}

// Put writes key/value under this context's already-held lock, returning
// whatever value key held before this call. The context must have been
// opened with Map.UpdateContext.
func (c *Context[K, V]) Put(key K, value V) (prev V, had bool, err error) {
	sk, kb, err := c.resolve(key)
	if err != nil {
		return prev, false, err
	}
	vb, err := c.m.valCodec.EncodeValue(value)
	if err != nil {
		return prev, false, err
	}

	existing, exists, err := c.m.eng.Get(c.segIdx, sk, kb)
	if err != nil {
		return prev, false, err
	}
	prev, had, err = c.m.decodeLive(existing, exists)
	if err != nil {
		return prev, had, err
	}

	entry := model.Entry{Key: kb, Value: vb, OriginTimestamp: c.m.stamp(), OriginIdentifier: c.m.localNodeID}
	err = c.m.eng.Put(context.Background(), c.lc, c.segIdx, sk, entry)
	return prev, had, err
}

// Remove deletes key under this context's already-held lock, returning the
// value it held. The context must have been opened with Map.UpdateContext.
// See Map.Remove for why this becomes a tombstone write instead of a
// physical delete when replication is enabled.
func (c *Context[K, V]) Remove(key K) (prev V, had bool, err error) {
	sk, kb, err := c.resolve(key)
	if err != nil {
		return prev, false, err
	}

	existing, exists, err := c.m.eng.Get(c.segIdx, sk, kb)
	if err != nil {
		return prev, false, err
	}
	prev, had, err = c.m.decodeLive(existing, exists)
	if err != nil || !had {
		return prev, had, err
	}

	if !c.m.replicationEnabled {
		_, err = c.m.eng.Remove(c.lc, c.segIdx, sk, kb)
		return prev, had, err
	}

	entry := model.Entry{Key: kb, OriginTimestamp: c.m.stamp(), OriginIdentifier: c.m.localNodeID, Tombstone: true}
	err = c.m.eng.Put(context.Background(), c.lc, c.segIdx, sk, entry)
	return prev, had, err
}

// Close releases the lock this context holds and removes it from the
// owning Map's registry. Must be called exactly once per Context.
func (c *Context[K, V]) Close() error {
	c.m.registry.Unregister(c.handle)
	return c.lc.Close()
}
