package sharedhashmap

import (
	"context"

	"github.com/gostonefire/sharedhashmap/internal/lockctx"
	"github.com/gostonefire/sharedhashmap/internal/model"
	"github.com/gostonefire/sharedhashmap/internal/replication"
)

// ReplicatedOp identifies which mutation a remote node performed, carried
// alongside a key/value pair into RemoteApply.
type ReplicatedOp int

const (
	// ReplicatedPut - The remote node set key to a new value.
	ReplicatedPut ReplicatedOp = iota
	// ReplicatedDelete - The remote node deleted key.
	ReplicatedDelete
)

// RemoteApply applies an incoming replicated operation against key, using
// the last-write-wins rule in internal/replication.Decide to choose between
// the remote write and whatever this node already holds locally. A
// ReplicatedDelete is stored as a tombstone rather than physically removed
// so the acceptance rule still has an origin stamp to compare a later write
// against. A remote op that loses the comparison is silently discarded,
// which is itself a correct outcome under the convergence guarantee, not an
// error.
func (m *Map[K, V]) RemoteApply(op ReplicatedOp, key K, value V, originTimestamp uint64, originIdentifier byte) error {
	segIdx, sk, kb, err := m.locate(key)
	if err != nil {
		return err
	}

	lc := lockctx.New(m.eng.Segment(segIdx), nil)
	if err := lc.LockWrite(context.Background()); err != nil {
		return err
	}
	defer lc.Close()

	existing, exists, err := m.eng.Get(segIdx, sk, kb)
	if err != nil {
		return err
	}

	var local replication.LocalEntry
	if exists {
		local = replication.LocalEntry{
			OriginTimestamp:  existing.OriginTimestamp,
			OriginIdentifier: existing.OriginIdentifier,
		}
	}
	remote := replication.RemoteOp{
		RemoteTimestamp:  originTimestamp,
		RemoteIdentifier: originIdentifier,
		CurrentNodeID:    m.localNodeID,
	}

	decision := replication.Decide(local, remote)
	m.log.ReplicationDecision(string(kb), decision.String(), originTimestamp, local.OriginTimestamp)
	if decision == replication.Discard {
		return nil
	}

	vb, err := m.valCodec.EncodeValue(value)
	if err != nil {
		return err
	}
	entry := model.Entry{
		Key:              kb,
		Value:            vb,
		OriginTimestamp:  originTimestamp,
		OriginIdentifier: originIdentifier,
		Tombstone:        op == ReplicatedDelete,
	}
	return m.eng.Put(context.Background(), lc, segIdx, sk, entry)
}
