// Package replication applies the last-write-wins acceptance rule to an
// incoming remote operation against the entry already held locally.
//
// Grounded on DefaultEventualConsistencyStrategy.java
// (decideOnRemoteModification), translated from its enum-returning static
// method into a pure Go function returning a small Decision type.
package replication

// Decision - The outcome of evaluating a remote operation against a local
// entry: whether to apply it.
type Decision int

const (
	// Discard - The remote operation is rejected; local state is unchanged.
	Discard Decision = iota
	// Accept - The remote operation should be applied to local state.
	Accept
)

func (d Decision) String() string {
	if d == Accept {
		return "ACCEPT"
	}
	return "DISCARD"
}

// LocalEntry - The origin stamp of whatever is currently stored locally for
// a key (or would be, if the key is absent and this is being evaluated for
// a tombstone).
type LocalEntry struct {
	OriginTimestamp  uint64
	OriginIdentifier byte
}

// RemoteOp - The origin stamp carried by an incoming remote modification,
// plus the identifier of the node evaluating it.
type RemoteOp struct {
	RemoteTimestamp  uint64
	RemoteIdentifier byte
	CurrentNodeID    byte
}

// Decide - Applies the last-write-wins acceptance rule to decide whether
// remote should overwrite local. Pure, total, deterministic:
// every node evaluating the same (local, remote) pair reaches the same
// decision, which is what lets the system converge under eventual
// consistency without coordination.
func Decide(local LocalEntry, remote RemoteOp) Decision {
	if remote.RemoteTimestamp > local.OriginTimestamp {
		return Accept
	}
	if remote.RemoteTimestamp < local.OriginTimestamp {
		return Discard
	}

	if remote.RemoteIdentifier < local.OriginIdentifier {
		return Accept
	}
	if remote.RemoteIdentifier > local.OriginIdentifier {
		return Discard
	}

	// Equal timestamp and identifier: a node with the local entry's origin
	// identifier was lost and restarted with a clock that happens to collide
	// with the entry it already holds. Reject the replay on that node so its
	// own fresh writes win locally, but accept it everywhere else so the
	// restarted node's writes still propagate.
	if local.OriginIdentifier == remote.CurrentNodeID {
		return Discard
	}
	return Accept
}
