package sharedhashmap

import "go.uber.org/zap"

// Config describes how to lay out a new map file. When reopening an existing
// file with Open, only Path and Logger are read; the layout comes from the
// file's own header. A plain struct with defaulting rather than a generated
// builder.
type Config struct {
	// Path is the backing file's location on disk.
	Path string

	// SegmentCount is the number of independently lockable segments. Chosen
	// at creation time and fixed for the life of the file.
	SegmentCount int64

	// ExpectedKeysPerSegment sizes each segment's home tier via
	// internal/sizing, assuming keys hash uniformly across segments.
	ExpectedKeysPerSegment int64

	// LoadFactor overrides internal/sizing.DefaultLoadFactor if set.
	LoadFactor float64

	// MaxEntrySize bounds the encoded size (internal/codec header plus
	// varint-framed key and value) of any single entry.
	MaxEntrySize int64

	// OverflowTierHeadroom is the number of additional chained tiers
	// reserved beyond one home tier per segment, for internal/tier.Pool to
	// hand out as segments grow past their home tier's capacity.
	OverflowTierHeadroom int64

	// ReplicationEnabled turns on origin-timestamp/identifier stamping so
	// RemoteApply's last-write-wins rule (internal/replication) has
	// something to compare against.
	ReplicationEnabled bool

	// LocalNodeID identifies this node for entries it originates locally
	// and for RemoteOp.CurrentNodeID in RemoteApply.
	LocalNodeID byte

	// Logger receives structured diagnostics (internal/telemetry). Nil is a
	// valid, fully supported no-op.
	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.SegmentCount <= 0 {
		c.SegmentCount = 16
	}
	if c.ExpectedKeysPerSegment <= 0 {
		c.ExpectedKeysPerSegment = 1024
	}
	if c.LoadFactor <= 0 || c.LoadFactor > 1 {
		c.LoadFactor = 0.75
	}
	if c.MaxEntrySize <= 0 {
		c.MaxEntrySize = 256
	}
	if c.OverflowTierHeadroom <= 0 {
		c.OverflowTierHeadroom = c.SegmentCount * 3
	}
	return c
}
