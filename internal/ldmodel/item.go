package ldmodel

// ItemDescriptor pairs a version with its payload. A tombstone is an
// ItemDescriptor whose Item is nil — a deleted marker that still carries
// a version so that an out-of-order update can't resurrect it.
type ItemDescriptor struct {
	Version int
	Item    any // *Flag, *Segment, or nil for a tombstone
}

// Tombstone builds a deleted-item marker at the given version.
func Tombstone(version int) ItemDescriptor {
	return ItemDescriptor{Version: version, Item: nil}
}

// IsTombstone reports whether the descriptor represents a deletion.
func (d ItemDescriptor) IsTombstone() bool {
	return d.Item == nil
}

// KeyedItemDescriptor associates a descriptor with its key, used when a
// whole kind's worth of items needs to travel together (e.g. Init payloads).
type KeyedItemDescriptor struct {
	Key  string
	Item ItemDescriptor
}
