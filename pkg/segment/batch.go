package segment

// Batch is an ordered, contiguous sub-sequence of a collection's segments
// plus a context window: up to k segments immediately before and after the
// core that are included for a collaborator's reference only.
//
// Context segments are read-only hints. A collaborator's response for a
// context segment is discarded when results are merged back; only core
// segments are re-emitted.
type Batch struct {
	// Index is the batch's position in dispatch order. Merging reassembles
	// results by this index regardless of completion order.
	Index int

	// Offset is the index (within the source collection) of the first core
	// segment.
	Offset int

	// Core holds the segments this batch is responsible for.
	Core []Segment

	// Leading and Trailing hold up to the configured context-window count of
	// segments preceding and following the core.
	Leading  []Segment
	Trailing []Segment
}

// Size returns the number of core segments.
func (b Batch) Size() int { return len(b.Core) }
