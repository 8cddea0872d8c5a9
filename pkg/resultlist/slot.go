package resultlist

type slotKind uint8

const (
	// slotAbsent means nothing is known about the index yet
	slotAbsent slotKind = iota
	// slotPastEnd means the index lies beyond the last row
	slotPastEnd
	// slotValue holds a row, which may itself be a zero or nil value
	slotValue
)

// slot is the tagged result of resolving an index.
type slot[T any] struct {
	kind slotKind
	row  T
}

func valueSlot[T any](row T) slot[T] {
	return slot[T]{kind: slotValue, row: row}
}

func pastEndSlot[T any]() slot[T] {
	return slot[T]{kind: slotPastEnd}
}

func (s slot[T]) ok() bool {
	return s.kind == slotValue
}
