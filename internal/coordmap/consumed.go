package coordmap

// ConsumedSet records which layout elements have already been claimed
// by earlier chunks of the same document. It is owned by the caller and
// threaded through every Map call in document order; it is not safe for
// concurrent use within one document. Separate documents get separate
// sets.
type ConsumedSet struct {
	m map[int]struct{}
}

// NewConsumedSet returns an empty set.
func NewConsumedSet() *ConsumedSet {
	return &ConsumedSet{m: make(map[int]struct{})}
}

// Has reports whether element index i has been consumed.
func (s *ConsumedSet) Has(i int) bool {
	_, ok := s.m[i]
	return ok
}

// Add marks element index i as consumed.
func (s *ConsumedSet) Add(i int) {
	s.m[i] = struct{}{}
}

// Len returns the number of consumed elements.
func (s *ConsumedSet) Len() int {
	return len(s.m)
}

// Reset empties the set for reprocessing a document from the start.
func (s *ConsumedSet) Reset() {
	s.m = make(map[int]struct{})
}
