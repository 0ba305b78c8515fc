package testutils

import (
	"fmt"
	"sync/atomic"
)

// Sequence hands out predictable record ids: prefix-1, prefix-2 and so on.
type Sequence struct {
	prefix string
	n      atomic.Int64
}

// NewSequence creates a Sequence. An empty prefix means "id".
func NewSequence(prefix string) *Sequence {
	if prefix == "" {
		prefix = "id"
	}
	return &Sequence{prefix: prefix}
}

// Next returns the next id.
func (s *Sequence) Next() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1))
}
