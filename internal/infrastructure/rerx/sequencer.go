package rerx

// Sequencer hands out the document-wide sequence numbers that identify every
// structural node. It is an explicit counter threaded through the build call
// tree so that assignment stays deterministic and testable in isolation:
// re-running the builder on identical input yields identical numbering.
type Sequencer struct {
	last uint64
}

// NewSequencer starts a counter at zero; the first Next() returns 1.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Next returns the next sequence number, strictly increasing.
func (s *Sequencer) Next() uint64 {
	s.last++
	return s.last
}

// Last returns the highest number handed out so far (0 before the first
// Next). The builder reports it as the document node count.
func (s *Sequencer) Last() uint64 {
	return s.last
}
