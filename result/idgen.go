package result

import "go.uber.org/atomic"

// IDGenerator hands out incrementing recognition IDs, it is safe for
// concurrent use
type IDGenerator struct {
	id atomic.Int64
}

// NewIDGenerator returns an IDGenerator starting at 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next incremental ID
func (g *IDGenerator) GetNext() int64 {
	return g.id.Inc()
}
