package datagen

import (
	"sync"
	"time"
)

// Snowflake ID layout: 41 bits of milliseconds since the custom epoch, 10
// bits of node ID and a 12 bit per-millisecond sequence.
const (
	snowflakeEpochMs   = 1609459200000 // 2021-01-01T00:00:00Z
	nodeBits           = 10
	sequenceBits       = 12
	maxNodeID          = (1 << nodeBits) - 1
	sequenceMask       = (1 << sequenceBits) - 1
	timestampShift     = nodeBits + sequenceBits
)

// Snowflake generates unique, roughly time-ordered 64 bit identifiers. Safe
// for concurrent use.
type Snowflake struct {
	mu       sync.Mutex
	nodeID   int64
	lastMs   int64
	sequence int64
}

// NewSnowflake builds a generator for the given node. Node IDs above the 10
// bit range are truncated.
func NewSnowflake(nodeID int64) *Snowflake {
	return &Snowflake{nodeID: nodeID & maxNodeID}
}

// NextID returns the next identifier, spinning into the following millisecond
// when the per-millisecond sequence overflows.
func (s *Snowflake) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < s.lastMs {
		// Clock went backwards; reuse the last timestamp.
		now = s.lastMs
	}

	if now == s.lastMs {
		s.sequence = (s.sequence + 1) & sequenceMask
		if s.sequence == 0 {
			for now <= s.lastMs {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}
	s.lastMs = now

	return (now-snowflakeEpochMs)<<timestampShift | s.nodeID<<sequenceBits | s.sequence
}
