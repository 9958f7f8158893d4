package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Interaction is one atomic service interaction fact row. The surrogate keys
// are required; Protocol is optional and, when present, participates in the
// (dedup key, agent, timestamp) uniqueness tuple.
type Interaction struct {
	OccurredAt time.Time
	Shift      Shift

	Protocol  string
	DedupKey  string // protocol, or a synthetic surrogate; empty means no dedup key
	Direction string

	WaitSeconds   int
	HandleSeconds int

	SolutionScore *decimal.Decimal
	ServiceScore  *decimal.Decimal

	AgentID   uint64
	ChannelID uint64
	StatusID  uint64
}
