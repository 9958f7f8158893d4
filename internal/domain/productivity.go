package domain

import "time"

// DailyProductivity is the per-agent, per-calendar-day aggregate from the
// external operations feed. At most one row exists per (agent, date);
// re-ingestion overwrites the stored counters with the latest snapshot.
type DailyProductivity struct {
	ReferenceDate time.Time // date precision only

	ClientsServed       int
	InteractionsHandled int
	RequestsClosed      int

	AgentID uint64
}
