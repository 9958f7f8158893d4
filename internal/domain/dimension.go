package domain

type DimensionKind string

const (
	DimensionAgent   DimensionKind = "agent"
	DimensionChannel DimensionKind = "channel"
	DimensionStatus  DimensionKind = "status"
)
