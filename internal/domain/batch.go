package domain

type BatchKind string

const (
	BatchKindInteractions BatchKind = "interactions"
	BatchKindProductivity BatchKind = "productivity"
)

func (k BatchKind) Valid() bool {
	return k == BatchKindInteractions || k == BatchKindProductivity
}

type BatchStatus string

const (
	BatchStatusPending           BatchStatus = "pending"
	BatchStatusInProgress        BatchStatus = "in_progress"
	BatchStatusCompleted         BatchStatus = "completed"
	BatchStatusFailed            BatchStatus = "failed"
	BatchStatusFailedPermanently BatchStatus = "failed_permanently"
)

// Terminal reports whether the worker will never pick the batch up again.
func (s BatchStatus) Terminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailedPermanently
}
