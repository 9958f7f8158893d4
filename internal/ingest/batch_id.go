package ingest

import "github.com/google/uuid"

// NewBatchID creates a batch id suitable for logs and API responses.
func NewBatchID() string {
	return "batch_" + uuid.NewString()
}
