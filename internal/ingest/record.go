package ingest

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one unparsed row as received from an export: column name to
// raw string value. Column names are expected in canonical lower-snake form;
// mapping source-specific headers onto them is the transport's job.
type RawRecord map[string]string

// Canonical column names for the interaction-log source type.
const (
	FieldTimestamp     = "timestamp"
	FieldAgentName     = "agent_name"
	FieldTeam          = "team"
	FieldChannel       = "channel"
	FieldStatus        = "status"
	FieldProtocol      = "protocol"
	FieldDirection     = "direction"
	FieldWaitTime      = "wait_time"
	FieldHandleTime    = "handle_time"
	FieldSolutionScore = "solution_score"
	FieldServiceScore  = "service_score"
)

// Canonical column names for the productivity-extract source type.
const (
	FieldDate                = "date"
	FieldClientsServed       = "clients_served"
	FieldInteractionsHandled = "interactions_handled"
	FieldRequestsClosed      = "requests_closed"
)

type RejectCode string

const (
	RejectMissingRequiredField RejectCode = "missing_required_field"
	RejectInvalidNumeric       RejectCode = "invalid_numeric"
	RejectInvalidTimestamp     RejectCode = "invalid_timestamp"
	RejectOutOfRange           RejectCode = "out_of_range"
	RejectResolutionFailed     RejectCode = "resolution_failed"
)

// Rejection describes why a single row was dropped. Row is 1-based input
// position within the batch.
type Rejection struct {
	Row     int        `json:"row"`
	Field   string     `json:"field,omitempty"`
	Code    RejectCode `json:"code"`
	Message string     `json:"message"`
}

// BatchResult is the outcome of driving one batch through an engine.
type BatchResult struct {
	Accepted   int `json:"accepted"`
	Rejected   int `json:"rejected"`
	Duplicates int `json:"duplicates"`

	Rejections []Rejection `json:"rejections,omitempty"`
}

// InteractionRecord is a validated, typed interaction-log row. Names are
// still raw display values; dimension resolution happens downstream.
type InteractionRecord struct {
	Timestamp time.Time

	AgentName string
	Team      string
	Channel   string
	Status    string

	Protocol  string
	Direction string

	WaitSeconds   int
	HandleSeconds int

	SolutionScore *decimal.Decimal
	ServiceScore  *decimal.Decimal
}

// ProductivityRecord is a validated, typed productivity-extract row.
type ProductivityRecord struct {
	Date time.Time

	AgentName string

	ClientsServed       int
	InteractionsHandled int
	RequestsClosed      int
}
