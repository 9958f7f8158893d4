package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Accepted timestamp layouts for interaction rows. Parsing is strict: a value
// that matches none of these is rejected, never guessed at.
var timestampLayouts = []string{
	"02/01/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
}

const maxDurationSeconds = 86400

// Reference dates older than this are treated as file corruption rather than
// history worth loading.
var minReferenceDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local)

// Sanitizer validates and types raw records. It is pure: no store access, no
// side effects, so a row-level failure never affects its siblings.
type Sanitizer struct {
	MaxScore decimal.Decimal

	// Now is injectable for tests of the future-date window.
	Now func() time.Time
}

func NewSanitizer(maxScore decimal.Decimal) Sanitizer {
	return Sanitizer{
		MaxScore: maxScore,
		Now:      time.Now,
	}
}

// SanitizeInteraction validates one interaction-log row. On failure the
// returned Rejection carries a machine-readable code; Row is left for the
// caller to fill in.
func (s Sanitizer) SanitizeInteraction(raw RawRecord) (InteractionRecord, *Rejection) {
	var rec InteractionRecord

	for _, f := range []string{FieldTimestamp, FieldAgentName, FieldChannel, FieldStatus} {
		if strings.TrimSpace(raw[f]) == "" {
			return rec, reject(f, RejectMissingRequiredField, "field is required")
		}
	}

	ts, rj := s.parseTimestamp(FieldTimestamp, raw[FieldTimestamp])
	if rj != nil {
		return rec, rj
	}
	rec.Timestamp = ts

	rec.AgentName = strings.TrimSpace(raw[FieldAgentName])
	rec.Team = strings.TrimSpace(raw[FieldTeam])
	rec.Channel = strings.TrimSpace(raw[FieldChannel])
	rec.Status = strings.TrimSpace(raw[FieldStatus])
	rec.Protocol = strings.TrimSpace(raw[FieldProtocol])
	rec.Direction = strings.TrimSpace(raw[FieldDirection])

	wait, rj := parseDurationSeconds(FieldWaitTime, raw[FieldWaitTime])
	if rj != nil {
		return rec, rj
	}
	rec.WaitSeconds = wait

	handle, rj := parseDurationSeconds(FieldHandleTime, raw[FieldHandleTime])
	if rj != nil {
		return rec, rj
	}
	rec.HandleSeconds = handle

	sol, rj := s.parseScore(FieldSolutionScore, raw[FieldSolutionScore])
	if rj != nil {
		return rec, rj
	}
	rec.SolutionScore = sol

	svc, rj := s.parseScore(FieldServiceScore, raw[FieldServiceScore])
	if rj != nil {
		return rec, rj
	}
	rec.ServiceScore = svc

	return rec, nil
}

// SanitizeProductivity validates one productivity-extract row.
func (s Sanitizer) SanitizeProductivity(raw RawRecord) (ProductivityRecord, *Rejection) {
	var rec ProductivityRecord

	for _, f := range []string{FieldDate, FieldAgentName} {
		if strings.TrimSpace(raw[f]) == "" {
			return rec, reject(f, RejectMissingRequiredField, "field is required")
		}
	}

	d, rj := s.parseDate(FieldDate, raw[FieldDate])
	if rj != nil {
		return rec, rj
	}
	rec.Date = d

	rec.AgentName = strings.TrimSpace(raw[FieldAgentName])

	counts := []struct {
		field string
		dst   *int
	}{
		{FieldClientsServed, &rec.ClientsServed},
		{FieldInteractionsHandled, &rec.InteractionsHandled},
		{FieldRequestsClosed, &rec.RequestsClosed},
	}
	for _, c := range counts {
		n, rj := parseCount(c.field, raw[c.field])
		if rj != nil {
			return rec, rj
		}
		*c.dst = n
	}

	return rec, nil
}

func (s Sanitizer) parseTimestamp(field, v string) (time.Time, *Rejection) {
	v = strings.TrimSpace(v)
	for _, layout := range timestampLayouts {
		ts, err := time.ParseInLocation(layout, v, time.Local)
		if err == nil {
			return ts, s.checkDateWindow(field, ts)
		}
	}
	return time.Time{}, reject(field, RejectInvalidTimestamp,
		fmt.Sprintf("%q does not match any accepted timestamp format", v))
}

func (s Sanitizer) parseDate(field, v string) (time.Time, *Rejection) {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		d, err := time.ParseInLocation(layout, v, time.Local)
		if err == nil {
			return d, s.checkDateWindow(field, d)
		}
	}
	return time.Time{}, reject(field, RejectInvalidTimestamp,
		fmt.Sprintf("%q does not match any accepted date format", v))
}

func (s Sanitizer) checkDateWindow(field string, ts time.Time) *Rejection {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if ts.Before(minReferenceDate) {
		return reject(field, RejectOutOfRange,
			fmt.Sprintf("reference date %s predates %s", ts.Format("2006-01-02"), minReferenceDate.Format("2006-01-02")))
	}
	if ts.After(now().Add(24 * time.Hour)) {
		return reject(field, RejectOutOfRange,
			fmt.Sprintf("reference date %s is in the future", ts.Format("2006-01-02")))
	}
	return nil
}

// parseDurationSeconds coerces "HH:MM:SS", "MM:SS", or a plain number of
// seconds. Empty and "-" mean zero, which is how the exports mark absent
// timers.
func parseDurationSeconds(field, v string) (int, *Rejection) {
	v = strings.TrimSpace(v)
	if v == "" || v == "-" {
		return 0, nil
	}

	if strings.Contains(v, ":") {
		parts := strings.Split(v, ":")
		if len(parts) != 2 && len(parts) != 3 {
			return 0, reject(field, RejectInvalidNumeric, fmt.Sprintf("%q is not a valid duration", v))
		}
		total := 0
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < 0 {
				return 0, reject(field, RejectInvalidNumeric, fmt.Sprintf("%q is not a valid duration", v))
			}
			total = total*60 + n
		}
		return checkDurationRange(field, total)
	}

	f, err := strconv.ParseFloat(normalizeDecimal(v), 64)
	if err != nil {
		return 0, reject(field, RejectInvalidNumeric, fmt.Sprintf("%q is not numeric", v))
	}
	return checkDurationRange(field, int(f))
}

func checkDurationRange(field string, seconds int) (int, *Rejection) {
	if seconds < 0 {
		return 0, reject(field, RejectOutOfRange, "duration must not be negative")
	}
	if seconds > maxDurationSeconds {
		return 0, reject(field, RejectOutOfRange,
			fmt.Sprintf("duration of %.1f hours exceeds the 24 hour limit", float64(seconds)/3600))
	}
	return seconds, nil
}

// parseCount coerces a non-negative integer counter. Empty and "-" mean zero.
func parseCount(field, v string) (int, *Rejection) {
	v = strings.TrimSpace(v)
	if v == "" || v == "-" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(normalizeDecimal(v), 64)
	if err != nil {
		return 0, reject(field, RejectInvalidNumeric, fmt.Sprintf("%q is not numeric", v))
	}
	if f < 0 {
		return 0, reject(field, RejectOutOfRange, "count must not be negative")
	}
	return int(f), nil
}

// parseScore coerces an optional satisfaction score. Values outside
// [0, MaxScore] are rejected, not clamped.
func (s Sanitizer) parseScore(field, v string) (*decimal.Decimal, *Rejection) {
	v = strings.TrimSpace(v)
	if v == "" || v == "-" {
		return nil, nil
	}
	d, err := decimal.NewFromString(normalizeDecimal(v))
	if err != nil {
		return nil, reject(field, RejectInvalidNumeric, fmt.Sprintf("%q is not numeric", v))
	}
	if d.IsNegative() || d.GreaterThan(s.MaxScore) {
		return nil, reject(field, RejectOutOfRange,
			fmt.Sprintf("score must be between 0 and %s", s.MaxScore.String()))
	}
	return &d, nil
}

// normalizeDecimal accepts comma decimal separators from pt-BR exports.
func normalizeDecimal(v string) string {
	return strings.ReplaceAll(v, ",", ".")
}

func reject(field string, code RejectCode, msg string) *Rejection {
	return &Rejection{
		Field:   field,
		Code:    code,
		Message: msg,
	}
}
