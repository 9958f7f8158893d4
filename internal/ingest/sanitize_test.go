package ingest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testSanitizer() Sanitizer {
	s := NewSanitizer(decimal.NewFromInt(10))
	s.Now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
	}
	return s
}

func validInteractionRow() RawRecord {
	return RawRecord{
		FieldTimestamp:     "10/03/2025 14:23:11",
		FieldAgentName:     "Wellington Silva - 6373",
		FieldTeam:          "Suporte N1",
		FieldChannel:       "Telefone",
		FieldStatus:        "Atendida",
		FieldProtocol:      "20250310142311",
		FieldDirection:     "inbound",
		FieldWaitTime:      "00:01:02",
		FieldHandleTime:    "05:30",
		FieldSolutionScore: "9,5",
		FieldServiceScore:  "10",
	}
}

func TestSanitizeInteraction_Valid(t *testing.T) {
	rec, rj := testSanitizer().SanitizeInteraction(validInteractionRow())
	if rj != nil {
		t.Fatalf("unexpected rejection: %+v", rj)
	}

	want := time.Date(2025, 3, 10, 14, 23, 11, 0, time.Local)
	if !rec.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", rec.Timestamp, want)
	}
	if rec.WaitSeconds != 62 {
		t.Fatalf("wait = %d, want 62", rec.WaitSeconds)
	}
	if rec.HandleSeconds != 330 {
		t.Fatalf("handle = %d, want 330", rec.HandleSeconds)
	}
	if rec.SolutionScore == nil || !rec.SolutionScore.Equal(decimal.RequireFromString("9.5")) {
		t.Fatalf("solution score = %v, want 9.5", rec.SolutionScore)
	}
}

func TestSanitizeInteraction_MissingRequired(t *testing.T) {
	for _, field := range []string{FieldTimestamp, FieldAgentName, FieldChannel, FieldStatus} {
		row := validInteractionRow()
		row[field] = "  "

		_, rj := testSanitizer().SanitizeInteraction(row)
		if rj == nil {
			t.Fatalf("field %s: expected rejection", field)
		}
		if rj.Code != RejectMissingRequiredField || rj.Field != field {
			t.Fatalf("field %s: got %+v", field, rj)
		}
	}
}

func TestSanitizeInteraction_BadTimestamp(t *testing.T) {
	row := validInteractionRow()
	row[FieldTimestamp] = "10-03-2025"

	_, rj := testSanitizer().SanitizeInteraction(row)
	if rj == nil || rj.Code != RejectInvalidTimestamp {
		t.Fatalf("got %+v, want invalid_timestamp", rj)
	}
}

func TestSanitizeInteraction_FutureTimestamp(t *testing.T) {
	row := validInteractionRow()
	row[FieldTimestamp] = "2025-06-17 09:00:00" // Now is fixed at 2025-06-15

	_, rj := testSanitizer().SanitizeInteraction(row)
	if rj == nil || rj.Code != RejectOutOfRange {
		t.Fatalf("got %+v, want out_of_range", rj)
	}
}

func TestSanitizeInteraction_TimestampWithinGraceWindow(t *testing.T) {
	row := validInteractionRow()
	row[FieldTimestamp] = "2025-06-16 09:00:00" // under 24h ahead of the fixed Now

	_, rj := testSanitizer().SanitizeInteraction(row)
	if rj != nil {
		t.Fatalf("unexpected rejection: %+v", rj)
	}
}

func TestSanitizeInteraction_AncientTimestamp(t *testing.T) {
	row := validInteractionRow()
	row[FieldTimestamp] = "2019-12-31 23:59:59"

	_, rj := testSanitizer().SanitizeInteraction(row)
	if rj == nil || rj.Code != RejectOutOfRange {
		t.Fatalf("got %+v, want out_of_range", rj)
	}
}

func TestSanitizeInteraction_Durations(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantRej RejectCode
	}{
		{"", 0, ""},
		{"-", 0, ""},
		{"45", 45, ""},
		{"02:15", 135, ""},
		{"01:00:00", 3600, ""},
		{"abc", 0, RejectInvalidNumeric},
		{"-5", 0, RejectOutOfRange},
		{"25:00:00", 0, RejectOutOfRange},
	}

	for _, c := range cases {
		row := validInteractionRow()
		row[FieldWaitTime] = c.in

		rec, rj := testSanitizer().SanitizeInteraction(row)
		if c.wantRej == "" {
			if rj != nil {
				t.Fatalf("wait %q: unexpected rejection %+v", c.in, rj)
			}
			if rec.WaitSeconds != c.want {
				t.Fatalf("wait %q: got %d, want %d", c.in, rec.WaitSeconds, c.want)
			}
			continue
		}
		if rj == nil || rj.Code != c.wantRej {
			t.Fatalf("wait %q: got %+v, want %s", c.in, rj, c.wantRej)
		}
	}
}

func TestSanitizeInteraction_Scores(t *testing.T) {
	row := validInteractionRow()
	row[FieldSolutionScore] = ""
	row[FieldServiceScore] = "-"

	rec, rj := testSanitizer().SanitizeInteraction(row)
	if rj != nil {
		t.Fatalf("unexpected rejection: %+v", rj)
	}
	if rec.SolutionScore != nil || rec.ServiceScore != nil {
		t.Fatalf("absent scores should stay nil, got %v %v", rec.SolutionScore, rec.ServiceScore)
	}

	row = validInteractionRow()
	row[FieldSolutionScore] = "10,5"
	if _, rj := testSanitizer().SanitizeInteraction(row); rj == nil || rj.Code != RejectOutOfRange {
		t.Fatalf("over-max score: got %+v, want out_of_range", rj)
	}

	row = validInteractionRow()
	row[FieldServiceScore] = "-1"
	if _, rj := testSanitizer().SanitizeInteraction(row); rj == nil || rj.Code != RejectOutOfRange {
		t.Fatalf("negative score: got %+v, want out_of_range", rj)
	}
}

func TestSanitizeProductivity_Valid(t *testing.T) {
	rec, rj := testSanitizer().SanitizeProductivity(RawRecord{
		FieldDate:                "2025-03-10",
		FieldAgentName:           "Ana Franco 63731",
		FieldClientsServed:       "12",
		FieldInteractionsHandled: "30",
		FieldRequestsClosed:      "-",
	})
	if rj != nil {
		t.Fatalf("unexpected rejection: %+v", rj)
	}
	if rec.ClientsServed != 12 || rec.InteractionsHandled != 30 || rec.RequestsClosed != 0 {
		t.Fatalf("counts = %d/%d/%d", rec.ClientsServed, rec.InteractionsHandled, rec.RequestsClosed)
	}
}

func TestSanitizeProductivity_BrazilianDate(t *testing.T) {
	rec, rj := testSanitizer().SanitizeProductivity(RawRecord{
		FieldDate:      "10/03/2025",
		FieldAgentName: "Ana Franco",
	})
	if rj != nil {
		t.Fatalf("unexpected rejection: %+v", rj)
	}
	want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	if !rec.Date.Equal(want) {
		t.Fatalf("date = %v, want %v", rec.Date, want)
	}
}

func TestSanitizeProductivity_NegativeCount(t *testing.T) {
	_, rj := testSanitizer().SanitizeProductivity(RawRecord{
		FieldDate:          "2025-03-10",
		FieldAgentName:     "Ana Franco",
		FieldClientsServed: "-3",
	})
	if rj == nil || rj.Code != RejectOutOfRange {
		t.Fatalf("got %+v, want out_of_range", rj)
	}
}
