package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"controlling_resistances/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

var eventRowColumns = []string{"id", "occurred_at", "type", "heater", "message", "meta"}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func intPtr(v int) *int { return &v }

func TestAppend_HeaterEventWithMetadata(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewEventSQLite(db)
	at := time.Date(2025, 3, 1, 8, 30, 0, 0, time.FixedZone("UTC+1", 3600))

	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs(sqlmock.AnyArg(), "2025-03-01 07:30:00",
			"SAFETY_OVERRIDE", int64(2), "heater 2 forced off",
			`{"candidate_c":99.6,"heater":2}`,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Append(ctx(t), models.HeaterEvent{
		OccurredAt:  at,
		Type:        "  safety_override ",
		Heater:      intPtr(2),
		Description: "heater 2 forced off",
		Metadata:    map[string]any{"heater": 2, "candidate_c": 99.6},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_ScheduleEventHasNullHeaterAndMeta(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewEventSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.EventStart, nil, "Schedule started", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Append(ctx(t), models.HeaterEvent{Type: models.EventStart, Description: "Schedule started"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_DBError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewEventSQLite(db)

	mock.ExpectExec("INSERT INTO control_events").
		WillReturnError(errors.New("down"))

	err = repo.Append(ctx(t), models.HeaterEvent{
		Type:        models.EventActuatorFailure,
		Heater:      intPtr(0),
		Description: "x",
	})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestBuildEventQuery(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		q        EventQuery
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filters",
			wantSQL: "SELECT id, occurred_at, type, heater, message, meta FROM control_events ORDER BY occurred_at ASC",
		},
		{
			name: "range type and heater",
			q:    EventQuery{From: from, To: to, Type: " safety_override ", Heater: intPtr(3)},
			wantSQL: "SELECT id, occurred_at, type, heater, message, meta FROM control_events" +
				" WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? AND heater = ? ORDER BY occurred_at ASC",
			wantArgs: []any{"2025-01-01 11:00:00", "2025-01-01 12:00:00", "SAFETY_OVERRIDE", 3},
		},
		{
			name: "latest n",
			q:    EventQuery{Heater: intPtr(0), Limit: 20},
			wantSQL: "SELECT id, occurred_at, type, heater, message, meta FROM (" +
				"SELECT id, occurred_at, type, heater, message, meta FROM control_events WHERE heater = ?" +
				" ORDER BY occurred_at DESC LIMIT ?) ORDER BY occurred_at ASC",
			wantArgs: []any{0, 20},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotSQL, gotArgs := buildEventQuery(tc.q)
			if gotSQL != tc.wantSQL {
				t.Fatalf("sql:\n got %s\nwant %s", gotSQL, tc.wantSQL)
			}
			if len(gotArgs) != len(tc.wantArgs) {
				t.Fatalf("args: got %v, want %v", gotArgs, tc.wantArgs)
			}
			for i := range gotArgs {
				if gotArgs[i] != tc.wantArgs[i] {
					t.Fatalf("arg %d: got %#v, want %#v", i, gotArgs[i], tc.wantArgs[i])
				}
			}
		})
	}
}

func TestList_MetadataAndHeaterParsing(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewEventSQLite(db)

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	js, _ := json.Marshal(map[string]any{"heater": 4, "command": "on"})

	rows := sqlmock.NewRows(eventRowColumns).
		AddRow("1", now, "START", nil, "m1", nil).
		AddRow("2", now.Add(time.Minute), "ACTUATOR_FAILURE", int64(4), "m2", string(js)).
		AddRow("3", now.Add(2*time.Minute), "STOP", nil, "m3", "not-json")

	sqlText, _ := buildEventQuery(EventQuery{})
	mock.ExpectQuery(regexp.QuoteMeta(sqlText)).WillReturnRows(rows)

	got, err := repo.List(ctx(t), EventQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3, got %d", len(got))
	}
	if got[0].Heater != nil || got[0].Metadata != nil {
		t.Fatalf("schedule event should have no heater/meta: %+v", got[0])
	}
	if got[1].Heater == nil || *got[1].Heater != 4 {
		t.Fatalf("heater not parsed: %+v", got[1])
	}
	b, _ := json.Marshal(got[1].Metadata)
	if string(b) != string(js) {
		t.Fatalf("metadata mismatch: %s vs %s", b, js)
	}
	if got[2].Metadata != "not-json" {
		t.Fatalf("malformed meta should stay raw, got %#v", got[2].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_PassesFilterArgs(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewEventSQLite(db)
	q := EventQuery{
		From:   time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC),
		Type:   models.EventSafetyOverride,
		Heater: intPtr(1),
		Limit:  5,
	}
	sqlText, args := buildEventQuery(q)
	want := make([]driver.Value, len(args))
	for i, a := range args {
		if n, ok := a.(int); ok {
			want[i] = int64(n)
			continue
		}
		want[i] = a
	}

	mock.ExpectQuery(regexp.QuoteMeta(sqlText)).
		WithArgs(want...).
		WillReturnRows(sqlmock.NewRows(eventRowColumns).
			AddRow("9", q.From, models.EventSafetyOverride, int64(1), "b", nil))

	got, err := repo.List(ctx(t), q)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].EventID != "9" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_ScanError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewEventSQLite(db)

	rows := sqlmock.NewRows(eventRowColumns).
		// occurred_at wrong type to force scan error
		AddRow("x", 123, "START", nil, "msg", nil)

	sqlText, _ := buildEventQuery(EventQuery{})
	mock.ExpectQuery(regexp.QuoteMeta(sqlText)).WillReturnRows(rows)

	if _, err := repo.List(ctx(t), EventQuery{}); err == nil {
		t.Fatalf("expected scan error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}
