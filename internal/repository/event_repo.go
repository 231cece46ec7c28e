package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"controlling_resistances/internal/models"

	"github.com/google/uuid"
)

const (
	insertEventSQL = `
		INSERT INTO control_events (id, occurred_at, type, heater, message, meta)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	eventColumns = `id, occurred_at, type, heater, message, meta`

	// sqliteTimestamp is the layout SQLite compares TIMESTAMP text with.
	sqliteTimestamp = "2006-01-02 15:04:05"
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

// Append inserts a new event, filling EventID and OccurredAt when empty.
func (r *EventSQLite) Append(ctx context.Context, e models.HeaterEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	var heater sql.NullInt64
	if e.Heater != nil {
		heater = sql.NullInt64{Int64: int64(*e.Heater), Valid: true}
	}

	// unmarshalable metadata is dropped rather than failing the event
	var meta sql.NullString
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			meta = sql.NullString{String: string(b), Valid: true}
		}
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		e.OccurredAt.UTC().Format(sqliteTimestamp),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		heater,
		e.Description,
		meta,
	)
	if err != nil {
		return fmt.Errorf("append %s event: %w", e.Type, err)
	}
	return nil
}

// buildEventQuery renders q as SQL. With a limit the newest rows are picked
// first and re-sorted ascending.
func buildEventQuery(q EventQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !q.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, q.From.UTC().Format(sqliteTimestamp))
	}
	if !q.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, q.To.UTC().Format(sqliteTimestamp))
	}
	if typ := strings.ToUpper(strings.TrimSpace(q.Type)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}
	if q.Heater != nil {
		conds = append(conds, "heater = ?")
		args = append(args, *q.Heater)
	}

	sqlText := "SELECT " + eventColumns + " FROM control_events"
	if len(conds) > 0 {
		sqlText += " WHERE " + strings.Join(conds, " AND ")
	}
	if q.Limit > 0 {
		sqlText = "SELECT " + eventColumns + " FROM (" + sqlText + " ORDER BY occurred_at DESC LIMIT ?)"
		args = append(args, q.Limit)
	}
	return sqlText + " ORDER BY occurred_at ASC", args
}

// List returns the events selected by q, oldest first.
func (r *EventSQLite) List(ctx context.Context, q EventQuery) ([]models.HeaterEvent, error) {
	sqlText, args := buildEventQuery(q)
	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]models.HeaterEvent, 0, 64)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanEvent(rows *sql.Rows) (models.HeaterEvent, error) {
	var (
		ev     models.HeaterEvent
		heater sql.NullInt64
		meta   sql.NullString
	)
	if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &heater, &ev.Description, &meta); err != nil {
		return models.HeaterEvent{}, fmt.Errorf("scan event: %w", err)
	}
	ev.OccurredAt = ev.OccurredAt.UTC()
	if heater.Valid {
		h := int(heater.Int64)
		ev.Heater = &h
	}
	if meta.Valid && meta.String != "" {
		var v any
		if err := json.Unmarshal([]byte(meta.String), &v); err == nil {
			ev.Metadata = v
		} else {
			ev.Metadata = meta.String
		}
	}
	return ev, nil
}
