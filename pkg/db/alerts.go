package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oceanops/fleetwatch/pkg/models"
)

const selectAlertSQL = `
	SELECT id, unit_id, component, state, raised_at, last_confirmed_at,
		resolved_at, escalated, ticket_ref, uptime, downtime_aging_s
	FROM alerts
`

// GetOpenAlert returns the open alert for a (unit, component) pair, or
// nil when none exists.
func (db *DB) GetOpenAlert(unitID string, component models.Component) (*models.Alert, error) {
	row := db.DB.QueryRow(selectAlertSQL+" WHERE unit_id = ? AND component = ? AND state = ?",
		unitID, component, models.AlertOpen)

	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w open alert: %w", ErrFailedToQuery, err)
	}

	return alert, nil
}

// CreateAlert inserts a new open alert and returns its id. The partial
// unique index rejects a second open alert for the same pair.
func (db *DB) CreateAlert(alert *models.Alert) (int64, error) {
	const insertSQL = `
		INSERT INTO alerts
			(unit_id, component, state, raised_at, last_confirmed_at, escalated, uptime, downtime_aging_s)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`

	result, err := db.DB.Exec(insertSQL,
		alert.UnitID,
		alert.Component,
		models.AlertOpen,
		alert.RaisedAt,
		alert.LastConfirmedAt,
		alert.Uptime,
		int64(alert.DowntimeAging.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("%w alert: %w", ErrFailedToInsert, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w alert id: %w", ErrFailedToInsert, err)
	}

	return id, nil
}

// ConfirmAlert refreshes an open alert's last-confirmed timestamp and
// current measurements.
func (db *DB) ConfirmAlert(id int64, at time.Time, uptime float64, aging time.Duration) error {
	const updateSQL = `
		UPDATE alerts
		SET last_confirmed_at = ?, uptime = ?, downtime_aging_s = ?
		WHERE id = ? AND state = ?
	`

	return db.updateAlert(updateSQL, at, uptime, int64(aging.Seconds()), id, models.AlertOpen)
}

// EscalateAlert sets the escalated flag. The flag is never cleared while
// the alert stays open.
func (db *DB) EscalateAlert(id int64) error {
	const updateSQL = `UPDATE alerts SET escalated = 1 WHERE id = ? AND state = ?`

	return db.updateAlert(updateSQL, id, models.AlertOpen)
}

// ResolveAlert closes an open alert.
func (db *DB) ResolveAlert(id int64, at time.Time) error {
	const updateSQL = `UPDATE alerts SET state = ?, resolved_at = ? WHERE id = ? AND state = ?`

	return db.updateAlert(updateSQL, models.AlertResolved, at, id, models.AlertOpen)
}

// SetAlertTicket links a created ticket to its alert.
func (db *DB) SetAlertTicket(id int64, ticketRef string) error {
	const updateSQL = `UPDATE alerts SET ticket_ref = ? WHERE id = ?`

	return db.updateAlert(updateSQL, ticketRef, id)
}

func (db *DB) updateAlert(query string, args ...interface{}) error {
	result, err := db.DB.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("%w alert: %w", ErrFailedToUpdate, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w alert: %w", ErrFailedToUpdate, err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: alert", ErrNotFound)
	}

	return nil
}

// ListOpenAlerts returns every open alert, oldest raised first.
func (db *DB) ListOpenAlerts() ([]models.Alert, error) {
	rows, err := db.DB.Query(selectAlertSQL+" WHERE state = ? ORDER BY raised_at ASC", models.AlertOpen) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w open alerts: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	var alerts []models.Alert

	for rows.Next() {
		alert, err := scanAlertRow(rows)
		if err != nil {
			return nil, err
		}

		alerts = append(alerts, *alert)
	}

	return alerts, nil
}

// SaveTicket upserts a local ticket record.
func (db *DB) SaveTicket(ticket *models.Ticket) error {
	const upsertSQL = `
		INSERT INTO tickets (ticket_ref, alert_id, unit_id, component, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticket_ref) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at
	`

	_, err := db.DB.Exec(upsertSQL,
		ticket.Ref,
		ticket.AlertID,
		ticket.UnitID,
		ticket.Component,
		ticket.Status,
		ticket.CreatedAt,
		ticket.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w ticket: %w", ErrFailedToInsert, err)
	}

	return nil
}

// UpdateTicketStatus advances a ticket's tracked status.
func (db *DB) UpdateTicketStatus(ref string, status models.TicketStatus, at time.Time) error {
	const updateSQL = `UPDATE tickets SET status = ?, updated_at = ? WHERE ticket_ref = ?`

	result, err := db.DB.Exec(updateSQL, status, at, ref)
	if err != nil {
		return fmt.Errorf("%w ticket: %w", ErrFailedToUpdate, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w ticket: %w", ErrFailedToUpdate, err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: ticket %s", ErrNotFound, ref)
	}

	return nil
}

// RecordComponentStatus appends one component status sample to the history.
func (db *DB) RecordComponentStatus(status *models.ComponentStatus, at time.Time) error {
	const insertSQL = `
		INSERT INTO component_history (unit_id, component, uptime, state, downtime_aging_s, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.DB.Exec(insertSQL,
		status.UnitID,
		status.Component,
		status.UptimePercentage,
		status.State,
		int64(status.DowntimeAging.Seconds()),
		at)
	if err != nil {
		return fmt.Errorf("%w component history: %w", ErrFailedToInsert, err)
	}

	return nil
}

// GetComponentHistory returns the most recent history points for one
// component, newest first.
func (db *DB) GetComponentHistory(unitID string, component models.Component, limit int) ([]ComponentHistoryPoint, error) {
	const querySQL = `
		SELECT unit_id, component, uptime, state, downtime_aging_s, recorded_at
		FROM component_history
		WHERE unit_id = ? AND component = ?
		ORDER BY recorded_at DESC
		LIMIT ?
	`

	rows, err := db.DB.Query(querySQL, unitID, component, limit) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w component history: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	return scanHistoryPoints(rows)
}

// GetFleetSnapshot returns the latest recorded status per (unit, component).
func (db *DB) GetFleetSnapshot() ([]ComponentHistoryPoint, error) {
	const querySQL = `
		SELECT h.unit_id, h.component, h.uptime, h.state, h.downtime_aging_s, h.recorded_at
		FROM component_history h
		JOIN (
			SELECT unit_id, component, MAX(recorded_at) AS latest
			FROM component_history
			GROUP BY unit_id, component
		) m ON h.unit_id = m.unit_id AND h.component = m.component AND h.recorded_at = m.latest
		ORDER BY h.unit_id, h.component
	`

	rows, err := db.DB.Query(querySQL) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w fleet snapshot: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	return scanHistoryPoints(rows)
}

func scanHistoryPoints(rows *sql.Rows) ([]ComponentHistoryPoint, error) {
	var points []ComponentHistoryPoint

	for rows.Next() {
		var (
			p      ComponentHistoryPoint
			agingS int64
		)

		if err := rows.Scan(&p.UnitID, &p.Component, &p.Uptime, &p.State, &agingS, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("%w history point: %w", ErrFailedToScan, err)
		}

		p.DowntimeAging = time.Duration(agingS) * time.Second

		points = append(points, p)
	}

	return points, nil
}

func scanAlert(row *sql.Row) (*models.Alert, error) {
	var (
		alert      models.Alert
		resolvedAt sql.NullTime
		ticketRef  sql.NullString
		agingS     int64
	)

	err := row.Scan(
		&alert.ID,
		&alert.UnitID,
		&alert.Component,
		&alert.State,
		&alert.RaisedAt,
		&alert.LastConfirmedAt,
		&resolvedAt,
		&alert.Escalated,
		&ticketRef,
		&alert.Uptime,
		&agingS,
	)
	if err != nil {
		return nil, err
	}

	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}

	alert.TicketRef = ticketRef.String
	alert.DowntimeAging = time.Duration(agingS) * time.Second

	return &alert, nil
}

func scanAlertRow(rows *sql.Rows) (*models.Alert, error) {
	var (
		alert      models.Alert
		resolvedAt sql.NullTime
		ticketRef  sql.NullString
		agingS     int64
	)

	err := rows.Scan(
		&alert.ID,
		&alert.UnitID,
		&alert.Component,
		&alert.State,
		&alert.RaisedAt,
		&alert.LastConfirmedAt,
		&resolvedAt,
		&alert.Escalated,
		&ticketRef,
		&alert.Uptime,
		&agingS,
	)
	if err != nil {
		return nil, fmt.Errorf("%w alert row: %w", ErrFailedToScan, err)
	}

	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}

	alert.TicketRef = ticketRef.String
	alert.DowntimeAging = time.Duration(agingS) * time.Second

	return &alert, nil
}
