package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oceanops/fleetwatch/pkg/models"
)

const selectApprovalSQL = `
	SELECT id, alert_id, unit_id, component, severity, summary, state,
		requested_at, expires_at, decided_at, approver, comments
	FROM approvals
`

// SaveApproval inserts a new approval request.
func (db *DB) SaveApproval(req *models.ApprovalRequest) error {
	const insertSQL = `
		INSERT INTO approvals
			(id, alert_id, unit_id, component, severity, summary, state, requested_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.DB.Exec(insertSQL,
		req.ID,
		req.AlertID,
		req.UnitID,
		req.Component,
		req.Severity,
		req.Summary,
		req.State,
		req.RequestedAt,
		req.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%w approval: %w", ErrFailedToInsert, err)
	}

	return nil
}

// UpdateApproval writes a decided or expired request's final state.
func (db *DB) UpdateApproval(req *models.ApprovalRequest) error {
	const updateSQL = `
		UPDATE approvals
		SET state = ?, decided_at = ?, approver = ?, comments = ?
		WHERE id = ?
	`

	result, err := db.DB.Exec(updateSQL,
		req.State,
		req.DecidedAt,
		nullString(req.Approver),
		nullString(req.Comments),
		req.ID)
	if err != nil {
		return fmt.Errorf("%w approval: %w", ErrFailedToUpdate, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w approval: %w", ErrFailedToUpdate, err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: approval %s", ErrNotFound, req.ID)
	}

	return nil
}

// GetApproval retrieves one approval request by id.
func (db *DB) GetApproval(id string) (*models.ApprovalRequest, error) {
	row := db.DB.QueryRow(selectApprovalSQL+" WHERE id = ?", id)

	req, err := scanApproval(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: approval %s", ErrNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("%w approval: %w", ErrFailedToQuery, err)
	}

	return req, nil
}

// ListPendingApprovals returns undecided requests, oldest first.
func (db *DB) ListPendingApprovals() ([]models.ApprovalRequest, error) {
	rows, err := db.DB.Query(selectApprovalSQL+" WHERE state = ? ORDER BY requested_at ASC",
		models.ApprovalPending) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w pending approvals: %w", ErrFailedToQuery, err)
	}
	defer CloseRows(&SQLRows{rows})

	var reqs []models.ApprovalRequest

	for rows.Next() {
		req, err := scanApproval(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w approval row: %w", ErrFailedToScan, err)
		}

		reqs = append(reqs, *req)
	}

	return reqs, nil
}

// AppendApprovalAudit writes one audit trail entry for a request.
func (db *DB) AppendApprovalAudit(requestID, event, actor, detail string, at time.Time) error {
	const insertSQL = `
		INSERT INTO approval_audit (request_id, event, actor, detail, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.DB.Exec(insertSQL, requestID, event, nullString(actor), nullString(detail), at)
	if err != nil {
		return fmt.Errorf("%w approval audit: %w", ErrFailedToInsert, err)
	}

	return nil
}

func scanApproval(scan func(dest ...interface{}) error) (*models.ApprovalRequest, error) {
	var (
		req       models.ApprovalRequest
		decidedAt sql.NullTime
		approver  sql.NullString
		comments  sql.NullString
	)

	err := scan(
		&req.ID,
		&req.AlertID,
		&req.UnitID,
		&req.Component,
		&req.Severity,
		&req.Summary,
		&req.State,
		&req.RequestedAt,
		&req.ExpiresAt,
		&decidedAt,
		&approver,
		&comments,
	)
	if err != nil {
		return nil, err
	}

	if decidedAt.Valid {
		req.DecidedAt = &decidedAt.Time
	}

	req.Approver = approver.String
	req.Comments = comments.String

	return &req, nil
}
