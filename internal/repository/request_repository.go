package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/furkanardicm/bloodshare-sub000/internal/model"
)

// BloodRequestRepo provides persistence for the blood_requests table.
// Status transitions are guarded in SQL so a request can never move
// backwards out of COMPLETED, regardless of interleaving.
type BloodRequestRepo struct {
	db *sql.DB
}

// NewBloodRequestRepo returns a BloodRequestRepo bound to the given database.
func NewBloodRequestRepo(db *sql.DB) *BloodRequestRepo { return &BloodRequestRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning requests, donors and users.
func (r *BloodRequestRepo) DB() *sql.DB { return r.db }

var ErrRequestNotFound = errors.New("request not found")

const requestColumns = `id, requester_id, blood_type, hospital, city, units,
	description, contact, status, created_at, updated_at`

// Create inserts a new ACTIVE blood request and returns its ID.
func (r *BloodRequestRepo) Create(ctx context.Context, req *model.BloodRequest) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO blood_requests (requester_id, blood_type, hospital, city, units, description, contact, status)
		 VALUES (?,?,?,?,?,?,?,?)`,
		req.RequesterID, req.BloodType, req.Hospital, req.City, req.Units,
		req.Description, req.Contact, model.RequestStatusActive)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	req.ID = uint64(id)
	req.Status = model.RequestStatusActive
	return req.ID, nil
}

// GetByID fetches a request by id.  ErrRequestNotFound is returned
// when no row exists.
func (r *BloodRequestRepo) GetByID(ctx context.Context, id uint64) (model.BloodRequest, error) {
	return scanRequest(r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM blood_requests WHERE id=? LIMIT 1`, id))
}

// GetForUpdateTx fetches a request row inside the given transaction
// with a row lock.  Every donor-matching mutation starts here so that
// concurrent volunteers, approvals and completions serialize on the
// request row instead of racing each other to the last unit.
func (r *BloodRequestRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.BloodRequest, error) {
	return scanRequest(tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM blood_requests WHERE id=? LIMIT 1 FOR UPDATE`, id))
}

// SetStatusTx updates the request status within a transaction.  The
// caller is expected to have validated the transition with
// model.ValidRequestTransition against the locked row.
func (r *BloodRequestRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE blood_requests SET status=? WHERE id=?`, status, id)
	return err
}

// MarkCompletedTx flips a request to COMPLETED and reports whether the
// row actually changed.  The status guard in the WHERE clause makes
// completion idempotent: a second call affects zero rows and the caller
// skips donor flips, counter changes and event publishing entirely.
func (r *BloodRequestRepo) MarkCompletedTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE blood_requests SET status=? WHERE id=? AND status<>?`,
		model.RequestStatusCompleted, id, model.RequestStatusCompleted)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RequestSummary is the browse projection of a blood request: the
// request fields plus the requester's display name and donor counts.
type RequestSummary struct {
	ID            uint64 `json:"id"`
	RequesterID   uint64 `json:"requester_id"`
	RequesterName string `json:"requester_name"`
	BloodType     string `json:"blood_type"`
	Hospital      string `json:"hospital"`
	City          string `json:"city"`
	Units         uint32 `json:"units"`
	Description   string `json:"description"`
	Contact       string `json:"contact"`
	Status        string `json:"status"`
	DonorCount    uint32 `json:"donor_count"`
	AcceptedCount uint32 `json:"accepted_count"`
	CreatedAt     string `json:"created_at"`
}

// ListFilter narrows the request listing.  Zero values mean "no
// filter"; an unrecognized status or blood type is treated as absent
// rather than failing the listing (skip-unparsable policy).
type ListFilter struct {
	Status    string
	City      string
	BloodType string
}

// List returns request summaries matching the filter, newest first.  A
// row that fails to scan is logged and skipped; one malformed row must
// never take down the whole listing.
func (r *BloodRequestRepo) List(ctx context.Context, f ListFilter) ([]RequestSummary, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		where = append(where, "r.status = ?")
		args = append(args, f.Status)
	}
	if f.City != "" {
		where = append(where, "LOWER(r.city) = ?")
		args = append(args, strings.ToLower(f.City))
	}
	if f.BloodType != "" {
		where = append(where, "r.blood_type = ?")
		args = append(args, f.BloodType)
	}

	q := `SELECT r.id, r.requester_id, u.name, r.blood_type, r.hospital, r.city, r.units,
	             r.description, r.contact, r.status,
	             (SELECT COUNT(*) FROM request_donors d
	               WHERE d.request_id = r.id AND d.status <> '` + model.DonorStatusRejected + `'),
	             (SELECT COUNT(*) FROM request_donors d
	               WHERE d.request_id = r.id AND d.status IN ('` + model.DonorStatusApproved + `','` + model.DonorStatusCompleted + `')),
	             r.created_at
	      FROM blood_requests r
	      JOIN users u ON u.id = r.requester_id
	      WHERE ` + strings.Join(where, " AND ") + `
	      ORDER BY r.created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RequestSummary, 0)
	for rows.Next() {
		var (
			s       RequestSummary
			created time.Time
		)
		if err := rows.Scan(&s.ID, &s.RequesterID, &s.RequesterName, &s.BloodType,
			&s.Hospital, &s.City, &s.Units, &s.Description, &s.Contact, &s.Status,
			&s.DonorCount, &s.AcceptedCount, &created); err != nil {
			log.Printf("request list: skipping unreadable row: %v", err)
			continue
		}
		s.CreatedAt = created.UTC().Format(time.RFC3339)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByRequester returns all requests posted by the given user,
// newest first, using the same summary projection as List.
func (r *BloodRequestRepo) ListByRequester(ctx context.Context, userID uint64) ([]RequestSummary, error) {
	q := `SELECT r.id, r.requester_id, u.name, r.blood_type, r.hospital, r.city, r.units,
	             r.description, r.contact, r.status,
	             (SELECT COUNT(*) FROM request_donors d
	               WHERE d.request_id = r.id AND d.status <> '` + model.DonorStatusRejected + `'),
	             (SELECT COUNT(*) FROM request_donors d
	               WHERE d.request_id = r.id AND d.status IN ('` + model.DonorStatusApproved + `','` + model.DonorStatusCompleted + `')),
	             r.created_at
	      FROM blood_requests r
	      JOIN users u ON u.id = r.requester_id
	      WHERE r.requester_id = ?
	      ORDER BY r.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RequestSummary, 0)
	for rows.Next() {
		var (
			s       RequestSummary
			created time.Time
		)
		if err := rows.Scan(&s.ID, &s.RequesterID, &s.RequesterName, &s.BloodType,
			&s.Hospital, &s.City, &s.Units, &s.Description, &s.Contact, &s.Status,
			&s.DonorCount, &s.AcceptedCount, &created); err != nil {
			log.Printf("request list: skipping unreadable row: %v", err)
			continue
		}
		s.CreatedAt = created.UTC().Format(time.RFC3339)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanRequest(row *sql.Row) (model.BloodRequest, error) {
	var req model.BloodRequest
	err := row.Scan(&req.ID, &req.RequesterID, &req.BloodType, &req.Hospital, &req.City,
		&req.Units, &req.Description, &req.Contact, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BloodRequest{}, ErrRequestNotFound
	}
	if err != nil {
		return model.BloodRequest{}, err
	}
	return req, nil
}
