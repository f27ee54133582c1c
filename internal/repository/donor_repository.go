package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/furkanardicm/bloodshare-sub000/internal/model"
)

// DonorRepo provides persistence for the request_donors table.  A row
// is one user's candidacy against one request; the UNIQUE(request_id,
// user_id) index is the authoritative duplicate guard, re-checked at
// insert time rather than only at the top of the handler.
type DonorRepo struct {
	db *sql.DB
}

// NewDonorRepo returns a DonorRepo bound to the given database.
func NewDonorRepo(db *sql.DB) *DonorRepo { return &DonorRepo{db: db} }

var (
	ErrDonorNotFound = errors.New("donor not found")
	ErrAlreadyDonor  = errors.New("already a donor on this request")
)

const donorColumns = `id, request_id, user_id, donor_name, donor_email, status, created_at, updated_at`

// InsertTx adds a PENDING donor entry within the given transaction,
// snapshotting the volunteer's name and email.  A duplicate
// (request_id, user_id) pair yields ErrAlreadyDonor.
func (r *DonorRepo) InsertTx(ctx context.Context, tx *sql.Tx, d *model.RequestDonor) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO request_donors (request_id, user_id, donor_name, donor_email, status)
		 VALUES (?,?,?,?,?)`,
		d.RequestID, d.UserID, d.DonorName, d.DonorEmail, model.DonorStatusPending)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrAlreadyDonor
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	d.Status = model.DonorStatusPending
	return nil
}

// GetByRequestAndUserTx fetches a donor entry by its request and user
// within the given transaction.  ErrDonorNotFound when absent.
func (r *DonorRepo) GetByRequestAndUserTx(ctx context.Context, tx *sql.Tx, requestID, userID uint64) (model.RequestDonor, error) {
	return scanDonor(tx.QueryRowContext(ctx,
		`SELECT `+donorColumns+` FROM request_donors WHERE request_id=? AND user_id=? LIMIT 1`,
		requestID, userID))
}

// SetStatusTx updates a donor entry's status within a transaction.
// Callers validate the transition with model.ValidDonorTransition
// against the entry read under the request row lock.
func (r *DonorRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, donorID uint64, status string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE request_donors SET status=? WHERE id=?`, status, donorID)
	return err
}

// CountByRequestTx returns the number of non-rejected donor entries on
// a request.  This is the candidate count that flips an ACTIVE request
// to IN_PROGRESS.
func (r *DonorRepo) CountByRequestTx(ctx context.Context, tx *sql.Tx, requestID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM request_donors WHERE request_id=? AND status<>?`,
		requestID, model.DonorStatusRejected).Scan(&n)
	return n, err
}

// CountAcceptedTx returns the number of APPROVED or COMPLETED donor
// entries on a request.  This count, never the raw list length, is
// what the units capacity bound applies to.
func (r *DonorRepo) CountAcceptedTx(ctx context.Context, tx *sql.Tx, requestID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM request_donors WHERE request_id=? AND status IN (?,?)`,
		requestID, model.DonorStatusApproved, model.DonorStatusCompleted).Scan(&n)
	return n, err
}

// BulkSetStatusTx moves every donor entry of a request currently in
// `from` to `to`, returning the affected user IDs.  Used by the
// completion routine to flip APPROVED entries to COMPLETED and to
// reject the leftover PENDING candidates.
func (r *DonorRepo) BulkSetStatusTx(ctx context.Context, tx *sql.Tx, requestID uint64, from, to string) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT user_id FROM request_donors WHERE request_id=? AND status=?`,
		requestID, from)
	if err != nil {
		return nil, err
	}
	var userIDs []uint64
	for rows.Next() {
		var uid uint64
		if scanErr := rows.Scan(&uid); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		userIDs = append(userIDs, uid)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return []uint64{}, nil
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE request_donors SET status=? WHERE request_id=? AND status=?`,
		to, requestID, from); err != nil {
		return nil, err
	}
	return userIDs, nil
}

// DonorEntry is the projection of one donor entry for the request
// detail view and the caller's donation history.
type DonorEntry struct {
	ID         uint64 `json:"id"`
	RequestID  uint64 `json:"request_id"`
	UserID     uint64 `json:"user_id"`
	DonorName  string `json:"donor_name"`
	DonorEmail string `json:"donor_email"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// ListByRequest returns all donor entries of a request in volunteer
// order.
func (r *DonorRepo) ListByRequest(ctx context.Context, requestID uint64) ([]DonorEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+donorColumns+` FROM request_donors WHERE request_id=? ORDER BY created_at ASC, id ASC`,
		requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// DonationRecord pairs a donor entry with the request it belongs to,
// for the caller's "my donations" view.
type DonationRecord struct {
	DonorEntry
	RequestStatus string `json:"request_status"`
	BloodType     string `json:"blood_type"`
	Hospital      string `json:"hospital"`
	City          string `json:"city"`
}

// ListByUser returns the caller's donor entries joined with their
// requests, newest first.
func (r *DonorRepo) ListByUser(ctx context.Context, userID uint64) ([]DonationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.request_id, d.user_id, d.donor_name, d.donor_email, d.status, d.created_at,
		        r.status, r.blood_type, r.hospital, r.city
		 FROM request_donors d
		 JOIN blood_requests r ON r.id = d.request_id
		 WHERE d.user_id=?
		 ORDER BY d.created_at DESC, d.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DonationRecord, 0)
	for rows.Next() {
		var (
			rec     DonationRecord
			created time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.RequestID, &rec.UserID, &rec.DonorName,
			&rec.DonorEmail, &rec.Status, &created,
			&rec.RequestStatus, &rec.BloodType, &rec.Hospital, &rec.City); err != nil {
			return nil, err
		}
		rec.CreatedAt = created.UTC().Format(time.RFC3339)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func collectEntries(rows *sql.Rows) ([]DonorEntry, error) {
	out := make([]DonorEntry, 0)
	for rows.Next() {
		var (
			e       DonorEntry
			created time.Time
			updated time.Time
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.UserID, &e.DonorName,
			&e.DonorEmail, &e.Status, &created, &updated); err != nil {
			return nil, err
		}
		e.CreatedAt = created.UTC().Format(time.RFC3339)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanDonor(row *sql.Row) (model.RequestDonor, error) {
	var d model.RequestDonor
	err := row.Scan(&d.ID, &d.RequestID, &d.UserID, &d.DonorName, &d.DonorEmail,
		&d.Status, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RequestDonor{}, ErrDonorNotFound
	}
	if err != nil {
		return model.RequestDonor{}, err
	}
	return d, nil
}
