package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/furkanardicm/bloodshare-sub000/internal/model"
	"github.com/furkanardicm/bloodshare-sub000/internal/utils"
)

// UserRepo provides persistence for the users table, including the
// donation counters mutated by the donor-matching workflow.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// NewUserParams carries the registration fields for Create.  Password
// is the plain text value; it is hashed with bcrypt before insertion.
type NewUserParams struct {
	Name      string
	Email     string
	Password  string
	BloodType string
	City      string
	Phone     string
	IsDonor   bool
}

const userColumns = `id, name, email, password_hash, blood_type, city, phone, is_donor,
	total_donations, pending_donations, completed_donations, last_donation_date,
	is_active, created_at, updated_at`

// Create inserts a user and returns its ID.  The email is normalized
// to lowercase; a duplicate email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, p NewUserParams, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	hash, err := utils.HashPassword(p.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, blood_type, city, phone, is_donor)
		 VALUES (?,?,?,?,?,?,?)`,
		p.Name, email, hash, model.NormalizeBloodType(p.BloodType), p.City, p.Phone, p.IsDonor)
	if err != nil {
		// MySQL error 1062: duplicate entry on the unique email index
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id))
}

// GetForUpdateTx fetches a user row inside the given transaction with a
// row lock, so that counter updates read and write a consistent value.
// The donor-matching handlers lock the request row first, then the user
// row, always in that order.
func (r *UserRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	return r.scanOne(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1 FOR UPDATE`, id))
}

// UpdateCountersTx writes back the donation counters and last donation
// date for a user previously loaded with GetForUpdateTx.  The caller
// mutates the model via its Apply* helpers; this method persists the
// result within the same transaction.
func (r *UserRepo) UpdateCountersTx(ctx context.Context, tx *sql.Tx, u model.User) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users
		 SET total_donations=?, pending_donations=?, completed_donations=?, last_donation_date=?
		 WHERE id=?`,
		u.TotalDonations, u.PendingDonations, u.CompletedDonations, u.LastDonationDate, u.ID)
	return err
}

// DonationStats aggregates a user's donation counters together with the
// number of donor entries still awaiting a decision across requests.
type DonationStats struct {
	TotalDonations     uint32  `json:"total_donations"`
	PendingDonations   uint32  `json:"pending_donations"`
	CompletedDonations uint32  `json:"completed_donations"`
	LastDonationDate   *string `json:"last_donation_date"`
	ActiveCandidacies  uint32  `json:"active_candidacies"`
}

// Stats returns the donation statistics projection for a user.
func (r *UserRepo) Stats(ctx context.Context, userID uint64) (DonationStats, error) {
	var (
		st   DonationStats
		last sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT total_donations, pending_donations, completed_donations, last_donation_date
		 FROM users WHERE id=? LIMIT 1`, userID).
		Scan(&st.TotalDonations, &st.PendingDonations, &st.CompletedDonations, &last)
	if err != nil {
		return DonationStats{}, err
	}
	if last.Valid {
		iso := last.Time.UTC().Format(time.RFC3339)
		st.LastDonationDate = &iso
	}
	err = r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM request_donors WHERE user_id=? AND status=?`,
		userID, model.DonorStatusPending).Scan(&st.ActiveCandidacies)
	if err != nil {
		return DonationStats{}, err
	}
	return st, nil
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u    model.User
		last sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.BloodType, &u.City,
		&u.Phone, &u.IsDonor, &u.TotalDonations, &u.PendingDonations,
		&u.CompletedDonations, &last, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if last.Valid {
		t := last.Time
		u.LastDonationDate = &t
	}
	return u, nil
}
