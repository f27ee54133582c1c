package repository

import (
	"context"
	"strings"

	"github.com/furkanardicm/bloodshare-sub000/internal/model"
)

// DonorSearchQuery defines filters & pagination for searching donors.
type DonorSearchQuery struct {
	City      string
	BloodType string
	Page      int
	PageSize  int
}

// DonorProfileRow is the public projection of a user who opted in as a
// donor.  Email and phone are included because the whole point of the
// search is to let requesters make contact.
type DonorProfileRow struct {
	ID                 uint64 `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	BloodType          string `json:"blood_type"`
	City               string `json:"city"`
	Phone              string `json:"phone"`
	CompletedDonations uint32 `json:"completed_donations"`
}

// SearchDonors returns active donor profiles matching the query plus
// the total match count for pagination.  City matches by substring,
// blood type exactly.  Invalid blood types are ignored by the handler
// before the query is built.
func (r *UserRepo) SearchDonors(ctx context.Context, q DonorSearchQuery) ([]DonorProfileRow, int64, error) {
	where := []string{"is_donor = 1", "is_active = 1"}
	args := []any{}

	if q.City != "" {
		where = append(where, "LOWER(city) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.City)+"%")
	}
	if q.BloodType != "" {
		where = append(where, "blood_type = ?")
		args = append(args, model.NormalizeBloodType(q.BloodType))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT id, name, email, blood_type, city, phone, completed_donations
		FROM users
		WHERE ` + cond + `
		ORDER BY completed_donations DESC, id ASC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.DB.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]DonorProfileRow, 0, limit)
	for rows.Next() {
		var d DonorProfileRow
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.BloodType, &d.City,
			&d.Phone, &d.CompletedDonations); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
