package model

import (
	"strings"
	"time"
)

// bloodTypes enumerates the eight supported blood groups.  Values are
// stored verbatim in the `blood_type` columns of both users and
// blood_requests.
var bloodTypes = map[string]bool{
	"A+": true, "A-": true,
	"B+": true, "B-": true,
	"AB+": true, "AB-": true,
	"O+": true, "O-": true,
}

// ValidBloodType reports whether s is one of the eight supported blood
// groups.  Comparison is case-insensitive; callers should persist the
// normalized form returned by NormalizeBloodType.
func ValidBloodType(s string) bool {
	return bloodTypes[NormalizeBloodType(s)]
}

// NormalizeBloodType upper-cases and trims a blood group string so that
// "o+" and " O+ " compare equal to the stored "O+".
func NormalizeBloodType(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// User represents an application user record as stored in the `users`
// table.  Donation counters are owned by the donor-matching workflow:
// volunteering bumps PendingDonations and TotalDonations, an approval
// moves a pending donation into CompletedDonations, and a rejection
// releases the pending slot.  Counters never go below zero.
//
// Fields:
//  ID                 – primary key identifier of the user.
//  Name               – display name, snapshotted onto donor entries.
//  Email              – unique, lowercase email address.
//  PasswordHash       – bcrypt hashed password.
//  BloodType          – one of the eight enumerated blood groups.
//  City               – city used for donor search.
//  Phone              – contact phone number.
//  IsDonor            – whether the user appears in donor search results.
//  TotalDonations     – lifetime count of volunteer actions.
//  PendingDonations   – donor entries currently awaiting a decision.
//  CompletedDonations – donor entries approved by a requester.
//  LastDonationDate   – timestamp of the most recent approval (nil if none).
//  IsActive           – whether the account is active.
//  CreatedAt          – timestamp of creation.
//  UpdatedAt          – timestamp of last update.
type User struct {
	ID                 uint64     // users.id
	Name               string     // users.name
	Email              string     // users.email
	PasswordHash       string     // users.password_hash
	BloodType          string     // users.blood_type
	City               string     // users.city
	Phone              string     // users.phone
	IsDonor            bool       // users.is_donor
	TotalDonations     uint32     // users.total_donations
	PendingDonations   uint32     // users.pending_donations
	CompletedDonations uint32     // users.completed_donations
	LastDonationDate   *time.Time // users.last_donation_date (nullable)
	IsActive           bool       // users.is_active
	CreatedAt          time.Time  // users.created_at
	UpdatedAt          time.Time  // users.updated_at
}

// ApplyVolunteer records the counter effect of volunteering for a
// request: one more pending donation and one more lifetime donation.
func (u *User) ApplyVolunteer() {
	u.PendingDonations++
	u.TotalDonations++
}

// ApplyApproval records the counter effect of a requester approving
// this user's donor entry.  The pending slot is released (clamped at
// zero), the completed and lifetime counters advance, and the last
// donation date is set to now.
func (u *User) ApplyApproval(now time.Time) {
	u.CompletedDonations++
	decrementClamped(&u.PendingDonations)
	u.TotalDonations++
	t := now.UTC()
	u.LastDonationDate = &t
}

// ApplyRejection records the counter effect of a rejected donor entry:
// the pending slot is released, nothing else changes.
func (u *User) ApplyRejection() {
	decrementClamped(&u.PendingDonations)
}

func decrementClamped(n *uint32) {
	if *n > 0 {
		*n--
	}
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user; only the SHA-256 hash of the token
// value is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (nil if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
