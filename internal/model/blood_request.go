package model

import "time"

// Request status values.  A request starts ACTIVE, moves to IN_PROGRESS
// once enough users have volunteered to cover its unit count, and ends
// COMPLETED.  COMPLETED is terminal; there is no way back.
const (
	RequestStatusActive     = "ACTIVE"
	RequestStatusInProgress = "IN_PROGRESS"
	RequestStatusCompleted  = "COMPLETED"
)

// Donor entry status values.  A donor entry starts PENDING and is moved
// by the requester to APPROVED or REJECTED.  APPROVED entries become
// COMPLETED when the request is completed.  REJECTED and COMPLETED are
// terminal.
const (
	DonorStatusPending   = "PENDING"
	DonorStatusApproved  = "APPROVED"
	DonorStatusRejected  = "REJECTED"
	DonorStatusCompleted = "COMPLETED"
)

// BloodRequest represents a posted need for a quantity of blood of a
// given type at a given hospital, as stored in the `blood_requests`
// table.  Donor entries live in the request_donors table and reference
// the request by ID.
//
// Fields:
//  ID          – primary key identifier.
//  RequesterID – user who posted the request.
//  BloodType   – blood group needed (one of the eight enumerated values).
//  Hospital    – hospital where the donation takes place.
//  City        – city used for request browsing.
//  Units       – total number of blood units needed (always > 0).
//  Description – free-text details supplied by the requester.
//  Contact     – contact string shown to volunteering donors.
//  Status      – ACTIVE, IN_PROGRESS or COMPLETED.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type BloodRequest struct {
	ID          uint64    // blood_requests.id
	RequesterID uint64    // blood_requests.requester_id
	BloodType   string    // blood_requests.blood_type
	Hospital    string    // blood_requests.hospital
	City        string    // blood_requests.city
	Units       uint32    // blood_requests.units
	Description string    // blood_requests.description
	Contact     string    // blood_requests.contact
	Status      string    // blood_requests.status
	CreatedAt   time.Time // blood_requests.created_at
	UpdatedAt   time.Time // blood_requests.updated_at
}

// RequestDonor records one user's candidacy to fulfill part of a blood
// request.  DonorName and DonorEmail are snapshots taken at volunteer
// time; they deliberately do not follow later profile edits, so the
// requester always sees the identity they originally accepted.
//
// Fields:
//  ID         – primary key identifier.
//  RequestID  – request this candidacy belongs to.
//  UserID     – volunteering user; unique per request.
//  DonorName  – volunteer-time snapshot of the user's name.
//  DonorEmail – volunteer-time snapshot of the user's email.
//  Status     – PENDING, APPROVED, REJECTED or COMPLETED.
//  CreatedAt  – when the user volunteered.
//  UpdatedAt  – last status change.
type RequestDonor struct {
	ID         uint64    // request_donors.id
	RequestID  uint64    // request_donors.request_id
	UserID     uint64    // request_donors.user_id
	DonorName  string    // request_donors.donor_name
	DonorEmail string    // request_donors.donor_email
	Status     string    // request_donors.status
	CreatedAt  time.Time // request_donors.created_at
	UpdatedAt  time.Time // request_donors.updated_at
}

// ValidRequestTransition reports whether a request may move from one
// status to another.  Forward-only: ACTIVE → IN_PROGRESS → COMPLETED,
// with ACTIVE → COMPLETED allowed when approvals fill the unit count
// before the volunteer threshold flips the request to IN_PROGRESS.
func ValidRequestTransition(from, to string) bool {
	switch from {
	case RequestStatusActive:
		return to == RequestStatusInProgress || to == RequestStatusCompleted
	case RequestStatusInProgress:
		return to == RequestStatusCompleted
	default:
		return false
	}
}

// ValidDonorTransition reports whether a donor entry may move from one
// status to another.  REJECTED and COMPLETED are terminal.
func ValidDonorTransition(from, to string) bool {
	switch from {
	case DonorStatusPending:
		return to == DonorStatusApproved || to == DonorStatusRejected
	case DonorStatusApproved:
		return to == DonorStatusCompleted
	default:
		return false
	}
}

// CapacityReached reports whether the number of approved-or-completed
// donor entries covers the request's unit count.  Capacity is gated on
// accepted donors, never on the raw donor-list length: a request with
// ten pending candidates and two units still has room to approve two.
func CapacityReached(approvedOrCompleted int, units uint32) bool {
	return approvedOrCompleted >= int(units)
}

// StatusAfterVolunteer returns the request status that should hold
// after a new donor entry is added.  An ACTIVE request flips to
// IN_PROGRESS once the candidate count reaches the unit count;
// volunteering never completes a request by itself.
func StatusAfterVolunteer(current string, donorCount int, units uint32) string {
	if current == RequestStatusActive && donorCount >= int(units) {
		return RequestStatusInProgress
	}
	return current
}
