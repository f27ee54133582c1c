// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// DonationCompletedEvent is published when a blood request reaches its
// needed unit count and is marked COMPLETED.  It carries enough context
// for downstream consumers to log or notify without querying the
// primary database.
type DonationCompletedEvent struct {
	EventID       string   `json:"event_id"` // uuid, for de-duplication
	RequestID     uint64   `json:"request_id"`
	RequesterID   uint64   `json:"requester_id"`
	RequesterName string   `json:"requester_name"`
	BloodType     string   `json:"blood_type"`
	City          string   `json:"city"`
	Hospital      string   `json:"hospital"`
	UnitsNeeded   uint32   `json:"units_needed"`
	DonorIDs      []uint64 `json:"donor_ids"`
	CompletedAt   string   `json:"completed_at"` // RFC 3339 UTC
}
