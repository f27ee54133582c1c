package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLine(t *testing.T) {
	ev := DonationCompletedEvent{
		EventID:       "9e2f1a7c-0000-0000-0000-000000000001",
		RequestID:     12,
		RequesterID:   3,
		RequesterName: "Ada",
		BloodType:     "A+",
		City:          "Izmir",
		Hospital:      "City Hospital",
		UnitsNeeded:   2,
		DonorIDs:      []uint64{7, 9},
		CompletedAt:   "2026-08-30T10:00:00Z",
	}
	line := formatLine(ev)
	assert.Contains(t, line, "request_id=12")
	assert.Contains(t, line, "blood_type=A+")
	assert.Contains(t, line, "donors=[7,9]")
	assert.Contains(t, line, `requester="Ada"`)
	assert.Contains(t, line, "[2026-08-30T10:00:00Z]")
	assert.Equal(t, "\n", line[len(line)-1:])
}

func TestFormatLineNoDonors(t *testing.T) {
	line := formatLine(DonationCompletedEvent{RequestID: 1})
	assert.Contains(t, line, "donors=[]")
}
