package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// DonorWorkflowSuite exercises the pure state-machine helpers that the
// repositories and handlers build the donor-matching transaction around.
type DonorWorkflowSuite struct {
	suite.Suite
}

func TestDonorWorkflowSuite(t *testing.T) {
	suite.Run(t, new(DonorWorkflowSuite))
}

func (s *DonorWorkflowSuite) TestRequestTransitions() {
	s.Run("forward transitions are allowed", func() {
		s.True(ValidRequestTransition(RequestStatusActive, RequestStatusInProgress))
		s.True(ValidRequestTransition(RequestStatusActive, RequestStatusCompleted))
		s.True(ValidRequestTransition(RequestStatusInProgress, RequestStatusCompleted))
	})

	s.Run("completed is terminal", func() {
		s.False(ValidRequestTransition(RequestStatusCompleted, RequestStatusActive))
		s.False(ValidRequestTransition(RequestStatusCompleted, RequestStatusInProgress))
		s.False(ValidRequestTransition(RequestStatusCompleted, RequestStatusCompleted))
	})

	s.Run("no backwards transitions", func() {
		s.False(ValidRequestTransition(RequestStatusInProgress, RequestStatusActive))
	})
}

func (s *DonorWorkflowSuite) TestDonorTransitions() {
	s.Run("pending can be decided", func() {
		s.True(ValidDonorTransition(DonorStatusPending, DonorStatusApproved))
		s.True(ValidDonorTransition(DonorStatusPending, DonorStatusRejected))
	})

	s.Run("approved can only complete", func() {
		s.True(ValidDonorTransition(DonorStatusApproved, DonorStatusCompleted))
		s.False(ValidDonorTransition(DonorStatusApproved, DonorStatusRejected))
		s.False(ValidDonorTransition(DonorStatusApproved, DonorStatusPending))
	})

	s.Run("rejected and completed are terminal", func() {
		s.False(ValidDonorTransition(DonorStatusRejected, DonorStatusApproved))
		s.False(ValidDonorTransition(DonorStatusRejected, DonorStatusPending))
		s.False(ValidDonorTransition(DonorStatusCompleted, DonorStatusApproved))
	})

	s.Run("pending cannot skip straight to completed", func() {
		s.False(ValidDonorTransition(DonorStatusPending, DonorStatusCompleted))
	})
}

func (s *DonorWorkflowSuite) TestCapacity() {
	s.Run("accepted donors bound capacity, not raw candidate count", func() {
		s.False(CapacityReached(0, 2))
		s.False(CapacityReached(1, 2))
		s.True(CapacityReached(2, 2))
		s.True(CapacityReached(3, 2))
	})

	s.Run("single unit request", func() {
		s.False(CapacityReached(0, 1))
		s.True(CapacityReached(1, 1))
	})
}

func (s *DonorWorkflowSuite) TestStatusAfterVolunteer() {
	s.Run("second volunteer on a two-unit request flips to in progress", func() {
		s.Equal(RequestStatusActive, StatusAfterVolunteer(RequestStatusActive, 1, 2))
		s.Equal(RequestStatusInProgress, StatusAfterVolunteer(RequestStatusActive, 2, 2))
	})

	s.Run("volunteering never completes a request", func() {
		s.Equal(RequestStatusInProgress, StatusAfterVolunteer(RequestStatusInProgress, 5, 2))
	})

	s.Run("extra candidates keep the status stable", func() {
		s.Equal(RequestStatusInProgress, StatusAfterVolunteer(RequestStatusActive, 3, 2))
	})
}

func (s *DonorWorkflowSuite) TestCounters() {
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	s.Run("volunteer bumps pending and total", func() {
		u := User{}
		u.ApplyVolunteer()
		s.Equal(uint32(1), u.PendingDonations)
		s.Equal(uint32(1), u.TotalDonations)
		s.Equal(uint32(0), u.CompletedDonations)
	})

	s.Run("approval moves pending into completed exactly once", func() {
		u := User{PendingDonations: 1, TotalDonations: 1}
		u.ApplyApproval(now)
		s.Equal(uint32(0), u.PendingDonations)
		s.Equal(uint32(1), u.CompletedDonations)
		s.Equal(uint32(2), u.TotalDonations)
		s.Require().NotNil(u.LastDonationDate)
		s.Equal(now, *u.LastDonationDate)
	})

	s.Run("approval clamps pending at zero", func() {
		u := User{PendingDonations: 0}
		u.ApplyApproval(now)
		s.Equal(uint32(0), u.PendingDonations)
		s.Equal(uint32(1), u.CompletedDonations)
	})

	s.Run("rejection releases pending and never touches completed", func() {
		u := User{PendingDonations: 2, CompletedDonations: 3}
		u.ApplyRejection()
		s.Equal(uint32(1), u.PendingDonations)
		s.Equal(uint32(3), u.CompletedDonations)
	})

	s.Run("rejection clamps pending at zero", func() {
		u := User{PendingDonations: 0}
		u.ApplyRejection()
		s.Equal(uint32(0), u.PendingDonations)
	})
}

func (s *DonorWorkflowSuite) TestBloodTypes() {
	for _, bt := range []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"} {
		s.True(ValidBloodType(bt), bt)
	}
	s.True(ValidBloodType(" o+ "))
	s.False(ValidBloodType("C+"))
	s.False(ValidBloodType(""))
	s.Equal("AB-", NormalizeBloodType(" ab- "))
}
