package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/furkanardicm/bloodshare-sub000/internal/metrics"
	"github.com/furkanardicm/bloodshare-sub000/internal/model"
	"github.com/furkanardicm/bloodshare-sub000/internal/queue"
	"github.com/furkanardicm/bloodshare-sub000/internal/repository"
	queue_publisher "github.com/furkanardicm/bloodshare-sub000/internal/service"
)

// DonorHandler implements the donor-matching workflow: volunteering,
// the requester's approve/reject decisions and request completion.
// Every mutation runs in a transaction that first locks the request
// row, so concurrent actors serialize there instead of racing each
// other to the last unit.  User rows are locked after the request row,
// always in that order.
type DonorHandler struct {
	Requests *repository.BloodRequestRepo
	Donors   *repository.DonorRepo
	Users    *repository.UserRepo
	Metrics  *metrics.Metrics

	// PublishEvents enables RabbitMQ publishing of completion events.
	PublishEvents bool
}

// NewDonorHandler constructs a DonorHandler.  Repositories must be
// non-nil; Metrics may be nil in tests.
func NewDonorHandler(r *repository.BloodRequestRepo, d *repository.DonorRepo, u *repository.UserRepo, m *metrics.Metrics) *DonorHandler {
	if r == nil || d == nil || u == nil {
		panic("nil repository passed to NewDonorHandler")
	}
	return &DonorHandler{Requests: r, Donors: d, Users: u, Metrics: m}
}

// Volunteer handles POST /v1/requests/:id/volunteer.  The caller joins
// the request as a PENDING donor; their name and email are snapshotted
// onto the entry.  An ACTIVE request flips to IN_PROGRESS once the
// candidate count reaches the unit count.  Volunteering never completes
// a request and is refused on COMPLETED ones.
func (h *DonorHandler) Volunteer(c echo.Context) error {
	started := time.Now()
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	requestID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || requestID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Requests.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	req, err := h.Requests.GetForUpdateTx(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if req.Status == model.RequestStatusCompleted {
		return c.JSON(http.StatusConflict, echo.Map{"error": "request already completed"})
	}
	if req.RequesterID == userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot volunteer for your own request"})
	}

	u, err := h.Users.GetForUpdateTx(ctx, tx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	d := model.RequestDonor{
		RequestID:  requestID,
		UserID:     userID,
		DonorName:  u.Name,
		DonorEmail: u.Email,
	}
	if err := h.Donors.InsertTx(ctx, tx, &d); err != nil {
		if errors.Is(err, repository.ErrAlreadyDonor) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "already volunteered for this request"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "volunteer failed"})
	}

	count, err := h.Donors.CountByRequestTx(ctx, tx, requestID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	next := model.StatusAfterVolunteer(req.Status, count, req.Units)
	if next != req.Status {
		if err := h.Requests.SetStatusTx(ctx, tx, requestID, next); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}

	u.ApplyVolunteer()
	if err := h.Users.UpdateCountersTx(ctx, tx, u); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	h.Metrics.IncrementDonorOutcome("volunteered")
	h.Metrics.ObserveWorkflowLatency("volunteer", time.Since(started))

	return c.JSON(http.StatusCreated, echo.Map{
		"donor_id":       d.ID,
		"donor_status":   d.Status,
		"request_status": next,
	})
}

// Approve handles POST /v1/requests/:id/donors/:userId/approve.  Only
// the requester may decide; capacity is bounded by the count of
// accepted donors, never by the raw candidate list.  When the approval
// fills the last unit the request completes in the same transaction.
func (h *DonorHandler) Approve(c echo.Context) error {
	return h.decide(c, model.DonorStatusApproved)
}

// Reject handles POST /v1/requests/:id/donors/:userId/reject.  The
// candidate's pending slot is released; the request status is never
// moved backwards, even if the rejection drops the candidate count
// below the unit count again.
func (h *DonorHandler) Reject(c echo.Context) error {
	return h.decide(c, model.DonorStatusRejected)
}

func (h *DonorHandler) decide(c echo.Context, decision string) error {
	started := time.Now()
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	requestID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || requestID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	donorUserID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || donorUserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid donor user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Requests.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	req, err := h.Requests.GetForUpdateTx(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if req.RequesterID != callerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the requester can decide on donors"})
	}
	if req.Status == model.RequestStatusCompleted {
		return c.JSON(http.StatusConflict, echo.Map{"error": "request already completed"})
	}

	d, err := h.Donors.GetByRequestAndUserTx(ctx, tx, requestID, donorUserID)
	if err != nil {
		if errors.Is(err, repository.ErrDonorNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "donor not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !model.ValidDonorTransition(d.Status, decision) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "donor already decided"})
	}

	accepted := 0
	if decision == model.DonorStatusApproved {
		accepted, err = h.Donors.CountAcceptedTx(ctx, tx, requestID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if model.CapacityReached(accepted, req.Units) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "request capacity reached"})
		}
	}

	if err := h.Donors.SetStatusTx(ctx, tx, d.ID, decision); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	u, err := h.Users.GetForUpdateTx(ctx, tx, donorUserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	now := time.Now()
	if decision == model.DonorStatusApproved {
		u.ApplyApproval(now)
	} else {
		u.ApplyRejection()
	}
	if err := h.Users.UpdateCountersTx(ctx, tx, u); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var (
		ev          queue.DonationCompletedEvent
		didComplete bool
	)
	if decision == model.DonorStatusApproved && model.CapacityReached(accepted+1, req.Units) {
		ev, didComplete, err = h.finalizeRequestTx(ctx, tx, req, now)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "complete request failed"})
		}
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	reqStatus := req.Status
	donorStatus := decision
	if decision == model.DonorStatusApproved {
		h.Metrics.IncrementDonorOutcome("approved")
		h.Metrics.ObserveWorkflowLatency("approve", time.Since(started))
	} else {
		h.Metrics.IncrementDonorOutcome("rejected")
		h.Metrics.ObserveWorkflowLatency("reject", time.Since(started))
	}
	if didComplete {
		reqStatus = model.RequestStatusCompleted
		donorStatus = model.DonorStatusCompleted
		h.afterCompletion(ev)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"donor_status":   donorStatus,
		"request_status": reqStatus,
	})
}

// Complete handles POST /v1/requests/:id/complete, the requester's
// manual completion.  Idempotent in effect: a request that is already
// COMPLETED answers 409 and nothing is flipped or published twice.
func (h *DonorHandler) Complete(c echo.Context) error {
	started := time.Now()
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	requestID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || requestID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Requests.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	req, err := h.Requests.GetForUpdateTx(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if req.RequesterID != callerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the requester can complete the request"})
	}

	ev, didComplete, err := h.finalizeRequestTx(ctx, tx, req, time.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "complete request failed"})
	}
	if !didComplete {
		return c.JSON(http.StatusConflict, echo.Map{"error": "request already completed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	h.Metrics.ObserveWorkflowLatency("complete", time.Since(started))
	h.afterCompletion(ev)

	return c.JSON(http.StatusOK, echo.Map{
		"request_status": model.RequestStatusCompleted,
		"donors":         ev.DonorIDs,
	})
}

// finalizeRequestTx is the single completion routine, shared by the
// auto-complete on the last approval and the requester's manual
// completion.  Within the caller's transaction it flips the request to
// COMPLETED, moves APPROVED entries to COMPLETED, rejects leftover
// PENDING candidates (releasing their pending slots), and builds the
// completion event.  The status guard inside MarkCompletedTx makes the
// whole routine a no-op on an already completed request, so counters
// can never be double-applied and the event can never fire twice.
func (h *DonorHandler) finalizeRequestTx(ctx context.Context, tx *sql.Tx, req model.BloodRequest, now time.Time) (queue.DonationCompletedEvent, bool, error) {
	changed, err := h.Requests.MarkCompletedTx(ctx, tx, req.ID)
	if err != nil {
		return queue.DonationCompletedEvent{}, false, err
	}
	if !changed {
		return queue.DonationCompletedEvent{}, false, nil
	}

	donorIDs, err := h.Donors.BulkSetStatusTx(ctx, tx, req.ID, model.DonorStatusApproved, model.DonorStatusCompleted)
	if err != nil {
		return queue.DonationCompletedEvent{}, false, err
	}
	pendingIDs, err := h.Donors.BulkSetStatusTx(ctx, tx, req.ID, model.DonorStatusPending, model.DonorStatusRejected)
	if err != nil {
		return queue.DonationCompletedEvent{}, false, err
	}
	for _, uid := range pendingIDs {
		u, err := h.Users.GetForUpdateTx(ctx, tx, uid)
		if err != nil {
			return queue.DonationCompletedEvent{}, false, err
		}
		u.ApplyRejection()
		if err := h.Users.UpdateCountersTx(ctx, tx, u); err != nil {
			return queue.DonationCompletedEvent{}, false, err
		}
	}

	requesterName := ""
	if requester, err := h.Users.GetByID(ctx, req.RequesterID); err == nil {
		requesterName = requester.Name
	}

	ev := queue.DonationCompletedEvent{
		EventID:       uuid.NewString(),
		RequestID:     req.ID,
		RequesterID:   req.RequesterID,
		RequesterName: requesterName,
		BloodType:     req.BloodType,
		City:          req.City,
		Hospital:      req.Hospital,
		UnitsNeeded:   req.Units,
		DonorIDs:      donorIDs,
		CompletedAt:   now.UTC().Format(time.RFC3339),
	}
	return ev, true, nil
}

// afterCompletion runs the post-commit side effects of a completed
// request: metrics and, when enabled, the broker event.  Publishing is
// fire-and-forget; a broker outage must not fail the HTTP request.
func (h *DonorHandler) afterCompletion(ev queue.DonationCompletedEvent) {
	h.Metrics.IncrementDonorOutcome("completed")
	h.Metrics.IncrementRequestsCompleted()
	if !h.PublishEvents {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishDonationCompleted(ctx, ev)
	}()
}

// MyDonations handles GET /v1/me/donations: the caller's donor entries
// joined with their requests, newest first.
func (h *DonorHandler) MyDonations(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Donors.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list donations failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"donations": out, "count": len(out)})
}
