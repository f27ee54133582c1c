package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/furkanardicm/bloodshare-sub000/internal/metrics"
	"github.com/furkanardicm/bloodshare-sub000/internal/model"
	"github.com/furkanardicm/bloodshare-sub000/internal/repository"
)

// RequestHandler serves creation and browsing of blood requests.
type RequestHandler struct {
	Requests *repository.BloodRequestRepo
	Donors   *repository.DonorRepo
	Metrics  *metrics.Metrics
}

// NewRequestHandler constructs a RequestHandler.  Repositories must be
// non-nil; Metrics may be nil in tests.
func NewRequestHandler(r *repository.BloodRequestRepo, d *repository.DonorRepo, m *metrics.Metrics) *RequestHandler {
	if r == nil || d == nil {
		panic("nil repository passed to NewRequestHandler")
	}
	return &RequestHandler{Requests: r, Donors: d, Metrics: m}
}

type createRequestReq struct {
	BloodType   string `json:"blood_type"`
	Hospital    string `json:"hospital"`
	City        string `json:"city"`
	Units       uint32 `json:"units"`
	Description string `json:"description"`
	Contact     string `json:"contact"`
}

type requestView struct {
	ID          uint64 `json:"id"`
	RequesterID uint64 `json:"requester_id"`
	BloodType   string `json:"blood_type"`
	Hospital    string `json:"hospital"`
	City        string `json:"city"`
	Units       uint32 `json:"units"`
	Description string `json:"description"`
	Contact     string `json:"contact"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func viewOf(r model.BloodRequest) requestView {
	return requestView{
		ID:          r.ID,
		RequesterID: r.RequesterID,
		BloodType:   r.BloodType,
		Hospital:    r.Hospital,
		City:        r.City,
		Units:       r.Units,
		Description: r.Description,
		Contact:     r.Contact,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create handles POST /v1/requests.  A new request always starts
// ACTIVE with at least one unit needed.
func (h *RequestHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !model.ValidBloodType(req.BloodType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid blood type"})
	}
	req.Hospital = strings.TrimSpace(req.Hospital)
	req.City = strings.TrimSpace(req.City)
	if req.Hospital == "" || req.City == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hospital/city required"})
	}
	if req.Units == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "units must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	r := model.BloodRequest{
		RequesterID: userID,
		BloodType:   model.NormalizeBloodType(req.BloodType),
		Hospital:    req.Hospital,
		City:        req.City,
		Units:       req.Units,
		Description: strings.TrimSpace(req.Description),
		Contact:     strings.TrimSpace(req.Contact),
	}
	if _, err := h.Requests.Create(ctx, &r); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create request failed"})
	}
	r.CreatedAt = time.Now().UTC()

	h.Metrics.IncrementRequestsCreated(r.BloodType)

	return c.JSON(http.StatusCreated, viewOf(r))
}

// List handles GET /v1/requests.  Public browse with optional status,
// city and blood_type filters; unrecognized filter values are ignored
// rather than failing the listing.
func (h *RequestHandler) List(c echo.Context) error {
	f := repository.ListFilter{}

	if s := strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))); s != "" {
		switch s {
		case model.RequestStatusActive, model.RequestStatusInProgress, model.RequestStatusCompleted:
			f.Status = s
		}
	}
	f.City = strings.TrimSpace(c.QueryParam("city"))
	if bt := c.QueryParam("blood_type"); bt != "" && model.ValidBloodType(bt) {
		f.BloodType = model.NormalizeBloodType(bt)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Requests.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list requests failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": out, "count": len(out)})
}

// Get handles GET /v1/requests/:id.  Returns the request together with
// its donor entries in volunteer order.
func (h *RequestHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	r, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	donors, err := h.Donors.ListByRequest(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"request": viewOf(r),
		"donors":  donors,
	})
}

// MyRequests handles GET /v1/me/requests: every request posted by the
// caller, newest first.
func (h *RequestHandler) MyRequests(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Requests.ListByRequester(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list requests failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": out, "count": len(out)})
}
