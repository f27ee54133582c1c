package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/furkanardicm/bloodshare-sub000/internal/model"
	"github.com/furkanardicm/bloodshare-sub000/internal/repository"
)

// ProfileHandler serves the public donor search and the caller's
// donation statistics.
type ProfileHandler struct {
	Users *repository.UserRepo
}

func NewProfileHandler(u *repository.UserRepo) *ProfileHandler {
	if u == nil {
		panic("nil repository passed to NewProfileHandler")
	}
	return &ProfileHandler{Users: u}
}

// SearchDonors handles GET /v1/donors.  Public search over users who
// opted in as donors, filtered by city substring and exact blood type,
// paginated.  An invalid blood_type filter is ignored rather than
// failing the search.
func (h *ProfileHandler) SearchDonors(c echo.Context) error {
	q := repository.DonorSearchQuery{
		City: strings.TrimSpace(c.QueryParam("city")),
	}
	if bt := c.QueryParam("blood_type"); bt != "" && model.ValidBloodType(bt) {
		q.BloodType = model.NormalizeBloodType(bt)
	}
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		q.Page = page
	}
	if size, err := strconv.Atoi(c.QueryParam("page_size")); err == nil {
		q.PageSize = size
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	donors, total, err := h.Users.SearchDonors(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search donors failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"donors": donors,
		"total":  total,
	})
}

// Stats handles GET /v1/me/stats: the caller's donation counters, last
// donation date and number of candidacies still awaiting a decision.
func (h *ProfileHandler) Stats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	st, err := h.Users.Stats(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load stats failed"})
	}
	return c.JSON(http.StatusOK, st)
}
