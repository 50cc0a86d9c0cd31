package balance

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazemk/divvy/internal/expense"
	"github.com/hazemk/divvy/pkg/middleware"
	"github.com/hazemk/divvy/pkg/response"
)

// Handler exposes balance HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a new balance handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers balance routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ForUser)
	r.Get("/group/{groupId}", h.ForGroup)

	return r
}

// ForUser godoc
// @Summary Get my balances
// @Description Returns the authenticated user's net balances and pairwise debts across all expenses
// @Tags balances
// @Produce json
// @Success 200 {object} response.APIResponse{data=Summary}
// @Failure 401 {object} response.APIResponse
// @Router /balances [get]
func (h *Handler) ForUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	summary, err := h.service.ForUser(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to compute balances")
		return
	}

	response.JSON(w, http.StatusOK, summary)
}

// ForGroup godoc
// @Summary Get group balances
// @Description Returns net balances and pairwise debts within a group
// @Tags balances
// @Produce json
// @Param groupId path int true "Group ID"
// @Success 200 {object} response.APIResponse{data=Summary}
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /balances/group/{groupId} [get]
func (h *Handler) ForGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	summary, err := h.service.ForGroup(r.Context(), userID, groupID)
	if err != nil {
		switch {
		case errors.Is(err, expense.ErrGroupNotFound):
			response.NotFound(w, "Group not found")
		case errors.Is(err, ErrNotGroupMember):
			response.Forbidden(w, "Access denied: You are not a member of this group")
		default:
			response.InternalError(w, "Failed to compute balances")
		}
		return
	}

	response.JSON(w, http.StatusOK, summary)
}
