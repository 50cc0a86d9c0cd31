package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazemk/divvy/pkg/middleware"
	"github.com/hazemk/divvy/pkg/response"
)

// Handler exposes notification HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a new notification handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers notification routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/read-all", h.MarkAllRead)
	r.Post("/{id}/read", h.MarkRead)

	return r
}

// List godoc
// @Summary List notifications
// @Description Returns the authenticated user's notifications, newest first
// @Tags notifications
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param unread query bool false "Only unread notifications"
// @Success 200 {object} response.APIResponse{data=[]NotificationResponse}
// @Failure 401 {object} response.APIResponse
// @Router /notifications [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, total, err := h.service.List(r.Context(), userID, limit, (page-1)*limit, unreadOnly)
	if err != nil {
		response.InternalError(w, "Failed to list notifications")
		return
	}

	resp := make([]*NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, n.ToResponse())
	}

	response.JSONWithMeta(w, http.StatusOK, resp, &response.Meta{
		Page:       page,
		PerPage:    limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	})
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} response.APIResponse{data=NotificationResponse}
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /notifications/{id}/read [post]
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid notification ID")
		return
	}

	n, err := h.service.MarkRead(r.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotificationNotFound):
			response.NotFound(w, "Notification not found")
		case errors.Is(err, ErrNotRecipient):
			response.Forbidden(w, "Access denied: You can only manage your own notifications")
		default:
			response.InternalError(w, "Failed to mark notification read")
		}
		return
	}

	response.JSON(w, http.StatusOK, n.ToResponse())
}

// MarkAllRead godoc
// @Summary Mark all notifications as read
// @Tags notifications
// @Produce json
// @Success 204 "No Content"
// @Failure 401 {object} response.APIResponse
// @Router /notifications/read-all [post]
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	if err := h.service.MarkAllRead(r.Context(), userID); err != nil {
		response.InternalError(w, "Failed to mark notifications read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
