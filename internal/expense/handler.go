package expense

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hazemk/divvy/internal/expense/split"
	"github.com/hazemk/divvy/pkg/middleware"
	"github.com/hazemk/divvy/pkg/response"
)

// Handler handles HTTP requests for expense and split operations.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler creates a new expense handler.
func NewHandler(service *Service, validate *validator.Validate) *Handler {
	return &Handler{service: service, validate: validate}
}

// Routes returns the router for expense endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.ListMine)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	r.Get("/group/{groupId}", h.ListByGroup)

	r.Post("/splits/{splitId}/settle", h.Settle)
	r.Post("/splits/{splitId}/unsettle", h.Unsettle)

	return r
}

// writeError maps service failures onto the API error envelope. Validation
// and authorization failures carry their message verbatim; they are client
// errors, never retried.
func writeError(w http.ResponseWriter, err error) {
	var splitErr *split.ValidationError
	var validationErr *ValidationError
	var accessErr *AccessError

	switch {
	case errors.Is(err, ErrExpenseNotFound),
		errors.Is(err, ErrSplitNotFound),
		errors.Is(err, ErrGroupNotFound):
		response.NotFound(w, err.Error())
	case errors.As(err, &splitErr), errors.As(err, &validationErr):
		response.BadRequest(w, err.Error())
	case errors.As(err, &accessErr):
		response.Forbidden(w, err.Error())
	default:
		response.InternalError(w, "Internal server error")
	}
}

// Create handles POST /expenses
// @Summary      Create an expense
// @Description  Create an expense; splits are computed with the EQUAL, EXACT, PERCENTAGE, or SHARES policy and persisted atomically with the expense
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        request body CreateExpenseRequest true "Expense creation request"
// @Success      201 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.ValidationFailed(w, err)
		return
	}

	result, err := h.service.CreateExpense(r.Context(), actorID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, result.ToResponse())
}

// GetByID handles GET /expenses/{id}
// @Summary      Get expense by ID
// @Description  Get an expense with all its splits
// @Tags         expenses
// @Produce      json
// @Param        id path int true "Expense ID"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	result, err := h.service.GetExpense(r.Context(), actorID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result.ToResponse())
}

// ListMine handles GET /expenses
// @Summary      List own expenses
// @Description  Get a paginated list of expenses the caller paid for or participates in
// @Tags         expenses
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ExpenseResponse}
// @Router       /expenses [get]
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	page, perPage := pagination(r)
	expenses, total, err := h.service.ListForUser(r.Context(), actorID, page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}

	h.writeExpensePage(w, expenses, total, page, perPage)
}

// ListByGroup handles GET /expenses/group/{groupId}
// @Summary      List expenses by group
// @Description  Get a paginated list of a group's expenses; the caller must belong to the group
// @Tags         expenses
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /expenses/group/{groupId} [get]
func (h *Handler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	page, perPage := pagination(r)
	expenses, total, err := h.service.ListByGroup(r.Context(), actorID, groupID, page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}

	h.writeExpensePage(w, expenses, total, page, perPage)
}

// Update handles PUT /expenses/{id}
// @Summary      Update an expense
// @Description  Update an expense; amount, split type, or participant changes replace the whole split set atomically
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        id path int true "Expense ID"
// @Param        request body UpdateExpenseRequest true "Expense update request"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	var req UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.ValidationFailed(w, err)
		return
	}

	result, err := h.service.UpdateExpense(r.Context(), actorID, id, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result.ToResponse())
}

// Delete handles DELETE /expenses/{id}
// @Summary      Delete an expense
// @Description  Delete an expense and its splits; only the payer or a group admin may delete
// @Tags         expenses
// @Produce      json
// @Param        id path int true "Expense ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	if err := h.service.DeleteExpense(r.Context(), actorID, id); err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Expense deleted successfully"})
}

// Settle handles POST /expenses/splits/{splitId}/settle
// @Summary      Settle a split
// @Description  Mark a split as settled; only the split's ower or the expense's payer may settle
// @Tags         splits
// @Produce      json
// @Param        splitId path int true "Split ID"
// @Success      200 {object} response.APIResponse{data=SplitResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/splits/{splitId}/settle [post]
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	h.setSettled(w, r, true)
}

// Unsettle handles POST /expenses/splits/{splitId}/unsettle
// @Summary      Unsettle a split
// @Description  Revert a split to unsettled; settlement is fully reversible by the same actors
// @Tags         splits
// @Produce      json
// @Param        splitId path int true "Split ID"
// @Success      200 {object} response.APIResponse{data=SplitResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/splits/{splitId}/unsettle [post]
func (h *Handler) Unsettle(w http.ResponseWriter, r *http.Request) {
	h.setSettled(w, r, false)
}

func (h *Handler) setSettled(w http.ResponseWriter, r *http.Request, settled bool) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	splitID, err := strconv.ParseInt(chi.URLParam(r, "splitId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid split ID")
		return
	}

	sp, err := h.service.SettleSplit(r.Context(), actorID, splitID, settled)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, sp.ToResponse())
}

func (h *Handler) writeExpensePage(w http.ResponseWriter, expenses []*Expense, total, page, perPage int) {
	responses := make([]*ExpenseResponse, len(expenses))
	for i, e := range expenses {
		responses[i] = e.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, responses, &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	return page, perPage
}
