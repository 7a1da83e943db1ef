package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	appledger "github.com/clinic-ledger/backend/internal/application/ledger"
	"github.com/clinic-ledger/backend/internal/infrastructure/scheduler"
	"github.com/clinic-ledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RecurrenceService is the part of the application layer the recurring
// definition endpoints use
type RecurrenceService interface {
	CreateRecurringDefinition(ctx context.Context, req appledger.CreateRecurringDefinitionRequest) (*appledger.RecurringDefinitionResponse, error)
	GetRecurringDefinition(ctx context.Context, id uuid.UUID) (*appledger.RecurringDefinitionResponse, error)
	ListRecurringDefinitions(ctx context.Context, filter appledger.RecurringDefinitionListFilter) ([]appledger.RecurringDefinitionResponse, int64, error)
	ToggleRecurringDefinition(ctx context.Context, id uuid.UUID, active bool) (*appledger.RecurringDefinitionResponse, error)
	ListHistory(ctx context.Context, definitionID uuid.UUID) ([]appledger.EntryResponse, error)
}

// TickTrigger runs the recurrence generator out of schedule under the tick lock
type TickTrigger interface {
	TriggerImmediate(ctx context.Context, now time.Time) (*appledger.TickResult, error)
}

// RecurringHandler serves the recurring definition endpoints
type RecurringHandler struct {
	BaseHandler
	definitions RecurrenceService
	trigger     TickTrigger
	tickGuard   []gin.HandlerFunc
}

// RecurringHandlerOption configures a RecurringHandler
type RecurringHandlerOption func(*RecurringHandler)

// WithTickTrigger enables POST /recurring-definitions/tick. Guards run before
// the trigger, typically a role check.
func WithTickTrigger(trigger TickTrigger, guards ...gin.HandlerFunc) RecurringHandlerOption {
	return func(h *RecurringHandler) {
		h.trigger = trigger
		h.tickGuard = guards
	}
}

// NewRecurringHandler creates a new RecurringHandler
func NewRecurringHandler(definitions RecurrenceService, opts ...RecurringHandlerOption) *RecurringHandler {
	h := &RecurringHandler{definitions: definitions}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes implements router.RouteRegistrar
func (h *RecurringHandler) RegisterRoutes(rg *gin.RouterGroup) {
	defs := rg.Group("/recurring-definitions")
	defs.POST("", h.Create)
	defs.GET("", h.List)
	defs.GET("/:id", h.Get)
	defs.PATCH("/:id/active", h.Toggle)
	defs.GET("/:id/history", h.History)
	defs.POST("/tick", append(h.tickGuard, h.Tick)...)
}

// Create registers a recurring definition
//
// @Summary      Create a recurring definition
// @Tags         recurring-definitions
// @Accept       json
// @Produce      json
// @Param        request body appledger.CreateRecurringDefinitionRequest true "Definition"
// @Success      201 {object} dto.Response{data=appledger.RecurringDefinitionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /recurring-definitions [post]
func (h *RecurringHandler) Create(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req appledger.CreateRecurringDefinitionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.CreatedBy = &userID

	def, err := h.definitions.CreateRecurringDefinition(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, def)
}

// Get returns one recurring definition
//
// @Summary      Get a recurring definition
// @Tags         recurring-definitions
// @Produce      json
// @Param        id path string true "Recurring definition ID" format(uuid)
// @Success      200 {object} dto.Response{data=appledger.RecurringDefinitionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /recurring-definitions/{id} [get]
func (h *RecurringHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	def, err := h.definitions.GetRecurringDefinition(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, def)
}

// List returns a page of recurring definitions
//
// @Summary      List recurring definitions
// @Tags         recurring-definitions
// @Produce      json
// @Param        active query bool false "Active flag"
// @Param        kind query string false "Kind" Enums(expense, revenue)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]appledger.RecurringDefinitionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /recurring-definitions [get]
func (h *RecurringHandler) List(c *gin.Context) {
	var filter appledger.RecurringDefinitionListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = dto.DefaultPageSize
	}

	defs, total, err := h.definitions.ListRecurringDefinitions(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, defs, total, filter.Page, filter.PageSize)
}

// Toggle activates or deactivates a definition
//
// @Summary      Activate or deactivate a definition
// @Tags         recurring-definitions
// @Accept       json
// @Produce      json
// @Param        id path string true "Recurring definition ID" format(uuid)
// @Param        request body appledger.ToggleRecurringDefinitionRequest true "Active flag"
// @Success      200 {object} dto.Response{data=appledger.RecurringDefinitionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /recurring-definitions/{id}/active [patch]
func (h *RecurringHandler) Toggle(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req appledger.ToggleRecurringDefinitionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	def, err := h.definitions.ToggleRecurringDefinition(c.Request.Context(), id, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, def)
}

// History lists the entries a definition generated, newest first
//
// @Summary      List entries generated by a definition
// @Tags         recurring-definitions
// @Produce      json
// @Param        id path string true "Recurring definition ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]appledger.EntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /recurring-definitions/{id}/history [get]
func (h *RecurringHandler) History(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	entries, err := h.definitions.ListHistory(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}

type tickQuery struct {
	At *time.Time `form:"at" time_format:"2006-01-02"`
}

// Tick materializes everything due as of ?at=YYYY-MM-DD (today by default)
//
// @Summary      Run the recurrence generator now
// @Tags         recurring-definitions
// @Produce      json
// @Param        at query string false "Reference date (YYYY-MM-DD), today when omitted"
// @Success      200 {object} dto.Response{data=appledger.TickResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /recurring-definitions/tick [post]
func (h *RecurringHandler) Tick(c *gin.Context) {
	if h.trigger == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeNotConfigured, "Recurrence scheduler is not configured")
		return
	}

	var q tickQuery
	if !h.bindQuery(c, &q) {
		return
	}
	var asOf time.Time
	if q.At != nil {
		asOf = *q.At
	}

	result, err := h.trigger.TriggerImmediate(c.Request.Context(), asOf)
	if err != nil {
		if errors.Is(err, scheduler.ErrTickInProgress) {
			h.Error(c, http.StatusConflict, dto.ErrCodeTickRunning, "A recurrence tick is already running")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
