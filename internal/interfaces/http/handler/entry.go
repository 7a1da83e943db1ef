package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	appledger "github.com/clinic-ledger/backend/internal/application/ledger"
	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/infrastructure/storage"
	"github.com/clinic-ledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EntryService is the part of the application layer the entry endpoints use
type EntryService interface {
	CreatePreEntry(ctx context.Context, req appledger.CreateEntryRequest) (*appledger.EntryResponse, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*appledger.EntryDetailResponse, error)
	ListEntries(ctx context.Context, filter appledger.EntryListFilter) ([]appledger.EntryResponse, int64, error)
	SaveEdits(ctx context.Context, id uuid.UUID, req appledger.EntryEditsRequest) (*appledger.EntryResponse, error)
	Approve(ctx context.Context, id uuid.UUID, req appledger.ApproveEntryRequest) (*appledger.EntryDetailResponse, error)
	Cancel(ctx context.Context, id, actorID uuid.UUID) (*appledger.EntryResponse, error)
	ListInstallments(ctx context.Context, entryID uuid.UUID) ([]appledger.InstallmentResponse, error)
	MarkInstallmentPaid(ctx context.Context, installmentID uuid.UUID, req appledger.MarkInstallmentPaidRequest) (*appledger.InstallmentResponse, error)
	AttachDocument(ctx context.Context, entryID uuid.UUID, filename, contentType string, body io.Reader, size int64) (*appledger.EntryResponse, error)
	SuggestProducts(ctx context.Context, description string, limit int) ([]ledger.ProductMatch, error)
}

// EntryHandler serves the entry lifecycle endpoints
type EntryHandler struct {
	BaseHandler
	entries EntryService
}

// NewEntryHandler creates a new EntryHandler
func NewEntryHandler(entries EntryService) *EntryHandler {
	return &EntryHandler{entries: entries}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *EntryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	entries := rg.Group("/entries")
	entries.POST("", h.Create)
	entries.GET("", h.List)
	entries.GET("/:id", h.Get)
	entries.PATCH("/:id", h.SaveEdits)
	entries.POST("/:id/approve", h.Approve)
	entries.POST("/:id/cancel", h.Cancel)
	entries.GET("/:id/installments", h.ListInstallments)
	entries.POST("/:id/attachment", h.AttachDocument)

	rg.POST("/installments/:id/pay", h.MarkInstallmentPaid)
	rg.GET("/products/suggestions", h.SuggestProducts)
}

// Create registers a pre-entry. Callers that do not name an origin are
// recorded as manual; the ingestion pipeline sends origin=api.
//
// @Summary      Register a pre-entry
// @Tags         entries
// @Accept       json
// @Produce      json
// @Param        request body appledger.CreateEntryRequest true "Pre-entry"
// @Success      201 {object} dto.Response{data=appledger.EntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /entries [post]
func (h *EntryHandler) Create(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req appledger.CreateEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Origin == "" {
		req.Origin = string(ledger.EntryOriginManual)
	}
	req.CreatedBy = &userID

	entry, err := h.entries.CreatePreEntry(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, entry)
}

// Get returns an entry with its items, installments and splits
//
// @Summary      Get an entry
// @Tags         entries
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=appledger.EntryDetailResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /entries/{id} [get]
func (h *EntryHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	entry, err := h.entries.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// List returns a page of entries
//
// @Summary      List entries
// @Tags         entries
// @Produce      json
// @Param        search query string false "Description contains"
// @Param        status query string false "Status" Enums(pre_entry, validated, canceled)
// @Param        kind query string false "Kind" Enums(expense, revenue)
// @Param        origin query string false "Origin" Enums(manual, api, recurring)
// @Param        recurring_definition_id query string false "Generating definition" format(uuid)
// @Param        issue_from query string false "Issued on or after (YYYY-MM-DD)"
// @Param        issue_to query string false "Issued on or before (YYYY-MM-DD)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]appledger.EntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /entries [get]
func (h *EntryHandler) List(c *gin.Context) {
	var filter appledger.EntryListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = dto.DefaultPageSize
	}

	entries, total, err := h.entries.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, entries, total, filter.Page, filter.PageSize)
}

// SaveEdits stores reviewer corrections on a pre-entry
//
// @Summary      Save reviewer edits on a pre-entry
// @Tags         entries
// @Accept       json
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Param        request body appledger.EntryEditsRequest true "Fields to change"
// @Success      200 {object} dto.Response{data=appledger.EntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /entries/{id} [patch]
func (h *EntryHandler) SaveEdits(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req appledger.EntryEditsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	entry, err := h.entries.SaveEdits(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// Approve validates a pre-entry. The body is optional; when present its edits
// are applied in the same transaction.
//
// @Summary      Validate a pre-entry
// @Tags         entries
// @Accept       json
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Param        request body appledger.ApproveEntryRequest false "Edits applied before validation"
// @Success      200 {object} dto.Response{data=appledger.EntryDetailResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /entries/{id}/approve [post]
func (h *EntryHandler) Approve(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req appledger.ApproveEntryRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	req.ValidatorID = userID

	entry, err := h.entries.Approve(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// Cancel cancels a pre-entry
//
// @Summary      Cancel a pre-entry
// @Tags         entries
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=appledger.EntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /entries/{id}/cancel [post]
func (h *EntryHandler) Cancel(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	entry, err := h.entries.Cancel(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// ListInstallments returns an entry's installments ordered by sequence
//
// @Summary      List an entry's installments
// @Tags         entries
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]appledger.InstallmentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /entries/{id}/installments [get]
func (h *EntryHandler) ListInstallments(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	installments, err := h.entries.ListInstallments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, installments)
}

// MarkInstallmentPaid records a payment against one installment
//
// @Summary      Mark an installment paid
// @Tags         installments
// @Accept       json
// @Produce      json
// @Param        id path string true "Installment ID" format(uuid)
// @Param        request body appledger.MarkInstallmentPaidRequest false "Payment date and amount"
// @Success      200 {object} dto.Response{data=appledger.InstallmentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /installments/{id}/pay [post]
func (h *EntryHandler) MarkInstallmentPaid(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req appledger.MarkInstallmentPaidRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	installment, err := h.entries.MarkInstallmentPaid(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, installment)
}

// AttachDocument uploads the multipart "file" field and links it to the entry
//
// @Summary      Attach a document to a pre-entry
// @Tags         entries
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Param        file formData file true "Receipt or invoice"
// @Success      200 {object} dto.Response{data=appledger.EntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /entries/{id}/attachment [post]
func (h *EntryHandler) AttachDocument(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Multipart field \"file\" is required")
		return
	}
	if fileHeader.Size > storage.MaxAttachmentSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "Attachment exceeds maximum allowed size")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Cannot read uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	entry, err := h.entries.AttachDocument(c.Request.Context(), id, fileHeader.Filename, contentType, file, fileHeader.Size)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

type suggestProductsQuery struct {
	Description string `form:"description" binding:"required,max=500"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=20"`
}

// SuggestProducts lists catalog products resembling a free-text description
//
// @Summary      Suggest catalog products for a description
// @Tags         products
// @Produce      json
// @Param        description query string true "Free-text description"
// @Param        limit query int false "Maximum matches" minimum(1) maximum(20)
// @Success      200 {object} dto.Response{data=[]ledger.ProductMatch}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/suggestions [get]
func (h *EntryHandler) SuggestProducts(c *gin.Context) {
	var q suggestProductsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	q.Description = strings.TrimSpace(q.Description)

	matches, err := h.entries.SuggestProducts(c.Request.Context(), q.Description, q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, matches)
}
