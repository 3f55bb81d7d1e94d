package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sellerhub/backend/internal/application/records"
	"github.com/sellerhub/backend/internal/domain/listing"
	"github.com/sellerhub/backend/internal/domain/order"
	"github.com/sellerhub/backend/internal/domain/shared"
	"github.com/sellerhub/backend/internal/interfaces/http/middleware"
)

// RecordHandler serves reconciled order and listing records
type RecordHandler struct {
	BaseHandler
	records *records.Service
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(recordService *records.Service) *RecordHandler {
	return &RecordHandler{records: recordService}
}

// TransitionRequest is the payload for a manual status transition
type TransitionRequest struct {
	Status string `json:"status" binding:"required,max=32"`
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// SaleRequest is the payload for recording a listing sale
type SaleRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// ListOrders handles GET /api/v1/accounts/:account_id/orders
func (h *RecordHandler) ListOrders(c *gin.Context) {
	accountID, filter, ok := h.listArgs(c)
	if !ok {
		return
	}
	page, err := h.records.ListOrders(c.Request.Context(), accountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetOrder handles GET /api/v1/accounts/:account_id/orders/:id
func (h *RecordHandler) GetOrder(c *gin.Context) {
	accountID, id, ok := h.recordArgs(c)
	if !ok {
		return
	}
	rec, err := h.records.GetOrder(c.Request.Context(), accountID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// TransitionOrder handles POST /api/v1/accounts/:account_id/orders/:id/transition
func (h *RecordHandler) TransitionOrder(c *gin.Context) {
	accountID, id, ok := h.recordArgs(c)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	rec, err := h.records.TransitionOrder(c.Request.Context(), accountID, id,
		order.Status(req.Status), req.Reason, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// ListListings handles GET /api/v1/accounts/:account_id/listings
func (h *RecordHandler) ListListings(c *gin.Context) {
	accountID, filter, ok := h.listArgs(c)
	if !ok {
		return
	}
	page, err := h.records.ListListings(c.Request.Context(), accountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetListing handles GET /api/v1/accounts/:account_id/listings/:id
func (h *RecordHandler) GetListing(c *gin.Context) {
	accountID, id, ok := h.recordArgs(c)
	if !ok {
		return
	}
	rec, err := h.records.GetListing(c.Request.Context(), accountID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// TransitionListing handles POST /api/v1/accounts/:account_id/listings/:id/transition
func (h *RecordHandler) TransitionListing(c *gin.Context) {
	accountID, id, ok := h.recordArgs(c)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	rec, err := h.records.TransitionListing(c.Request.Context(), accountID, id,
		listing.Status(req.Status), req.Reason, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// RecordSale handles POST /api/v1/accounts/:account_id/listings/:id/sale
func (h *RecordHandler) RecordSale(c *gin.Context) {
	accountID, id, ok := h.recordArgs(c)
	if !ok {
		return
	}
	var req SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	rec, err := h.records.RecordListingSale(c.Request.Context(), accountID, id, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// History handles GET /api/v1/accounts/:account_id/:kind/:id/history
func (h *RecordHandler) History(c *gin.Context) {
	accountID, id, ok := h.recordArgs(c)
	if !ok {
		return
	}
	kind, valid := kindFromParam(c)
	if !valid {
		h.BadRequest(c, "kind must be 'order' or 'listing'")
		return
	}

	entries, err := h.records.History(c.Request.Context(), accountID, kind, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Summary handles GET /api/v1/accounts/:account_id/summary/:kind
func (h *RecordHandler) Summary(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "invalid account id")
		return
	}
	kind, valid := kindFromParam(c)
	if !valid {
		h.BadRequest(c, "kind must be 'order' or 'listing'")
		return
	}

	summary, err := h.records.Summary(c.Request.Context(), accountID, kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

func (h *RecordHandler) listArgs(c *gin.Context) (uuid.UUID, shared.Filter, bool) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "invalid account id")
		return uuid.Nil, shared.Filter{}, false
	}
	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return uuid.Nil, shared.Filter{}, false
	}
	return accountID, filter, true
}

func (h *RecordHandler) recordArgs(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "invalid account id")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid record id")
		return uuid.Nil, uuid.Nil, false
	}
	return accountID, id, true
}
