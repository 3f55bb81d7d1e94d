package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sellerhub/backend/internal/application/accounts"
	"github.com/sellerhub/backend/internal/domain/shared"
	"github.com/sellerhub/backend/internal/interfaces/http/middleware"
)

// AccountHandler serves account provisioning and lookup
type AccountHandler struct {
	BaseHandler
	accounts *accounts.Service
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts *accounts.Service) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// CreateAccountRequest is the payload for creating an account
type CreateAccountRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Marketplace string `json:"marketplace" binding:"omitempty,max=50"`
}

// SetActiveRequest is the payload for toggling an account's active flag
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// Create handles POST /api/v1/accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	acc, err := h.accounts.Create(c.Request.Context(), req.Name, req.Marketplace)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, acc)
}

// List handles GET /api/v1/accounts
func (h *AccountHandler) List(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if active := c.Query("active"); active != "" {
		filter.Filters["active"] = active == "true"
	}

	accs, err := h.accounts.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accs)
}

// Get handles GET /api/v1/accounts/:account_id
func (h *AccountHandler) Get(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "invalid account id")
		return
	}

	acc, err := h.accounts.Get(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, acc)
}

// SetActive handles PATCH /api/v1/accounts/:account_id/active
func (h *AccountHandler) SetActive(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "invalid account id")
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	acc, err := h.accounts.SetActive(c.Request.Context(), accountID, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, acc)
}

// kindFromParam parses the :kind path parameter
func kindFromParam(c *gin.Context) (shared.EntityKind, bool) {
	kind := shared.EntityKind(c.Param("kind"))
	return kind, kind.IsValid()
}
