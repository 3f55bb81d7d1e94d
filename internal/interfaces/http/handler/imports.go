package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sellerhub/backend/internal/application/accounts"
	"github.com/sellerhub/backend/internal/application/reconcile"
	"github.com/sellerhub/backend/internal/domain/shared"
	"github.com/sellerhub/backend/internal/infrastructure/lock"
	"github.com/sellerhub/backend/internal/interfaces/http/dto"
)

// ImportHandler serves the reconciliation surface: upload, status polling,
// and cancellation
type ImportHandler struct {
	BaseHandler
	reconcile *reconcile.Service
	accounts  *accounts.Service
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(reconcileService *reconcile.Service, accountService *accounts.Service) *ImportHandler {
	return &ImportHandler{reconcile: reconcileService, accounts: accountService}
}

// Upload handles POST /api/v1/accounts/:account_id/imports/:kind.
// The CSV file goes in the multipart "file" field. The job runs in the
// background; the response carries the job for status polling.
func (h *ImportHandler) Upload(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "invalid account id")
		return
	}
	kind, ok := kindFromParam(c)
	if !ok {
		h.BadRequest(c, "kind must be 'order' or 'listing'")
		return
	}

	acc, err := h.accounts.Get(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !acc.Active {
		h.ErrorWithCode(c, dto.ErrCodeAccountInactive, "account is deactivated; imports are disabled")
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "missing 'file' upload field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.BadRequest(c, "failed to read upload")
		return
	}

	job, err := h.reconcile.Start(c.Request.Context(), accountID, kind, data, getActor(c))
	if err != nil {
		h.handleImportError(c, err)
		return
	}
	h.Accepted(c, job)
}

// Get handles GET /api/v1/accounts/:account_id/imports/jobs/:id
func (h *ImportHandler) Get(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "invalid account id")
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid job id")
		return
	}

	job, err := h.reconcile.GetJob(c.Request.Context(), accountID, jobID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}

// List handles GET /api/v1/accounts/:account_id/imports/jobs
func (h *ImportHandler) List(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "invalid account id")
		return
	}
	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if kind := c.Query("kind"); kind != "" {
		filter.Filters["kind"] = kind
	}
	if phase := c.Query("phase"); phase != "" {
		filter.Filters["phase"] = phase
	}

	jobs, total, err := h.reconcile.ListJobs(c.Request.Context(), accountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, jobs, total, filter.Page, filter.PageSize)
}

// Cancel handles POST /api/v1/accounts/:account_id/imports/jobs/:id/cancel.
// The job stops before its next batch; committed batches stay committed.
func (h *ImportHandler) Cancel(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "invalid account id")
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid job id")
		return
	}

	if err := h.reconcile.Cancel(c.Request.Context(), accountID, jobID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "job is not running")
			return
		}
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// handleImportError maps import-specific failures onto API errors
func (h *ImportHandler) handleImportError(c *gin.Context, err error) {
	if errors.Is(err, lock.ErrNotObtained) {
		h.ErrorWithCode(c, dto.ErrCodeAccountBusy, "another import is running for this account")
		return
	}
	var fatal *reconcile.JobFatalError
	if errors.As(err, &fatal) {
		h.ErrorWithCode(c, dto.ErrCodeImportFailed, fatal.Error())
		return
	}
	h.HandleError(c, err)
}
