package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerhub/backend/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleValidationError(t *testing.T) {
	type transitionPayload struct {
		Status string `json:"status" binding:"required,max=32"`
		Reason string `json:"reason" binding:"omitempty,max=500"`
	}

	SetupValidator()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/transition", func(c *gin.Context) {
		var req transitionPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	send := func(t *testing.T, body string) (*httptest.ResponseRecorder, dto.Response) {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/transition", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return w, resp
	}

	t.Run("reports json field names for failed rules", func(t *testing.T) {
		w, resp := send(t, `{"reason": "ops request"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "status", resp.Error.Details[0].Field)
		assert.Equal(t, "This field is required", resp.Error.Details[0].Message)
	})

	t.Run("max length violation names the limit", func(t *testing.T) {
		w, resp := send(t, `{"status": "`+strings.Repeat("x", 40)+`"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "Must be at most 32 characters", resp.Error.Details[0].Message)
	})

	t.Run("malformed json yields no field details", func(t *testing.T) {
		w, resp := send(t, `{"status":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Empty(t, resp.Error.Details)
	})

	t.Run("valid payload passes through", func(t *testing.T) {
		w, _ := send(t, `{"status": "confirmed"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
