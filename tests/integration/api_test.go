package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sellerhub/backend/internal/application/accounts"
	"github.com/sellerhub/backend/internal/application/reconcile"
	"github.com/sellerhub/backend/internal/application/records"
	"github.com/sellerhub/backend/internal/domain/account"
	"github.com/sellerhub/backend/internal/infrastructure/config"
	"github.com/sellerhub/backend/internal/infrastructure/event"
	"github.com/sellerhub/backend/internal/infrastructure/lock"
	"github.com/sellerhub/backend/internal/infrastructure/persistence"
	"github.com/sellerhub/backend/internal/interfaces/http/handler"
	"github.com/sellerhub/backend/internal/interfaces/http/router"
	"github.com/sellerhub/backend/tests/testutil"
)

type apiFixture struct {
	testDB *TestDB
	engine http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	testDB := NewTestDB(t)
	db := testDB.DB
	log := zap.NewNop()

	accountRepo := persistence.NewGormAccountRepository(db)
	orderRepo := persistence.NewGormOrderRepository(db)
	listingRepo := persistence.NewGormListingRepository(db)
	jobRepo := persistence.NewGormImportJobRepository(db)
	historyRepo := persistence.NewGormHistoryRepository(db)

	bus := event.NewInMemoryChangeBus(log)

	cfg := &config.Config{
		App:  config.AppConfig{Name: "sellerhub", Env: "test", Port: "0"},
		HTTP: config.HTTPConfig{MaxBodySize: 10 << 20},
		Import: config.ImportConfig{
			BatchSize:       100,
			WorkerCount:     1,
			MaxRows:         10000,
			MaxErrors:       100,
			LockTTL:         time.Minute,
			LockWaitTimeout: time.Second,
		},
	}

	accountService := accounts.NewService(accountRepo)
	recordService := records.NewService(orderRepo, listingRepo, historyRepo, nil, bus, log)
	reconcileService := reconcile.NewService(jobRepo, orderRepo, listingRepo,
		lock.NewMemoryAccountLocker(), bus, cfg.Import, log)

	engine := router.Setup(cfg, log, router.Handlers{
		System:  handler.NewSystemHandler(&persistence.Database{DB: db}),
		Account: handler.NewAccountHandler(accountService),
		Import:  handler.NewImportHandler(reconcileService, accountService),
		Record:  handler.NewRecordHandler(recordService),
	})

	return &apiFixture{testDB: testDB, engine: engine}
}

// apiResponse mirrors the envelope every endpoint wraps its payload in
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (f *apiFixture) upload(t *testing.T, accountID uuid.UUID, kind, csv string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "snapshot.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	path := fmt.Sprintf("/api/v1/accounts/%s/imports/%s", accountID, kind)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestAPI_Health(t *testing.T) {
	f := newAPIFixture(t)
	w, resp := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestAPI_AccountLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	w, resp := f.do(t, http.MethodPost, "/api/v1/accounts",
		map[string]string{"name": "Main Store", "marketplace": "ebay"})
	require.Equal(t, http.StatusCreated, w.Code)

	var acc account.Account
	require.NoError(t, json.Unmarshal(resp.Data, &acc))
	assert.Equal(t, "Main Store", acc.Name)
	assert.True(t, acc.Active)

	t.Run("get returns the account", func(t *testing.T) {
		w, _ := f.do(t, http.MethodGet, "/api/v1/accounts/"+acc.ID.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown account is 404", func(t *testing.T) {
		w, resp := f.do(t, http.MethodGet, "/api/v1/accounts/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		require.NotNil(t, resp.Error)
	})

	t.Run("deactivate blocks imports", func(t *testing.T) {
		w, _ := f.do(t, http.MethodPatch, "/api/v1/accounts/"+acc.ID.String()+"/active",
			map[string]bool{"active": false})
		require.Equal(t, http.StatusOK, w.Code)

		w, resp := f.upload(t, acc.ID, "order", "external_id,buyer_name,total_amount,ordered_at\nO-1,A,1,2026-01-01\n")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "ERR_ACCOUNT_INACTIVE", resp.Error.Code)
	})
}

func TestAPI_CreateAccountValidation(t *testing.T) {
	f := newAPIFixture(t)
	h := handler.NewAccountHandler(accounts.NewService(persistence.NewGormAccountRepository(f.testDB.DB)))

	testutil.RunHTTPTestCases(t, h.Create, []testutil.HTTPTestCase{
		{
			Name:           "missing name",
			Method:         http.MethodPost,
			Path:           "/api/v1/accounts",
			Body:           map[string]string{"marketplace": "ebay"},
			ExpectedStatus: http.StatusBadRequest,
		},
		{
			Name:           "malformed json",
			Method:         http.MethodPost,
			Path:           "/api/v1/accounts",
			Body:           "not an object",
			ExpectedStatus: http.StatusBadRequest,
		},
		{
			Name:           "valid payload",
			Method:         http.MethodPost,
			Path:           "/api/v1/accounts",
			Body:           map[string]string{"name": "Side Store"},
			ExpectedStatus: http.StatusCreated,
		},
	})

	t.Run("validation details name the json field", func(t *testing.T) {
		w, resp := f.do(t, http.MethodPost, "/api/v1/accounts", map[string]string{"marketplace": "ebay"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "name", resp.Error.Details[0].Field)
	})
}

func TestAPI_ImportAndQuery(t *testing.T) {
	f := newAPIFixture(t)
	acc := f.testDB.CreateTestAccount(t, "store-one")

	csv := "external_id,buyer_name,total_amount,ordered_at,status\n" +
		"O-1,Alice,19.99,2026-01-15,\n" +
		"O-2,Bob,35.00,2026-01-16,confirmed\n"

	w, resp := f.upload(t, acc.ID, "order", csv)
	require.Equal(t, http.StatusAccepted, w.Code)

	var job struct {
		ID uuid.UUID `json:"ID"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &job))
	require.NotEqual(t, uuid.Nil, job.ID)

	jobPath := fmt.Sprintf("/api/v1/accounts/%s/imports/jobs/%s", acc.ID, job.ID)
	require.Eventually(t, func() bool {
		_, resp := f.do(t, http.MethodGet, jobPath, nil)
		var polled struct {
			Phase string `json:"Phase"`
		}
		if err := json.Unmarshal(resp.Data, &polled); err != nil {
			return false
		}
		return polled.Phase == "completed"
	}, 5*time.Second, 10*time.Millisecond, "job never completed")

	t.Run("orders are queryable", func(t *testing.T) {
		w, resp := f.do(t, http.MethodGet,
			fmt.Sprintf("/api/v1/accounts/%s/orders?status=confirmed", acc.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
	})

	t.Run("summary counts by status", func(t *testing.T) {
		w, resp := f.do(t, http.MethodGet,
			fmt.Sprintf("/api/v1/accounts/%s/summary/order", acc.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var summary struct {
			Counts map[string]int `json:"counts"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &summary))
		assert.Equal(t, 1, summary.Counts["pending"])
		assert.Equal(t, 1, summary.Counts["confirmed"])
	})

	t.Run("job listing filters by phase", func(t *testing.T) {
		w, resp := f.do(t, http.MethodGet,
			fmt.Sprintf("/api/v1/accounts/%s/imports/jobs?phase=completed", acc.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		w, _ := f.upload(t, acc.ID, "warehouse", csv)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAPI_ManualTransitions(t *testing.T) {
	f := newAPIFixture(t)
	acc := f.testDB.CreateTestAccount(t, "store-one")

	csv := "external_id,buyer_name,total_amount,ordered_at\nO-1,Alice,19.99,2026-01-15\n"
	_, resp := f.upload(t, acc.ID, "order", csv)
	var job struct {
		ID uuid.UUID `json:"ID"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &job))

	jobPath := fmt.Sprintf("/api/v1/accounts/%s/imports/jobs/%s", acc.ID, job.ID)
	require.Eventually(t, func() bool {
		_, resp := f.do(t, http.MethodGet, jobPath, nil)
		var polled struct {
			Phase string `json:"Phase"`
		}
		return json.Unmarshal(resp.Data, &polled) == nil && polled.Phase == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	_, listResp := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/orders", acc.ID), nil)
	var orders []struct {
		ID uuid.UUID `json:"ID"`
	}
	require.NoError(t, json.Unmarshal(listResp.Data, &orders))
	require.Len(t, orders, 1)
	orderPath := fmt.Sprintf("/api/v1/accounts/%s/orders/%s", acc.ID, orders[0].ID)

	t.Run("allowed transition succeeds", func(t *testing.T) {
		w, _ := f.do(t, http.MethodPost, orderPath+"/transition",
			map[string]string{"status": "confirmed", "reason": "verified payment"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("manual transition bumps the stored version", func(t *testing.T) {
		_, resp := f.do(t, http.MethodGet, orderPath, nil)
		var detail struct {
			Status  string `json:"Status"`
			Version int    `json:"Version"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &detail))
		assert.Equal(t, "confirmed", detail.Status)
		assert.Equal(t, 2, detail.Version, "manual writes must take the version-guarded path")
	})

	t.Run("disallowed transition is 422", func(t *testing.T) {
		w, resp := f.do(t, http.MethodPost, orderPath+"/transition",
			map[string]string{"status": "delivered"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "ERR_INVALID_TRANSITION", resp.Error.Code)
	})

	t.Run("missing status is a validation error", func(t *testing.T) {
		w, _ := f.do(t, http.MethodPost, orderPath+"/transition", map[string]string{"reason": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("history records the manual transition", func(t *testing.T) {
		w, resp := f.do(t, http.MethodGet,
			fmt.Sprintf("/api/v1/accounts/%s/history/order/%s", acc.ID, orders[0].ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var entries []struct {
			ToStatus string `json:"to_status"`
			Reason   string `json:"reason"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "confirmed", entries[1].ToStatus)
		assert.Equal(t, "verified payment", entries[1].Reason)
	})
}
