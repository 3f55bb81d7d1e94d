package importjob

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerhub/backend/internal/domain/shared"
)

func TestNew(t *testing.T) {
	accountID := uuid.New()

	job, err := New(accountID, shared.KindOrder)

	require.NoError(t, err)
	assert.Equal(t, accountID, job.AccountID)
	assert.Equal(t, shared.KindOrder, job.Kind)
	assert.Equal(t, PhaseParsing, job.Phase)
	assert.NotZero(t, job.StartedAt)
	assert.Nil(t, job.FinishedAt)
	assert.False(t, job.IsTerminal())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(uuid.Nil, shared.KindOrder)
	require.Error(t, err)

	_, err = New(uuid.New(), shared.EntityKind("widgets"))
	require.Error(t, err)
}

func TestAdvance(t *testing.T) {
	job, err := New(uuid.New(), shared.KindListing)
	require.NoError(t, err)

	for _, phase := range []Phase{PhaseValidating, PhaseTransforming, PhasePersisting, PhaseFinalizing, PhaseCompleted} {
		require.NoError(t, job.Advance(phase))
		assert.Equal(t, phase, job.Phase)
	}

	assert.True(t, job.IsTerminal())
	require.NotNil(t, job.FinishedAt)
}

func TestAdvance_SkippingPhases(t *testing.T) {
	job, err := New(uuid.New(), shared.KindOrder)
	require.NoError(t, err)

	// A phase may be skipped but never revisited
	require.NoError(t, job.Advance(PhasePersisting))

	err = job.Advance(PhaseValidating)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_PHASE", domainErr.Code)
	assert.Equal(t, PhasePersisting, job.Phase)
}

func TestAdvance_Terminal(t *testing.T) {
	job, err := New(uuid.New(), shared.KindOrder)
	require.NoError(t, err)
	job.Fail("disk on fire")

	err = job.Advance(PhaseValidating)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "JOB_TERMINAL", domainErr.Code)
}

func TestFail(t *testing.T) {
	job, err := New(uuid.New(), shared.KindOrder)
	require.NoError(t, err)
	require.NoError(t, job.Advance(PhaseValidating))

	job.Fail("header missing required columns")

	assert.Equal(t, PhaseFailed, job.Phase)
	assert.Equal(t, "header missing required columns", job.FailureReason)
	require.NotNil(t, job.FinishedAt)

	// Failing a terminal job keeps the original reason
	job.Fail("something else")
	assert.Equal(t, "header missing required columns", job.FailureReason)
}

func TestSetCounts(t *testing.T) {
	job, err := New(uuid.New(), shared.KindOrder)
	require.NoError(t, err)

	job.SetCounts(100, 40, 30, 20, 10)

	assert.Equal(t, 100, job.TotalRows)
	assert.Equal(t, 40, job.Inserted)
	assert.Equal(t, 30, job.Updated)
	assert.Equal(t, 20, job.Duplicates)
	assert.Equal(t, 10, job.Errored)
}

func TestDuration(t *testing.T) {
	job, err := New(uuid.New(), shared.KindOrder)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, job.Duration(), time.Duration(0))

	job.Fail("stop")
	frozen := job.Duration()
	assert.Equal(t, frozen, job.Duration())
}
