package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerr "github.com/opsconductor/conductor/internal/errors"
)

func TestErrorMessageFormatting(t *testing.T) {
	e := rerr.Wrap(errors.New("timeout"), rerr.KindClient, "workflow.Dispatch", "dispatch failed")
	assert.Equal(t, "workflow.Dispatch: dispatch failed: timeout", e.Error())

	noOp := rerr.New(rerr.KindConfig, "missing package")
	assert.Equal(t, "missing package", noOp.Error())
}

func TestGetKindAndIsKind(t *testing.T) {
	e := rerr.New(rerr.KindLock, "held")
	require.Equal(t, rerr.KindLock, rerr.GetKind(e))
	assert.True(t, rerr.IsKind(e, rerr.KindLock))
	assert.False(t, rerr.IsKind(e, rerr.KindConfig))
	assert.Equal(t, rerr.KindUnknown, rerr.GetKind(errors.New("plain")))
}

func TestIsMatchesSentinelByKind(t *testing.T) {
	sentinel := rerr.New(rerr.KindBusinessFailure, "")
	wrapped := rerr.Wrap(errors.New("root"), rerr.KindBusinessFailure, "MonitorRun", "conclusion=failure")
	assert.True(t, errors.Is(wrapped, sentinel))

	other := rerr.New(rerr.KindConfig, "")
	assert.False(t, errors.Is(wrapped, other))
}

func TestWithDetailAndRecoverable(t *testing.T) {
	e := rerr.New(rerr.KindClient, "rate limited").WithDetail("retry_after", "30s")
	e.Recoverable = true
	assert.True(t, rerr.IsRecoverable(e))
	assert.Equal(t, "30s", e.Details["retry_after"])
}
