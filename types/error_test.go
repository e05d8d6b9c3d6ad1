package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrConnection, "dial %s", "127.0.0.1:8188")
	assert.Equal(t, "[CONNECTION] dial 127.0.0.1:8188", err.Error())

	cause := errors.New("connection refused")
	err = err.WithCause(cause)
	assert.Equal(t, "[CONNECTION] dial 127.0.0.1:8188: connection refused", err.Error())
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrGraphInvalid, GetErrorCode(NewError(ErrGraphInvalid, "cycle")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(nil))
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(NewError(ErrCancelled, "stopped")))
	assert.False(t, IsCancelled(NewError(ErrBackendExecution, "oom")))
	assert.False(t, IsCancelled(nil))
}

func TestModeValidity(t *testing.T) {
	for _, m := range []Mode{ModeSeparate, ModeSequential, ModeGrid, ModeRefine, ModeUVInpaint} {
		assert.True(t, m.Valid(), string(m))
	}
	assert.False(t, Mode("freestyle").Valid())

	assert.True(t, ModeSeparate.PerViewpoint())
	assert.False(t, ModeGrid.PerViewpoint())
	assert.False(t, ModeUVInpaint.PerViewpoint())
}

func TestMaterialRevisionNext(t *testing.T) {
	var rev MaterialRevision
	require.Equal(t, MaterialRevision(1), rev.Next())
	require.Equal(t, MaterialRevision(2), rev.Next().Next())
	assert.Equal(t, "rev2", fmt.Sprintf("rev%d", rev.Next().Next()))
}
