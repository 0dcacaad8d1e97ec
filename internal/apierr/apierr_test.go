package apierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := New(MessageNotFound, "no such message")
	assert.Contains(t, err.Error(), "message_not_found")
	assert.Contains(t, err.Error(), "no such message")
}

func TestError_Error_NoMessage(t *testing.T) {
	err := New(UnknownMethod, "")
	assert.Equal(t, "unknown_method", err.Error())
}

func TestWrap_UnwrapsInnerError(t *testing.T) {
	inner := errors.New("sqlite: disk I/O error")
	err := Wrap(InternalError, inner)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestAs_ExtractsKind(t *testing.T) {
	err := New(NoWebsocketConn, "no claimable connection")
	apiErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, NoWebsocketConn, apiErr.Kind)
}

func TestAs_FalseForPlainError(t *testing.T) {
	_, ok := As(errors.New("boom"))
	assert.False(t, ok)
}

func TestHTTPStatus_KnownAndDefault(t *testing.T) {
	assert.Equal(t, 503, HTTPStatus(NoWebsocketConn))
	assert.Equal(t, 500, HTTPStatus(RegistrationFailed))
	assert.Equal(t, 404, HTTPStatus(UnknownMethod))
	assert.Equal(t, 400, HTTPStatus(MessageNotFound))
}
