package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("clock in: %w", WithRecord(CodeAlreadyClockedIn, "already clocked in", "s-1"))

	assert.True(t, IsCode(err, CodeAlreadyClockedIn))
	assert.False(t, IsCode(err, CodeNoActiveSession))
	assert.Equal(t, CodeAlreadyClockedIn, CodeOf(err))
	assert.Equal(t, "s-1", RecordOf(err))
}

func TestCodeOfPlainError(t *testing.T) {
	err := errors.New("disk on fire")
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Nil(t, RecordOf(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Wrap(CodeInternal, "load session", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load session: database is locked", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Code]int{
		CodeInvalidRequest:         http.StatusBadRequest,
		CodeMissingReason:          http.StatusBadRequest,
		CodeUnauthenticated:        http.StatusUnauthorized,
		CodeForbidden:              http.StatusForbidden,
		CodeNotFound:               http.StatusNotFound,
		CodeAlreadyClockedIn:       http.StatusConflict,
		CodeNoActiveSession:        http.StatusConflict,
		CodeConcurrentModification: http.StatusConflict,
		CodeInvalidTransition:      http.StatusConflict,
		CodeTrackingLimitReached:   http.StatusConflict,
		CodeInternal:               http.StatusInternalServerError,
		Code("SOMETHING_ELSE"):     http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, code.HTTPStatus(), code)
	}
}
