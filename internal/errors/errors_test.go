package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseError(t *testing.T) {
	cause := stderrors.New("sql: database is closed")
	err := Wrap(DatabaseError(cause, "failed to load session token"), "restore failed")

	assert.Equal(t, CodeDatabaseError, GetCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "restore failed: failed to load session token: sql: database is closed", err.Error())
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(Conflict("Este email já está em uso.")))
	assert.True(t, IsConflict(Wrap(&HTTPError{Status: http.StatusConflict, Message: "duplicado"}, "register")))
	assert.False(t, IsConflict(&HTTPError{Status: http.StatusBadRequest}))
	assert.Equal(t, "Este email já está em uso.", UserMessage(Conflict("Este email já está em uso.")))
}

func TestWrapKeepsCode(t *testing.T) {
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Equal(t, CodeInternalError, GetCode(Wrap(stderrors.New("boom"), "context")))
	assert.Equal(t, CodeNotFound, GetCode(Wrapf(NotFound("answer a1"), "load %s", "q1")))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}
