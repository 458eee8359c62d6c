package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := New(CodeUnknownRoute, "no route for %q", "/x").WithIdentifier("/x")
	assert.Equal(t, `UNKNOWN_ROUTE: no route for "/x" (identifier=/x)`, err.Error())
}

func TestIsConfig_Wrapped(t *testing.T) {
	err := fmt.Errorf("register: %w", New(CodeNullableArgument, "column %q is nullable", "note"))
	assert.True(t, IsConfig(err))
	assert.False(t, IsExecution(err))
	assert.True(t, HasCode(err, CodeNullableArgument))
}

func TestExecution_WrapsOnce(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := Execution(cause, "query %s", "task")
	assert.True(t, IsExecution(err))
	assert.ErrorIs(t, err, cause)

	again := Execution(fmt.Errorf("outer: %w", err), "ignored")
	var e *Error
	assert.True(t, errors.As(again, &e))
	assert.Equal(t, "query task", e.Message)

	assert.NoError(t, Execution(nil, "nothing"))
}
