package errortypes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineErrorErrorIncludesOpKindAndCause(t *testing.T) {
	err := New("reflection", KindPlanningError, errors.New("schema invalid"))
	assert.Equal(t, "reflection: PlanningError: schema invalid", err.Error())
}

func TestEngineErrorErrorOmitsCauseWhenNil(t *testing.T) {
	err := New("executor", KindExecutionError, nil)
	assert.Equal(t, "executor: ExecutionError", err.Error())
}

func TestEngineErrorUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := New("conflict", KindResolutionError, cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestKindOfReturnsKindForDirectEngineError(t *testing.T) {
	err := New("reflection", KindPlanningError, nil)
	assert.Equal(t, KindPlanningError, KindOf(err))
}

func TestKindOfUnwrapsWrappedEngineError(t *testing.T) {
	inner := New("executor", KindExecutionError, nil)
	wrapped := fmt.Errorf("step failed: %w", inner)

	assert.Equal(t, KindExecutionError, KindOf(wrapped))
}

func TestKindOfReturnsUnknownForUnrelatedError(t *testing.T) {
	assert.Equal(t, KindUnknownError, KindOf(errors.New("plain error")))
}

func TestKindOfReturnsUnknownForNilError(t *testing.T) {
	assert.Equal(t, KindUnknownError, KindOf(nil))
}
