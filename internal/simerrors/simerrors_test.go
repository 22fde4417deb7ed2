package simerrors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"epidemicsim/internal/simerrors"
)

func TestProgrammingErrorIsFatal(t *testing.T) {
	err := simerrors.Programming(42, "unknown destination replica %q", "R99")
	assert.True(t, err.Fatal())
	assert.Equal(t, simerrors.CodeProgrammingError, err.Code)
	assert.Equal(t, 42, err.Tick)
	assert.Contains(t, err.Error(), "R99")
}
