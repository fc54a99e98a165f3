package apperr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	require.Equal(t, KindValidation, KindOf(Validation("entry.err.hours_positive")))
	require.Equal(t, KindConflict, KindOf(errors.Wrap(Conflict("clock.err.already_clocked_in"), "clock in")))
	require.Equal(t, KindInternal, KindOf(errors.New("boom")))
	require.False(t, Is(nil, KindNotFound))
	require.True(t, Is(NotFound("leave.err.not_found"), KindNotFound))
}

func TestData(t *testing.T) {
	err := Validation("leave.err.too_soon", map[string]any{"MinDate": "2024-06-24"})
	e, ok := As(errors.Wrap(err, "submit"))
	require.True(t, ok)
	require.Equal(t, "2024-06-24", e.Data["MinDate"])
	require.Equal(t, "validation: leave.err.too_soon", e.Error())
}
