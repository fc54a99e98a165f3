package i18n

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalesDefineSameKeys(t *testing.T) {
	load := func(name string) map[string]string {
		data, err := localeFS.ReadFile("locales/" + name)
		require.NoError(t, err)
		var m map[string]string
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}
	en, vi := load("en.json"), load("vi.json")
	for k := range en {
		assert.Contains(t, vi, k)
	}
	for k := range vi {
		assert.Contains(t, en, k)
	}
}

func TestTranslate(t *testing.T) {
	require.NoError(t, Init("en"))
	ctx := context.Background()

	assert.Equal(t, "Leave request not found.", T(ctx, "leave.err.not_found"))
	assert.Equal(t, "Không tìm thấy yêu cầu nghỉ phép.", T(WithLocale(ctx, "vi"), "leave.err.not_found"))
	assert.Equal(t, "Invalid date 2024-13-01, expected YYYY-MM-DD.",
		T(ctx, "entry.err.invalid_date", map[string]any{"Date": "2024-13-01"}))

	// Unknown locales fall back to the default, unknown ids to the id itself.
	assert.Equal(t, "Leave request not found.", T(WithLocale(ctx, "de"), "leave.err.not_found"))
	assert.Equal(t, "no.such.key", T(ctx, "no.such.key"))
}

func TestNegotiate(t *testing.T) {
	require.NoError(t, Init("en"))
	assert.Equal(t, "vi", Negotiate("vi-VN,vi;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", Negotiate("ja"))
	assert.Equal(t, "en", Negotiate(""))
}
