package model

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdempotencyKey(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "valid key", raw: "abc-123"},
		{name: "single char", raw: "x"},
		{name: "max length", raw: strings.Repeat("a", 50)},
		{name: "empty", raw: "", wantErr: true},
		{name: "too long", raw: strings.Repeat("a", 51), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseIdempotencyKey(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, key.String())
		})
	}
}

func TestIdempotencyKeyIsComparable(t *testing.T) {
	a, err := ParseIdempotencyKey("abc-123")
	require.NoError(t, err)
	b, err := ParseIdempotencyKey("abc-123")
	require.NoError(t, err)

	assert.Equal(t, a, b)

	seen := map[IdempotencyKey]int{a: 1}
	assert.Equal(t, 1, seen[b])
}

func TestProcessingRecordSavedResponse(t *testing.T) {
	status := http.StatusSeeOther

	t.Run("in progress record has no response", func(t *testing.T) {
		record := &ProcessingRecord{}
		assert.False(t, record.Completed())

		_, err := record.SavedResponse()
		assert.Error(t, err)
	})

	t.Run("completed record preserves header order and duplicates", func(t *testing.T) {
		record := &ProcessingRecord{
			ResponseStatusCode: &status,
			ResponseHeaders:    []byte(`[{"name":"Set-Cookie","value":"a=1"},{"name":"Set-Cookie","value":"b=2"},{"name":"Location","value":"/admin/newsletters"}]`),
			ResponseBody:       []byte("redirecting"),
		}
		require.True(t, record.Completed())

		resp, err := record.SavedResponse()
		require.NoError(t, err)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, []HeaderPair{
			{Name: "Set-Cookie", Value: "a=1"},
			{Name: "Set-Cookie", Value: "b=2"},
			{Name: "Location", Value: "/admin/newsletters"},
		}, resp.Headers)
		assert.Equal(t, []byte("redirecting"), resp.Body)
	})
}
