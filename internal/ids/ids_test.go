package ids

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Monotonic(t *testing.T) {
	prev := New()
	for range 100 {
		next := New()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestNewAt_EncodesTime(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := ulid.Parse(NewAt(at))
	require.NoError(t, err)
	assert.Equal(t, at.UnixMilli(), ulid.Time(id.Time()).UnixMilli())
}
