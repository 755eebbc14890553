package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewBaseEntityAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a := NewBaseEntityAt(now)
	b := NewBaseEntityAt(now)

	assert.Equal(t, 7, int(a.ID.Version()))
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, now, a.CreatedAt)
	assert.Equal(t, now, a.UpdatedAt)
	assert.Equal(t, 1, a.Version, "new entities start at the first version")

	a.Touch(now.Add(time.Hour))
	assert.Equal(t, now.Add(time.Hour), a.UpdatedAt)
	assert.Equal(t, 1, a.Version, "only a save bumps the version")
}
