package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushListDismiss(t *testing.T) {
	c := NewCenter(0)
	a := c.Success("Recipe liked!")
	b := c.Error("Failed to load dashboard data")

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, LevelError, list[1].Level)

	assert.True(t, c.Dismiss(a.ID))
	assert.False(t, c.Dismiss(a.ID))
	assert.Equal(t, []Notification{b}, c.List())
}

func TestCapacityDropsOldest(t *testing.T) {
	c := NewCenter(2)
	c.Success("one")
	c.Success("two")
	c.Success("three")

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Message)
	assert.Equal(t, "three", list[1].Message)
}
