package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLandingView(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role Role
		want View
	}{
		{RoleWaiter, ViewWaiter},
		{RoleKitchen, ViewKitchen},
		{RoleAdmin, ViewAdmin},
		{RoleOwner, ViewAdmin},
	}
	for _, tt := range tests {
		got, ok := LandingView(tt.role)
		require.True(t, ok)
		assert.Equal(t, tt.want, got)
		assert.True(t, CanEnter(tt.role, got), "landing view must pass the guard")
	}

	_, ok := LandingView("customer")
	assert.False(t, ok)
}

func TestCanEnter(t *testing.T) {
	t.Parallel()

	assert.False(t, CanEnter(RoleKitchen, ViewWaiter))
	assert.False(t, CanEnter(RoleKitchen, ViewAdmin))
	assert.False(t, CanEnter(RoleWaiter, ViewKitchen))
	assert.False(t, CanEnter(RoleWaiter, ViewAdmin))
	assert.True(t, CanEnter(RoleAdmin, ViewKitchen))
	assert.True(t, CanEnter(RoleOwner, ViewWaiter))
	assert.False(t, CanEnter("", ViewWaiter))
}

func TestAllowed(t *testing.T) {
	t.Parallel()

	assert.True(t, Allowed(RoleKitchen, AdvanceAction(ItemCooking)))
	assert.True(t, Allowed(RoleKitchen, AdvanceAction(ItemReady)))
	assert.False(t, Allowed(RoleKitchen, AdvanceAction(ItemDelivered)))
	assert.True(t, Allowed(RoleWaiter, AdvanceAction(ItemDelivered)))
	assert.False(t, Allowed(RoleWaiter, ActCook))
	assert.True(t, Allowed(RoleWaiter, ActFinalize))
	assert.False(t, Allowed(RoleWaiter, ActConfigure))
	assert.True(t, Allowed(RoleAdmin, ActConfigure))
	assert.False(t, Allowed(RoleKitchen, ActTakeOrder))
	assert.False(t, Allowed(RoleAdmin, "fly"))
}

func TestPendingItems(t *testing.T) {
	t.Parallel()

	var waiterA, waiterB PendingItems
	waiterA.Add("lomo", 1)
	waiterA.Add("lomo", 1)
	waiterA.AddWithNote("lomo", 1, "sin cebolla")
	waiterA.Add("inca", 0)
	waiterB.Add("inca", 1)

	require.Equal(t, 2, waiterA.Len())
	lines := waiterA.Lines()
	assert.Equal(t, PendingLine{ProductID: "lomo", Quantity: 2}, lines[0])
	assert.Equal(t, "sin cebolla", lines[1].Note)
	assert.Equal(t, 1, waiterB.Len(), "sessions do not share state")

	waiterA.Decrement(1)
	assert.Equal(t, 1, waiterA.Len())
	waiterA.SetNote(0, "bien cocido")
	assert.Equal(t, "bien cocido", waiterA.Lines()[0].Note)

	lines[0].Quantity = 99
	assert.Equal(t, 2, waiterA.Lines()[0].Quantity, "Lines returns a copy")

	waiterA.Clear()
	assert.Zero(t, waiterA.Len())

	p := NewPendingItems(PendingLine{ProductID: "x", Quantity: 2}, PendingLine{ProductID: "x", Quantity: 1})
	assert.Equal(t, 3, p.Lines()[0].Quantity)
}
