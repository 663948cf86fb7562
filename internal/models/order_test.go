package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{OrderPending, OrderConfirmed, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderInTransit, false},
		{OrderConfirmed, OrderInTransit, true},
		{OrderConfirmed, OrderCancelled, true},
		{OrderConfirmed, OrderPending, false},
		{OrderInTransit, OrderDelivered, true},
		{OrderInTransit, OrderCancelled, false},
		{OrderDelivered, OrderCancelled, false},
		{OrderCancelled, OrderPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestRoleHelpers(t *testing.T) {
	assert.True(t, IsSignupRole(RoleFarmer))
	assert.False(t, IsSignupRole(RoleAdmin))
	assert.True(t, IsValidRole(RoleAdmin))
	assert.False(t, IsValidRole("farmer"))
}
