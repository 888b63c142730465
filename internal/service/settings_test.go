package service

import (
	"testing"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRestaurant(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)

	for _, a := range []Actor{waiter, cook, admin} {
		r, err := f.c.GetRestaurant(f.ctx, a)
		require.NoError(t, err, a.Role)
		assert.Equal(t, "La Cevicheria", r.Name)
		assert.Len(t, r.PaymentMethods, 2)
	}

	_, err := f.c.GetRestaurant(f.ctx, outside)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.c.GetRestaurant(f.ctx, Actor{Role: "guest", RestaurantID: restaurantID})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateSettingsDrivesPayments(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)

	r, err := f.c.UpdateSettings(f.ctx, admin, RestaurantSettings{
		TakeoutPaymentTiming: domain.PayBefore,
		PaymentMethods: []domain.PaymentMethod{
			{ID: "pm-cash", Name: "Efectivo", Type: domain.MethodCash, IsActive: false},
			{ID: " pm-yape ", Name: "Yape", Type: domain.MethodQR, IsActive: true, PhoneNumber: " 999888777 ", QRImageRef: "qr/yape.png"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PayBefore, r.TakeoutPaymentTiming)
	assert.Equal(t, "La Cevicheria", r.Name, "other fields are kept")

	stored, err := f.st.GetRestaurant(f.ctx, restaurantID)
	require.NoError(t, err)
	yape, ok := stored.Method("pm-yape")
	require.True(t, ok)
	assert.True(t, yape.IsActive)
	assert.Equal(t, "999888777", yape.PhoneNumber)
	assert.Equal(t, "qr/yape.png", yape.QRImageRef)

	o := f.seatTable5(t)
	_, err = f.c.FinalizePayment(f.ctx, waiter, PaymentRequest{OrderID: o.ID, PaymentMethodID: "pm-cash"})
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod, "cash was switched off")
	res, err := f.c.FinalizePayment(f.ctx, waiter, PaymentRequest{OrderID: o.ID, PaymentMethodID: "pm-yape"})
	require.NoError(t, err)
	assert.Equal(t, "Yape", res.Receipt.PaymentMethod)

	tk, err := f.c.OpenTakeout(f.ctx, waiter, TakeoutRequest{CustomerName: "Juan", Items: lomoAndInca()})
	require.NoError(t, err)
	assert.True(t, tk.PayBefore, "new takeout orders follow the new timing")
}

func TestUpdateSettingsKeepsOpenTakeoutTiming(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayBefore)
	o, err := f.c.OpenTakeout(f.ctx, waiter, TakeoutRequest{CustomerName: "Carla", Items: lomoAndInca()})
	require.NoError(t, err)

	r, err := f.c.GetRestaurant(f.ctx, admin)
	require.NoError(t, err)
	_, err = f.c.UpdateSettings(f.ctx, admin, RestaurantSettings{TakeoutPaymentTiming: domain.PayAfter, PaymentMethods: r.PaymentMethods})
	require.NoError(t, err)

	got, err := f.c.GetOrder(f.ctx, waiter, o.ID)
	require.NoError(t, err)
	assert.True(t, got.PayBefore)
}

func TestUpdateSettingsValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)
	cash := domain.PaymentMethod{ID: "pm-cash", Name: "Efectivo", Type: domain.MethodCash, IsActive: true}

	tests := []struct {
		name  string
		actor Actor
		in    RestaurantSettings
		want  error
	}{
		{"waiter", waiter, RestaurantSettings{TakeoutPaymentTiming: domain.PayAfter}, ErrForbidden},
		{"kitchen", cook, RestaurantSettings{TakeoutPaymentTiming: domain.PayAfter}, ErrForbidden},
		{"bad timing", admin, RestaurantSettings{TakeoutPaymentTiming: "later"}, ErrValidation},
		{"missing id", admin, RestaurantSettings{TakeoutPaymentTiming: domain.PayAfter, PaymentMethods: []domain.PaymentMethod{{Name: "X", Type: domain.MethodCash}}}, ErrValidation},
		{"duplicate id", admin, RestaurantSettings{TakeoutPaymentTiming: domain.PayAfter, PaymentMethods: []domain.PaymentMethod{cash, cash}}, ErrValidation},
		{"missing name", admin, RestaurantSettings{TakeoutPaymentTiming: domain.PayAfter, PaymentMethods: []domain.PaymentMethod{{ID: "pm-x", Type: domain.MethodCard}}}, ErrValidation},
		{"bad type", admin, RestaurantSettings{TakeoutPaymentTiming: domain.PayAfter, PaymentMethods: []domain.PaymentMethod{{ID: "pm-x", Name: "Bitcoin", Type: "crypto"}}}, ErrValidation},
		{"other restaurant", outside, RestaurantSettings{TakeoutPaymentTiming: domain.PayAfter}, ErrNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := f.c.UpdateSettings(f.ctx, tt.actor, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	t.Cleanup(func() {
		r, err := f.st.GetRestaurant(f.ctx, restaurantID)
		require.NoError(t, err)
		assert.Equal(t, domain.PayAfter, r.TakeoutPaymentTiming)
		assert.Len(t, r.PaymentMethods, 2, "rejected updates change nothing")
	})
}

func TestUpdateSettingsNeedsDirectory(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.PayAfter)
	c := NewCoordinator(readOnly{f.st}, f.hub)
	require.Nil(t, c.Directory)

	_, err := c.UpdateSettings(f.ctx, admin, RestaurantSettings{TakeoutPaymentTiming: domain.PayBefore})
	require.Error(t, err)
	r, err := c.GetRestaurant(f.ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.PayAfter, r.TakeoutPaymentTiming)
}

// readOnly hides the Directory side of a store.
type readOnly struct{ store.Store }
