package service

import (
	"errors"
	"fmt"

	"github.com/Skotchmaster/restaurant_orders/internal/store"
)

var (
	ErrValidation           = errors.New("validation")             // 400
	ErrForbidden            = errors.New("forbidden")              // 403
	ErrNotFound             = errors.New("not found")              // 404
	ErrNoActiveOrder        = errors.New("no active order")        // 404
	ErrIllegalTransition    = errors.New("illegal transition")     // 409
	ErrInvalidState         = errors.New("invalid state")          // 409
	ErrConflict             = errors.New("conflict")               // 409
	ErrInvalidPaymentMethod = errors.New("invalid payment method") // 422
	ErrExternalService      = errors.New("external service")       // 502
	ErrInvalidCredentials   = errors.New("invalid credentials")    // 401
)

// fromStore maps storage errors onto the service taxonomy.
func fromStore(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
