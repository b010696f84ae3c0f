package errs

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	ErrStatusInternalServer = http.StatusInternalServerError
	ErrStatusClient         = http.StatusBadRequest
	ErrStatusNotLoggedIn    = http.StatusUnauthorized
	ErrStatusNoPermission   = http.StatusForbidden
	ErrStatusUnauthorized   = http.StatusUnauthorized
	ErrStatusNotFound       = http.StatusNotFound
	ErrStatusConflict       = http.StatusConflict
	ErrStatusBadGateway     = http.StatusBadGateway
)

var (
	ErrInternalServer          = errors.New("Internal server error")
	ErrClient                  = errors.New("Bad request")
	ErrNotLoggedIn             = errors.New("Unauthorized access")
	ErrInvalidCredentialsEmail = errors.New("Email or password is incorrect")
	ErrUnauthorized            = errors.New("Forbidden access")
	ErrNotFound                = errors.New("Resource not found")
	ErrAccountNotFound         = errors.New("Account not found")
	ErrEmailAlreadyUsed        = errors.New("Email has already been used")
	ErrAccountSuspended        = errors.New("Account is suspended")
	ErrConflict                = errors.New("Conflicting record found")
	ErrOrderAlreadyPaid        = errors.New("Order has already been paid")
	ErrOrderCancelled          = errors.New("Order has been cancelled")
	ErrInvalidStatusTransition = errors.New("Order status cannot change to the requested value")
	ErrCartEmpty               = errors.New("Cart is empty")
	ErrInsufficientStock       = errors.New("Requested quantity exceeds available stock")
	ErrGatewayUnavailable      = errors.New("Payment gateway is unavailable")
)

var errorMap = map[error]int{
	ErrInternalServer:          ErrStatusInternalServer,
	ErrClient:                  ErrStatusClient,
	ErrNotLoggedIn:             ErrStatusNotLoggedIn,
	ErrInvalidCredentialsEmail: ErrStatusUnauthorized,
	ErrUnauthorized:            ErrStatusNoPermission,
	ErrNotFound:                ErrStatusNotFound,
	ErrAccountNotFound:         ErrStatusNotFound,
	ErrEmailAlreadyUsed:        ErrStatusClient,
	ErrAccountSuspended:        ErrStatusNoPermission,
	ErrConflict:                ErrStatusConflict,
	ErrOrderAlreadyPaid:        ErrStatusConflict,
	ErrOrderCancelled:          ErrStatusConflict,
	ErrInvalidStatusTransition: ErrStatusConflict,
	ErrCartEmpty:               ErrStatusClient,
	ErrInsufficientStock:       ErrStatusConflict,
	ErrGatewayUnavailable:      ErrStatusBadGateway,
}

// GatewayError is a rejection reported by a payment provider. The provider's
// code and description are surfaced to the caller as-is.
type GatewayError struct {
	Code        string
	Description string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s (code %s)", e.Description, e.Code)
}

func GetErrorStatusCode(err error) int {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return ErrStatusBadGateway
	}

	for target, code := range errorMap {
		if errors.Is(err, target) {
			return code
		}
	}

	return errorMap[ErrInternalServer]
}
