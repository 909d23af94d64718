package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	// ErrTenantSubdomainMissing means no tenant could be determined from the
	// request and no development fallback applies.
	ErrTenantSubdomainMissing = errors.New("tenant subdomain missing")

	// ErrTenantNotFound means the subdomain or id did not match an active tenant.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantAlreadyExists means an active tenant already owns the subdomain.
	ErrTenantAlreadyExists = errors.New("tenant already exists")

	// ErrSchemaNotEmpty means a rename target schema already holds tables.
	ErrSchemaNotEmpty = errors.New("target schema is not empty")

	// ErrUnauthorized covers every refresh-protocol rejection. Unknown, expired,
	// device-mismatched, and replayed tokens are deliberately indistinguishable
	// to the caller.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingTenantContext means a tenant-scoped repository was called
	// without a resolved TenantContext.
	ErrMissingTenantContext = errors.New("tenant context is required")
)

// ProvisioningError names the provisioning phase that failed so an operator
// can retry; phases after the tenant insert are idempotent.
type ProvisioningError struct {
	Phase string
	Err   error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning failed at phase %q: %v", e.Phase, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// ProvisioningFailed wraps err with the failed phase name.
func ProvisioningFailed(phase string, err error) error {
	return &ProvisioningError{Phase: phase, Err: err}
}

// ErrorResponse is the standard error body returned by handlers.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateErrorResponse builds the standard error body.
func CreateErrorResponse(code, message string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	return &resp
}

// SendError maps a core error to its HTTP response. Refresh failures collapse
// to one opaque 401; provisioning failures keep the phase for the admin caller.
func SendError(c echo.Context, err error) error {
	var provErr *ProvisioningError
	switch {
	case errors.Is(err, ErrTenantSubdomainMissing):
		return c.JSON(http.StatusBadRequest, CreateErrorResponse("TENANT_SUBDOMAIN_MISSING", "Tenant could not be determined from request"))
	case errors.Is(err, ErrTenantNotFound):
		return c.JSON(http.StatusNotFound, CreateErrorResponse("TENANT_NOT_FOUND", "Tenant not found"))
	case errors.Is(err, ErrTenantAlreadyExists):
		return c.JSON(http.StatusConflict, CreateErrorResponse("TENANT_ALREADY_EXISTS", "An active tenant with this subdomain already exists"))
	case errors.Is(err, ErrSchemaNotEmpty):
		return c.JSON(http.StatusConflict, CreateErrorResponse("SCHEMA_NOT_EMPTY", "Target schema already holds tables"))
	case errors.Is(err, ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Invalid credentials"))
	case errors.As(err, &provErr):
		return c.JSON(http.StatusInternalServerError, CreateErrorResponse("PROVISIONING_FAILED", provErr.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", "Operation could not be completed"))
	}
}
