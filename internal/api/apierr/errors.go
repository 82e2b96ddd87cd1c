package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/tapearn/internal/api/response"
	"github.com/mcoot/tapearn/internal/model"
)

// Error codes carried in the error payload
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodePlayerNotFound       = "PLAYER_NOT_FOUND"
	CodeInsufficientResource = "INSUFFICIENT_RESOURCE"
	CodeInvalidAmount        = "INVALID_AMOUNT"
	CodeLimitReached         = "LIMIT_REACHED"
	CodeAlreadyOwned         = "ALREADY_OWNED"
	CodeRateLimited          = "RATE_LIMITED"
	CodeAlreadyClaimed       = "ALREADY_CLAIMED"
	CodeAlreadyReferred      = "ALREADY_REFERRED"
	CodeInvalidReferrer      = "INVALID_REFERRER"
	CodeNotEligible          = "NOT_ELIGIBLE"
	CodeUnknownTask          = "UNKNOWN_TASK"
	CodeInvalidPackage       = "INVALID_PACKAGE"
	CodePackageDowngrade     = "PACKAGE_DOWNGRADE"
	CodePaymentNotConfirmed  = "PAYMENT_NOT_CONFIRMED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an error payload
type httpError struct {
	status int
	body   response.ErrorBody
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.body.Message
}

// codes maps model errors to their status and code. Order matters only for
// errors that wrap more than one sentinel.
var codes = []struct {
	err    error
	status int
	code   string
}{
	{model.ErrPlayerNotFound, http.StatusNotFound, CodePlayerNotFound},
	{model.ErrInsufficientResource, http.StatusPaymentRequired, CodeInsufficientResource},
	{model.ErrInvalidAmount, http.StatusBadRequest, CodeInvalidAmount},
	{model.ErrLimitReached, http.StatusConflict, CodeLimitReached},
	{model.ErrAlreadyOwned, http.StatusConflict, CodeAlreadyOwned},
	{model.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
	{model.ErrAlreadyClaimed, http.StatusConflict, CodeAlreadyClaimed},
	{model.ErrAlreadyReferred, http.StatusConflict, CodeAlreadyReferred},
	{model.ErrInvalidReferrer, http.StatusBadRequest, CodeInvalidReferrer},
	{model.ErrNotEligible, http.StatusForbidden, CodeNotEligible},
	{model.ErrUnknownTask, http.StatusNotFound, CodeUnknownTask},
	{model.ErrInvalidPackage, http.StatusBadRequest, CodeInvalidPackage},
	{model.ErrPackageDowngrade, http.StatusConflict, CodePackageDowngrade},
	{model.ErrPaymentNotConfirmed, http.StatusPaymentRequired, CodePaymentNotConfirmed},
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(he.body)
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	for _, c := range codes {
		if !errors.Is(err, c.err) {
			continue
		}
		body := response.ErrorBody{Code: c.code, Message: err.Error()}
		var rl *model.RateLimitError
		if errors.As(err, &rl) {
			body.RetryAfterSeconds = int64(rl.RetryAfter.Seconds())
		}
		return &httpError{c.status, body}
	}
	return &httpError{http.StatusInternalServerError, response.ErrorBody{Code: CodeInternalError, Message: "Internal server error"}}
}

// FromCode returns the model error for a payload code, or nil if the code has none
func FromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, response.ErrorBody{Code: CodeInvalidRequest, Message: message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, response.ErrorBody{Code: CodeUnauthorized, Message: "Authentication required"}}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, response.ErrorBody{Code: CodeForbidden, Message: message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, response.ErrorBody{Code: CodeInternalError, Message: "Internal server error"}}
}
