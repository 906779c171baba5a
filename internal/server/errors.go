package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountingclient "github.com/smallbiznis/okonomi/internal/accounting/client"
	"github.com/smallbiznis/okonomi/internal/accounting/protocol"
	auditdomain "github.com/smallbiznis/okonomi/internal/audit/domain"
	tilbakedomain "github.com/smallbiznis/okonomi/internal/tilbakekreving/domain"
	utbetalingdomain "github.com/smallbiznis/okonomi/internal/utbetaling/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var (
		missingField  *tilbakedomain.MissingRequiredFieldError
		unknownCode   *protocol.UnknownSeverityError
		transition    *tilbakedomain.InvalidTransitionError
		noExisting    *utbetalingdomain.NoExistingPaymentError
		unmappedCat   *utbetalingdomain.UnmappedCategoryError
		unmappedCode  *tilbakedomain.UnmappedCodeError
		severityErr   *protocol.SeverityError
		transportErr  *accountingclient.TransportError
		dispatchErr   *utbetalingdomain.DispatchError
		auditWriteErr *auditdomain.WriteError
	)

	switch {
	case errors.As(err, &missingField):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{{
				Field:   missingField.Field,
				Code:    "required",
				Message: missingField.Error(),
			}},
		}
	case validationSentinel(err) != nil, errors.As(err, &unknownCode):
		code := "invalid_receipt_code"
		if sentinel := validationSentinel(err); sentinel != nil {
			code = sentinel.Error()
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{{
				Field:   validationErrorField(code),
				Code:    code,
				Message: "invalid value",
			}},
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.As(err, &transition):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_transition",
			Message: transition.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.As(err, &noExisting), errors.As(err, &unmappedCat), errors.As(err, &unmappedCode):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: err.Error(),
		}
	case errors.As(err, &severityErr):
		return http.StatusBadGateway, errorPayload{
			Type:    "accounting_rejected",
			Message: "accounting system returned " + severityErr.Severity.String(),
		}
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, errorPayload{
			Type:    "accounting_unavailable",
			Message: "accounting system unavailable",
		}
	case errors.As(err, &dispatchErr):
		return http.StatusBadGateway, errorPayload{
			Type:    "dispatch_failed",
			Message: "payment order " + dispatchErr.OrderID.String() + " stored but not dispatched",
		}
	case errors.As(err, &auditWriteErr):
		return http.StatusInternalServerError, errorPayload{
			Type:    "audit_failed",
			Message: "audit write failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog reports the error type and code logged with a
// request. It never includes identifiers.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, http.StatusText(status)
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationSentinels = []error{
	ErrInvalidRequest,
	utbetalingdomain.ErrInvalidDecision,
	utbetalingdomain.ErrDecisionWithoutLines,
	utbetalingdomain.ErrInvalidPeriod,
	utbetalingdomain.ErrInvalidStatus,
	tilbakedomain.ErrInvalidAssessment,
	tilbakedomain.ErrInvalidClaim,
	tilbakedomain.ErrUnknownLine,
}

// validationSentinel returns the sentinel err wraps, so wrapped detail never
// leaks into the error code.
func validationSentinel(err error) error {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, utbetalingdomain.ErrOrderNotFound),
		errors.Is(err, tilbakedomain.ErrCaseNotFound),
		errors.Is(err, tilbakedomain.ErrClaimNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, utbetalingdomain.ErrOrderAlreadyExists),
		errors.Is(err, utbetalingdomain.ErrRecipientBusy),
		errors.Is(err, tilbakedomain.ErrConcurrentModification),
		errors.Is(err, tilbakedomain.ErrCaseBusy),
		errors.Is(err, tilbakedomain.ErrCaseClosed),
		errors.Is(err, tilbakedomain.ErrIncompleteAssessment),
		errors.Is(err, tilbakedomain.ErrPeriodsNotAssessed):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
