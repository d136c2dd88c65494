package api

import (
	"context"
	"errors"
	"net/http"

	"goeventcity/internal/database"
	"goeventcity/internal/payment"
	"goeventcity/internal/pricing"
	"goeventcity/internal/service"
	"goeventcity/internal/wizard"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errBadRequest = errors.New("bad request")

type errorMapping struct {
	target error
	status int
	code   codes.Code
}

// Порядок важен: первое совпадение выигрывает
var errorMappings = []errorMapping{
	{errBadRequest, http.StatusBadRequest, codes.InvalidArgument},
	{service.ErrSessionNotFound, http.StatusNotFound, codes.NotFound},
	{service.ErrVenueNotFound, http.StatusNotFound, codes.NotFound},
	{service.ErrBookingNotFound, http.StatusNotFound, codes.NotFound},
	{wizard.ErrInvalidQuoteInput, http.StatusUnprocessableEntity, codes.InvalidArgument},
	{wizard.ErrInvalidPaymentDetails, http.StatusUnprocessableEntity, codes.InvalidArgument},
	{pricing.ErrInvalidTime, http.StatusUnprocessableEntity, codes.InvalidArgument},
	{payment.ErrInvalidAmount, http.StatusUnprocessableEntity, codes.InvalidArgument},
	{payment.ErrPaymentDeclined, http.StatusPaymentRequired, codes.FailedPrecondition},
	{wizard.ErrSubmissionInProgress, http.StatusConflict, codes.Aborted},
	{wizard.ErrInvalidTransition, http.StatusConflict, codes.FailedPrecondition},
	{service.ErrInvalidStatus, http.StatusConflict, codes.FailedPrecondition},
	{database.ErrNotAvailable, http.StatusConflict, codes.FailedPrecondition},
	{database.ErrConcurrentModification, http.StatusConflict, codes.Aborted},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, codes.DeadlineExceeded},
	{context.Canceled, http.StatusServiceUnavailable, codes.Canceled},
}

// httpStatus maps a service error to an HTTP status and a client-safe
// message. Unknown errors become 500 without details.
func httpStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, err.Error()
		}
	}
	return http.StatusInternalServerError, "internal error"
}

// grpcError maps a service error to a gRPC status.
func grpcError(err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return status.Error(m.code, err.Error())
		}
	}
	return status.Error(codes.Internal, "internal error")
}
