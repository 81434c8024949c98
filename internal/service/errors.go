package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/finagent/internal/analytics"
	"github.com/mmynk/finagent/internal/calculator"
	"github.com/mmynk/finagent/internal/currency"
	"github.com/mmynk/finagent/internal/extract"
	"github.com/mmynk/finagent/internal/models"
	"github.com/mmynk/finagent/internal/storage"
)

var invalidArgumentErrs = []error{
	models.ErrInvalidAmount,
	models.ErrEmptyMerchant,
	models.ErrInvalidDate,
	models.ErrInvalidCurrency,
	models.ErrNoSplitPartners,
	calculator.ErrNoParticipants,
	calculator.ErrInvalidAmount,
	calculator.ErrNegativeShare,
	calculator.ErrEmptyName,
	analytics.ErrInvalidWindow,
	extract.ErrExtractionFailed,
}

var failedPreconditionErrs = []error{
	calculator.ErrReconciliation,
	calculator.ErrNotReconciled,
	calculator.ErrReviewClosed,
	calculator.ErrReviewNotOpen,
	analytics.ErrIncompatibleAggregates,
}

// toConnectError maps domain errors to Connect codes.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	if errors.Is(err, currency.ErrConversionUnavailable) {
		return connect.NewError(connect.CodeUnavailable, err)
	}
	for _, target := range invalidArgumentErrs {
		if errors.Is(err, target) {
			return connect.NewError(connect.CodeInvalidArgument, err)
		}
	}
	for _, target := range failedPreconditionErrs {
		if errors.Is(err, target) {
			return connect.NewError(connect.CodeFailedPrecondition, err)
		}
	}
	return connect.NewError(connect.CodeInternal, err)
}
