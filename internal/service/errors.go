package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/errs"
)

var errInternal = errors.New("internal error")

// toConnectError maps a ledger error onto the Connect code its kind implies.
// Internal details are logged, never returned.
func toConnectError(ctx context.Context, logger *slog.Logger, procedure string, err error) error {
	if err == nil {
		return nil
	}
	switch errs.KindOf(err) {
	case errs.Validation:
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errs.NotFound:
		return connect.NewError(connect.CodeNotFound, err)
	case errs.Authorization:
		return connect.NewError(connect.CodePermissionDenied, err)
	case errs.Conflict:
		return connect.NewError(connect.CodeFailedPrecondition, err)
	}
	if errors.Is(err, context.Canceled) {
		return connect.NewError(connect.CodeCanceled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	logger.ErrorContext(ctx, procedure+" failed", "kind", errs.KindOf(err).String(), "error", err)
	return connect.NewError(connect.CodeInternal, errInternal)
}
