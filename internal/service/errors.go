package service

import (
	"errors"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/Harshitk-cp/docrelay/internal/store"
	"go.uber.org/zap"
)

// internalError logs the underlying failure and returns an Internal error that does not
// expose store detail to the caller.
func internalError(logger *zap.Logger, op string, err error, msg string, fields ...zap.Field) error {
	logger.Error(msg, append(fields, zap.String("op", op), zap.Error(err))...)
	return domain.Internal("%s", msg)
}

// isKind reports whether err already carries a domain error kind.
func isKind(err error) bool {
	var de *domain.Error
	return errors.As(err, &de)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
