package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/Harshitk-cp/docrelay/internal/store"
	"go.uber.org/zap"
)

const (
	initiatorKeyPrefix = "ik_"
	initiatorKeyBytes  = 24
	maxKeyAttempts     = 5
)

// KeyIssuer issues and validates initiator keys.
type KeyIssuer struct {
	store  domain.InitiatorStore
	logger *zap.Logger
	rand   io.Reader
}

func NewKeyIssuer(s domain.InitiatorStore, logger *zap.Logger) *KeyIssuer {
	return &KeyIssuer{store: s, logger: logger, rand: rand.Reader}
}

func (k *KeyIssuer) generate() (string, error) {
	b := make([]byte, initiatorKeyBytes)
	if _, err := io.ReadFull(k.rand, b); err != nil {
		return "", err
	}
	return initiatorKeyPrefix + hex.EncodeToString(b), nil
}

// Issue generates a fresh key and stores it as a new initiator. The existence check
// skips known collisions early; the store's unique index is the final arbiter, so a
// conflicting insert is retried as well.
func (k *KeyIssuer) Issue(ctx context.Context) (*domain.Initiator, error) {
	for attempt := 1; attempt <= maxKeyAttempts; attempt++ {
		key, err := k.generate()
		if err != nil {
			return nil, internalError(k.logger, "issue_key", err, "failed to generate initiator key")
		}

		exists, err := k.store.ExistsByKey(ctx, key)
		if err != nil {
			return nil, internalError(k.logger, "issue_key", err, "failed to issue initiator key")
		}
		if exists {
			k.logger.Warn("initiator key collision", zap.Int("attempt", attempt))
			continue
		}

		initiator := &domain.Initiator{Key: key}
		if err := k.store.Create(ctx, initiator); err != nil {
			if errors.Is(err, store.ErrConflict) {
				k.logger.Warn("initiator key collision on insert", zap.Int("attempt", attempt))
				continue
			}
			return nil, internalError(k.logger, "issue_key", err, "failed to issue initiator key")
		}

		k.logger.Info("initiator key issued", zap.Int64("initiator_id", initiator.ID))
		return initiator, nil
	}

	return nil, domain.Internal("failed to issue a unique initiator key")
}

func (k *KeyIssuer) Validate(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, domain.Missing("initiator_key")
	}
	exists, err := k.store.ExistsByKey(ctx, key)
	if err != nil {
		return false, internalError(k.logger, "validate_key", err, "failed to validate initiator key")
	}
	return exists, nil
}

// Resolve returns the initiator owning key.
func (k *KeyIssuer) Resolve(ctx context.Context, key string) (*domain.Initiator, error) {
	if key == "" {
		return nil, domain.Missing("initiator_key")
	}
	initiator, err := k.store.GetByKey(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("no initiator for key")
		}
		return nil, internalError(k.logger, "resolve_key", err, "failed to resolve initiator")
	}
	return initiator, nil
}
