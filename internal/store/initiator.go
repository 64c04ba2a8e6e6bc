package store

import (
	"context"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InitiatorStore struct {
	db *pgxpool.Pool
}

func NewInitiatorStore(db *pgxpool.Pool) *InitiatorStore {
	return &InitiatorStore{db: db}
}

// Create inserts the initiator. The unique index on initiator_key is the final
// authority on key uniqueness; a collision returns ErrConflict.
func (s *InitiatorStore) Create(ctx context.Context, i *domain.Initiator) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO remote_initiators (initiator_key) VALUES ($1)
		 RETURNING id, created_at`,
		i.Key,
	).Scan(&i.ID, &i.CreatedAt)
	return mapError(err)
}

func (s *InitiatorStore) GetByKey(ctx context.Context, key string) (*domain.Initiator, error) {
	i := &domain.Initiator{}
	err := s.db.QueryRow(ctx,
		`SELECT id, initiator_key, created_at
		 FROM remote_initiators WHERE initiator_key = $1`,
		key,
	).Scan(&i.ID, &i.Key, &i.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return i, nil
}

func (s *InitiatorStore) ExistsByKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM remote_initiators WHERE initiator_key = $1)`,
		key,
	).Scan(&exists)
	return exists, err
}
