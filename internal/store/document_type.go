package store

import (
	"context"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentTypeStore struct {
	db *pgxpool.Pool
}

func NewDocumentTypeStore(db *pgxpool.Pool) *DocumentTypeStore {
	return &DocumentTypeStore{db: db}
}

func (s *DocumentTypeStore) GetByID(ctx context.Context, id int64) (*domain.DocumentType, error) {
	dt := &domain.DocumentType{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name FROM document_types WHERE id = $1`,
		id,
	).Scan(&dt.ID, &dt.Name)
	if err != nil {
		return nil, mapError(err)
	}
	return dt, nil
}
