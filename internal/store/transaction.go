package store

import (
	"context"
	"time"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `id, initiator_id, target_instance_id, document_type_id, file_name, status::text, socket_id, created_at, updated_at`

type TransactionStore struct {
	db *pgxpool.Pool
}

func NewTransactionStore(db *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{db: db}
}

func scanTransaction(row pgx.Row) (*domain.RemoteTransaction, error) {
	t := &domain.RemoteTransaction{}
	var status string
	err := row.Scan(&t.ID, &t.InitiatorID, &t.TargetInstanceID, &t.DocumentTypeID, &t.FileName,
		&status, &t.CorrelationID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	t.Status = domain.TransactionStatus(status)
	return t, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.RemoteTransaction, error) {
	defer rows.Close()

	txs := []domain.RemoteTransaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

func (s *TransactionStore) Create(ctx context.Context, t *domain.RemoteTransaction) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO remote_transactions (initiator_id, target_instance_id, document_type_id, file_name, status, socket_id)
		 VALUES ($1, $2, $3, $4, $5::transaction_status, $6)
		 RETURNING id, created_at, updated_at`,
		t.InitiatorID, t.TargetInstanceID, t.DocumentTypeID, t.FileName, string(t.Status), t.CorrelationID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapError(err)
}

func (s *TransactionStore) GetByID(ctx context.Context, id int64) (*domain.RemoteTransaction, error) {
	return scanTransaction(s.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM remote_transactions WHERE id = $1`, id))
}

func (s *TransactionStore) List(ctx context.Context, limit int) ([]domain.RemoteTransaction, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.Query(ctx,
			`SELECT `+transactionColumns+` FROM remote_transactions
			 ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	} else {
		rows, err = s.db.Query(ctx,
			`SELECT `+transactionColumns+` FROM remote_transactions
			 ORDER BY created_at DESC, id DESC`)
	}
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// Transition locks the row and applies the status change only when the state machine
// allows it. Disallowed moves return a *TransitionError.
func (s *TransactionStore) Transition(ctx context.Context, id int64, status domain.TransactionStatus) (*domain.RemoteTransaction, error) {
	var updated *domain.RemoteTransaction

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		current, err := scanTransaction(tx.QueryRow(ctx,
			`SELECT `+transactionColumns+` FROM remote_transactions WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if !domain.CanTransition(current.Status, status) {
			return &TransitionError{From: current.Status, To: status}
		}

		updated, err = scanTransaction(tx.QueryRow(ctx,
			`UPDATE remote_transactions SET status = $2::transaction_status, updated_at = now()
			 WHERE id = $1
			 RETURNING `+transactionColumns,
			id, string(status)))
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return updated, nil
}

func (s *TransactionStore) Delete(ctx context.Context, id int64) (*domain.RemoteTransaction, error) {
	return scanTransaction(s.db.QueryRow(ctx,
		`DELETE FROM remote_transactions WHERE id = $1 RETURNING `+transactionColumns, id))
}

func (s *TransactionStore) FailStale(ctx context.Context, cutoff time.Time) ([]domain.RemoteTransaction, error) {
	rows, err := s.db.Query(ctx,
		`UPDATE remote_transactions SET status = 'FAILED', updated_at = now()
		 WHERE status IN ('STARTED', 'FORWARDED') AND updated_at < $1
		 RETURNING `+transactionColumns,
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}
