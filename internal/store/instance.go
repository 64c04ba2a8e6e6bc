package store

import (
	"context"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectInstance = `SELECT id, machine_id, operational_mode, polling_frequency, chosen_device_id, created_at, updated_at
	FROM windows_app_instances`

type InstanceStore struct {
	db *pgxpool.Pool
}

func NewInstanceStore(db *pgxpool.Pool) *InstanceStore {
	return &InstanceStore{db: db}
}

func scanInstance(row pgx.Row) (*domain.AgentInstance, error) {
	inst := &domain.AgentInstance{}
	err := row.Scan(&inst.ID, &inst.MachineID, &inst.OperationalMode, &inst.PollingFrequency,
		&inst.ChosenDeviceID, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return inst, nil
}

func (s *InstanceStore) Create(ctx context.Context, inst *domain.AgentInstance) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO windows_app_instances (machine_id, operational_mode, polling_frequency)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		inst.MachineID, string(inst.OperationalMode), inst.PollingFrequency,
	).Scan(&inst.ID, &inst.CreatedAt, &inst.UpdatedAt)
	return mapError(err)
}

func (s *InstanceStore) GetByID(ctx context.Context, id int64) (*domain.AgentInstance, error) {
	return scanInstance(s.db.QueryRow(ctx, selectInstance+` WHERE id = $1`, id))
}

func (s *InstanceStore) GetByMachineID(ctx context.Context, machineID string) (*domain.AgentInstance, error) {
	return scanInstance(s.db.QueryRow(ctx, selectInstance+` WHERE machine_id = $1`, machineID))
}

func (s *InstanceStore) List(ctx context.Context) ([]domain.AgentInstance, error) {
	rows, err := s.db.Query(ctx, selectInstance+` ORDER BY machine_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []domain.AgentInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, *inst)
	}
	return instances, rows.Err()
}

func (s *InstanceStore) ListDevices(ctx context.Context, instanceID int64) ([]domain.AvailableDevice, error) {
	return listDevices(ctx, s.db, instanceID)
}

func listDevices(ctx context.Context, q querier, instanceID int64) ([]domain.AvailableDevice, error) {
	rows, err := q.Query(ctx,
		`SELECT id, instance_id, device_name, is_chosen
		 FROM available_devices WHERE instance_id = $1
		 ORDER BY device_name`,
		instanceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := []domain.AvailableDevice{}
	for rows.Next() {
		var d domain.AvailableDevice
		if err := rows.Scan(&d.ID, &d.InstanceID, &d.DeviceName, &d.IsChosen); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// ReconcileDevices locks the instance row, diffs its devices against reported and applies
// the additions and removals in a single transaction. If the chosen device is removed the
// instance's chosen_device_id is cleared before the delete.
func (s *InstanceStore) ReconcileDevices(ctx context.Context, instanceID int64, reported []string) (*domain.AgentInstance, domain.DeviceDiff, error) {
	var (
		inst *domain.AgentInstance
		diff domain.DeviceDiff
	)

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		inst, err = scanInstance(tx.QueryRow(ctx, selectInstance+` WHERE id = $1 FOR UPDATE`, instanceID))
		if err != nil {
			return err
		}

		current, err := listDevices(ctx, tx, instanceID)
		if err != nil {
			return err
		}

		diff = domain.DiffDevices(current, reported)
		if diff.Empty() {
			inst.Devices = current
			return nil
		}

		if diff.RemovesChosen(inst.ChosenDeviceID) {
			if err := tx.QueryRow(ctx,
				`UPDATE windows_app_instances SET chosen_device_id = NULL, updated_at = now()
				 WHERE id = $1 RETURNING updated_at`,
				instanceID,
			).Scan(&inst.UpdatedAt); err != nil {
				return err
			}
			inst.ChosenDeviceID = nil
		}

		if len(diff.ToRemove) > 0 {
			ids := make([]int64, len(diff.ToRemove))
			for i, d := range diff.ToRemove {
				ids[i] = d.ID
			}
			if _, err := tx.Exec(ctx,
				`DELETE FROM available_devices WHERE instance_id = $1 AND id = ANY($2)`,
				instanceID, ids,
			); err != nil {
				return err
			}
		}

		if len(diff.ToAdd) > 0 {
			if _, err := tx.Exec(ctx,
				`INSERT INTO available_devices (instance_id, device_name, is_chosen)
				 SELECT $1, name, false FROM unnest($2::text[]) AS name`,
				instanceID, diff.ToAdd,
			); err != nil {
				return err
			}
		}

		inst.Devices, err = listDevices(ctx, tx, instanceID)
		return err
	})
	if err != nil {
		return nil, domain.DeviceDiff{}, mapError(err)
	}
	return inst, diff, nil
}

// ChooseDevice marks deviceName as the single chosen device of the instance.
func (s *InstanceStore) ChooseDevice(ctx context.Context, instanceID int64, deviceName string) (*domain.AgentInstance, error) {
	var inst *domain.AgentInstance

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		inst, err = scanInstance(tx.QueryRow(ctx, selectInstance+` WHERE id = $1 FOR UPDATE`, instanceID))
		if err != nil {
			return err
		}

		var deviceID int64
		if err := tx.QueryRow(ctx,
			`SELECT id FROM available_devices WHERE instance_id = $1 AND device_name = $2`,
			instanceID, deviceName,
		).Scan(&deviceID); err != nil {
			return err
		}

		// Clear first so the partial unique index on is_chosen never sees two rows.
		if _, err := tx.Exec(ctx,
			`UPDATE available_devices SET is_chosen = false WHERE instance_id = $1 AND is_chosen`,
			instanceID,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE available_devices SET is_chosen = true WHERE id = $1`,
			deviceID,
		); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx,
			`UPDATE windows_app_instances SET chosen_device_id = $2, updated_at = now()
			 WHERE id = $1 RETURNING updated_at`,
			instanceID, deviceID,
		).Scan(&inst.UpdatedAt); err != nil {
			return err
		}
		inst.ChosenDeviceID = &deviceID

		inst.Devices, err = listDevices(ctx, tx, instanceID)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return inst, nil
}
