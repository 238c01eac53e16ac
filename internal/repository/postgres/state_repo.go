package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_state (
    id          SMALLINT PRIMARY KEY CHECK (id = 1),
    generation  INTEGER NOT NULL,
    balance     NUMERIC NOT NULL,
    total_value NUMERIC NOT NULL,
    document    JSONB NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS upgrade_snapshots (
    generation  INTEGER PRIMARY KEY,
    captured_at TIMESTAMPTZ NOT NULL,
    document    JSONB NOT NULL
);
`

// StateRepository implements domain.StateRepository and
// domain.SnapshotRepository using PostgreSQL. The ledger is one JSONB
// document; balance and total value are mirrored into numeric columns for
// reporting queries.
type StateRepository struct {
	pool *pgxpool.Pool
}

// NewStateRepository creates a new StateRepository
func NewStateRepository(pool *pgxpool.Pool) *StateRepository {
	return &StateRepository{pool: pool}
}

// EnsureSchema creates the tables if they do not exist
func (r *StateRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Load reads the ledger document
func (r *StateRepository) Load(ctx context.Context) (*domain.State, error) {
	var document []byte
	err := r.pool.QueryRow(ctx, `SELECT document FROM ledger_state WHERE id = 1`).Scan(&document)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStateNotFound
		}
		return nil, err
	}

	var state domain.State
	if err := json.Unmarshal(document, &state); err != nil {
		return nil, fmt.Errorf("failed to decode ledger state: %w", err)
	}
	state.EnsureInitialized()
	return &state, nil
}

// Save upserts the ledger document
func (r *StateRepository) Save(ctx context.Context, state *domain.State) error {
	document, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode ledger state: %w", err)
	}
	balance, err := decimalToPgNumeric(state.Ledger.Balance)
	if err != nil {
		return fmt.Errorf("invalid balance: %w", err)
	}
	total, err := decimalToPgNumeric(state.MonetaryTotal())
	if err != nil {
		return fmt.Errorf("invalid total value: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO ledger_state (id, generation, balance, total_value, document, updated_at)
		VALUES (1, $1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			generation = EXCLUDED.generation,
			balance = EXCLUDED.balance,
			total_value = EXCLUDED.total_value,
			document = EXCLUDED.document,
			updated_at = NOW()`,
		int32(domain.CurrentGeneration), balance, total, document,
	)
	return err
}

// StoredBalance reads the mirrored balance column without decoding the document
func (r *StateRepository) StoredBalance(ctx context.Context) (decimal.Decimal, error) {
	var balance pgtype.Numeric
	err := r.pool.QueryRow(ctx, `SELECT balance FROM ledger_state WHERE id = 1`).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrStateNotFound
		}
		return decimal.Zero, err
	}
	return pgNumericToDecimal(balance), nil
}

// SaveSlots replaces every upgrade slot in one transaction
func (r *StateRepository) SaveSlots(ctx context.Context, slots *domain.UpgradeSlots) error {
	rows, err := encodeSlots(slots)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM upgrade_snapshots`); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO upgrade_snapshots (generation, captured_at, document) VALUES ($1, $2, $3)`,
			int32(row.generation), slots.CapturedAt, row.document,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// LoadSlots reads the upgrade slots, empty when none are stored
func (r *StateRepository) LoadSlots(ctx context.Context) (*domain.UpgradeSlots, error) {
	rows, err := r.pool.Query(ctx, `SELECT generation, captured_at, document FROM upgrade_snapshots ORDER BY generation`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := &domain.UpgradeSlots{}
	for rows.Next() {
		var gen int32
		var capturedAt time.Time
		var document []byte
		if err := rows.Scan(&gen, &capturedAt, &document); err != nil {
			return nil, err
		}
		if err := decodeSlot(slots, domain.Generation(gen), document); err != nil {
			return nil, err
		}
		slots.CapturedAt = capturedAt.UTC()
	}
	return slots, rows.Err()
}

// ClearSlots deletes every upgrade slot
func (r *StateRepository) ClearSlots(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM upgrade_snapshots`)
	return err
}

type slotRow struct {
	generation domain.Generation
	document   []byte
}

func encodeSlots(slots *domain.UpgradeSlots) ([]slotRow, error) {
	var rows []slotRow
	add := func(gen domain.Generation, v interface{}) error {
		document, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode generation %d snapshot: %w", gen, err)
		}
		rows = append(rows, slotRow{generation: gen, document: document})
		return nil
	}
	if slots.V1 != nil {
		if err := add(domain.GenerationV1, slots.V1); err != nil {
			return nil, err
		}
	}
	if slots.V2 != nil {
		if err := add(domain.GenerationV2, slots.V2); err != nil {
			return nil, err
		}
	}
	if slots.V3 != nil {
		if err := add(domain.GenerationV3, slots.V3); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func decodeSlot(slots *domain.UpgradeSlots, gen domain.Generation, document []byte) error {
	var err error
	switch gen {
	case domain.GenerationV1:
		slots.V1 = &domain.StateV1{}
		err = json.Unmarshal(document, slots.V1)
	case domain.GenerationV2:
		slots.V2 = &domain.StateV2{}
		err = json.Unmarshal(document, slots.V2)
	case domain.GenerationV3:
		slots.V3 = &domain.State{}
		err = json.Unmarshal(document, slots.V3)
	default:
		return fmt.Errorf("unknown snapshot generation %d", gen)
	}
	if err != nil {
		return fmt.Errorf("failed to decode generation %d snapshot: %w", gen, err)
	}
	return nil
}

var (
	_ domain.StateRepository    = (*StateRepository)(nil)
	_ domain.SnapshotRepository = (*StateRepository)(nil)
)
