package datastore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchdarkly/go-sdk-evaluation-core/internal/ldmodel"
)

// PostgresStore is an optional durable Store backing, for deployments that
// want flag state to survive a process restart without waiting on the data
// source to catch up again. It is not required by any SPEC_FULL.md
// operation — the evaluator only ever talks to the Store interface — but
// gives operators a persistence option the in-memory store can't offer.
//
// Items are kept in a single table keyed by (kind, key), with the payload
// serialized as JSON. A tombstone is stored as a row with payload NULL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an already-connected pool. Callers are expected to
// have run the schema migration (see schema.sql) before first use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Init(ctx context.Context, allData map[ldmodel.DataKind]map[string]ldmodel.ItemDescriptor) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM flag_items`); err != nil {
		return err
	}

	for kind, items := range allData {
		for key, item := range items {
			payload, err := encodeItem(item)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO flag_items (kind, key, version, payload) VALUES ($1, $2, $3, $4)`,
				kind.String(), key, item.Version, payload); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO flag_store_meta (id, initialized) VALUES (1, true)
		 ON CONFLICT (id) DO UPDATE SET initialized = true`); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (p *PostgresStore) Get(ctx context.Context, kind ldmodel.DataKind, key string) (ldmodel.ItemDescriptor, bool, error) {
	var version int
	var payload []byte
	err := p.pool.QueryRow(ctx,
		`SELECT version, payload FROM flag_items WHERE kind = $1 AND key = $2`,
		kind.String(), key).Scan(&version, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return ldmodel.ItemDescriptor{}, false, nil
	}
	if err != nil {
		return ldmodel.ItemDescriptor{}, false, err
	}
	item, err := decodeItem(kind, version, payload)
	if err != nil {
		return ldmodel.ItemDescriptor{}, false, err
	}
	return item, true, nil
}

func (p *PostgresStore) GetAll(ctx context.Context, kind ldmodel.DataKind) (map[string]ldmodel.ItemDescriptor, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT key, version, payload FROM flag_items WHERE kind = $1 AND payload IS NOT NULL`,
		kind.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]ldmodel.ItemDescriptor)
	for rows.Next() {
		var key string
		var version int
		var payload []byte
		if err := rows.Scan(&key, &version, &payload); err != nil {
			return nil, err
		}
		item, err := decodeItem(kind, version, payload)
		if err != nil {
			return nil, err
		}
		result[key] = item
	}
	return result, rows.Err()
}

func (p *PostgresStore) Upsert(ctx context.Context, kind ldmodel.DataKind, key string, item ldmodel.ItemDescriptor) (bool, error) {
	payload, err := encodeItem(item)
	if err != nil {
		return false, err
	}

	tag, err := p.pool.Exec(ctx,
		`INSERT INTO flag_items (kind, key, version, payload) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (kind, key) DO UPDATE SET version = $3, payload = $4
		 WHERE flag_items.version < $3`,
		kind.String(), key, item.Version, payload)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PostgresStore) Initialized(ctx context.Context) bool {
	var initialized bool
	err := p.pool.QueryRow(ctx, `SELECT initialized FROM flag_store_meta WHERE id = 1`).Scan(&initialized)
	if err != nil {
		return false
	}
	return initialized
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func encodeItem(item ldmodel.ItemDescriptor) ([]byte, error) {
	if item.IsTombstone() {
		return nil, nil
	}
	return json.Marshal(item.Item)
}

func decodeItem(kind ldmodel.DataKind, version int, payload []byte) (ldmodel.ItemDescriptor, error) {
	if payload == nil {
		return ldmodel.Tombstone(version), nil
	}
	switch kind {
	case ldmodel.Features:
		var flag ldmodel.Flag
		if err := json.Unmarshal(payload, &flag); err != nil {
			return ldmodel.ItemDescriptor{}, err
		}
		return ldmodel.ItemDescriptor{Version: version, Item: &flag}, nil
	case ldmodel.Segments:
		var segment ldmodel.Segment
		if err := json.Unmarshal(payload, &segment); err != nil {
			return ldmodel.ItemDescriptor{}, err
		}
		return ldmodel.ItemDescriptor{Version: version, Item: &segment}, nil
	default:
		return ldmodel.ItemDescriptor{}, errors.New("datastore: unknown data kind")
	}
}
