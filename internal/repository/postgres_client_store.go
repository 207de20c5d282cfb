package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dreamroad/dreamroad/internal/session"
	"github.com/lib/pq"
)

// PostgresClientStore はPostgreSQLを使用した永続化キーバリューストア。
// client_storeテーブルに (client_id, key) 単位で値を保持する。
type PostgresClientStore struct {
	db DB
}

// NewPostgresClientStore はPostgresClientStoreを生成する。
func NewPostgresClientStore(db DB) *PostgresClientStore {
	return &PostgresClientStore{db: db}
}

// Get はクライアントの全キーを返す。存在しない場合は空のマップを返す。
func (r *PostgresClientStore) Get(ctx context.Context, clientID string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM client_store WHERE client_id = $1`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query client store: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan client store row: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate client store rows: %w", err)
	}

	return values, nil
}

// Put は全キーを同一トランザクションでUPSERTする。
// 読み手が一部のキーだけ更新された状態を観測しないようにする。
func (r *PostgresClientStore) Put(ctx context.Context, clientID string, values map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for k, v := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO client_store (client_id, key, value, updated_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (client_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			clientID, k, v, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert client store key %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete は指定キーを削除する。存在しないキーは無視する。
func (r *PostgresClientStore) Delete(ctx context.Context, clientID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM client_store WHERE client_id = $1 AND key = ANY($2)`,
		clientID, pq.Array(keys),
	)
	if err != nil {
		return fmt.Errorf("failed to delete client store keys: %w", err)
	}
	return nil
}

// compile-time interface check
var _ session.Store = (*PostgresClientStore)(nil)
