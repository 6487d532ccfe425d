package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tftstocks/internal/domain"
)

// DraftStore keeps drafts as JSONB rows in future_sight_drafts.
type DraftStore struct {
	pool *pgxpool.Pool
}

func NewDraftStore(pool *pgxpool.Pool) *DraftStore {
	return &DraftStore{pool: pool}
}

func (s *DraftStore) Save(ctx context.Context, user string, d domain.Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO future_sight_drafts (username, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		user, raw, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *DraftStore) Load(ctx context.Context, user string) (domain.Draft, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM future_sight_drafts WHERE username=$1`, user).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Draft{}, domain.ErrDraftNotFound
	}
	if err != nil {
		return domain.Draft{}, fmt.Errorf("load draft: %w", err)
	}
	var d domain.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.Draft{}, fmt.Errorf("unmarshal draft: %w", err)
	}
	return d, nil
}

func (s *DraftStore) Delete(ctx context.Context, user string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM future_sight_drafts WHERE username=$1`, user); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
