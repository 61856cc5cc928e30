package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/timevest/engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Cash is stored as NUMERIC for exact decimal precision; holdings, tax state,
// and the achievement/unlock sets are stored as JSONB documents.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess *model.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	holdings, tax, achievements, unlocked, err := marshalDocs(sess)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (id, cash, holdings, tax, achievements, unlocked,
		                       mode, current_year, sequential_cursor,
		                       travel_credits_used, years_invested, game_over,
		                       created_at, updated_at)
		 VALUES ($1, $2::NUMERIC, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		sess.ID, sess.Cash.String(), holdings, tax, achievements, unlocked,
		sess.Mode, sess.CurrentYear, sess.SequentialCursor,
		sess.TravelCreditsUsed, sess.YearsInvested, sess.GameOver,
		sess.CreatedAt, sess.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	var cash string
	var holdings, tax, achievements, unlocked []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, cash::TEXT, holdings, tax, achievements, unlocked,
		        mode, current_year, sequential_cursor,
		        travel_credits_used, years_invested, game_over,
		        created_at, updated_at
		 FROM sessions WHERE id = $1`, id).
		Scan(&sess.ID, &cash, &holdings, &tax, &achievements, &unlocked,
			&sess.Mode, &sess.CurrentYear, &sess.SequentialCursor,
			&sess.TravelCreditsUsed, &sess.YearsInvested, &sess.GameOver,
			&sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	sess.Cash, err = decimal.NewFromString(cash)
	if err != nil {
		return nil, fmt.Errorf("%w: bad cash value %q", model.ErrInvalidSnapshot, cash)
	}
	if err := unmarshalDocs(&sess, holdings, tax, achievements, unlocked); err != nil {
		return nil, err
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, sess *model.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	holdings, tax, achievements, unlocked, err := marshalDocs(sess)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions
		 SET cash = $2::NUMERIC, holdings = $3, tax = $4, achievements = $5,
		     unlocked = $6, mode = $7, current_year = $8, sequential_cursor = $9,
		     travel_credits_used = $10, years_invested = $11, game_over = $12,
		     updated_at = $13
		 WHERE id = $1`,
		sess.ID, sess.Cash.String(), holdings, tax, achievements, unlocked,
		sess.Mode, sess.CurrentYear, sess.SequentialCursor,
		sess.TravelCreditsUsed, sess.YearsInvested, sess.GameOver,
		sess.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sess.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func marshalDocs(sess *model.Session) (holdings, tax, achievements, unlocked []byte, err error) {
	if holdings, err = json.Marshal(sess.Holdings); err != nil {
		return
	}
	if tax, err = json.Marshal(sess.Tax); err != nil {
		return
	}
	if achievements, err = json.Marshal(sess.Achievements); err != nil {
		return
	}
	unlocked, err = json.Marshal(sess.UnlockedInstruments)
	return
}

func unmarshalDocs(sess *model.Session, holdings, tax, achievements, unlocked []byte) error {
	if err := json.Unmarshal(holdings, &sess.Holdings); err != nil {
		return fmt.Errorf("%w: holdings: %v", model.ErrInvalidSnapshot, err)
	}
	if err := json.Unmarshal(tax, &sess.Tax); err != nil {
		return fmt.Errorf("%w: tax: %v", model.ErrInvalidSnapshot, err)
	}
	if err := json.Unmarshal(achievements, &sess.Achievements); err != nil {
		return fmt.Errorf("%w: achievements: %v", model.ErrInvalidSnapshot, err)
	}
	if err := json.Unmarshal(unlocked, &sess.UnlockedInstruments); err != nil {
		return fmt.Errorf("%w: unlocked: %v", model.ErrInvalidSnapshot, err)
	}
	return nil
}
