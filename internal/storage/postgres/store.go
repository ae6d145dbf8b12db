package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"liquidityLock/internal/model"
)

// Pool shares of V2 and Solidly pairs carry 18 decimals.
const lpShareDecimals = 18

const schema = `
CREATE TABLE IF NOT EXISTS liquidity_attempts (
	id              UUID PRIMARY KEY,
	token_record_id BIGINT,
	chain           VARCHAR(50) NOT NULL,
	token_address   VARCHAR(100) NOT NULL,
	paired_address  VARCHAR(100),
	success         BOOLEAN NOT NULL,
	error_kind      VARCHAR(40),
	stage           VARCHAR(40),
	liquidity_tx    VARCHAR(120),
	pair_address    VARCHAR(100),
	lp_locked       NUMERIC(78, 0),
	lock_tx         VARCHAR(120),
	message         TEXT,
	debug           TEXT,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS liquidity_attempts_token_record_idx
	ON liquidity_attempts (token_record_id, finished_at DESC);
`

// Store persists outcomes to the launch database: every attempt is appended
// to liquidity_attempts and the token record carries the latest outcome.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the attempts table. The tokens table is owned by the
// launch service and is only updated here.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// PutOutcome records one attempt and, when the outcome references a token
// record, updates it in the same transaction.
func (s *Store) PutOutcome(ctx context.Context, outcome model.LiquidityOutcome) error {
	response, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	lpLocked, err := lpLockedColumns(outcome.LPLocked)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO liquidity_attempts (
			id, token_record_id, chain, token_address, paired_address, success, error_kind, stage,
			liquidity_tx, pair_address, lp_locked, lock_tx, message, debug, started_at, finished_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::numeric,$12,$13,$14,$15,$16)
	`,
		outcome.ID,
		nullInt(outcome.TokenRecordID),
		outcome.Chain,
		outcome.Token,
		nullString(outcome.Paired),
		outcome.Success,
		nullString(string(outcome.ErrorKind)),
		nullString(outcome.Stage),
		nullString(outcome.LiquidityTx),
		nullString(outcome.PairAddress),
		lpLocked.raw,
		nullString(outcome.LockTx),
		nullString(outcome.Message),
		nullString(outcome.Debug),
		outcome.StartedAt,
		outcome.FinishedAt,
	)
	queued := 1

	if outcome.TokenRecordID > 0 {
		batch.Queue(`
			UPDATE tokens SET
				"liquidityTx" = COALESCE($2, "liquidityTx"),
				"pairAddress" = COALESCE($3, "pairAddress"),
				"lpLocked" = COALESCE($4::numeric, "lpLocked"),
				status = $5,
				"liquidityResponse" = $6::jsonb,
				"updatedAt" = now()
			WHERE id = $1
		`,
			outcome.TokenRecordID,
			nullString(outcome.LiquidityTx),
			nullString(outcome.PairAddress),
			lpLocked.human,
			outcome.Status(),
			string(response),
		)
		queued++
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	missing, err := drainOutcomeBatch(tx.SendBatch(ctx, batch), queued)
	if err != nil {
		return fmt.Errorf("store outcome %s: %w", outcome.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit outcome %s: %w", outcome.ID, err)
	}
	if missing {
		return fmt.Errorf("token record %d: %w", outcome.TokenRecordID, pgx.ErrNoRows)
	}
	return nil
}

type batchResults interface {
	Exec() (pgconn.CommandTag, error)
	Close() error
}

// drainOutcomeBatch executes the attempt insert and, when queued, the token
// record update. A missing token record is reported but does not fail the
// batch, so the attempt row is still committed.
func drainOutcomeBatch(br batchResults, queued int) (missingRecord bool, err error) {
	for i := 0; i < queued; i++ {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return false, err
		}
		if i == 1 && tag.RowsAffected() == 0 {
			missingRecord = true
		}
	}
	if err := br.Close(); err != nil {
		return false, err
	}
	return missingRecord, nil
}

// LatestAttempt returns the most recent attempt for a token record.
func (s *Store) LatestAttempt(ctx context.Context, tokenRecordID int64) (model.LiquidityOutcome, bool, error) {
	var (
		out                                           model.LiquidityOutcome
		paired, kind, stage, liqTx, pair, lockTx, msg *string
		debug, lpLocked                               *string
		recordID                                      *int64
	)
	row := s.pool.QueryRow(ctx, `
		SELECT id::text, token_record_id, chain, token_address, paired_address, success, error_kind, stage,
			liquidity_tx, pair_address, lp_locked::text, lock_tx, message, debug, started_at, finished_at
		FROM liquidity_attempts
		WHERE token_record_id = $1
		ORDER BY finished_at DESC
		LIMIT 1
	`, tokenRecordID)
	err := row.Scan(&out.ID, &recordID, &out.Chain, &out.Token, &paired, &out.Success, &kind, &stage,
		&liqTx, &pair, &lpLocked, &lockTx, &msg, &debug, &out.StartedAt, &out.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LiquidityOutcome{}, false, nil
		}
		return model.LiquidityOutcome{}, false, err
	}
	if recordID != nil {
		out.TokenRecordID = *recordID
	}
	out.Paired = deref(paired)
	out.ErrorKind = model.ErrorKind(deref(kind))
	out.Stage = deref(stage)
	out.LiquidityTx = deref(liqTx)
	out.PairAddress = deref(pair)
	out.LPLocked = deref(lpLocked)
	out.LockTx = deref(lockTx)
	out.Message = deref(msg)
	out.Debug = deref(debug)
	return out, true, nil
}

type lpAmounts struct {
	raw   *string
	human *string
}

// lpLockedColumns returns the raw share count and its 18-decimal form for
// the token record.
func lpLockedColumns(raw string) (lpAmounts, error) {
	if raw == "" {
		return lpAmounts{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return lpAmounts{}, fmt.Errorf("lp locked %q: %w", raw, err)
	}
	human := d.Shift(-lpShareDecimals).String()
	return lpAmounts{raw: &raw, human: &human}, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
