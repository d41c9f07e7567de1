package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/filestorebot/filestorebot/internal/database"
	"github.com/filestorebot/filestorebot/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// rowScanner abstracts pgx.Row and pgx.Rows for shared scan helpers
type rowScanner interface {
	Scan(dest ...any) error
}

// VerificationTokenRepository handles verification token data access
type VerificationTokenRepository struct {
	pool *pgxpool.Pool
}

// NewVerificationTokenRepository creates a new VerificationTokenRepository
func NewVerificationTokenRepository(db *database.DB) *VerificationTokenRepository {
	return &VerificationTokenRepository{pool: db.Pool}
}

// scanTokenRow handles nullable fields and populates a VerificationToken model from a database row
func scanTokenRow(row rowScanner) (*models.VerificationToken, error) {
	var token models.VerificationToken
	var consumedAt *time.Time

	err := row.Scan(
		&token.ID, &token.UserID, &token.TokenHash,
		&token.IssuedAt, &token.ValidUntil, &consumedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	token.ConsumedAt = consumedAt
	return &token, nil
}

// Create persists a new unconsumed token. Prior unconsumed tokens for the
// same user are left alone; several challenge links may be outstanding at
// once and any of them can be redeemed.
func (r *VerificationTokenRepository) Create(ctx context.Context, userID int64, tokenHash string, issuedAt, validUntil time.Time) (*models.VerificationToken, error) {
	query := `
		INSERT INTO verification_tokens (id, user_id, token_hash, issued_at, valid_until)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, token_hash, issued_at, valid_until, consumed_at
	`

	token, err := scanTokenRow(r.pool.QueryRow(ctx, query, uuid.NewString(), userID, tokenHash, issuedAt, validUntil))
	if err != nil {
		return nil, fmt.Errorf("failed to create verification token: %w", err)
	}

	return token, nil
}

// GetByHash retrieves a token by owner and hash
func (r *VerificationTokenRepository) GetByHash(ctx context.Context, userID int64, tokenHash string) (*models.VerificationToken, error) {
	query := `
		SELECT id, user_id, token_hash, issued_at, valid_until, consumed_at
		FROM verification_tokens
		WHERE user_id = $1 AND token_hash = $2
	`

	token, err := scanTokenRow(r.pool.QueryRow(ctx, query, userID, tokenHash))
	if err != nil {
		return nil, err
	}

	return token, nil
}

// Consume marks a token as redeemed. The conditional UPDATE is the only
// mutation path, so two concurrent redemptions of the same link produce
// exactly one success; the loser is classified by re-reading the row.
func (r *VerificationTokenRepository) Consume(ctx context.Context, userID int64, tokenHash string, now time.Time) error {
	query := `
		UPDATE verification_tokens
		SET consumed_at = $3
		WHERE user_id = $1 AND token_hash = $2
		  AND consumed_at IS NULL AND valid_until > $3
	`

	result, err := r.pool.Exec(ctx, query, userID, tokenHash, now)
	if err != nil {
		return fmt.Errorf("failed to consume verification token: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	token, err := r.GetByHash(ctx, userID, tokenHash)
	if err != nil {
		return err
	}
	if token.IsConsumed() {
		return models.ErrAlreadyConsumed
	}
	if token.IsExpired(now) {
		return models.ErrTokenExpired
	}
	// Row changed between the UPDATE and the re-read; treat as lost race.
	return models.ErrAlreadyConsumed
}

// HasActiveVerification reports whether the user holds a consumed token
// that is still inside its midnight-UTC validity window
func (r *VerificationTokenRepository) HasActiveVerification(ctx context.Context, userID int64, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM verification_tokens
			WHERE user_id = $1 AND consumed_at IS NOT NULL AND valid_until > $2
		)
	`

	var verified bool
	if err := r.pool.QueryRow(ctx, query, userID, now).Scan(&verified); err != nil {
		return false, fmt.Errorf("failed to check verification state: %w", err)
	}

	return verified, nil
}

// CleanupExpired deletes tokens whose validity window ended more than the
// retention period ago. Storage hygiene only; expiry itself is purely a
// comparison against valid_until.
func (r *VerificationTokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM verification_tokens
		WHERE valid_until < NOW() - INTERVAL '7 days'
	`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
