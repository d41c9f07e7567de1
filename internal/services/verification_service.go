package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/filestorebot/filestorebot/internal/models"
)

// challengePrefix is the reserved deep-link discriminator for redemption
// payloads. Reference codec output never collides with it.
const challengePrefix = "verify-"

// retryBackoff is the pause before the single retry of an idempotent
// store operation.
const retryBackoff = 100 * time.Millisecond

// TokenRepository defines the interface for verification token operations
type TokenRepository interface {
	Create(ctx context.Context, userID int64, tokenHash string, issuedAt, validUntil time.Time) (*models.VerificationToken, error)
	GetByHash(ctx context.Context, userID int64, tokenHash string) (*models.VerificationToken, error)
	Consume(ctx context.Context, userID int64, tokenHash string, now time.Time) error
	HasActiveVerification(ctx context.Context, userID int64, now time.Time) (bool, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

// VerificationService issues challenge deep-links and validates their
// redemption. A redeemed token verifies its user until the next midnight
// UTC after issuance; rollover back to unverified is purely time-based.
type VerificationService struct {
	tokenRepo   TokenRepository
	logger      *slog.Logger
	botUsername string
	now         func() time.Time
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(tokenRepo TokenRepository, logger *slog.Logger, botUsername string) *VerificationService {
	return &VerificationService{
		tokenRepo:   tokenRepo,
		logger:      logger,
		botUsername: botUsername,
		now:         time.Now,
	}
}

// IssueChallenge creates a fresh single-use token and returns the deep-link
// URL the user must open to redeem it. Previously issued unconsumed tokens
// stay redeemable; the last one redeemed wins.
func (s *VerificationService) IssueChallenge(ctx context.Context, userID int64) (string, error) {
	// 256 bits from the platform CSPRNG
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		s.logger.Error("failed to generate random token", slog.Any("error", err))
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	plainToken := base64.RawURLEncoding.EncodeToString(tokenBytes)
	tokenHash := hashToken(plainToken)

	issuedAt := s.now().UTC()
	validUntil := nextMidnightUTC(issuedAt)

	err := withRetry(ctx, func() error {
		_, err := s.tokenRepo.Create(ctx, userID, tokenHash, issuedAt, validUntil)
		return err
	})
	if err != nil {
		s.logger.Error("failed to create verification token",
			slog.Int64("user_id", userID),
			slog.Any("error", err))
		return "", fmt.Errorf("failed to create token: %w", err)
	}

	s.logger.Info("verification challenge issued",
		slog.Int64("user_id", userID),
		slog.Time("valid_until", validUntil))

	return fmt.Sprintf("https://t.me/%s?start=%s%d-%s", s.botUsername, challengePrefix, userID, plainToken), nil
}

// Redeem consumes a challenge token on behalf of requesterID. The claimed
// user id from the deep-link payload must match the identity actually
// redeeming it; every failure mode collapses into ErrLinkInvalid so the
// response leaks nothing about which check failed.
func (s *VerificationService) Redeem(ctx context.Context, requesterID, claimedUserID int64, plainToken string) error {
	if requesterID != claimedUserID {
		s.logger.Warn("verification link redeemed by wrong user",
			slog.Int64("requester_id", requesterID),
			slog.Int64("claimed_user_id", claimedUserID))
		return models.ErrLinkInvalid
	}

	if plainToken == "" {
		return models.ErrLinkInvalid
	}

	err := s.tokenRepo.Consume(ctx, requesterID, hashToken(plainToken), s.now().UTC())
	switch {
	case err == nil:
		s.logger.Info("verification completed", slog.Int64("user_id", requesterID))
		return nil
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrAlreadyConsumed),
		errors.Is(err, models.ErrTokenExpired):
		s.logger.Info("verification link rejected", slog.Int64("user_id", requesterID))
		return models.ErrLinkInvalid
	default:
		s.logger.Error("failed to consume verification token",
			slog.Int64("user_id", requesterID),
			slog.Any("error", err))
		return fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}
}

// IsVerified reports whether the user currently holds a redeemed token
// inside its validity window. A store failure is surfaced, never treated
// as either verified or unverified.
func (s *VerificationService) IsVerified(ctx context.Context, userID int64) (bool, error) {
	var verified bool
	err := withRetry(ctx, func() error {
		var err error
		verified, err = s.tokenRepo.HasActiveVerification(ctx, userID, s.now().UTC())
		return err
	})
	if err != nil {
		s.logger.Error("failed to check verification state",
			slog.Int64("user_id", userID),
			slog.Any("error", err))
		return false, fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}

	return verified, nil
}

// ParseChallengePayload splits a "verify-{userID}-{token}" deep-link
// payload. The token itself may contain dashes, so only the first two
// separators are significant.
func ParseChallengePayload(payload string) (int64, string, error) {
	rest, ok := strings.CutPrefix(payload, challengePrefix)
	if !ok {
		return 0, "", models.ErrLinkInvalid
	}

	parts := strings.SplitN(rest, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return 0, "", models.ErrLinkInvalid
	}

	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", models.ErrLinkInvalid
	}

	return userID, parts[1], nil
}

// IsChallengePayload reports whether a deep-link payload is a redemption
// payload rather than a file reference
func IsChallengePayload(payload string) bool {
	return strings.HasPrefix(payload, challengePrefix)
}

// hashToken computes the storage form of a plaintext token
func hashToken(plainToken string) string {
	hash := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(hash[:])
}

// nextMidnightUTC returns the end of the current UTC day
func nextMidnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

// withRetry runs an idempotent store operation, retrying once after a
// short backoff
func withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || errors.Is(err, models.ErrNotFound) {
		return err
	}

	select {
	case <-time.After(retryBackoff):
	case <-ctx.Done():
		return ctx.Err()
	}

	return fn()
}
