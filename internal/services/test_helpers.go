package services

import (
	"context"
	"sync"
	"time"

	"github.com/filestorebot/filestorebot/internal/models"
	"github.com/google/uuid"
)

// MockTokenRepository implements TokenRepository for testing
type MockTokenRepository struct {
	CreateFunc                func(ctx context.Context, userID int64, tokenHash string, issuedAt, validUntil time.Time) (*models.VerificationToken, error)
	GetByHashFunc             func(ctx context.Context, userID int64, tokenHash string) (*models.VerificationToken, error)
	ConsumeFunc               func(ctx context.Context, userID int64, tokenHash string, now time.Time) error
	HasActiveVerificationFunc func(ctx context.Context, userID int64, now time.Time) (bool, error)
	CleanupExpiredFunc        func(ctx context.Context) (int64, error)
}

func (m *MockTokenRepository) Create(ctx context.Context, userID int64, tokenHash string, issuedAt, validUntil time.Time) (*models.VerificationToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, tokenHash, issuedAt, validUntil)
	}
	return &models.VerificationToken{
		ID:         uuid.NewString(),
		UserID:     userID,
		TokenHash:  tokenHash,
		IssuedAt:   issuedAt,
		ValidUntil: validUntil,
	}, nil
}

func (m *MockTokenRepository) GetByHash(ctx context.Context, userID int64, tokenHash string) (*models.VerificationToken, error) {
	if m.GetByHashFunc != nil {
		return m.GetByHashFunc(ctx, userID, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockTokenRepository) Consume(ctx context.Context, userID int64, tokenHash string, now time.Time) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, userID, tokenHash, now)
	}
	return models.ErrNotFound
}

func (m *MockTokenRepository) HasActiveVerification(ctx context.Context, userID int64, now time.Time) (bool, error) {
	if m.HasActiveVerificationFunc != nil {
		return m.HasActiveVerificationFunc(ctx, userID, now)
	}
	return false, nil
}

func (m *MockTokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	if m.CleanupExpiredFunc != nil {
		return m.CleanupExpiredFunc(ctx)
	}
	return 0, nil
}

// MockVerificationGate implements VerificationGate for testing
type MockVerificationGate struct {
	IssueChallengeFunc func(ctx context.Context, userID int64) (string, error)
	IsVerifiedFunc     func(ctx context.Context, userID int64) (bool, error)
}

func (m *MockVerificationGate) IssueChallenge(ctx context.Context, userID int64) (string, error) {
	if m.IssueChallengeFunc != nil {
		return m.IssueChallengeFunc(ctx, userID)
	}
	return "https://t.me/testbot?start=verify-0-token", nil
}

func (m *MockVerificationGate) IsVerified(ctx context.Context, userID int64) (bool, error) {
	if m.IsVerifiedFunc != nil {
		return m.IsVerifiedFunc(ctx, userID)
	}
	return false, nil
}

// InMemoryTokenRepository is a mutex-guarded TokenRepository with the same
// at-most-once consume semantics the Postgres implementation gets from its
// conditional UPDATE. Used for concurrency and end-to-end tests.
type InMemoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*models.VerificationToken // keyed by token hash
}

func NewInMemoryTokenRepository() *InMemoryTokenRepository {
	return &InMemoryTokenRepository{tokens: make(map[string]*models.VerificationToken)}
}

func (r *InMemoryTokenRepository) Create(ctx context.Context, userID int64, tokenHash string, issuedAt, validUntil time.Time) (*models.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token := &models.VerificationToken{
		ID:         uuid.NewString(),
		UserID:     userID,
		TokenHash:  tokenHash,
		IssuedAt:   issuedAt,
		ValidUntil: validUntil,
	}
	r.tokens[tokenHash] = token
	return token, nil
}

func (r *InMemoryTokenRepository) GetByHash(ctx context.Context, userID int64, tokenHash string) (*models.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenHash]
	if !ok || token.UserID != userID {
		return nil, models.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (r *InMemoryTokenRepository) Consume(ctx context.Context, userID int64, tokenHash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenHash]
	if !ok || token.UserID != userID {
		return models.ErrNotFound
	}
	if token.IsConsumed() {
		return models.ErrAlreadyConsumed
	}
	if token.IsExpired(now) {
		return models.ErrTokenExpired
	}
	consumedAt := now
	token.ConsumedAt = &consumedAt
	return nil
}

func (r *InMemoryTokenRepository) HasActiveVerification(ctx context.Context, userID int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.tokens {
		if token.UserID == userID && token.GrantsAccess(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryTokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for hash, token := range r.tokens {
		if time.Since(token.ValidUntil) > 7*24*time.Hour {
			delete(r.tokens, hash)
			removed++
		}
	}
	return removed, nil
}
