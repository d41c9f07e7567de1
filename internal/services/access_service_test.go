package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/filestorebot/filestorebot/internal/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAnchor = int64(-1001234567890)

func newTestCodec(t *testing.T) *reference.Codec {
	t.Helper()
	codec, err := reference.NewCodec(testAnchor)
	require.NoError(t, err)
	return codec
}

func TestAccessService_Authorize_VerifiedUserAllowed(t *testing.T) {
	codec := newTestCodec(t)
	gate := &MockVerificationGate{
		IsVerifiedFunc: func(ctx context.Context, userID int64) (bool, error) {
			return true, nil
		},
	}

	svc := NewAccessService(gate, codec, true, slog.Default())

	decision, err := svc.Authorize(context.Background(), 42, codec.EncodeSingle(7))

	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, decision.Outcome)
	require.NotNil(t, decision.Reference)
	assert.Equal(t, []int64{7}, decision.Reference.MessageIDs())
}

func TestAccessService_Authorize_UnverifiedUserChallenged(t *testing.T) {
	codec := newTestCodec(t)
	gate := &MockVerificationGate{
		IssueChallengeFunc: func(ctx context.Context, userID int64) (string, error) {
			return fmt.Sprintf("https://t.me/testbot?start=verify-%d-tok", userID), nil
		},
	}

	svc := NewAccessService(gate, codec, true, slog.Default())

	decision, err := svc.Authorize(context.Background(), 42, codec.EncodeSingle(7))

	require.NoError(t, err)
	assert.Equal(t, OutcomeChallenge, decision.Outcome)
	assert.Equal(t, "https://t.me/testbot?start=verify-42-tok", decision.ChallengeURL)
	assert.Nil(t, decision.Reference)
}

func TestAccessService_Authorize_ChallengeBeforeDecode(t *testing.T) {
	// An unverified user sending garbage must get a challenge, not a
	// malformed-request denial, so reference validity is never leaked.
	codec := newTestCodec(t)
	gate := &MockVerificationGate{}

	svc := NewAccessService(gate, codec, true, slog.Default())

	decision, err := svc.Authorize(context.Background(), 42, "!!not-a-reference!!")

	require.NoError(t, err)
	assert.Equal(t, OutcomeChallenge, decision.Outcome)
}

func TestAccessService_Authorize_MalformedDenied(t *testing.T) {
	codec := newTestCodec(t)
	gate := &MockVerificationGate{
		IsVerifiedFunc: func(ctx context.Context, userID int64) (bool, error) {
			return true, nil
		},
	}

	svc := NewAccessService(gate, codec, true, slog.Default())

	decision, err := svc.Authorize(context.Background(), 42, "!!not-a-reference!!")

	require.NoError(t, err)
	assert.Equal(t, OutcomeDeny, decision.Outcome)
	assert.Equal(t, "malformed request", decision.Reason)
}

func TestAccessService_Authorize_VerificationDisabled(t *testing.T) {
	codec := newTestCodec(t)
	gate := &MockVerificationGate{
		IsVerifiedFunc: func(ctx context.Context, userID int64) (bool, error) {
			t.Fatal("gate must not be consulted when verification is disabled")
			return false, nil
		},
	}

	svc := NewAccessService(gate, codec, false, slog.Default())

	decision, err := svc.Authorize(context.Background(), 42, codec.EncodeSingle(7))

	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, decision.Outcome)
}

func TestAccessService_Authorize_EmptyRangeAllowed(t *testing.T) {
	codec := newTestCodec(t)
	gate := &MockVerificationGate{
		IsVerifiedFunc: func(ctx context.Context, userID int64) (bool, error) {
			return true, nil
		},
	}

	svc := NewAccessService(gate, codec, true, slog.Default())

	decision, err := svc.Authorize(context.Background(), 42, codec.EncodeRange(9, 3))

	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, decision.Outcome)
	require.NotNil(t, decision.Reference)
	assert.True(t, decision.Reference.IsEmpty())
	assert.Empty(t, decision.Reference.MessageIDs())
}

func TestAccessService_Authorize_GateUnavailable(t *testing.T) {
	codec := newTestCodec(t)
	gate := &MockVerificationGate{
		IsVerifiedFunc: func(ctx context.Context, userID int64) (bool, error) {
			return false, fmt.Errorf("store down")
		},
	}

	svc := NewAccessService(gate, codec, true, slog.Default())

	decision, err := svc.Authorize(context.Background(), 42, codec.EncodeSingle(7))

	assert.Error(t, err)
	assert.Nil(t, decision)
}

func TestAccessService_Authorize_Idempotent(t *testing.T) {
	codec := newTestCodec(t)
	gate := &MockVerificationGate{
		IsVerifiedFunc: func(ctx context.Context, userID int64) (bool, error) {
			return true, nil
		},
	}

	svc := NewAccessService(gate, codec, true, slog.Default())
	payload := codec.EncodeRange(3, 9)

	first, err := svc.Authorize(context.Background(), 42, payload)
	require.NoError(t, err)
	second, err := svc.Authorize(context.Background(), 42, payload)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAccessService_EndToEnd_ChallengeRedeemAllow(t *testing.T) {
	codec := newTestCodec(t)
	repo := NewInMemoryTokenRepository()
	verification := NewVerificationService(repo, slog.Default(), "testbot")
	svc := NewAccessService(verification, codec, true, slog.Default())

	payload := codec.EncodeRange(3, 5)

	// First request: no prior token, so the user is challenged.
	decision, err := svc.Authorize(context.Background(), 42, payload)
	require.NoError(t, err)
	require.Equal(t, OutcomeChallenge, decision.Outcome)

	// The challenge URL carries a redemption deep-link bound to the user.
	const linkPrefix = "https://t.me/testbot?start="
	require.True(t, strings.HasPrefix(decision.ChallengeURL, linkPrefix))
	deepLink := strings.TrimPrefix(decision.ChallengeURL, linkPrefix)
	require.True(t, IsChallengePayload(deepLink))

	claimedID, token, err := ParseChallengePayload(deepLink)
	require.NoError(t, err)
	require.Equal(t, int64(42), claimedID)

	// Redeem as the issuing user.
	require.NoError(t, verification.Redeem(context.Background(), 42, claimedID, token))

	verified, err := verification.IsVerified(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, verified)

	// Same request again now decodes to the original reference.
	decision, err = svc.Authorize(context.Background(), 42, payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, decision.Outcome)
	require.NotNil(t, decision.Reference)
	assert.Equal(t, []int64{3, 4, 5}, decision.Reference.MessageIDs())
}
