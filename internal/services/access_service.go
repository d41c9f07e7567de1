package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/filestorebot/filestorebot/internal/models"
	"github.com/filestorebot/filestorebot/internal/reference"
)

// Outcome classifies an authorization decision
type Outcome int

const (
	// OutcomeAllow grants access to the decoded reference
	OutcomeAllow Outcome = iota
	// OutcomeChallenge requires the user to complete verification first
	OutcomeChallenge
	// OutcomeDeny rejects the request outright
	OutcomeDeny
)

// Decision is the result of authorizing a file-access request. Reference is
// set for Allow, ChallengeURL for Challenge, Reason for Deny.
type Decision struct {
	Outcome      Outcome
	Reference    *models.FileReference
	ChallengeURL string
	Reason       string
}

// VerificationGate defines the interface the access controller uses to
// drive the verification flow
type VerificationGate interface {
	IssueChallenge(ctx context.Context, userID int64) (string, error)
	IsVerified(ctx context.Context, userID int64) (bool, error)
}

// AccessService decides whether a file-access request proceeds to delivery.
// It is the single boundary past which no documented outcome may escape as
// a fault; the returned error is reserved for infrastructure failure.
type AccessService struct {
	gate          VerificationGate
	codec         *reference.Codec
	verifyEnabled bool
	logger        *slog.Logger
}

// NewAccessService creates a new AccessService
func NewAccessService(gate VerificationGate, codec *reference.Codec, verifyEnabled bool, logger *slog.Logger) *AccessService {
	return &AccessService{
		gate:          gate,
		codec:         codec,
		verifyEnabled: verifyEnabled,
		logger:        logger,
	}
}

// Authorize evaluates a file-access request. Unverified users are
// challenged before the payload is decoded, so reference validity is never
// revealed to them. An empty decoded range still allows; delivery treats
// it as nothing to send.
func (s *AccessService) Authorize(ctx context.Context, userID int64, payload string) (*Decision, error) {
	if s.verifyEnabled {
		verified, err := s.gate.IsVerified(ctx, userID)
		if err != nil {
			return nil, err
		}

		if !verified {
			url, err := s.gate.IssueChallenge(ctx, userID)
			if err != nil {
				return nil, err
			}
			return &Decision{Outcome: OutcomeChallenge, ChallengeURL: url}, nil
		}
	}

	ref, err := s.codec.Decode(payload)
	if err != nil {
		if errors.Is(err, models.ErrInvalidReference) {
			s.logger.Info("malformed file reference rejected", slog.Int64("user_id", userID))
			return &Decision{Outcome: OutcomeDeny, Reason: "malformed request"}, nil
		}
		return nil, err
	}

	return &Decision{Outcome: OutcomeAllow, Reference: ref}, nil
}
