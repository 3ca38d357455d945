package kms

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/shamir"
)

var (
	ErrSecretLocked    = errors.New("service secret is locked: not enough shares submitted")
	ErrAlreadyUnlocked = errors.New("service secret is already unlocked")
)

// SplitSecret splits a service secret into shares, any threshold of which
// reconstruct it.
func SplitSecret(secret []byte, shares, threshold int) ([][]byte, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if shares < threshold {
		return nil, errors.New("total shares must be at least equal to threshold")
	}

	parts, err := shamir.Split(secret, shares, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split service secret: %w", err)
	}
	return parts, nil
}

// ShamirSecret is a service secret that stays locked until a threshold of
// shares has been submitted. The reconstructed secret lives only in memory.
type ShamirSecret struct {
	mu        sync.RWMutex
	threshold int
	shares    [][]byte
	secret    []byte
}

func NewShamirSecret(threshold int) (*ShamirSecret, error) {
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	return &ShamirSecret{threshold: threshold}, nil
}

// SubmitShare records one share and reconstructs the secret once the threshold is met.
func (s *ShamirSecret) SubmitShare(share []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.secret != nil {
		return ErrAlreadyUnlocked
	}
	if len(share) < 2 {
		return errors.New("share too short")
	}

	s.shares = append(s.shares, append([]byte(nil), share...))
	if len(s.shares) < s.threshold {
		return nil
	}

	secret, err := shamir.Combine(s.shares)
	if err != nil {
		s.shares = nil
		return fmt.Errorf("failed to combine shares: %w", err)
	}
	if len(secret) < MinSecretLength {
		s.shares = nil
		return ErrSecretTooShort
	}

	for i := range s.shares {
		clear(s.shares[i])
	}
	s.shares = nil
	s.secret = secret
	return nil
}

// IsUnlocked reports whether the secret has been reconstructed.
func (s *ShamirSecret) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secret != nil
}

func (s *ShamirSecret) ServiceSecret(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.secret == nil {
		return nil, ErrSecretLocked
	}
	return s.secret, nil
}
