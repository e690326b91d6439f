// Package service contains the application services: the identity provider
// and the recipe data-access functions.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/recipebox/internal/crypto"
	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/limiter"
	"github.com/and161185/recipebox/internal/model"
	"github.com/and161185/recipebox/internal/repository"
)

// AuthService defines the identity provider operations.
type AuthService interface {
	// Register creates a new profile with secure password hashing.
	Register(ctx context.Context, username, password string) (uuid.UUID, error)
	// LoginWithIP applies rate-limiting and authenticates the profile.
	LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.Profile, error)
}

type AuthServiceImpl struct {
	profiles repository.ProfileRepository
	hasher   *pkgcrypto.Hasher
	issuer   *identity.Issuer
	lim      limiter.Limiter
	log      *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	profiles repository.ProfileRepository,
	hasher *pkgcrypto.Hasher,
	issuer *identity.Issuer,
	lim limiter.Limiter,
	log *zap.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{profiles: profiles, hasher: hasher, issuer: issuer, lim: lim, log: log}
}

const maxUsernameLen = 64

// Register creates a new profile with a per-profile salt.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (uuid.UUID, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return uuid.Nil, fmt.Errorf("%w: empty username/password", errs.ErrValidation)
	}
	if len(username) > maxUsernameLen {
		return uuid.Nil, fmt.Errorf("%w: username longer than %d", errs.ErrValidation, maxUsernameLen)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	salt, err := s.hasher.NewSalt()
	if err != nil {
		return uuid.Nil, err
	}
	p := &model.Profile{
		ID:       id,
		Username: username,
		PwdHash:  s.hasher.Hash([]byte(password), salt),
		SaltAuth: salt,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return uuid.Nil, err
	}
	s.log.Info("profile registered", zap.String("profile_id", id.String()))
	return id, nil
}

// LoginWithIP authenticates with rate limiting by (username, ip). A missing
// profile and a wrong password are indistinguishable to the caller.
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.Profile, error) {
	username = strings.TrimSpace(username)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.Tokens{}, model.Profile{}, err
	}
	if !allowed {
		return model.Tokens{}, model.Profile{}, errs.ErrRateLimited
	}

	p, err := s.profiles.GetByUsername(ctx, username)
	if err != nil || !s.hasher.Verify([]byte(password), p.SaltAuth, p.PwdHash) {
		blocked, _, ferr := s.lim.Failure(ctx, username, ipHash)
		if ferr != nil {
			s.log.Warn("limiter failure not recorded", zap.Error(ferr))
		}
		if blocked {
			return model.Tokens{}, model.Profile{}, errs.ErrRateLimited
		}
		return model.Tokens{}, model.Profile{}, errs.ErrUnauthorized
	}

	if err := s.lim.Success(ctx, username, ipHash); err != nil {
		s.log.Warn("limiter reset failed", zap.Error(err))
	}

	access, exp, err := s.issuer.Issue(p.ID)
	if err != nil {
		return model.Tokens{}, model.Profile{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *p, nil
}
