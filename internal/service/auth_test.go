package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	pkgcrypto "github.com/and161185/recipebox/internal/crypto"
	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/limiter"
	"github.com/and161185/recipebox/internal/model"
	"github.com/and161185/recipebox/internal/repository"
)

type fakeProfiles struct {
	byName map[string]*model.Profile

	createErr error
	getErr    error
}

var _ repository.ProfileRepository = (*fakeProfiles)(nil)

func (f *fakeProfiles) Create(_ context.Context, p *model.Profile) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byName == nil {
		f.byName = map[string]*model.Profile{}
	}
	if _, exists := f.byName[p.Username]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *p
	f.byName[p.Username] = &cpy
	return nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	for _, p := range f.byName {
		if p.ID == id {
			c := *p
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeProfiles) GetByUsername(_ context.Context, username string) (*model.Profile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}

func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

var testHasher = pkgcrypto.NewHasher(pkgcrypto.Params{Time: 1, MemoryKiB: 8 * 1024})

func newAuth(t *testing.T, profiles *fakeProfiles, lim *fakeLimiter) *AuthServiceImpl {
	t.Helper()
	return NewAuthService(profiles, testHasher, identity.NewIssuer([]byte("secret"), 2*time.Minute), lim, zaptest.NewLogger(t))
}

func TestAuth_Register(t *testing.T) {
	t.Parallel()
	profiles := &fakeProfiles{}
	s := newAuth(t, profiles, &fakeLimiter{})
	ctx := context.Background()

	_, err := s.Register(ctx, "", "")
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = s.Register(ctx, "   ", "pwd")
	require.ErrorIs(t, err, errs.ErrValidation)

	id, err := s.Register(ctx, " alice ", "pwd")
	require.NoError(t, err)
	require.False(t, id.IsNil())
	stored := profiles.byName["alice"]
	require.NotNil(t, stored)
	require.NotEqual(t, []byte("pwd"), stored.PwdHash)
	require.True(t, testHasher.Verify([]byte("pwd"), stored.SaltAuth, stored.PwdHash))

	_, err = s.Register(ctx, "alice", "pwd2")
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	profiles.createErr = errors.New("boom")
	_, err = s.Register(ctx, "bob", "pwd")
	require.Error(t, err)
}

func TestAuth_LoginWithIP(t *testing.T) {
	t.Parallel()
	salt, err := testHasher.NewSalt()
	require.NoError(t, err)
	p := &model.Profile{
		ID:       uuid.Must(uuid.NewV4()),
		Username: "alice",
		SaltAuth: salt,
		PwdHash:  testHasher.Hash([]byte("correct"), salt),
	}
	profiles := &fakeProfiles{byName: map[string]*model.Profile{"alice": p}}
	lim := &fakeLimiter{allowOK: true}
	s := newAuth(t, profiles, lim)
	ctx := context.Background()

	lim.allowErr = errors.New("lim-err")
	_, _, err = s.LoginWithIP(ctx, "alice", "correct", "1.2.3.4")
	require.Error(t, err)
	lim.allowErr = nil

	lim.allowOK = false
	_, _, err = s.LoginWithIP(ctx, "alice", "correct", "1.2.3.4")
	require.ErrorIs(t, err, errs.ErrRateLimited)
	lim.allowOK = true

	_, _, err = s.LoginWithIP(ctx, "nope", "x", "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	lim.failBlocked = true
	_, _, err = s.LoginWithIP(ctx, "alice", "wrong", "")
	require.ErrorIs(t, err, errs.ErrRateLimited)
	lim.failBlocked = false

	lim.failErr = errors.New("limiter down")
	_, _, err = s.LoginWithIP(ctx, "alice", "wrong", "")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	lim.failErr = nil

	tok, got, err := s.LoginWithIP(ctx, "alice", "correct", "127.0.0.1:123")
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	require.True(t, tok.ExpiresAt.After(time.Now()))
	require.Equal(t, p.ID, got.ID)
	require.Equal(t, 1, lim.successCalls)

	sub, err := identity.NewVerifier([]byte("secret")).Verify(tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, p.ID, sub)
}
