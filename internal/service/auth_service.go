package service

import (
	"context"
	"time"

	"github.com/obsilock/obsilock/internal/model"
	appErr "github.com/obsilock/obsilock/internal/pkg/errors"
	"github.com/obsilock/obsilock/internal/pkg/password"
	"github.com/obsilock/obsilock/internal/pkg/timeutil"
	"github.com/obsilock/obsilock/internal/pkg/token"
	"github.com/obsilock/obsilock/internal/repo"
)

type AuthService struct {
	users        *repo.UserRepo
	jwtSecret    []byte
	jwtTTL       time.Duration
	defaultQuota int64
}

func NewAuthService(users *repo.UserRepo, secret []byte, ttl time.Duration, defaultQuota int64) *AuthService {
	return &AuthService{users: users, jwtSecret: secret, jwtTTL: ttl, defaultQuota: defaultQuota}
}

func (s *AuthService) Register(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	now := timeutil.NowUnix()
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	user := &model.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: hash,
		QuotaTotal:   s.defaultQuota,
		QuotaUsed:    0,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	issued, err := token.Sign(user.ID, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, issued, nil
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	issued, err := token.Sign(user.ID, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, issued, nil
}
