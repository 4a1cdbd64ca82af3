package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/honeynil/invest-ledger/internal/infrastructure/auth"
	"github.com/honeynil/invest-ledger/internal/infrastructure/observability"
	"github.com/honeynil/invest-ledger/internal/infrastructure/redis"
	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

const maxUsernameLength = 50

type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

type authService struct {
	store       repository.Store
	redisClient redis.RedisClient
	jwtSecret   string
	tokenTTL    time.Duration
	currency    string
	bcryptCost  int
	now         func() time.Time
}

func NewAuthService(store repository.Store, redisClient redis.RedisClient, jwtSecret string, tokenTTL time.Duration, currency string) *authService {
	return &authService{
		store:       store,
		redisClient: redisClient,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		currency:    currency,
		bcryptCost:  bcrypt.DefaultCost,
		now:         time.Now,
	}
}

// Register creates the user together with an empty wallet.
func (s *authService) Register(ctx context.Context, username, password string) (*models.User, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" || password == "" || len(username) > maxUsernameLength {
		span.SetStatus(codes.Error, "invalid username or password")
		return nil, pkgerrors.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		observability.WithContext(ctx).Error("failed to hash password", "username", username, "error", err)
		return nil, fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		KYCStatus:    models.KYCStatusNone,
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		return repos.Wallets.Create(ctx, &models.Wallet{UserID: user.ID, Currency: s.currency})
	})
	if err != nil {
		span.SetStatus(codes.Error, "user creation failed")
		if stderrors.Is(err, pkgerrors.ErrUsernameExists) {
			observability.WithContext(ctx).Warn("username already exists", "username", username)
			return nil, err
		}
		span.RecordError(err)
		observability.WithContext(ctx).Error("failed to create user", "username", username, "error", err)
		return nil, err
	}

	observability.WithContext(ctx).Info("user registered successfully", "user_id", user.ID, "username", username)
	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	user, err := s.store.Repositories().Users.GetByUsername(ctx, username)
	if err != nil {
		span.SetStatus(codes.Error, "login failed")
		if !stderrors.Is(err, pkgerrors.ErrNotFound) && !stderrors.Is(err, pkgerrors.ErrInvalidInput) {
			observability.WithContext(ctx).Error("failed to load user", "username", username, "error", err)
			return "", err
		}
		observability.WithContext(ctx).Warn("failed to login", "username", username)
		return "", pkgerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		span.SetStatus(codes.Error, "invalid password")
		observability.WithContext(ctx).Warn("invalid password", "username", username)
		return "", pkgerrors.ErrInvalidCredentials
	}

	tokenString, err := auth.GenerateJWT([]byte(s.jwtSecret), user.ID, user.Role, s.now(), s.tokenTTL)
	if err != nil {
		span.RecordError(err)
		observability.WithContext(ctx).Error("failed to generate JWT", "error", err)
		return "", fmt.Errorf("%w: failed to generate token", pkgerrors.ErrInternal)
	}

	// middleware принимает только токен, сохранённый в Redis
	if err := s.redisClient.Set(ctx, redis.TokenKey(user.ID), tokenString, s.tokenTTL); err != nil {
		span.RecordError(err)
		observability.WithContext(ctx).Error("failed to cache JWT", "user_id", user.ID, "error", err)
		return "", fmt.Errorf("%w: failed to store token", pkgerrors.ErrInternal)
	}

	observability.WithContext(ctx).Info("user logged in", "username", username, "user_id", user.ID)
	return tokenString, nil
}
