package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/fundkeep/wallet-service/internal/config"
	"github.com/fundkeep/wallet-service/internal/model"
	"github.com/fundkeep/wallet-service/internal/store"
)

// ErrInvalidCredentials is returned for a bad email/password pair.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService handles signup and login. Signup creates the user and their
// wallet in one transaction so every user always has exactly one wallet.
type AuthService struct {
	db      *gorm.DB
	users   store.UserStore
	wallets store.WalletStore
	cfg     config.AuthConfig
	log     *zap.SugaredLogger
}

func NewAuthService(db *gorm.DB, users store.UserStore, wallets store.WalletStore, cfg config.AuthConfig, logger *zap.SugaredLogger) *AuthService {
	return &AuthService{db: db, users: users, wallets: wallets, cfg: cfg, log: logger}
}

func (s *AuthService) Signup(ctx context.Context, email, password, firstName, lastName string) (*model.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.Create(ctx, tx, user); err != nil {
			return err
		}
		return s.wallets.Create(ctx, tx, &model.Wallet{
			ID:      uuid.NewString(),
			OwnerID: user.ID,
			Balance: decimal.Zero,
		})
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	s.log.Infow("user signed up", "user_id", user.ID)
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// VerifyToken parses an access token and returns the owner id it carries.
func (s *AuthService) VerifyToken(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
	)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *AuthService) issueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.cfg.Issuer,
		Audience:  jwt.ClaimStrings{s.cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.cfg.AccessTTL))),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}
