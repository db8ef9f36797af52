package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fundkeep/wallet-service/internal/model"
)

// ErrUserNotFound indicates that no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken indicates a signup attempt with an email already in use.
var ErrEmailTaken = errors.New("email already registered")

type UserStore interface {
	Create(ctx context.Context, tx *gorm.DB, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type userStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) UserStore {
	return &userStore{db: db}
}

func (s *userStore) Create(ctx context.Context, tx *gorm.DB, u *model.User) error {
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return ErrEmailTaken
		}
		return classify(err)
	}
	return nil
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, classify(err)
	}
	return &u, nil
}

func (s *userStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, classify(err)
	}
	return &u, nil
}
