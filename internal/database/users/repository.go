// Package users stores library owners and their API tokens.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	owner, err := repo.GetUserByToken(token)
//	token, err := repo.RotateToken("alice")
package users

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/shelfport/internal/entities"
)

// tokenBytes of randomness back each token; the hex form is twice as long.
const tokenBytes = 32

var ErrUsernameRequired = errors.New("username is required")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser adds an owner with a fresh token. An empty email is stored as
// NULL so it never collides on the unique index.
func (r *Repository) CreateUser(username, email string) (*entities.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	owner := &entities.User{Username: username, Token: token}
	if email = strings.TrimSpace(email); email != "" {
		owner.Email = &email
	}
	if err := r.db.Create(owner).Error; err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}
	return owner, nil
}

// RotateToken replaces the owner's token. The previous token stops
// authenticating immediately.
func (r *Repository) RotateToken(username string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	result := r.db.Model(&entities.User{}).Where("username = ?", strings.TrimSpace(username)).Update("token", token)
	if result.Error != nil {
		return "", fmt.Errorf("failed to rotate token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", gorm.ErrRecordNotFound
	}
	return token, nil
}

// GetUserByToken resolves a bearer token. Unknown tokens return
// gorm.ErrRecordNotFound.
func (r *Repository) GetUserByToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return r.first("token = ?", token)
}

func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	return r.first("id = ?", id)
}

func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	return r.first("username = ?", strings.TrimSpace(username))
}

// ListUsers returns every owner ordered by ID. Backups walk this list.
func (r *Repository) ListUsers() ([]entities.User, error) {
	var owners []entities.User
	err := r.db.Order("id").Find(&owners).Error
	return owners, err
}

func (r *Repository) first(query string, arg any) (*entities.User, error) {
	var owner entities.User
	if err := r.db.Where(query, arg).First(&owner).Error; err != nil {
		return nil, err
	}
	return &owner, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
