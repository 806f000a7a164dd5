package services

import (
	"context"
	"errors"
	"strings"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/repository"
	"github.com/acadbuddy/acadbuddy-api/pkg/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type SignupInput struct {
	Email    string
	Password string
	FullName string
}

type AuthResult struct {
	Token   string          `json:"token"`
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile"`
}

type AuthService struct {
	db        txBeginner
	users     userStore
	profiles  profileReader
	jwtSecret string
}

func NewAuthService(db txBeginner, users userStore, profiles profileReader, jwtSecret string) *AuthService {
	return &AuthService{db: db, users: users, profiles: profiles, jwtSecret: jwtSecret}
}

// Signup creates the credentials row and a student profile in one
// transaction.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	user := &models.User{
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
	}
	if err := repository.NewUserRepository(tx).CreateUser(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	profile, err := repository.NewProfileRepository(tx).CreateForUser(ctx, user.ID, strings.TrimSpace(input.FullName))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return s.issue(user, profile)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profiles.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.issue(user, profile)
}

// Refresh issues a token for the caller's current role, for use after a role
// change such as becoming a mentor.
func (s *AuthService) Refresh(ctx context.Context, sess models.AuthSession) (*AuthResult, error) {
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	profile, err := s.profiles.GetByUserID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return s.issue(user, profile)
}

func (s *AuthService) issue(user *models.User, profile *models.Profile) (*AuthResult, error) {
	role := models.RoleStudent
	if profile != nil && profile.Role != "" {
		role = profile.Role
	}
	token, err := utils.GenerateToken(user.ID.String(), role, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user, Profile: profile}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
