package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/acadbuddy/acadbuddy-api/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type profileStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdatePartial(ctx context.Context, userID uuid.UUID, req repository.UpdateProfileInput) (*models.Profile, error)
	BecomeMentor(ctx context.Context, userID uuid.UUID, req repository.BecomeMentorInput) (*models.Profile, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*models.Profile, error)
}

type ProfileService struct {
	profiles profileStore
	storage  StorageService
	log      *zap.Logger
}

func NewProfileService(profiles profileStore, storage StorageService, log *zap.Logger) *ProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{profiles: profiles, storage: storage, log: log}
}

func (s *ProfileService) GetProfile(ctx context.Context, sess models.AuthSession) (*models.Profile, error) {
	profile, err := s.profiles.GetByUserID(ctx, sess.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return profile, err
}

func (s *ProfileService) UpdateProfile(
	ctx context.Context,
	sess models.AuthSession,
	req repository.UpdateProfileInput,
) (*models.Profile, error) {
	profile, err := s.profiles.UpdatePartial(ctx, sess.UserID, req)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return profile, err
}

// BecomeMentor stores the mentor application and promotes the caller's role.
// Input is expected to be validated by the caller.
func (s *ProfileService) BecomeMentor(
	ctx context.Context,
	sess models.AuthSession,
	req repository.BecomeMentorInput,
) (*models.Profile, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Bio = strings.TrimSpace(req.Bio)
	subjects := make([]string, 0, len(req.Subjects))
	for _, subject := range req.Subjects {
		if trimmed := strings.TrimSpace(subject); trimmed != "" {
			subjects = append(subjects, trimmed)
		}
	}
	if len(subjects) == 0 {
		return nil, ErrInvalidInput
	}
	req.Subjects = subjects

	profile, err := s.profiles.BecomeMentor(ctx, sess.UserID, req)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("mentor application accepted", zap.Stringer("user_id", sess.UserID))
	return profile, nil
}

// UploadAvatar replaces the caller's avatar. The previous object is removed
// on a best-effort basis.
func (s *ProfileService) UploadAvatar(
	ctx context.Context,
	sess models.AuthSession,
	file multipart.File,
	originalName string,
) (*models.Profile, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}

	current, err := s.profiles.GetByUserID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	filename := buildAvatarFilename(sess.UserID, originalName)
	avatarURL, err := s.storage.UploadFile(ctx, file, filename, "avatars")
	if err != nil {
		return nil, err
	}

	updated, err := s.profiles.UpdateAvatar(ctx, sess.UserID, avatarURL)
	if err != nil {
		return nil, err
	}

	if current.AvatarURL != nil && *current.AvatarURL != "" && *current.AvatarURL != avatarURL {
		if err := s.storage.DeleteFile(ctx, *current.AvatarURL); err != nil {
			s.log.Warn("delete previous avatar", zap.Stringer("user_id", sess.UserID), zap.Error(err))
		}
	}
	return updated, nil
}

func buildAvatarFilename(userID uuid.UUID, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("%s-%d%s", userID, time.Now().UnixNano(), ext)
}
