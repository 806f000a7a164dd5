package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/acadbuddy/acadbuddy-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

const (
	AllDepartments        = "All Departments"
	DefaultMinPrice       = 0.0
	DefaultMaxPrice       = 300.0
	maxContactMessageSize = 2000
)

const (
	SortRating    = "rating"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortReviews   = "reviews"
)

type mentorDirectory interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	ListMentors(ctx context.Context) ([]models.Profile, error)
}

type MentorFilter struct {
	Query      string
	Department string
	Subjects   []string
	MinPrice   float64
	MaxPrice   float64
	Sort       string
}

// DefaultMentorFilter matches every mentor priced within the default range.
func DefaultMentorFilter() MentorFilter {
	return MentorFilter{
		Department: AllDepartments,
		MinPrice:   DefaultMinPrice,
		MaxPrice:   DefaultMaxPrice,
		Sort:       SortRating,
	}
}

type MentorService struct {
	mentors  mentorDirectory
	slots    availabilityStore
	contacts contactStore
}

func NewMentorService(mentors mentorDirectory, slots availabilityStore, contacts contactStore) *MentorService {
	return &MentorService{mentors: mentors, slots: slots, contacts: contacts}
}

func (s *MentorService) ListMentors(ctx context.Context, filter MentorFilter) ([]models.MentorListResponse, error) {
	mentors, err := s.mentors.ListMentors(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(FilterMentors(mentors, filter), func(profile models.Profile, _ int) models.MentorListResponse {
		return toMentorListResponse(profile)
	}), nil
}

func (s *MentorService) GetMentor(ctx context.Context, mentorID uuid.UUID) (*models.MentorDetailResponse, error) {
	profile, err := s.mentorProfile(ctx, mentorID)
	if err != nil {
		return nil, err
	}

	slots, err := s.slots.ListForMentor(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	slots = lo.Filter(slots, func(slot models.AvailabilitySlot, _ int) bool { return slot.IsAvailable })

	return &models.MentorDetailResponse{
		MentorListResponse: toMentorListResponse(*profile),
		Bio:                stringValue(profile.Bio),
		Availability:       stringValue(profile.Availability),
		Slots:              slots,
	}, nil
}

// ContactMentor records an introduction request from the caller.
func (s *MentorService) ContactMentor(
	ctx context.Context,
	sess models.AuthSession,
	mentorID uuid.UUID,
	message string,
) (*models.MentorContact, error) {
	if mentorID == sess.UserID {
		return nil, ErrInvalidInput
	}
	trimmed := strings.TrimSpace(message)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > maxContactMessageSize {
		return nil, ErrInvalidInput
	}
	if _, err := s.mentorProfile(ctx, mentorID); err != nil {
		return nil, err
	}
	return s.contacts.Create(ctx, sess.UserID, mentorID, trimmed)
}

func (s *MentorService) mentorProfile(ctx context.Context, mentorID uuid.UUID) (*models.Profile, error) {
	profile, err := s.mentors.GetByUserID(ctx, mentorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMentorNotFound
		}
		return nil, err
	}
	if profile.Role != models.RoleMentor {
		return nil, ErrMentorNotFound
	}
	return profile, nil
}

// FilterMentors applies the listing filters and ordering in memory. The input
// slice is not modified.
func FilterMentors(mentors []models.Profile, filter MentorFilter) []models.Profile {
	query := normalize(filter.Query)
	selected := lo.FilterMap(filter.Subjects, func(subject string, _ int) (string, bool) {
		value := normalize(subject)
		return value, value != ""
	})

	matched := lo.Filter(mentors, func(mentor models.Profile, _ int) bool {
		if query != "" && !matchesQuery(mentor, query) {
			return false
		}
		department := strings.TrimSpace(filter.Department)
		if department != "" && department != AllDepartments && stringValue(mentor.Department) != department {
			return false
		}
		if len(selected) > 0 && !matchesAnySubject(mentor.Subjects, selected) {
			return false
		}
		rate := floatValue(mentor.HourlyRate)
		return rate >= filter.MinPrice && rate <= filter.MaxPrice
	})

	sort.SliceStable(matched, func(i, j int) bool {
		switch filter.Sort {
		case SortPriceLow:
			return floatValue(matched[i].HourlyRate) < floatValue(matched[j].HourlyRate)
		case SortPriceHigh:
			return floatValue(matched[i].HourlyRate) > floatValue(matched[j].HourlyRate)
		case SortReviews:
			return matched[i].ReviewCount > matched[j].ReviewCount
		default:
			return matched[i].Rating > matched[j].Rating
		}
	})
	return matched
}

func matchesQuery(mentor models.Profile, query string) bool {
	if strings.Contains(normalize(stringValue(mentor.FullName)), query) {
		return true
	}
	if strings.Contains(normalize(stringValue(mentor.Department)), query) {
		return true
	}
	return lo.SomeBy(mentor.Subjects, func(subject string) bool {
		return strings.Contains(normalize(subject), query)
	})
}

func matchesAnySubject(subjects []string, selected []string) bool {
	return lo.SomeBy(selected, func(want string) bool {
		return lo.SomeBy(subjects, func(subject string) bool {
			return strings.Contains(normalize(subject), want)
		})
	})
}

func toMentorListResponse(profile models.Profile) models.MentorListResponse {
	subjects := profile.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	return models.MentorListResponse{
		ID:          profile.ID.String(),
		UserID:      profile.UserID.String(),
		FullName:    profile.DisplayName(),
		AvatarURL:   profile.AvatarURL,
		Department:  stringValue(profile.Department),
		Year:        stringValue(profile.Year),
		Subjects:    subjects,
		HourlyRate:  floatValue(profile.HourlyRate),
		Rating:      profile.Rating,
		ReviewCount: profile.ReviewCount,
	}
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func floatValue(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
