package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tripdesk/internal/domain"
)

// UserService backs registration and the check-in/check-out flow with
// hash records plus email/phone lookup indexes.
type UserService struct {
	store domain.Store
}

func NewUserService(store domain.Store) *UserService {
	return &UserService{store: store}
}

func userKey(id string) string       { return "user:" + id }
func phoneIndex(phone string) string { return "user:phone:" + phone }
func emailIndex(email string) string { return "user:email:" + email }

// Register creates a user, or returns the existing id when the phone is
// already registered. Idempotent by phone; the other fields of a repeat
// registration are ignored.
func (s *UserService) Register(ctx context.Context, name, email, phone string) (string, error) {
	if id, ok, err := s.store.GetString(ctx, phoneIndex(phone)); err != nil {
		return "", fmt.Errorf("lookup phone index: %w", err)
	} else if ok {
		return id, nil
	}

	id := uuid.NewString()
	fields := map[string]string{
		"userId": id,
		"name":   name,
		"email":  email,
		"phone":  phone,
	}
	if err := s.store.HSetMap(ctx, userKey(id), fields); err != nil {
		return "", fmt.Errorf("store user: %w", err)
	}
	if err := s.store.SetString(ctx, emailIndex(email), id, 0); err != nil {
		return "", fmt.Errorf("store email index: %w", err)
	}
	if err := s.store.SetString(ctx, phoneIndex(phone), id, 0); err != nil {
		return "", fmt.Errorf("store phone index: %w", err)
	}
	return id, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, bool, error) {
	m, err := s.store.HGetAll(ctx, userKey(id))
	if err != nil {
		return domain.User{}, false, err
	}
	if len(m) == 0 {
		return domain.User{}, false, nil
	}
	u := domain.User{
		ID:    m["userId"],
		Name:  m["name"],
		Email: m["email"],
		Phone: m["phone"],
	}
	if v, ok := m["checkInTime"]; ok {
		u.CheckInTime = &v
	}
	if v, ok := m["checkOutTime"]; ok {
		u.CheckOutTime = &v
	}
	return u, true, nil
}

func (s *UserService) GetByPhone(ctx context.Context, phone string) (domain.User, bool, error) {
	id, ok, err := s.store.GetString(ctx, phoneIndex(phone))
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	return s.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	id, ok, err := s.store.GetString(ctx, emailIndex(email))
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	return s.GetByID(ctx, id)
}

// RecordCheckIn overwrites the stored check-in timestamp. No ordering
// or uniqueness enforcement; any call simply replaces the value.
func (s *UserService) RecordCheckIn(ctx context.Context, userID, checkInTime string) error {
	return s.store.HSet(ctx, userKey(userID), "checkInTime", checkInTime)
}

// RecordCheckOut overwrites the stored check-out timestamp.
func (s *UserService) RecordCheckOut(ctx context.Context, userID, checkOutTime string) error {
	return s.store.HSet(ctx, userKey(userID), "checkOutTime", checkOutTime)
}
