package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog/log"

	"tripdesk/internal/domain"
)

// DevOTPStore keeps the latest code per phone in process memory. It
// backs verification when the primary store has no entry (expired,
// unreachable, or a dev environment without Redis). Cleared on restart.
type DevOTPStore struct {
	mu    sync.RWMutex
	codes map[string]string
}

func NewDevOTPStore() *DevOTPStore {
	return &DevOTPStore{codes: make(map[string]string)}
}

func (d *DevOTPStore) Put(phone, code string) {
	d.mu.Lock()
	d.codes[phone] = code
	d.mu.Unlock()
}

func (d *DevOTPStore) Get(phone string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.codes[phone]
	return c, ok
}

// OTPService generates, delivers and verifies one-time codes. A single
// code is active per phone; resending overwrites it.
type OTPService struct {
	store    domain.Store
	sender   domain.SMSSender // nil when no gateway is configured
	fallback *DevOTPStore
	ttlSec   int

	genCode func() string
}

func NewOTPService(store domain.Store, sender domain.SMSSender, fallback *DevOTPStore, ttlSec int) *OTPService {
	return &OTPService{
		store:    store,
		sender:   sender,
		fallback: fallback,
		ttlSec:   ttlSec,
		genCode:  GenerateCode,
	}
}

// GenerateCode returns a uniform random 6-digit numeric code. Not
// cryptographic; the codes are a lightweight possession check only.
func GenerateCode() string {
	return fmt.Sprintf("%06d", 100000+rand.IntN(900000))
}

func otpKey(phone string) string { return "otp:" + phone }

// Send stores a fresh code under the phone's key and delivers it via
// SMS. The code is stored (and verifiable) even when delivery fails;
// the returned error reports the delivery outcome.
func (s *OTPService) Send(ctx context.Context, phone string) error {
	code := s.genCode()
	if err := s.store.SetString(ctx, otpKey(phone), code, s.ttlSec); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if s.fallback != nil {
		s.fallback.Put(phone, code)
	}

	log.Debug().Str("phone", phone).Str("code", code).Msg("otp issued")

	if s.sender == nil {
		log.Warn().Str("phone", phone).Msg("no SMS gateway configured; otp delivery skipped")
		return nil
	}
	body := fmt.Sprintf("Your verification code is: %s. Valid for 5 minutes.", code)
	if err := s.sender.Send(ctx, phone, body); err != nil {
		return fmt.Errorf("send otp sms: %w", err)
	}
	return nil
}

// Verify checks the submitted code against the stored value, falling
// back to the process-scoped store when the primary has no entry.
// Pure equality; no attempt counter.
func (s *OTPService) Verify(ctx context.Context, phone, code string) (bool, error) {
	stored, ok, err := s.store.GetString(ctx, otpKey(phone))
	if err != nil {
		return false, fmt.Errorf("read otp: %w", err)
	}
	if ok && stored == code {
		return true, nil
	}
	if s.fallback != nil {
		if dev, ok := s.fallback.Get(phone); ok && dev == code {
			return true, nil
		}
	}
	return false, nil
}
