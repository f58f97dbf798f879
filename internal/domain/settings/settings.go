package settings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
)

// KeyConversionRate is the settings row holding dollars per wRVU.
const KeyConversionRate = "wrvu_conversion_rate"

// ErrInvalidRate is returned for negative or non-finite conversion rates.
var ErrInvalidRate = errors.New("conversion rate must be a finite number >= 0")

// Settings is the runtime settings record. It is loaded once at startup and
// shared by pointer; writes go through it so readers never query storage.
type Settings struct {
	repo Repository

	mu   sync.RWMutex
	rate float64
}

// Load reads the stored settings, seeding missing values from defaultRate.
func Load(ctx context.Context, repo Repository, defaultRate float64) (*Settings, error) {
	s := &Settings{repo: repo, rate: defaultRate}

	raw, err := repo.Get(ctx, KeyConversionRate)
	switch {
	case errors.Is(err, ErrNotFound):
		if err := s.SetConversionRate(ctx, defaultRate); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || validateRate(rate) != nil {
			return nil, fmt.Errorf("stored %s %q is not a valid rate", KeyConversionRate, raw)
		}
		s.rate = rate
	}
	return s, nil
}

// ConversionRate returns dollars per wRVU.
func (s *Settings) ConversionRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rate
}

// SetConversionRate persists rate and then makes it visible to readers.
func (s *Settings) SetConversionRate(ctx context.Context, rate float64) error {
	if err := validateRate(rate); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Put(ctx, KeyConversionRate, strconv.FormatFloat(rate, 'f', -1, 64)); err != nil {
		return err
	}
	s.rate = rate
	return nil
}

func validateRate(rate float64) error {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return ErrInvalidRate
	}
	return nil
}
