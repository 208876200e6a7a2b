package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/smarttransit/network-index/internal/models"
)

// RateLimitService limits manually triggered refreshes per operator and per client IP.
// Counters live in memory; a restart resets them.
type RateLimitService struct {
	config RateLimitConfig
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxOperatorRequests int           // Max manual refreshes per operator
	OperatorWindow      time.Duration // Time window for operator rate limit
	MaxIPRequests       int           // Max manual refreshes per IP
	IPWindow            time.Duration // Time window for IP rate limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxOperatorRequests: 6,                // 6 refreshes
		OperatorWindow:      10 * time.Minute, // per 10 minutes
		MaxIPRequests:       20,               // 20 refreshes
		IPWindow:            1 * time.Hour,    // per hour
	}
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(config RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		config: config,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	RetryAfter time.Time
	Type       string // "operator" or "ip"
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many refresh requests for this %s; retry after %s", e.Type, e.RetryAfter.Format("15:04:05"))
}

// AppError converts the limit into an API error
func (e *RateLimitError) AppError() *models.AppError {
	return &models.AppError{
		Kind:    models.ErrKindRateLimit,
		Message: fmt.Sprintf("Too many refresh requests. Please try again after %s", e.RetryAfter.UTC().Format(time.RFC3339)),
		Err:     e,
	}
}

// Allow checks both limits and records the request when it is allowed.
// An empty operator or ip skips that limit.
func (s *RateLimitService) Allow(operator, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	// Check both before recording either
	if operator != "" {
		if err := s.check("operator:"+operator, s.config.MaxOperatorRequests, s.config.OperatorWindow, now); err != nil {
			err.Type = "operator"
			return err
		}
	}
	if ip != "" {
		if err := s.check("ip:"+ip, s.config.MaxIPRequests, s.config.IPWindow, now); err != nil {
			err.Type = "ip"
			return err
		}
	}

	if operator != "" {
		s.hits["operator:"+operator] = append(s.hits["operator:"+operator], now)
	}
	if ip != "" {
		s.hits["ip:"+ip] = append(s.hits["ip:"+ip], now)
	}

	return nil
}

func (s *RateLimitService) check(key string, max int, window time.Duration, now time.Time) *RateLimitError {
	if max <= 0 {
		return nil
	}

	recent := s.prune(key, window, now)
	if len(recent) >= max {
		return &RateLimitError{RetryAfter: recent[0].Add(window)}
	}
	return nil
}

// prune drops requests older than the window and returns what is left, oldest first
func (s *RateLimitService) prune(key string, window time.Duration, now time.Time) []time.Time {
	cutoff := now.Add(-window)
	recent := s.hits[key]
	i := 0
	for i < len(recent) && !recent[i].After(cutoff) {
		i++
	}
	recent = recent[i:]
	if len(recent) == 0 {
		delete(s.hits, key)
		return nil
	}
	s.hits[key] = recent
	return recent
}

// CleanupExpiredRateLimits removes counters older than the longest window
func (s *RateLimitService) CleanupExpiredRateLimits() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxWindow := s.config.IPWindow
	if s.config.OperatorWindow > maxWindow {
		maxWindow = s.config.OperatorWindow
	}

	now := s.now()
	removed := 0
	for key := range s.hits {
		if s.prune(key, maxWindow, now) == nil {
			removed++
		}
	}
	return removed
}
