package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/config"
)

// maxFeedSize caps how much of a remote feed is read into memory
const maxFeedSize = 512 << 20

// Source fetches raw feed archives over HTTP or from the local filesystem
type Source struct {
	client *http.Client
	logger *logrus.Logger
}

// NewSource creates a feed source whose HTTP requests time out after timeout
func NewSource(timeout time.Duration, logger *logrus.Logger) *Source {
	return &Source{
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch returns the raw bytes of a feed
func (s *Source) Fetch(ctx context.Context, feed config.FeedConfig) ([]byte, error) {
	start := time.Now()

	var (
		raw []byte
		err error
	)
	if feed.URL != "" {
		raw, err = s.fetchHTTP(ctx, feed.URL)
	} else {
		raw, err = os.ReadFile(feed.Path)
		if err != nil {
			err = fmt.Errorf("failed to read feed file: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"feed_id":     feed.ID,
		"location":    feed.Location(),
		"bytes":       len(raw),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Fetched feed")

	return raw, nil
}

func (s *Source) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed download returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}
	if len(raw) > maxFeedSize {
		return nil, fmt.Errorf("feed exceeds %d bytes", maxFeedSize)
	}

	return raw, nil
}
