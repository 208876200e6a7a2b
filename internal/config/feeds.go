package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FeedConfig describes one static transit feed to index
type FeedConfig struct {
	// ID is used as the feed key in API paths; colons would clash with feed-qualified ids
	ID   string `yaml:"id" validate:"required,max=64,excludes=:"`
	Name string `yaml:"name"`
	URL  string `yaml:"url" validate:"omitempty,url"`
	Path string `yaml:"path"`
}

// Location returns the URL or path the feed is read from
func (f FeedConfig) Location() string {
	if f.URL != "" {
		return f.URL
	}
	return f.Path
}

type feedsFile struct {
	Feeds []FeedConfig `yaml:"feeds" validate:"required,min=1,dive"`
}

// LoadFeeds reads and validates the feeds YAML file
func LoadFeeds(path string) ([]FeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds file %s: %w", path, err)
	}
	return ParseFeeds(data)
}

// ParseFeeds decodes and validates feed definitions. Every feed needs a unique id and
// exactly one of url or path.
func ParseFeeds(data []byte) ([]FeedConfig, error) {
	var file feedsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse feeds file: %w", err)
	}

	v := validator.New()
	if err := v.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid feeds file: %w", err)
	}

	seen := make(map[string]bool, len(file.Feeds))
	for _, feed := range file.Feeds {
		if seen[feed.ID] {
			return nil, fmt.Errorf("duplicate feed id: %s", feed.ID)
		}
		seen[feed.ID] = true

		if (feed.URL == "") == (feed.Path == "") {
			return nil, fmt.Errorf("feed %s: exactly one of url or path must be set", feed.ID)
		}
	}

	return file.Feeds, nil
}
