package config

import (
	"maps"
	"strings"

	"github.com/nao1215/dependents/internal/github"
)

// RepositoryConfig holds the settings for walking one repository's listing.
type RepositoryConfig struct {
	Overrides `yaml:",inline"`

	// Cookie is an HTTP cookie sent with every request, e.g. "user_session=...".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// SchemaConfig overrides the selectors used to read listing pages.
// Empty fields keep the built-in github.com selectors.
type SchemaConfig struct {
	ContainerID    string `yaml:"containerId,omitempty"`
	RowClass       string `yaml:"rowClass,omitempty"`
	HovercardType  string `yaml:"hovercardType,omitempty"`
	StarClass      string `yaml:"starClass,omitempty"`
	NextButtonText string `yaml:"nextButtonText,omitempty"`
}

// Options converts the non-empty selectors to schema options.
func (s SchemaConfig) Options() []github.SchemaOption {
	var opts []github.SchemaOption
	if s.ContainerID != "" {
		opts = append(opts, github.WithContainerID(s.ContainerID))
	}
	if s.RowClass != "" {
		opts = append(opts, github.WithRowClass(s.RowClass))
	}
	if s.HovercardType != "" {
		opts = append(opts, github.WithHovercardType(s.HovercardType))
	}
	if s.StarClass != "" {
		opts = append(opts, github.WithStarClass(s.StarClass))
	}
	if s.NextButtonText != "" {
		opts = append(opts, github.WithNextButtonText(s.NextButtonText))
	}
	return opts
}

// File represents the structure of the .dependents configuration file.
type File struct {
	// Defaults apply to every repository.
	Defaults RepositoryConfig `yaml:"defaults,omitempty"`

	// Repositories maps "owner/repo" names to their specific settings.
	Repositories map[string]RepositoryConfig `yaml:"repositories,omitempty"`

	// Schema overrides the page selectors.
	Schema SchemaConfig `yaml:"schema,omitempty"`
}

// ForRepository returns the configuration for a repository, merging the
// repository entry over the defaults. Names are matched case-insensitively.
func (f *File) ForRepository(name string) RepositoryConfig {
	result := f.Defaults
	result.Headers = maps.Clone(f.Defaults.Headers)

	entry, ok := f.Repositories[name]
	if !ok {
		for key, cfg := range f.Repositories {
			if strings.EqualFold(key, name) {
				entry, ok = cfg, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if entry.Cookie != "" {
		result.Cookie = entry.Cookie
	}
	if len(entry.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, entry.Headers)
	}
	if entry.Delay != nil {
		result.Delay = entry.Delay
	}
	if entry.MaxPages != nil {
		result.MaxPages = entry.MaxPages
	}
	if entry.MinStars != nil {
		result.MinStars = entry.MinStars
	}
	if entry.Timeout != nil {
		result.Timeout = entry.Timeout
	}
	if entry.UserAgent != nil {
		result.UserAgent = entry.UserAgent
	}
	if entry.Proxy != nil {
		result.Proxy = entry.Proxy
	}
	return result
}
