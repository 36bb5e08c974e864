package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of environment variables read by LoadEnv.
const EnvPrefix = "dependents"

// Setting names a configuration value that can come from several sources.
// The names match the command line flags that set them.
type Setting string

// Settings that can be overridden by the config file or the environment.
const (
	SettingDelay     Setting = "repeat-delay"
	SettingMaxPages  Setting = "pages"
	SettingMinStars  Setting = "stars"
	SettingTimeout   Setting = "timeout"
	SettingUserAgent Setting = "user-agent"
	SettingProxy     Setting = "proxy"
)

// Overrides holds optional values for the overridable settings.
// A nil field leaves the setting alone.
type Overrides struct {
	// Delay is the request spacing in seconds.
	Delay *float64 `envconfig:"DELAY" yaml:"delay,omitempty"`

	// MaxPages is the page ceiling; zero means practically unlimited.
	MaxPages *int `envconfig:"MAX_PAGES" yaml:"pages,omitempty"`

	// MinStars is the star threshold.
	MinStars *int `envconfig:"MIN_STARS" yaml:"stars,omitempty"`

	// Timeout bounds each request, e.g. "30s".
	Timeout *time.Duration `envconfig:"TIMEOUT" yaml:"timeout,omitempty"`

	// UserAgent is the User-Agent header.
	UserAgent *string `envconfig:"USER_AGENT" yaml:"userAgent,omitempty"`

	// Proxy is a SOCKS5 proxy address in "host:port" form.
	Proxy *string `envconfig:"PROXY" yaml:"proxy,omitempty"`
}

// LoadEnv reads DEPENDENTS_* environment variables.
// Variables that are not set leave the matching field nil.
func LoadEnv() (Overrides, error) {
	var o Overrides
	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return Overrides{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return o, nil
}

// Pin protects settings from being changed by later calls to Merge.
func (c *Config) Pin(settings ...Setting) {
	if c.pinned == nil {
		c.pinned = make(map[Setting]bool)
	}
	for _, s := range settings {
		c.pinned[s] = true
	}
}

// Pinned reports whether a setting is protected from Merge.
func (c *Config) Pinned(s Setting) bool {
	return c.pinned[s]
}

// Merge applies every non-nil override whose setting is not pinned and
// returns the settings it changed.
func (c *Config) Merge(o Overrides) []Setting {
	var applied []Setting
	apply := func(s Setting, set bool, fn func()) {
		if !set || c.pinned[s] {
			return
		}
		fn()
		applied = append(applied, s)
	}

	apply(SettingDelay, o.Delay != nil, func() { c.Delay = SecondsToDuration(*o.Delay) })
	apply(SettingMaxPages, o.MaxPages != nil, func() { c.MaxPages = *o.MaxPages })
	apply(SettingMinStars, o.MinStars != nil, func() { c.MinStars = *o.MinStars })
	apply(SettingTimeout, o.Timeout != nil, func() { c.Timeout = *o.Timeout })
	apply(SettingUserAgent, o.UserAgent != nil, func() { c.UserAgent = *o.UserAgent })
	apply(SettingProxy, o.Proxy != nil, func() { c.ProxyAddress = *o.Proxy })
	return applied
}
