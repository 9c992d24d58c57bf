// Package config provides configuration management for the IPTV guide service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to the upper-cased flag name to form its environment variable.
const EnvPrefix = "IPTV_GUIDE_"

var (
	// ErrM3UURLRequired is returned when M3U URL is not provided.
	ErrM3UURLRequired = errors.New("m3u URL is required")
	// ErrEPGURLRequired is returned when EPG URL is not provided.
	ErrEPGURLRequired = errors.New("epg URL is required")
	// ErrInvalidPort is returned when port number is invalid.
	ErrInvalidPort = errors.New("invalid port number")
	// ErrRefreshIntervalPositive is returned when refresh interval is not positive.
	ErrRefreshIntervalPositive = errors.New("refresh interval must be positive")
	// ErrFetchTimeoutPositive is returned when the fetch timeout is not positive.
	ErrFetchTimeoutPositive = errors.New("fetch timeout must be positive")
	// ErrInvalidFetchRetries is returned when the retry count is negative.
	ErrInvalidFetchRetries = errors.New("fetch retries must not be negative")
	// ErrInvalidFetchRate is returned when the fetch rate is negative.
	ErrInvalidFetchRate = errors.New("fetch rate must not be negative")
	// ErrInvalidLogLevel is returned when log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidTimezone is returned when the timezone cannot be loaded.
	ErrInvalidTimezone = errors.New("invalid timezone")
	// ErrInvalidEnv is returned when an environment variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)

// Config holds the application configuration.
type Config struct {
	M3UURL          string
	EPGURL          string
	BaseURL         string
	Port            int
	LogLevel        string
	LogFile         string
	LogMaxSize      int
	LogMaxBackups   int
	LogMaxAge       int
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	FetchRetries    int
	FetchRate       float64
	Timezone        string
	AuthToken       string
	AllowedRegions  []string
	RegionHeader    string

	location *time.Location
	envErrs  []error
}

// New creates a configuration holding the defaults.
func New() *Config {
	return &Config{
		Port:            8080,
		LogLevel:        "info",
		LogMaxSize:      50,
		LogMaxBackups:   3,
		LogMaxAge:       28,
		RefreshInterval: 30 * time.Minute,
		FetchTimeout:    60 * time.Second,
		FetchRetries:    3,
		FetchRate:       1,
		Timezone:        "UTC",
		RegionHeader:    "CF-IPCountry",
	}
}

// BindFlags registers the configuration flags. Each flag defaults to its
// IPTV_GUIDE_* environment variable when set, then to the built-in default.
func (c *Config) BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.M3UURL, "m3u", c.envString("m3u", c.M3UURL), "URL or path of the M3U playlist (required)")
	flags.StringVar(&c.EPGURL, "epg", c.envString("epg", c.EPGURL), "URL or path of the XMLTV guide (required)")
	flags.StringVar(&c.BaseURL, "base", c.envString("base", c.BaseURL), "Public base URL used in action links (default http://localhost:<port>)")
	flags.IntVar(&c.Port, "port", c.envInt("port", c.Port), "Port to listen on")
	flags.StringVar(&c.LogLevel, "log-level", c.envString("log-level", c.LogLevel), "Log level (debug, info, warn, error)")
	flags.StringVar(&c.LogFile, "log-file", c.envString("log-file", c.LogFile), "Also write logs to this file, rotated by size")
	flags.IntVar(&c.LogMaxSize, "log-max-size", c.envInt("log-max-size", c.LogMaxSize), "Maximum log file size in megabytes before rotation")
	flags.IntVar(&c.LogMaxBackups, "log-max-backups", c.envInt("log-max-backups", c.LogMaxBackups), "Number of rotated log files to keep")
	flags.IntVar(&c.LogMaxAge, "log-max-age", c.envInt("log-max-age", c.LogMaxAge), "Days to keep rotated log files")
	flags.DurationVar(&c.RefreshInterval, "refresh-interval", c.envDuration("refresh-interval", c.RefreshInterval), "Interval between data refreshes")
	flags.DurationVar(&c.FetchTimeout, "fetch-timeout", c.envDuration("fetch-timeout", c.FetchTimeout), "Timeout for a single document fetch")
	flags.IntVar(&c.FetchRetries, "fetch-retries", c.envInt("fetch-retries", c.FetchRetries), "Retries after a failed document fetch")
	flags.Float64Var(&c.FetchRate, "fetch-rate", c.envFloat("fetch-rate", c.FetchRate), "Maximum upstream requests per second (0 disables pacing)")
	flags.StringVar(&c.Timezone, "timezone", c.envString("timezone", c.Timezone), "IANA timezone that defines \"today\" for guide listings")
	flags.StringVar(&c.AuthToken, "auth-token", c.envString("auth-token", c.AuthToken), "Token required to list channels and guides")
	flags.StringSliceVar(&c.AllowedRegions, "allowed-regions", c.envList("allowed-regions", c.AllowedRegions), "Country codes allowed to list channels (empty allows all)")
	flags.StringVar(&c.RegionHeader, "region-header", c.envString("region-header", c.RegionHeader), "Request header carrying the client country code")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.envErrs) > 0 {
		return errors.Join(c.envErrs...)
	}

	if c.M3UURL == "" {
		return ErrM3UURLRequired
	}

	if c.EPGURL == "" {
		return ErrEPGURLRequired
	}

	if _, err := url.Parse(c.M3UURL); err != nil {
		return fmt.Errorf("invalid M3U URL: %w", err)
	}

	if _, err := url.Parse(c.EPGURL); err != nil {
		return fmt.Errorf("invalid EPG URL: %w", err)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if c.RefreshInterval <= 0 {
		return ErrRefreshIntervalPositive
	}

	if c.FetchTimeout <= 0 {
		return ErrFetchTimeoutPositive
	}

	if c.FetchRetries < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFetchRetries, c.FetchRetries)
	}

	if c.FetchRate < 0 {
		return fmt.Errorf("%w: %g", ErrInvalidFetchRate, c.FetchRate)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("%w: %s (must be debug, info, warn, or error)", ErrInvalidLogLevel, c.LogLevel)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidTimezone, c.Timezone, err)
	}
	c.location = loc

	return nil
}

// Location returns the timezone that defines "today". It is UTC until Validate succeeds.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func envName(flag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

func (c *Config) envString(flag, fallback string) string {
	if value, ok := os.LookupEnv(envName(flag)); ok {
		return value
	}
	return fallback
}

func (c *Config) envInt(flag string, fallback int) int {
	value, ok := os.LookupEnv(envName(flag))
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.envErrs = append(c.envErrs, fmt.Errorf("%w: %s: %w", ErrInvalidEnv, envName(flag), err))
		return fallback
	}
	return parsed
}

func (c *Config) envFloat(flag string, fallback float64) float64 {
	value, ok := os.LookupEnv(envName(flag))
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.envErrs = append(c.envErrs, fmt.Errorf("%w: %s: %w", ErrInvalidEnv, envName(flag), err))
		return fallback
	}
	return parsed
}

func (c *Config) envDuration(flag string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(envName(flag))
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		c.envErrs = append(c.envErrs, fmt.Errorf("%w: %s: %w", ErrInvalidEnv, envName(flag), err))
		return fallback
	}
	return parsed
}

func (c *Config) envList(flag string, fallback []string) []string {
	value, ok := os.LookupEnv(envName(flag))
	if !ok {
		return fallback
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
