package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mbra/nzbmonkey/internal/services"
	"github.com/mbra/nzbmonkey/internal/subject"
)

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{services.ErrConfiguration}, args...)...)
}

// Validate ensures the configuration is usable. Every failure matches
// services.ErrConfiguration.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateServer,
		c.validateCrawl,
		c.validateMatching,
		c.validateOutput,
		c.validateSchedule,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return configErrorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if c.Server.TimeoutSeconds < 0 {
		return configErrorf("server.timeout_seconds must not be negative")
	}
	if c.Server.Password != "" && c.Server.Username == "" {
		return configErrorf("server.password set without server.username")
	}
	return nil
}

func (c *Config) validateCrawl() error {
	if c.Crawl.DefaultDelta < 0 {
		return configErrorf("crawl.default_delta must not be negative, got %d", c.Crawl.DefaultDelta)
	}
	if c.Crawl.MaxWindow < 0 {
		return configErrorf("crawl.max_window must not be negative, got %d", c.Crawl.MaxWindow)
	}
	if c.Crawl.Concurrency < 1 {
		return configErrorf("crawl.concurrency must be at least 1, got %d", c.Crawl.Concurrency)
	}
	if c.Crawl.RequestsPerSecond < 0 {
		return configErrorf("crawl.requests_per_second must not be negative")
	}
	return nil
}

func (c *Config) validateMatching() error {
	switch c.Matching.Mode {
	case matchingExact, matchingFold:
	default:
		return configErrorf("matching.mode must be %q or %q, got %q", matchingExact, matchingFold, c.Matching.Mode)
	}
	if _, err := subject.NewParser(c.Matching.SubjectPattern); err != nil {
		return fmt.Errorf("matching.subject_pattern: %w", err)
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Encoding {
	case encodingUTF8, encodingLatin1:
	default:
		return configErrorf("output.encoding must be %q or %q, got %q", encodingUTF8, encodingLatin1, c.Output.Encoding)
	}
	switch c.Output.SegmentOrder {
	case segmentOrderArrival, segmentOrderNumeric:
	default:
		return configErrorf("output.segment_order must be %q or %q, got %q", segmentOrderArrival, segmentOrderNumeric, c.Output.SegmentOrder)
	}
	switch c.Output.Incomplete {
	case incompleteWrite, incompleteSkip:
	default:
		return configErrorf("output.incomplete must be %q or %q, got %q", incompleteWrite, incompleteSkip, c.Output.Incomplete)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return configErrorf("schedule.cron %q: %w", c.Schedule.Cron, err)
	}
	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			return configErrorf("schedule.timezone %q: %w", c.Schedule.Timezone, err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case logFormatConsole, logFormatJSON:
	default:
		return configErrorf("logging.format must be %q or %q, got %q", logFormatConsole, logFormatJSON, c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return configErrorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}

// Location returns the schedule timezone, defaulting to local time.
func (s Schedule) Location() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
