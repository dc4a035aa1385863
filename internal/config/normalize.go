package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeServer()
	c.normalizeCrawl()
	c.normalizeMatching()
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	if c.Server.Username == "" {
		if value, ok := os.LookupEnv(envUsername); ok {
			c.Server.Username = value
		}
	}
	if c.Server.Password == "" {
		if value, ok := os.LookupEnv(envPassword); ok {
			c.Server.Password = value
		}
	}
	if c.Server.TimeoutSeconds == 0 {
		c.Server.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeCrawl() {
	seen := make(map[string]struct{}, len(c.Crawl.Groups))
	groups := make([]string, 0, len(c.Crawl.Groups))
	for _, group := range c.Crawl.Groups {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		if _, ok := seen[group]; ok {
			continue
		}
		seen[group] = struct{}{}
		groups = append(groups, group)
	}
	c.Crawl.Groups = groups
	if c.Crawl.Concurrency == 0 {
		c.Crawl.Concurrency = defaultConcurrency
	}
}

func (c *Config) normalizeMatching() {
	c.Matching.Mode = strings.ToLower(strings.TrimSpace(c.Matching.Mode))
	if c.Matching.Mode == "" {
		c.Matching.Mode = defaultMatchingMode
	}
}

func (c *Config) normalizeOutput() error {
	var err error
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	if c.Output.Dir, err = expandPath(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	c.Output.Encoding = strings.ToLower(strings.TrimSpace(c.Output.Encoding))
	switch c.Output.Encoding {
	case "":
		c.Output.Encoding = defaultEncoding
	case "utf8":
		c.Output.Encoding = encodingUTF8
	case "latin1", "latin-1":
		c.Output.Encoding = encodingLatin1
	}
	c.Output.SegmentOrder = strings.ToLower(strings.TrimSpace(c.Output.SegmentOrder))
	if c.Output.SegmentOrder == "" {
		c.Output.SegmentOrder = defaultSegmentOrder
	}
	c.Output.Incomplete = strings.ToLower(strings.TrimSpace(c.Output.Incomplete))
	if c.Output.Incomplete == "" {
		c.Output.Incomplete = defaultIncompletePolicy
	}
	c.Output.FallbackGroup = strings.TrimSpace(c.Output.FallbackGroup)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeSchedule() {
	c.Schedule.Cron = strings.TrimSpace(c.Schedule.Cron)
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = defaultCron
	}
	c.Schedule.Timezone = strings.TrimSpace(c.Schedule.Timezone)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
