package config

const (
	defaultPort              = 119
	defaultTLSPort           = 563
	defaultTimeoutSeconds    = 30
	defaultDelta             = 10000
	defaultMaxWindow         = 100000
	defaultConcurrency       = 1
	defaultMatchingMode      = "exact"
	defaultOutputDir         = "~/.local/share/nzbmonkey/nzb"
	defaultEncoding          = "utf-8"
	defaultSegmentOrder      = "arrival"
	defaultIncompletePolicy  = "write"
	defaultStateDir          = "~/.local/share/nzbmonkey"
	defaultLogDir            = "~/.local/share/nzbmonkey/logs"
	defaultCron              = "*/15 * * * *"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	envUsername              = "NZBMONKEY_NNTP_USER"
	envPassword              = "NZBMONKEY_NNTP_PASSWORD"
	incompleteWrite          = "write"
	incompleteSkip           = "skip"
	matchingExact            = "exact"
	matchingFold             = "fold"
	segmentOrderArrival      = "arrival"
	segmentOrderNumeric      = "numeric"
	encodingUTF8             = "utf-8"
	encodingLatin1           = "iso-8859-1"
	logFormatConsole         = "console"
	logFormatJSON            = "json"
	defaultRequestsPerSecond = 0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Crawl: Crawl{
			DefaultDelta:      defaultDelta,
			MaxWindow:         defaultMaxWindow,
			Persist:           true,
			Concurrency:       defaultConcurrency,
			RequestsPerSecond: defaultRequestsPerSecond,
		},
		Matching: Matching{
			Mode: defaultMatchingMode,
		},
		Output: Output{
			Dir:          defaultOutputDir,
			Encoding:     defaultEncoding,
			SegmentOrder: defaultSegmentOrder,
			Incomplete:   defaultIncompletePolicy,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Schedule: Schedule{
			Cron: defaultCron,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// SkipIncomplete reports whether incomplete releases should not be written.
func (o Output) SkipIncomplete() bool {
	return o.Incomplete == incompleteSkip
}
