package config

const (
	defaultRawDir            = "~/.local/share/fecclean/raw"
	defaultCleanedDir        = "~/.local/share/fecclean/cleaned"
	defaultStateDir          = "~/.local/share/fecclean/state"
	defaultNGramSize         = 3
	defaultTopK              = 10
	defaultFECBaseURL        = "https://api.open.fec.gov/v1"
	defaultFECAPIKey         = "DEMO_KEY"
	defaultFECCycle          = "2020"
	defaultFECCommitteeType  = "P"
	defaultFECPerPage        = 100
	defaultFECHourlyQuota    = 1000
	defaultFECQuotaSleep     = 3600
	defaultFECRequestTimeout = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// DefaultPasses are the three independent floors every batch run produces.
func DefaultPasses() []Pass {
	return []Pass{
		{Name: "light", Floor: 0.95},
		{Name: "deep", Floor: 0.9},
		{Name: "loose", Floor: 0.8},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RawDir:     defaultRawDir,
			CleanedDir: defaultCleanedDir,
			StateDir:   defaultStateDir,
		},
		Cleaning: Cleaning{
			NGramSize: defaultNGramSize,
			TopK:      defaultTopK,
			Passes:    DefaultPasses(),
		},
		FEC: FEC{
			BaseURL:           defaultFECBaseURL,
			Cycle:             defaultFECCycle,
			CommitteeType:     defaultFECCommitteeType,
			PerPage:           defaultFECPerPage,
			HourlyQuota:       defaultFECHourlyQuota,
			QuotaSleepSeconds: defaultFECQuotaSleep,
			RequestTimeout:    defaultFECRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
