package config

const (
	defaultEnrichmentBaseURL = "https://pgc.api.pwfc.cloud"
	defaultOptimizerCycle    = 50
	defaultMemoryHighWater   = 0.98
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Enrichment: Enrichment{
			BaseURL: defaultEnrichmentBaseURL,
		},
		Optimizer: Optimizer{
			CycleSeconds:    defaultOptimizerCycle,
			MemoryHighWater: defaultMemoryHighWater,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
