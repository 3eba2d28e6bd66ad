package config

const (
	defaultDestination    = "~/canvas"
	defaultLedgerPath     = "~/.local/share/canvas-downloader/history.db"
	defaultConcurrency    = 8
	defaultRequestTimeout = 10
	defaultRetries        = 3
	defaultExternalToolID = 128
	defaultNotifyTimeout  = 10
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Mirror: Mirror{
			Destination: defaultDestination,
		},
		HTTP: HTTP{
			Concurrency:    defaultConcurrency,
			RequestTimeout: defaultRequestTimeout,
			Retries:        defaultRetries,
		},
		Videos: Videos{
			Enabled:        true,
			ExternalToolID: defaultExternalToolID,
		},
		Ledger: Ledger{
			Enabled: true,
			Path:    defaultLedgerPath,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
