package config

// Config holds runtime settings for the margin client.
//
// Fields:
//   - DatabasePath: path to the local SQLite database file.
//   - RemoteBaseURL: base URL of the hosted backend (row API + auth).
//   - RemoteAPIKey: the project's public API key, sent with every request.
//   - SyncBatchSize: max rows pulled/pushed per table per sync round.
//   - CatalogVersion: reference version of the fragment catalogue; the
//     catalogue module refetches when the locally stored version is older.
//   - FragmentsEnabled: user toggle for the found-fragments feature.
type Config struct {
	DatabasePath     string
	RemoteBaseURL    string
	RemoteAPIKey     string
	SyncBatchSize    int
	CatalogVersion   int
	FragmentsEnabled bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "margin.db"
	c.RemoteBaseURL = "http://127.0.0.1:54321"
	c.RemoteAPIKey = ""
	c.SyncBatchSize = 500
	c.CatalogVersion = 1
	c.FragmentsEnabled = true
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
