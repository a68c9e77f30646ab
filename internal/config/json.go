package config

import (
	"encoding/json"
	"os"

	"github.com/margin-app/margin/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Only fields
// present in the file are copied into the runtime Config, so a partial file
// leaves the remaining defaults intact.
type JsonConfig struct {
	DatabasePath     *string `json:"database_path"`
	RemoteBaseURL    *string `json:"remote_base_url"`
	RemoteAPIKey     *string `json:"remote_api_key"`
	SyncBatchSize    *int    `json:"sync_batch_size"`
	CatalogVersion   *int    `json:"catalog_version"`
	FragmentsEnabled *bool   `json:"fragments_enabled"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags via flagx.JsonConfigFlags; when no
// path is given the function is a no-op. Read or unmarshal errors panic,
// matching the fail-fast startup behavior of parseFlags.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.RemoteBaseURL != nil {
		cfg.RemoteBaseURL = *jc.RemoteBaseURL
	}
	if jc.RemoteAPIKey != nil {
		cfg.RemoteAPIKey = *jc.RemoteAPIKey
	}
	if jc.SyncBatchSize != nil {
		cfg.SyncBatchSize = *jc.SyncBatchSize
	}
	if jc.CatalogVersion != nil {
		cfg.CatalogVersion = *jc.CatalogVersion
	}
	if jc.FragmentsEnabled != nil {
		cfg.FragmentsEnabled = *jc.FragmentsEnabled
	}
}
