package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// DefaultRealtimeThreshold is the largest upload, in bytes, that is diffed
// while the client waits for the response.
const DefaultRealtimeThreshold int64 = 500000000

type AdminConfig struct {
	Name     string `toml:"name" env:"ADMIN_NAME"`
	Password string `toml:"password" env:"ADMIN_PASSWORD"`
}

type APIConfig struct {
	BindPort           int         `toml:"bind_port" env:"PORT"`
	DataDir            string      `toml:"data_dir" env:"DATA_DIR"`
	CorrectionsDataset string      `toml:"corrections_dataset" env:"CORRECTIONS_DATASET"`
	Admin              AdminConfig `toml:"admin"`
}

type Neo4jConfig struct {
	URI      string `toml:"uri" env:"NEO4J_URI"`
	User     string `toml:"user" env:"NEO4J_USER"`
	Password string `toml:"password" env:"NEO4J_PASSWORD"`
	Database string `toml:"database" env:"NEO4J_DATABASE"`
}

type WeaviateConfig struct {
	Scheme      string `toml:"scheme" env:"WEAVIATE_SCHEME"`
	Host        string `toml:"host" env:"WEAVIATE_HOST"`
	APIKey      string `toml:"api_key" env:"WEAVIATE_API_KEY"`
	ClassPrefix string `toml:"class_prefix" env:"WEAVIATE_CLASS_PREFIX"`
}

type UploadConfig struct {
	RealtimeThreshold int64 `toml:"realtime_threshold" env:"UPLOAD_REALTIME_THRESHOLD"`
}

type Config struct {
	API      APIConfig      `toml:"api"`
	Neo4j    Neo4jConfig    `toml:"neo4j"`
	Weaviate WeaviateConfig `toml:"weaviate"`
	Upload   UploadConfig   `toml:"upload"`
}

// Default returns the configuration used when neither the file nor the
// environment set a value.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BindPort:           3001,
			DataDir:            "./data",
			CorrectionsDataset: "z_corrections_",
			Admin: AdminConfig{
				Name:     "histograph",
				Password: "histograph",
			},
		},
		Neo4j: Neo4jConfig{
			URI: "bolt://localhost:7687",
		},
		Weaviate: WeaviateConfig{
			Scheme:      "http",
			Host:        "localhost:8080",
			ClassPrefix: "Dataset",
		},
		Upload: UploadConfig{
			RealtimeThreshold: DefaultRealtimeThreshold,
		},
	}
}

// Load layers the TOML file at path (skipped when path is empty) and then
// the process environment over Default.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.DataDir == "" {
		return fmt.Errorf("api.data_dir must be set")
	}
	if c.API.CorrectionsDataset == "" {
		return fmt.Errorf("api.corrections_dataset must be set")
	}
	if c.Upload.RealtimeThreshold <= 0 {
		return fmt.Errorf("upload.realtime_threshold must be positive, got %d", c.Upload.RealtimeThreshold)
	}
	return nil
}
