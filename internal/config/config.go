// Package config loads the dashboard configuration: defaults, then an
// optional YAML file, then environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cambra/puertos-china/internal/dataset"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	Mode            string        `yaml:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// DataConfig locates the source tables. Relative paths resolve against Dir.
type DataConfig struct {
	Dir       string `yaml:"dir"`
	Series    string `yaml:"series" validate:"required"`
	Ranking   string `yaml:"ranking" validate:"required"`
	Ports     string `yaml:"ports" validate:"required"`
	AssetsDir string `yaml:"assets_dir"`
}

type DashboardConfig struct {
	Title        string  `yaml:"title" validate:"required"`
	Logo         string  `yaml:"logo"`
	RankingLimit int     `yaml:"ranking_limit" validate:"gte=1,lte=500"`
	DetailLimit  int     `yaml:"detail_limit" validate:"gte=1,lte=5000"`
	ChartScale   float64 `yaml:"chart_scale" validate:"gt=0,lte=4"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name" validate:"required_if=Enabled true"`
	PrettyPrint bool   `yaml:"pretty_print"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "0.0.0.0:8050",
			Mode:            "release",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Data: DataConfig{
			Dir:       ".",
			Series:    "china_serie_mensual.parquet",
			Ranking:   "china_ranking_mercaderias.parquet",
			Ports:     "china_mercaderia_puerto.parquet",
			AssetsDir: "assets",
		},
		Dashboard: DashboardConfig{
			Title:        "Análisis de Puertos de Importación del Paraguay",
			Logo:         "/assets/CAMBRA.png",
			RankingLimit: 20,
			DetailLimit:  50,
			ChartScale:   1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName: "puertos-china-dashboard",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = "0.0.0.0:" + port
	}
	if addr := os.Getenv("DASHBOARD_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if dir := os.Getenv("DASHBOARD_DATA_DIR"); dir != "" {
		c.Data.Dir = dir
	}
	if level := os.Getenv("DASHBOARD_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Paths resolves the source table locations.
func (c *Config) Paths() dataset.Paths {
	return dataset.Paths{
		Series:  c.Data.resolve(c.Data.Series),
		Ranking: c.Data.resolve(c.Data.Ranking),
		Ports:   c.Data.resolve(c.Data.Ports),
	}
}

func (c *Config) AssetsPath() string {
	if c.Data.AssetsDir == "" {
		return ""
	}
	return c.Data.resolve(c.Data.AssetsDir)
}

func (d DataConfig) resolve(p string) string {
	if filepath.IsAbs(p) || d.Dir == "" {
		return p
	}
	return filepath.Join(d.Dir, p)
}
