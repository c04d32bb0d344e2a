package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	exeDirCache string
)

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	AI          AIConfig          `yaml:"ai,omitempty"`
	Generation  GenerationConfig  `yaml:"generation"`
	Layout      LayoutConfig      `yaml:"layout"`
	Registry    RegistryConfig    `yaml:"registry"`
	Storage     StorageConfig     `yaml:"storage"`
	PromptBuild PromptBuildConfig `yaml:"prompt_build,omitempty"`
	Maintenance MaintenanceConfig `yaml:"maintenance,omitempty"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// AIConfig selects the generative text service.
// When ProvidersFile and ModelsFile are both set, the model registry with
// failover is used instead of the single provider described here.
type AIConfig struct {
	Provider      string `yaml:"provider,omitempty"`
	APIKey        string `yaml:"api_key,omitempty"`
	BaseURL       string `yaml:"base_url,omitempty"`
	Model         string `yaml:"model,omitempty"`
	ProvidersFile string `yaml:"providers_file,omitempty"`
	ModelsFile    string `yaml:"models_file,omitempty"`
	// Cooldown keeps a failed model out of rotation for this long.
	Cooldown time.Duration `yaml:"cooldown,omitempty"`
}

type GenerationConfig struct {
	MaxRetries           int           `yaml:"max_retries"`
	CallTimeout          time.Duration `yaml:"call_timeout"`
	StructureTemperature float32       `yaml:"structure_temperature"`
	ContentTemperature   float32       `yaml:"content_temperature"`
	MaxTokens            int           `yaml:"max_tokens"`
	// MaxConcurrency bounds in-flight slot generations; 0 means unbounded.
	MaxConcurrency int `yaml:"max_concurrency"`
}

// LayoutConfig holds the named constants used by space budgeting.
type LayoutConfig struct {
	FillFactor            float64 `yaml:"fill_factor"`
	ColumnGapPx           float64 `yaml:"column_gap_px"`
	BlockMarginPx         float64 `yaml:"block_margin_px"`
	LinesPerPoint         int     `yaml:"lines_per_point"`
	DefaultCharWidthRatio float64 `yaml:"default_char_width_ratio"`
	GridUnitPx            float64 `yaml:"grid_unit_px"`
	SmallWidthPx          float64 `yaml:"small_width_px"`
	LargeWidthPx          float64 `yaml:"large_width_px"`
}

type RegistryConfig struct {
	VariantsDir  string `yaml:"variants_dir"`
	TemplatesDir string `yaml:"templates_dir"`
	ThemesDir    string `yaml:"themes_dir,omitempty"`
}

type StorageConfig struct {
	Enabled       bool   `yaml:"enabled"`
	SQLitePath    string `yaml:"sqlite_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// PromptBuildConfig configures prompt rendering and prompt auditing.
type PromptBuildConfig struct {
	RootDir            string `yaml:"root_dir,omitempty"`
	AuditEnabled       bool   `yaml:"audit_enabled"`
	AuditDir           string `yaml:"audit_dir,omitempty"`
	AuditRetentionDays int    `yaml:"audit_retention_days,omitempty"`
	AuditFilePrefix    string `yaml:"audit_file_prefix,omitempty"`
}

type MaintenanceConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 18080,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		AI: AIConfig{
			Provider: "mock",
			Cooldown: 2 * time.Minute,
		},
		Generation: GenerationConfig{
			MaxRetries:           2,
			CallTimeout:          30 * time.Second,
			StructureTemperature: 0.2,
			ContentTemperature:   0.7,
			MaxTokens:            512,
		},
		Layout: DefaultLayout(),
		Registry: RegistryConfig{
			VariantsDir:  "variants",
			TemplatesDir: "templates",
			ThemesDir:    "themes",
		},
		Storage: StorageConfig{
			Enabled:       true,
			SQLitePath:    ".slidefit/history.db",
			RetentionDays: 30,
		},
		PromptBuild: PromptBuildConfig{
			RootDir:            ".",
			AuditEnabled:       false,
			AuditDir:           ".slidefit/prompt-audit",
			AuditRetentionDays: 7,
			AuditFilePrefix:    "prompts",
		},
		Maintenance: MaintenanceConfig{
			Enabled:  true,
			Schedule: "@daily",
		},
	}
}

// DefaultLayout returns the budgeting constants used when none are configured.
func DefaultLayout() LayoutConfig {
	return LayoutConfig{
		FillFactor:            0.90,
		ColumnGapPx:           24,
		BlockMarginPx:         12,
		LinesPerPoint:         2,
		DefaultCharWidthRatio: 0.5,
		GridUnitPx:            60,
		SmallWidthPx:          900,
		LargeWidthPx:          1500,
	}
}

func ConfigDir() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".slidefit")
}

func ConfigPath() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".slidefit.yaml")
}

func Load() (*Config, error) {
	return LoadFromPath(ConfigPath())
}

// LoadFromPath reads config from path on top of the defaults.
// A missing file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	return cfg, nil
}

// applyEnv lets environment variables override the AI section.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("SLIDEFIT_AI_PROVIDER")); v != "" {
		c.AI.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("SLIDEFIT_AI_MODEL")); v != "" {
		c.AI.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("SLIDEFIT_AI_API_KEY")); v != "" {
		c.AI.APIKey = v
	}
}

func (c *Config) Save() error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(), data, 0600)
}
