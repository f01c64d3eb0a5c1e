package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xiaomi-sm6250/powerhal/internal/logger"
)

const (
	vendorConfigPath = "/vendor/etc/powerhal.yaml"

	defaultListen     = "127.0.0.1:7787"
	defaultPath       = "/power/v1"
	defaultPolicyPath = "/vendor/etc/powerhint.json"
	defaultInputDir   = "/dev/input"
)

type Config struct {
	Listen     string `yaml:"listen"`
	Path       string `yaml:"path"`
	LogLevel   string `yaml:"log_level"`
	PolicyPath string `yaml:"policy_path"`

	Properties PropertiesConfig `yaml:"properties"`
	Props      PropNames        `yaml:"props"`
	Input      InputConfig      `yaml:"input"`
	Display    DisplayConfig    `yaml:"display"`
}

// PropertiesConfig selects where system properties are read from.
type PropertiesConfig struct {
	// Backend is "getprop" or "file".
	Backend      string        `yaml:"backend"`
	File         string        `yaml:"file"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type PropNames struct {
	Init      string `yaml:"init"`
	InitValue string `yaml:"init_value"`
	State     string `yaml:"state"`
	Audio     string `yaml:"audio"`
	Rendering string `yaml:"rendering"`
}

type InputConfig struct {
	Dir        string   `yaml:"dir"`
	TouchNames []string `yaml:"touch_names"`
}

type DisplayConfig struct {
	LPMNode string `yaml:"lpm_node"`
}

// Flags carries command-line overrides. Empty fields are ignored.
type Flags struct {
	ConfigPath string
	Listen     string
	PolicyPath string
	LogLevel   string
}

// Load resolves configuration from flags > env > config file > defaults.
func Load(flags Flags) (*Config, error) {
	cfg := &Config{}

	// 1. Config file as base
	cfgPath := flags.ConfigPath
	if cfgPath == "" {
		cfgPath = os.Getenv("POWERHAL_CONFIG")
	}
	if cfgPath != "" {
		data, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	} else if p := configFilePath(); p != "" {
		if data, err := os.ReadFile(p); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", p, err)
			}
		}
	}

	// 2. Environment variables override config file
	if v := os.Getenv("POWERHAL_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("POWERHAL_POLICY"); v != "" {
		cfg.PolicyPath = v
	}
	if v := os.Getenv("POWERHAL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("POWERHAL_PROPERTIES_FILE"); v != "" {
		cfg.Properties.Backend = "file"
		cfg.Properties.File = v
	}
	if v := os.Getenv("POWERHAL_INPUT_DIR"); v != "" {
		cfg.Input.Dir = v
	}

	// 3. CLI flags override everything
	if flags.Listen != "" {
		cfg.Listen = flags.Listen
	}
	if flags.PolicyPath != "" {
		cfg.PolicyPath = flags.PolicyPath
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Path == "" {
		c.Path = defaultPath
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PolicyPath == "" {
		c.PolicyPath = defaultPolicyPath
	}
	if c.Properties.Backend == "" {
		c.Properties.Backend = "getprop"
	}
	if c.Props.Init == "" {
		c.Props.Init = "vendor.powerhal.init"
	}
	if c.Props.InitValue == "" {
		c.Props.InitValue = "1"
	}
	if c.Props.State == "" {
		c.Props.State = "vendor.powerhal.state"
	}
	if c.Props.Audio == "" {
		c.Props.Audio = "vendor.powerhal.audio"
	}
	if c.Props.Rendering == "" {
		c.Props.Rendering = "vendor.powerhal.rendering"
	}
	if c.Input.Dir == "" {
		c.Input.Dir = defaultInputDir
	}
	if len(c.Input.TouchNames) == 0 {
		c.Input.TouchNames = []string{"fts_ts", "NVTCapacitiveTouchScreen"}
	}
}

func (c *Config) validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path: must start with /, got %q", c.Path)
	}
	switch c.Properties.Backend {
	case "getprop":
	case "file":
		if c.Properties.File == "" {
			return fmt.Errorf("properties.file is required for the file backend")
		}
	default:
		return fmt.Errorf("properties.backend: unknown backend %q (expected getprop or file)", c.Properties.Backend)
	}
	if c.Properties.PollInterval < 0 {
		return fmt.Errorf("properties.poll_interval: must not be negative")
	}
	if !filepath.IsAbs(c.PolicyPath) {
		return fmt.Errorf("policy_path: must be absolute, got %q", c.PolicyPath)
	}
	return nil
}

// URL is the WebSocket endpoint clients dial.
func (c *Config) URL() string {
	return "ws://" + c.Listen + c.Path
}

func configFilePath() string {
	if _, err := os.Stat(vendorConfigPath); err == nil {
		return vendorConfigPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".powerhal", "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}
