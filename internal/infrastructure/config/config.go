package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Selectors struct {
	FeedContainer string `yaml:"feedContainer"`
	Cover         string `yaml:"cover"`
	Item          string `yaml:"item"`
	IndexAttr     string `yaml:"indexAttr"`
	Close         string `yaml:"close"`
	DetailMask    string `yaml:"detailMask"`
}

type Config struct {
	Addr            string `yaml:"addr"`
	LogLevel        string `yaml:"logLevel"`
	DevMode         bool   `yaml:"devMode"`
	CORSAllowOrigin string `yaml:"corsAllowOrigin"`

	// Browser session
	TargetURL       string `yaml:"targetURL"`
	ChromeRemoteURL string `yaml:"chromeRemoteURL"` // connect to an already running Chrome instead of launching one
	ChromePath      string `yaml:"chromePath"`
	Headless        bool   `yaml:"headless"`
	UserDataDir     string `yaml:"userDataDir"`

	// Capture/export
	URLKeyword       string `yaml:"urlKeyword"`
	OutputDir        string `yaml:"outputDir"`
	ExportHistoryMax int    `yaml:"exportHistoryMax"`
	HARSanitize      bool   `yaml:"harSanitize"` // mask cookies and auth headers in the host HAR

	// Agent
	ClickIntervalMs int       `yaml:"clickIntervalMs"`
	Selectors       Selectors `yaml:"selectors"`
}

func Default() Config {
	return Config{
		Addr:             ":9092",
		LogLevel:         "info",
		CORSAllowOrigin:  "*",
		TargetURL:        "https://www.xiaohongshu.com/explore",
		URLKeyword:       "feed",
		OutputDir:        ".",
		ExportHistoryMax: 100,
		HARSanitize:      true,
		ClickIntervalMs:  1000,
		Selectors: Selectors{
			FeedContainer: ".feeds-container",
			Cover:         ".cover.ld.mask",
			Item:          ".note-item",
			IndexAttr:     "data-index",
			Close:         ".close-circle",
			DetailMask:    ".note-detail-mask",
		},
	}
}

// FromEnv returns defaults overridden by environment variables.
func FromEnv() Config {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

// Load layers defaults, the YAML file at path (optional) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Addr = getEnv("ADDR", cfg.Addr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DevMode = getEnvBool("DEV_MODE", cfg.DevMode)
	cfg.CORSAllowOrigin = getEnv("CORS_ALLOW_ORIGIN", cfg.CORSAllowOrigin)

	cfg.TargetURL = getEnv("TARGET_URL", cfg.TargetURL)
	cfg.ChromeRemoteURL = getEnv("CHROME_REMOTE_URL", cfg.ChromeRemoteURL)
	cfg.ChromePath = getEnv("CHROME_PATH", cfg.ChromePath)
	cfg.Headless = getEnvBool("HEADLESS", cfg.Headless)
	cfg.UserDataDir = getEnv("USER_DATA_DIR", cfg.UserDataDir)

	// keyword is always matched lower-case
	cfg.URLKeyword = strings.ToLower(getEnv("URL_KEYWORD", cfg.URLKeyword))
	cfg.OutputDir = getEnv("OUTPUT_DIR", cfg.OutputDir)
	cfg.ExportHistoryMax = getEnvInt("EXPORT_HISTORY_MAX", cfg.ExportHistoryMax)
	cfg.HARSanitize = getEnvBool("HAR_SANITIZE", cfg.HARSanitize)

	cfg.ClickIntervalMs = getEnvInt("CLICK_INTERVAL_MS", cfg.ClickIntervalMs)
	s := &cfg.Selectors
	s.FeedContainer = getEnv("SELECTOR_FEED_CONTAINER", s.FeedContainer)
	s.Cover = getEnv("SELECTOR_COVER", s.Cover)
	s.Item = getEnv("SELECTOR_ITEM", s.Item)
	s.IndexAttr = getEnv("SELECTOR_INDEX_ATTR", s.IndexAttr)
	s.Close = getEnv("SELECTOR_CLOSE", s.Close)
	s.DetailMask = getEnv("SELECTOR_DETAIL_MASK", s.DetailMask)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true":
		return true
	case "0", "false":
		return false
	}
	return def
}
