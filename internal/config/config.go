package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/policy"
	"gopkg.in/yaml.v3"
)

type GlobalFlags struct {
	ConfigPath  string
	JSON        bool
	Plain       bool
	Select      string
	ResultsOnly bool
	User        string
	Verbose     bool
}

type Settings struct {
	OutputMode    string
	SelectFields  []string
	ResultsOnly   bool
	UserID        string
	LogLevel      slog.Level
	StorePath     string
	StoreLockPath string
	Policy        policy.Policy
}

type fileConfig struct {
	Output   string `yaml:"output"`
	User     string `yaml:"user"`
	LogLevel string `yaml:"log_level"`
	Store    struct {
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"store"`
	Policy *policyConfig `yaml:"policy"`
}

// policyConfig overlays the policy. Section pointers are seeded with the
// current values before decoding, so keys absent from a present section keep
// their defaults.
type policyConfig struct {
	Ranks        []policy.RankTier    `yaml:"ranks"`
	Achievements *policy.Achievements `yaml:"achievements"`
	Risk         *policy.Risk         `yaml:"risk"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	if err := applyEnv(&settings); err != nil {
		return Settings{}, err
	}

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if strings.TrimSpace(settings.UserID) == "" {
		settings.UserID = "default"
	}
	if err := settings.Policy.Validate(); err != nil {
		return Settings{}, fmt.Errorf("config policy: %w", err)
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	storePath, lockPath, err := defaultStorePaths()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:    "json",
		UserID:        "default",
		LogLevel:      slog.LevelWarn,
		StorePath:     storePath,
		StoreLockPath: lockPath,
		Policy:        policy.Default(),
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "missions", "config.yaml"), nil
}

func defaultStorePaths() (string, string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	dir := filepath.Join(base, "missions")
	return filepath.Join(dir, "missions.db"), filepath.Join(dir, "missions.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	achievements := settings.Policy.Achievements
	risk := settings.Policy.Risk
	cfg := fileConfig{Policy: &policyConfig{Achievements: &achievements, Risk: &risk}}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.User != "" {
		settings.UserID = strings.TrimSpace(cfg.User)
	}
	if cfg.LogLevel != "" {
		lvl, err := parseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("config log_level: %w", err)
		}
		settings.LogLevel = lvl
	}
	if cfg.Store.Path != "" {
		settings.StorePath = cfg.Store.Path
	}
	if cfg.Store.LockPath != "" {
		settings.StoreLockPath = cfg.Store.LockPath
	}
	if cfg.Policy != nil {
		if len(cfg.Policy.Ranks) > 0 {
			settings.Policy.Ranks = cfg.Policy.Ranks
		}
		if cfg.Policy.Achievements != nil {
			settings.Policy.Achievements = *cfg.Policy.Achievements
		}
		if cfg.Policy.Risk != nil {
			settings.Policy.Risk = *cfg.Policy.Risk
		}
	}

	return nil
}

func applyEnv(settings *Settings) error {
	if v := os.Getenv("MISSIONS_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("MISSIONS_USER"); v != "" {
		settings.UserID = strings.TrimSpace(v)
	}
	if v := os.Getenv("MISSIONS_LOG_LEVEL"); v != "" {
		lvl, err := parseLevel(v)
		if err != nil {
			return fmt.Errorf("MISSIONS_LOG_LEVEL: %w", err)
		}
		settings.LogLevel = lvl
	}
	if v := os.Getenv("MISSIONS_STORE_PATH"); v != "" {
		settings.StorePath = v
	}
	if v := os.Getenv("MISSIONS_STORE_LOCK_PATH"); v != "" {
		settings.StoreLockPath = v
	}
	return nil
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if strings.TrimSpace(flags.Select) != "" {
		parts := strings.Split(flags.Select, ",")
		fields := make([]string, 0, len(parts))
		for _, part := range parts {
			f := strings.TrimSpace(part)
			if f != "" {
				fields = append(fields, f)
			}
		}
		settings.SelectFields = fields
	}
	settings.ResultsOnly = flags.ResultsOnly
	if strings.TrimSpace(flags.User) != "" {
		settings.UserID = strings.TrimSpace(flags.User)
	}
	if flags.Verbose {
		settings.LogLevel = slog.LevelDebug
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}

	return nil
}

func parseLevel(raw string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return 0, err
	}
	return lvl, nil
}
