package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meysamhadeli/repoaudit/cache"
	"github.com/meysamhadeli/repoaudit/code_analyzer"
	"github.com/meysamhadeli/repoaudit/code_analyzer/models"
	"github.com/meysamhadeli/repoaudit/providers"
	"github.com/meysamhadeli/repoaudit/utils"
)

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// CloneConfig configures repository acquisition.
type CloneConfig struct {
	TempDir     string        `mapstructure:"temp_dir"`
	Timeout     time.Duration `mapstructure:"timeout"`
	GithubToken string        `mapstructure:"github_token"`
}

// Config represents the structure of the configuration file
type Config struct {
	Version          string                      `mapstructure:"version"`
	LogLevel         string                      `mapstructure:"log_level"`
	TemplateVersion  string                      `mapstructure:"template_version"`
	Selector         models.SelectorConfig       `mapstructure:"selector"`
	Aggregator       models.AggregatorConfig     `mapstructure:"aggregator"`
	Cache            cache.CacheConfig           `mapstructure:"cache"`
	Server           ServerConfig                `mapstructure:"server"`
	Clone            CloneConfig                 `mapstructure:"clone"`
	AIProviderConfig *providers.AIProviderConfig `mapstructure:"ai_provider_config"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:         "0.3.0",
	LogLevel:        "info",
	TemplateVersion: code_analyzer.TemplateVersion,
	Selector: models.SelectorConfig{
		AllowedExtensions: utils.DefaultAllowedExtensions,
		DeniedDirs:        utils.DefaultDeniedDirs,
		MaxFileSize:       100 * 1024,
		MinFileSize:       0,
		RespectGitignore:  true,
	},
	Aggregator: models.AggregatorConfig{
		Budget:   60000,
		MaxFiles: 0,
	},
	Cache: cache.CacheConfig{
		Enabled: false,
		Dir:     "",
		MaxAge:  24 * time.Hour,
	},
	Server: ServerConfig{
		Addr:           ":8080",
		RequestTimeout: 5 * time.Minute,
	},
	Clone: CloneConfig{
		Timeout: 2 * time.Minute,
	},
	AIProviderConfig: &providers.AIProviderConfig{
		Provider:    providers.OpenAI,
		BaseURL:     "",
		Model:       "gpt-4o-mini",
		Temperature: 0,
		MaxTokens:   500,
		ApiKey:      "",
		Timeout:     2 * time.Minute,
	},
}

const configName = "repoaudit-config"

// LoadConfigs reads .env, the config file, the environment and the CLI flags,
// in increasing order of precedence, and returns the validated result.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// Set default values using Viper
	setDefaults(v)

	// Explicitly bind environment variables to config keys
	bindEnv(v)

	cfgFile := ""
	if rootCmd != nil {
		cfgFile, _ = rootCmd.PersistentFlags().GetString("config")
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if GetConfigFileType(cfgFile) != "" {
			v.SetConfigType(GetConfigFileType(cfgFile))
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(cwd)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Bind CLI flags to override config values
	if rootCmd != nil {
		bindFlags(v, rootCmd)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the pipeline cannot honour.
func (c *Config) Validate() error {
	var errs []error
	if c.Aggregator.Budget <= 0 {
		errs = append(errs, fmt.Errorf("aggregator.budget must be positive, got %d", c.Aggregator.Budget))
	}
	if c.Aggregator.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("aggregator.max_files must not be negative, got %d", c.Aggregator.MaxFiles))
	}
	if c.Selector.MaxFileSize < 0 || c.Selector.MinFileSize < 0 {
		errs = append(errs, errors.New("selector file size limits must not be negative"))
	}
	if c.Selector.MaxFileSize > 0 && c.Selector.MinFileSize > c.Selector.MaxFileSize {
		errs = append(errs, fmt.Errorf("selector.min_file_size %d exceeds max_file_size %d", c.Selector.MinFileSize, c.Selector.MaxFileSize))
	}
	if len(c.Selector.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("selector.allowed_extensions must not be empty"))
	}
	if c.AIProviderConfig == nil {
		errs = append(errs, errors.New("ai_provider_config is required"))
	} else if !providers.IsSupported(c.AIProviderConfig.Provider) {
		errs = append(errs, fmt.Errorf("unknown provider %q, expected one of %v", c.AIProviderConfig.Provider, providers.SupportedProviders))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", level)
	}
	return l, nil
}

// NewLogger builds the stderr text logger for the configured level.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := ParseLogLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", DefaultConfig.Version)
	v.SetDefault("log_level", DefaultConfig.LogLevel)
	v.SetDefault("template_version", DefaultConfig.TemplateVersion)
	v.SetDefault("selector.allowed_extensions", DefaultConfig.Selector.AllowedExtensions)
	v.SetDefault("selector.denied_dirs", DefaultConfig.Selector.DeniedDirs)
	v.SetDefault("selector.max_file_size", DefaultConfig.Selector.MaxFileSize)
	v.SetDefault("selector.min_file_size", DefaultConfig.Selector.MinFileSize)
	v.SetDefault("selector.respect_gitignore", DefaultConfig.Selector.RespectGitignore)
	v.SetDefault("aggregator.budget", DefaultConfig.Aggregator.Budget)
	v.SetDefault("aggregator.max_files", DefaultConfig.Aggregator.MaxFiles)
	v.SetDefault("cache.enabled", DefaultConfig.Cache.Enabled)
	v.SetDefault("cache.dir", DefaultConfig.Cache.Dir)
	v.SetDefault("cache.max_age", DefaultConfig.Cache.MaxAge)
	v.SetDefault("server.addr", DefaultConfig.Server.Addr)
	v.SetDefault("server.request_timeout", DefaultConfig.Server.RequestTimeout)
	v.SetDefault("clone.temp_dir", DefaultConfig.Clone.TempDir)
	v.SetDefault("clone.timeout", DefaultConfig.Clone.Timeout)
	v.SetDefault("clone.github_token", DefaultConfig.Clone.GithubToken)
	v.SetDefault("ai_provider_config.provider", DefaultConfig.AIProviderConfig.Provider)
	v.SetDefault("ai_provider_config.base_url", DefaultConfig.AIProviderConfig.BaseURL)
	v.SetDefault("ai_provider_config.model", DefaultConfig.AIProviderConfig.Model)
	v.SetDefault("ai_provider_config.temperature", DefaultConfig.AIProviderConfig.Temperature)
	v.SetDefault("ai_provider_config.max_tokens", DefaultConfig.AIProviderConfig.MaxTokens)
	v.SetDefault("ai_provider_config.api_key", DefaultConfig.AIProviderConfig.ApiKey)
	v.SetDefault("ai_provider_config.timeout", DefaultConfig.AIProviderConfig.Timeout)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("template_version", "TEMPLATE_VERSION")
	_ = v.BindEnv("aggregator.budget", "BUDGET")
	_ = v.BindEnv("aggregator.max_files", "MAX_FILES")
	_ = v.BindEnv("selector.max_file_size", "MAX_FILE_SIZE")
	_ = v.BindEnv("selector.min_file_size", "MIN_FILE_SIZE")
	_ = v.BindEnv("cache.enabled", "ENABLE_CACHE")
	_ = v.BindEnv("cache.dir", "CACHE_DIR")
	_ = v.BindEnv("server.addr", "ADDR")
	_ = v.BindEnv("clone.temp_dir", "CLONE_TEMP_DIR")
	_ = v.BindEnv("clone.github_token", "GITHUB_TOKEN")
	_ = v.BindEnv("ai_provider_config.provider", "PROVIDER")
	_ = v.BindEnv("ai_provider_config.base_url", "BASE_URL")
	_ = v.BindEnv("ai_provider_config.model", "MODEL")
	_ = v.BindEnv("ai_provider_config.temperature", "TEMPERATURE")
	_ = v.BindEnv("ai_provider_config.max_tokens", "MAX_TOKENS")
	_ = v.BindEnv("ai_provider_config.api_key", "API_KEY", "OPENAI_API_KEY")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(v *viper.Viper, rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("log_level", flags.Lookup("log_level"))
	_ = v.BindPFlag("template_version", flags.Lookup("template_version"))
	_ = v.BindPFlag("aggregator.budget", flags.Lookup("budget"))
	_ = v.BindPFlag("aggregator.max_files", flags.Lookup("max_files"))
	_ = v.BindPFlag("selector.max_file_size", flags.Lookup("max_file_size"))
	_ = v.BindPFlag("selector.min_file_size", flags.Lookup("min_file_size"))
	_ = v.BindPFlag("selector.respect_gitignore", flags.Lookup("respect_gitignore"))
	_ = v.BindPFlag("cache.enabled", flags.Lookup("enable_cache"))
	_ = v.BindPFlag("ai_provider_config.provider", flags.Lookup("provider"))
	_ = v.BindPFlag("ai_provider_config.base_url", flags.Lookup("base_url"))
	_ = v.BindPFlag("ai_provider_config.model", flags.Lookup("model"))
	_ = v.BindPFlag("ai_provider_config.temperature", flags.Lookup("temperature"))
	_ = v.BindPFlag("ai_provider_config.max_tokens", flags.Lookup("max_tokens"))
	_ = v.BindPFlag("ai_provider_config.api_key", flags.Lookup("api_key"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")
	flags.String("log_level", DefaultConfig.LogLevel, "Log level: 'debug', 'info', 'warn' or 'error'.")
	flags.String("template_version", DefaultConfig.TemplateVersion, "Prompt template version.")
	flags.Int("budget", DefaultConfig.Aggregator.Budget, "Character budget for the aggregated source document (about 4 characters per token).")
	flags.Int("max_files", DefaultConfig.Aggregator.MaxFiles, "Maximum number of files to include (0 means unlimited).")
	flags.Int64("max_file_size", DefaultConfig.Selector.MaxFileSize, "Skip files larger than this many bytes (0 means unlimited).")
	flags.Int64("min_file_size", DefaultConfig.Selector.MinFileSize, "Skip files smaller than this many bytes.")
	flags.Bool("respect_gitignore", DefaultConfig.Selector.RespectGitignore, "Skip paths matched by the repository's .gitignore.")
	flags.Bool("enable_cache", DefaultConfig.Cache.Enabled, "Reuse cached replies for identical prompts.")
	flags.String("provider", DefaultConfig.AIProviderConfig.Provider, "The name of the AI provider ('openai' or 'ollama').")
	flags.String("base_url", DefaultConfig.AIProviderConfig.BaseURL, "The base URL of the AI provider (empty uses the provider's own default).")
	flags.String("model", DefaultConfig.AIProviderConfig.Model, "The model used for the audit, such as 'gpt-4o-mini'.")
	flags.Float64("temperature", DefaultConfig.AIProviderConfig.Temperature, "Sampling temperature (0 for deterministic replies).")
	flags.Int("max_tokens", DefaultConfig.AIProviderConfig.MaxTokens, "Maximum reply tokens.")
	flags.String("api_key", DefaultConfig.AIProviderConfig.ApiKey, "The API key used to authenticate with the AI service provider.")

	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}
