// Package config loads tgctl settings from a YAML/JSON file and TG_
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/teselagen-client/pkg/build"
	"github.com/Sternrassler/teselagen-client/pkg/client"
	"github.com/Sternrassler/teselagen-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TG_HOST_URL
// or TG_REDIS_ADDR.
const EnvPrefix = "TG"

// Config is the resolved configuration.
type Config struct {
	HostURL         string
	APITokenName    string
	Module          string
	CredentialsFile string
	Credentials     client.Credentials
	Lab             string
	PageSize        int
	Timeout         time.Duration
	MaxRetries      int
	Redis           *Redis
	Logger          *Logger
}

// Redis enables the shared response cache when Addr is set.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Logger configures pkg/logging.
type Logger struct {
	Level  string
	Pretty bool
}

// Load reads configPath (optional) and overlays the environment.
// Credentials given directly win over the credentials file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		HostURL:         v.GetString("host_url"),
		APITokenName:    v.GetString("api_token_name"),
		Module:          v.GetString("module"),
		CredentialsFile: v.GetString("credentials_file"),
		Lab:             v.GetString("lab"),
		PageSize:        v.GetInt("page_size"),
		Timeout:         v.GetDuration("timeout"),
		MaxRetries:      v.GetInt("max_retries"),
		Redis:           getRedisConfig(v),
		Logger:          getLoggerConfig(v),
	}

	creds, err := getCredentials(v, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	cfg.Credentials = creds

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host_url", client.DefaultHostURL)
	v.SetDefault("api_token_name", client.DefaultAPITokenName)
	v.SetDefault("module", client.DefaultModuleName)
	v.SetDefault("credentials_file", "")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("api_key", "")
	v.SetDefault("lab", "")
	v.SetDefault("page_size", build.DefaultPageSize)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("max_retries", 3)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", string(logging.LevelInfo))
	v.SetDefault("log.pretty", false)
}

func getRedisConfig(v *viper.Viper) *Redis {
	return &Redis{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
}

func getLoggerConfig(v *viper.Viper) *Logger {
	return &Logger{
		Level:  v.GetString("log.level"),
		Pretty: v.GetBool("log.pretty"),
	}
}

func getCredentials(v *viper.Viper, credentialsFile string) (client.Credentials, error) {
	var creds client.Credentials
	if credentialsFile != "" {
		fromFile, err := client.LoadCredentialsFile(credentialsFile)
		if err != nil {
			return client.Credentials{}, err
		}
		creds = fromFile
	}

	if username := v.GetString("username"); username != "" {
		creds.Username = username
	}
	if password := v.GetString("password"); password != "" {
		creds.Password = password
	}
	if apiKey := v.GetString("api_key"); apiKey != "" {
		creds.APIKey = apiKey
	}
	return creds, nil
}

func (c *Config) validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be >= 1 (got %d)", c.PageSize)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be >= 1 (got %d)", c.MaxRetries)
	}
	if _, err := logging.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ClientConfig converts c for client.New. rdb may be nil.
func (c *Config) ClientConfig(rdb *redis.Client) client.Config {
	cfg := client.DefaultConfig()
	cfg.HostURL = c.HostURL
	cfg.APITokenName = c.APITokenName
	cfg.ModuleName = c.Module
	cfg.Credentials = c.Credentials
	cfg.MaxRetries = c.MaxRetries
	cfg.Redis = rdb
	if c.Timeout > 0 {
		cfg.HTTPClient.Timeout = c.Timeout
	}
	return cfg
}

// LoggingConfig converts c for logging.Setup.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(strings.ToLower(c.Logger.Level))
	cfg.Pretty = c.Logger.Pretty
	return cfg
}

// RedisClient returns a client for the configured Redis, or nil when no
// address is set. The caller closes it.
func (c *Config) RedisClient() *redis.Client {
	if c.Redis == nil || c.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
}

// LabSelector interprets Lab as an id when it is numeric, else as a name.
func (c *Config) LabSelector() client.LabSelector {
	if c.Lab == "" {
		return client.LabSelector{}
	}
	if strings.Trim(c.Lab, "0123456789") == "" {
		return client.LabSelector{ID: c.Lab}
	}
	return client.LabSelector{Name: c.Lab}
}
