// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/car-listing-crawler/internal/logging"
)

// FileEnv names the environment variable that points at an optional config file.
const FileEnv = "CRAWLER_CONFIG_FILE"

// Config captures all crawler configuration knobs loaded via Viper.
type Config struct {
	DB      DBConfig       `mapstructure:"db"`
	Site    SiteConfig     `mapstructure:"site"`
	HTTP    HTTPConfig     `mapstructure:"http"`
	Output  OutputConfig   `mapstructure:"output"`
	PubSub  PubSubConfig   `mapstructure:"pubsub"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Logging logging.Config `mapstructure:"logging"`
}

// DBConfig controls access to the Postgres database.
type DBConfig struct {
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// SiteConfig describes the crawled listing site.
type SiteConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	PageSize        int    `mapstructure:"page_size"`
	ListingSelector string `mapstructure:"listing_selector"`
	MaxPages        int    `mapstructure:"max_pages"`
	ResolvePhone    bool   `mapstructure:"resolve_phone"`
	PhoneEndpoint   string `mapstructure:"phone_endpoint"`
}

// HTTPConfig configures the shared HTTP fetcher.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxParallel    int    `mapstructure:"max_parallel"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
}

// OutputConfig sets where dump files are archived.
type OutputConfig struct {
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// PubSubConfig holds metadata for dump notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig configures the optional Pushgateway push at exit.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	JobName        string `mapstructure:"job_name"`
}

// legacyEnv maps keys to the variable names used by earlier deployments.
var legacyEnv = map[string]string{
	"db.name":       "POSTGRESS_DATABASE",
	"db.user":       "POSTGRESS_USER",
	"db.password":   "POSTGRESS_PASSWORD",
	"db.host":       "POSTGRESS_HOST",
	"db.port":       "POSTGRESS_PORT",
	"site.base_url": "URL",
	"output.dir":    "DATA",
}

// LoadDotEnv exports variables from the given .env files (default ".env").
// Missing files are ignored; variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, legacy := range legacyEnv {
		prefixed := "CRAWLER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.name", "")
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.host", "")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.table", "car_data")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("site.base_url", "")
	v.SetDefault("site.page_size", 100)
	v.SetDefault("site.listing_selector", "div.item.ticket-title")
	v.SetDefault("site.max_pages", 0)
	v.SetDefault("site.resolve_phone", false)
	v.SetDefault("site.phone_endpoint", "https://auto.ria.com/users/phones")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "car-listing-crawler/0.1")
	v.SetDefault("http.max_parallel", 0)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("output.dir", "data")
	v.SetDefault("output.gcs_bucket", "")
	v.SetDefault("output.gcs_prefix", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job_name", "carcrawler")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	var errs []error
	if c.DB.Name == "" {
		errs = append(errs, fmt.Errorf("db.name is required"))
	}
	if c.DB.User == "" {
		errs = append(errs, fmt.Errorf("db.user is required"))
	}
	if c.DB.Host == "" {
		errs = append(errs, fmt.Errorf("db.host is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("db.port must be between 1 and 65535, got %d", c.DB.Port))
	}
	if err := validateBaseURL(c.Site.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.Site.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("site.page_size must be > 0"))
	}
	if c.Site.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("site.max_pages must be >= 0"))
	}
	if c.Site.ResolvePhone && c.Site.PhoneEndpoint == "" {
		errs = append(errs, fmt.Errorf("site.phone_endpoint must be set when resolve_phone is enabled"))
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("http.timeout_seconds must be > 0"))
	}
	if c.HTTP.MaxParallel < 0 {
		errs = append(errs, fmt.Errorf("http.max_parallel must be >= 0"))
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		errs = append(errs, fmt.Errorf("output.dir is required"))
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		errs = append(errs, fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is"))
	}
	return errors.Join(errs...)
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("site.base_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("site.base_url is invalid: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("site.base_url must be an absolute http(s) URL, got %q", raw)
	}
	return nil
}

// DSN renders the Postgres connection string.
func (d DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// Timeout converts the per-request timeout to a duration.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}
