package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultHTTPAddr       = ":8080"
	defaultDatabaseURL    = "foodorder.db"
	defaultJWTSecret      = "change-me-jwt-secret"
	defaultCountry        = "BG"
	defaultTimezone       = "Europe/Sofia"
	defaultLang           = "BG"
	defaultDescription    = "Food order"
	defaultRateLimitRPS   = 1.0
	defaultRateLimitBurst = 5
	defaultPendingAge     = "30m"
	defaultKafkaTopic     = "orders.settled"
	defaultMetricsPush    = "10s"
)

// Gateway holds the BORICA merchant settings. None of the financial
// values has a default.
type Gateway struct {
	URL                  string
	Terminal             string
	MerchantID           string
	MerchantName         string
	MerchantURL          string
	BackRef              string
	SuccessURL           string
	FailureURL           string
	Country              string
	// MerchGMT pins MERCH_GMT; empty derives it from Timezone per request.
	MerchGMT             string
	Timezone             string
	Currency             string
	Lang                 string
	Description          string
	PrivateKeyPath       string
	PrivateKeyPassphrase string
	PublicKeyPath        string
}

type Metrics struct {
	PushURL      string
	PushInterval time.Duration
	CommonLabels string
	// Token and AllowedIPs guard GET /metrics; both empty leaves it open.
	Token      string
	AllowedIPs []string
}

type Kafka struct {
	Brokers []string
	Topic   string
}

type RateLimit struct {
	RPS   float64
	Burst int
}

type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string
	JWTSecret   string
	LogLevel    string
	LokiURL     string
	CORSOrigins []string
	PendingAge  time.Duration

	Gateway   Gateway
	Metrics   Metrics
	Kafka     Kafka
	RateLimit RateLimit
}

// Load reads .env (if present), an optional config.yaml from dir, and the
// environment. Environment variables win; a YAML key like gateway.terminal
// maps to GATEWAY_TERMINAL.
func Load(dir string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("http.addr", defaultHTTPAddr)
	v.SetDefault("database.url", defaultDatabaseURL)
	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("log.level", "info")
	v.SetDefault("ops.pending.age", defaultPendingAge)
	v.SetDefault("gateway.country", defaultCountry)
	v.SetDefault("gateway.timezone", defaultTimezone)
	v.SetDefault("gateway.lang", defaultLang)
	v.SetDefault("gateway.description", defaultDescription)
	v.SetDefault("kafka.topic", defaultKafkaTopic)
	v.SetDefault("metrics.push.interval", defaultMetricsPush)
	v.SetDefault("ratelimit.rps", defaultRateLimitRPS)
	v.SetDefault("ratelimit.burst", defaultRateLimitBurst)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppEnv:      strings.ToLower(trimmed(v, "app.env")),
		HTTPAddr:    trimmed(v, "http.addr"),
		DatabaseURL: trimmed(v, "database.url"),
		JWTSecret:   trimmed(v, "jwt.secret"),
		LogLevel:    trimmed(v, "log.level"),
		LokiURL:     trimmed(v, "loki.url"),
		CORSOrigins: splitList(v.GetString("cors.origins")),
		Gateway: Gateway{
			URL:                  trimmed(v, "gateway.url"),
			Terminal:             trimmed(v, "gateway.terminal"),
			MerchantID:           trimmed(v, "gateway.merchant.id"),
			MerchantName:         trimmed(v, "gateway.merchant.name"),
			MerchantURL:          trimmed(v, "gateway.merchant.url"),
			BackRef:              trimmed(v, "gateway.backref"),
			SuccessURL:           trimmed(v, "gateway.success.url"),
			FailureURL:           trimmed(v, "gateway.failure.url"),
			Country:              trimmed(v, "gateway.country"),
			MerchGMT:             trimmed(v, "gateway.merch.gmt"),
			Timezone:             trimmed(v, "gateway.timezone"),
			Currency:             strings.ToUpper(trimmed(v, "gateway.currency")),
			Lang:                 strings.ToUpper(trimmed(v, "gateway.lang")),
			Description:          trimmed(v, "gateway.description"),
			PrivateKeyPath:       trimmed(v, "gateway.private.key.path"),
			PrivateKeyPassphrase: v.GetString("gateway.private.key.passphrase"),
			PublicKeyPath:        trimmed(v, "gateway.public.key.path"),
		},
		Metrics: Metrics{
			PushURL:      trimmed(v, "metrics.push.url"),
			CommonLabels: trimmed(v, "metrics.common.labels"),
			Token:        trimmed(v, "metrics.token"),
			AllowedIPs:   splitList(v.GetString("metrics.allowed.ips")),
		},
		Kafka: Kafka{
			Brokers: splitList(v.GetString("kafka.brokers")),
			Topic:   trimmed(v, "kafka.topic"),
		},
		RateLimit: RateLimit{
			RPS:   v.GetFloat64("ratelimit.rps"),
			Burst: v.GetInt("ratelimit.burst"),
		},
	}

	var err error
	if cfg.PendingAge, err = parseDuration(v, "ops.pending.age"); err != nil {
		return nil, err
	}
	if cfg.Metrics.PushInterval, err = parseDuration(v, "metrics.push.interval"); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	slog.Info("config loaded",
		"app_env", cfg.AppEnv,
		"http_addr", cfg.HTTPAddr,
		"terminal", cfg.Gateway.Terminal,
		"gateway_url", cfg.Gateway.URL,
		"kafka", len(cfg.Kafka.Brokers) > 0,
	)
	return cfg, nil
}

// ErrMissing is wrapped by every validation failure caused by an unset value.
var ErrMissing = errors.New("missing required config")

func validateConfig(cfg *Config) error {
	if err := cfg.Gateway.Validate(); err != nil {
		return err
	}
	if cfg.RateLimit.RPS <= 0 {
		return fmt.Errorf("RATELIMIT_RPS must be > 0")
	}
	if cfg.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATELIMIT_BURST must be > 0")
	}
	if cfg.PendingAge <= 0 {
		return fmt.Errorf("OPS_PENDING_AGE must be > 0")
	}
	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("%w: in prod/release JWT_SECRET must be set and not default", ErrMissing)
		}
		if !strings.HasPrefix(cfg.Gateway.BackRef, "https://") {
			return fmt.Errorf("in prod/release GATEWAY_BACKREF must be https")
		}
	}
	return nil
}

// Validate fails on any unset financial field, in every environment.
func (g Gateway) Validate() error {
	required := []struct {
		env, value string
	}{
		{"GATEWAY_URL", g.URL},
		{"GATEWAY_TERMINAL", g.Terminal},
		{"GATEWAY_MERCHANT_ID", g.MerchantID},
		{"GATEWAY_MERCHANT_NAME", g.MerchantName},
		{"GATEWAY_MERCHANT_URL", g.MerchantURL},
		{"GATEWAY_BACKREF", g.BackRef},
		{"GATEWAY_SUCCESS_URL", g.SuccessURL},
		{"GATEWAY_FAILURE_URL", g.FailureURL},
		{"GATEWAY_COUNTRY", g.Country},
		{"GATEWAY_CURRENCY", g.Currency},
		{"GATEWAY_PRIVATE_KEY_PATH", g.PrivateKeyPath},
		{"GATEWAY_PUBLIC_KEY_PATH", g.PublicKeyPath},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	if len(g.Terminal) != 8 {
		return fmt.Errorf("GATEWAY_TERMINAL must be 8 characters, got %q", g.Terminal)
	}
	if len(g.Currency) != 3 {
		return fmt.Errorf("GATEWAY_CURRENCY must be an ISO 4217 code, got %q", g.Currency)
	}
	if g.MerchGMT == "" {
		if _, err := g.Location(); err != nil {
			return fmt.Errorf("GATEWAY_TIMEZONE: %w", err)
		}
	}
	return nil
}

// Location resolves Timezone; used for MERCH_GMT when MerchGMT is unset.
func (g Gateway) Location() (*time.Location, error) {
	if g.Timezone == "" {
		return nil, fmt.Errorf("%w: GATEWAY_TIMEZONE or GATEWAY_MERCH_GMT", ErrMissing)
	}
	return time.LoadLocation(g.Timezone)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	t := strings.TrimSpace(v)
	return t == "" || t == def
}

func trimmed(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := trimmed(v, key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", envName(key), raw, err)
	}
	return d, nil
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
