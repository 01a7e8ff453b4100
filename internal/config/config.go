package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration required by the gateway process.
// Values come from an optional YAML file (CONFIG_FILE) overlaid by the environment.
// It is built once at startup and passed into components; nothing reads env after Load.
type Config struct {
	App       AppConfig
	Exotel    ExotelConfig
	Numbers   NumbersConfig
	Routing   RoutingConfig
	Server    ServerConfig
	SelfTest  SelfTestConfig
	Notify    NotifyConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type ExotelConfig struct {
	AccountSID string
	APIKey     string
	APIToken   string
	Subdomain  string

	// Timeout bounds a single outbound provider request.
	Timeout time.Duration
}

type NumbersConfig struct {
	From        string
	CallerID    string
	Destination string
}

// RoutingConfig holds the two counterpart parties and the fallback target.
type RoutingConfig struct {
	Primary   string
	Secondary string
	Default   string
}

type ServerConfig struct {
	// PublicURL is this service's externally reachable base URL.
	PublicURL string
}

type SelfTestConfig struct {
	Enabled bool
	Delay   time.Duration
	// Dial chains a real outbound call after a successful self-test.
	Dial bool
}

type NotifyConfig struct {
	Sink string

	AMQPURL      string
	AMQPExchange string

	RedisAddr    string
	RedisChannel string
}

type TelemetryConfig struct {
	Enabled     bool
	ServiceName string
}

const (
	SinkNone  = "none"
	SinkAMQP  = "amqp"
	SinkRedis = "redis"
)

func Load() (Config, error) {
	k := koanf.New(".")

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	// Empty variables are skipped so they do not blank out file values.
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	}), nil); err != nil {
		return Config{}, err
	}
	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = str(k, "app_env")
	{
		n, err := optInt(k, "port", 3000)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Exotel.AccountSID = str(k, "exotel_sid")
	c.Exotel.APIKey = str(k, "exotel_api_key")
	c.Exotel.APIToken = k.String("exotel_api_token")
	c.Exotel.Subdomain = str(k, "exotel_subdomain")
	{
		d, err := optDuration(k, "exotel_timeout")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Exotel.Timeout = d
	}

	c.Numbers.From = str(k, "from_number")
	c.Numbers.CallerID = str(k, "caller_id")
	c.Numbers.Destination = str(k, "to_number")

	c.Routing.Primary = firstNonEmpty(str(k, "primary_number"), c.Numbers.From)
	c.Routing.Secondary = firstNonEmpty(str(k, "secondary_number"), c.Numbers.Destination)
	c.Routing.Default = firstNonEmpty(str(k, "default_number"), c.Numbers.Destination)

	c.Server.PublicURL = strings.TrimRight(str(k, "server_endpoint"), "/")

	{
		b, err := optBool(k, "self_test_enabled", true)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.SelfTest.Enabled = b
	}
	{
		d, err := optDuration(k, "self_test_delay")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.SelfTest.Delay = d
	}
	{
		b, err := optBool(k, "self_test_dial", false)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.SelfTest.Dial = b
	}

	c.Notify.Sink = strings.ToLower(str(k, "notify_sink"))
	c.Notify.AMQPURL = k.String("amqp_url")
	c.Notify.AMQPExchange = str(k, "amqp_exchange")
	c.Notify.RedisAddr = str(k, "redis_addr")
	c.Notify.RedisChannel = str(k, "redis_channel")

	{
		b, err := optBool(k, "tracing_enabled", false)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Telemetry.Enabled = b
	}
	c.Telemetry.ServiceName = str(k, "tracing_service_name")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate applies defaults in place and reports invalid values.
// Missing provider credentials are deliberately not errors; see MissingProviderKeys.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		c.App.Env = "local"
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Exotel.Timeout < 0 {
		errs = append(errs, errors.New("EXOTEL_TIMEOUT must not be negative"))
	} else if c.Exotel.Timeout == 0 {
		c.Exotel.Timeout = 30 * time.Second
	}

	if c.SelfTest.Delay < 0 {
		errs = append(errs, errors.New("SELF_TEST_DELAY must not be negative"))
	} else if c.SelfTest.Delay == 0 {
		c.SelfTest.Delay = 2 * time.Second
	}

	switch c.Notify.Sink {
	case "":
		c.Notify.Sink = SinkNone
	case SinkNone:
	case SinkAMQP:
		if c.Notify.AMQPURL == "" {
			errs = append(errs, errors.New("AMQP_URL is required when NOTIFY_SINK=amqp"))
		}
		if c.Notify.AMQPExchange == "" {
			c.Notify.AMQPExchange = "calls"
		}
	case SinkRedis:
		if c.Notify.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when NOTIFY_SINK=redis"))
		}
		if c.Notify.RedisChannel == "" {
			c.Notify.RedisChannel = "call-status"
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_SINK must be one of none, amqp, redis, got %q", c.Notify.Sink))
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "call-gateway"
	}

	return joinErrors(errs)
}

// MissingProviderKeys lists the settings the initiator and self-test need but that are unset.
func (c Config) MissingProviderKeys() []string {
	var out []string
	check := func(key, v string) {
		if v == "" {
			out = append(out, key)
		}
	}
	check("EXOTEL_SID", c.Exotel.AccountSID)
	check("EXOTEL_API_KEY", c.Exotel.APIKey)
	check("EXOTEL_API_TOKEN", c.Exotel.APIToken)
	check("EXOTEL_SUBDOMAIN", c.Exotel.Subdomain)
	check("FROM_NUMBER", c.Numbers.From)
	check("CALLER_ID", c.Numbers.CallerID)
	check("TO_NUMBER", c.Numbers.Destination)
	check("SERVER_ENDPOINT", c.Server.PublicURL)
	return out
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func str(k *koanf.Koanf, key string) string {
	return strings.TrimSpace(k.String(key))
}

func optInt(k *koanf.Koanf, key string, def int) (int, error) {
	v := str(k, key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", strings.ToUpper(key), v)
	}
	return n, nil
}

func optBool(k *koanf.Koanf, key string, def bool) (bool, error) {
	v := str(k, key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a boolean, got %q", strings.ToUpper(key), v)
	}
	return b, nil
}

func optDuration(k *koanf.Koanf, key string) (time.Duration, error) {
	v := str(k, key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", strings.ToUpper(key), v)
	}
	return d, nil
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
