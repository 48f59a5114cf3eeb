// Package config loads application configuration from defaults, an optional
// YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment variables that override configuration keys,
// e.g. SCORECARD_REPORT_LOG_LEVEL sets log.level.
const EnvPrefix = "SCORECARD_REPORT_"

// Token environment variables.
const (
	EnvIncidentIOToken = "INCIDENT_IO_API_TOKEN"
	EnvCortexToken     = "CORTEX_API_TOKEN"
)

// ErrInvalidConfig is returned when configuration is missing or invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the application configuration.
type Config struct {
	Report     ReportConfig     `koanf:"report"`
	IncidentIO IncidentIOConfig `koanf:"incidentio"`
	Cortex     CortexConfig     `koanf:"cortex"`
	Log        LogConfig        `koanf:"log"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Mattermost MattermostConfig `koanf:"mattermost"`
}

// ReportConfig controls the report window and presentation.
type ReportConfig struct {
	LookbackDays    int `koanf:"lookback_days" validate:"gte=1"`
	MaxServices     int `koanf:"max_services" validate:"gte=1"`
	MaxFailingRules int `koanf:"max_failing_rules" validate:"gte=1"`
	// DisplayNames maps scorecard tags to display names; nil keeps the built-in table.
	DisplayNames map[string]string `koanf:"display_names"`
}

// IncidentIOConfig configures the incident.io client.
type IncidentIOConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	Token          string        `koanf:"token" validate:"required"`
	PageSize       int           `koanf:"page_size" validate:"gte=1,lte=250"`
	ServiceFieldID string        `koanf:"service_field_id" validate:"required"`
	Timeout        time.Duration `koanf:"timeout" validate:"gt=0"`
}

// CortexConfig configures the Cortex client.
type CortexConfig struct {
	BaseURL          string        `koanf:"base_url" validate:"required,url"`
	Token            string        `koanf:"token" validate:"required"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	ServicesPageSize int           `koanf:"services_page_size" validate:"gte=1"`
	// TargetScorecards maps scorecard ID fragments to name fragments; nil keeps the built-in targets.
	TargetScorecards    map[string]string `koanf:"target_scorecards"`
	RateLimit           float64           `koanf:"rate_limit" validate:"gte=0"`
	DefinitionCacheSize int               `koanf:"definition_cache_size" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// MetricsConfig configures the optional Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`
	Job            string `koanf:"job" validate:"required_with=PushgatewayURL"`
}

// MattermostConfig configures optional posting of the report to a Mattermost
// incoming webhook. Posting is disabled while WebhookURL is empty.
type MattermostConfig struct {
	WebhookURL string        `koanf:"webhook_url" validate:"omitempty,url"`
	Title      string        `koanf:"title"`
	Username   string        `koanf:"username"`
	IconURL    string        `koanf:"icon_url" validate:"omitempty,url"`
	Channel    string        `koanf:"channel"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Report: ReportConfig{
			LookbackDays:    30,
			MaxServices:     15,
			MaxFailingRules: 5,
		},
		IncidentIO: IncidentIOConfig{
			BaseURL:  "https://api.incident.io/v2",
			PageSize: 250,
			Timeout:  30 * time.Second,
		},
		Cortex: CortexConfig{
			BaseURL:          "https://api.getcortexapp.com/api/v1",
			Timeout:          30 * time.Second,
			ServicesPageSize: 1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Job: "scorecard-report",
		},
		Mattermost: MattermostConfig{
			Title:   "Incident & Service Scorecard Report",
			Timeout: 10 * time.Second,
		},
	}
}

// Load reads configuration from defaults, the YAML file at path (if not empty)
// and environment variables, in increasing order of precedence.
// Returns an error wrapping ErrInvalidConfig if the result does not validate.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: load config file %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: load environment: %v", ErrInvalidConfig, err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps an environment variable to a configuration key.
// Returns an empty string for variables that are not configuration.
func envKey(name string) string {
	switch name {
	case EnvIncidentIOToken:
		return "incidentio.token"
	case EnvCortexToken:
		return "cortex.token"
	}

	if !strings.HasPrefix(name, EnvPrefix) {
		return ""
	}

	section, key, ok := strings.Cut(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "_")
	if !ok || key == "" {
		return ""
	}
	return section + "." + key
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	// Namespace is "Config.section.key"
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}

	switch fe.Tag() {
	case "required":
		switch key {
		case "incidentio.token":
			return fmt.Sprintf("%s is required (set %s)", key, EnvIncidentIOToken)
		case "cortex.token":
			return fmt.Sprintf("%s is required (set %s)", key, EnvCortexToken)
		}
		return key + " is required"
	case "required_with":
		return key + " is required when metrics.pushgateway_url is set"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a valid URL, got %q", key, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s=%s validation, got %v", key, fe.Tag(), fe.Param(), fe.Value())
	}
}
