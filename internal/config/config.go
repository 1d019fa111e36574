package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Log       `mapstructure:"log"       validate:"required"`
	Telemetry Telemetry `mapstructure:"telemetry" validate:"required"`
	HTTP      HTTP      `mapstructure:"http"      validate:"required"`
	Providers Providers `mapstructure:"providers" validate:"required"`
	Batch     Batch     `mapstructure:"batch"`
}

type Log struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogDir   string `mapstructure:"log_dir"`
}

type Telemetry struct {
	Enabled     bool              `mapstructure:"enabled"`
	Exporter    string            `mapstructure:"exporter"     validate:"omitempty,oneof=otlp stdout none"`
	Endpoint    string            `mapstructure:"endpoint"`
	Protocol    string            `mapstructure:"protocol"     validate:"omitempty,oneof=grpc http"`
	Insecure    bool              `mapstructure:"insecure"`
	Headers     map[string]string `mapstructure:"headers"`
	ServiceName string            `mapstructure:"service_name"`
}

type HTTP struct {
	Timeout   time.Duration `mapstructure:"timeout"    validate:"required,gt=0"`
	UserAgent string        `mapstructure:"user_agent"`
}

// Provider is one outbound data source. A disabled provider behaves as if it
// returned no data.
type Provider struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey  string `mapstructure:"api_key"  json:"-"`
}

type Providers struct {
	KeywordService Provider `mapstructure:"keyword_service"`
	FDA            Provider `mapstructure:"fda"`
	USDA           Provider `mapstructure:"usda"`
	EPA            Provider `mapstructure:"epa"`
	Census         Provider `mapstructure:"census"`
}

func (p Providers) byName() map[string]Provider {
	return map[string]Provider{
		"keyword_service": p.KeywordService,
		"fda":             p.FDA,
		"usda":            p.USDA,
		"epa":             p.EPA,
		"census":          p.Census,
	}
}

type Batch struct {
	Workers int    `mapstructure:"workers" validate:"min=1,max=64"`
	Output  string `mapstructure:"output"`

	// RowsPerSecond paces row dispatch; 0 means unlimited.
	RowsPerSecond float64 `mapstructure:"rows_per_second" validate:"gte=0"`
}

// Defaults applies the built-in defaults to v. Exposed so tests and callers
// that build a viper instance by hand see the same values as Load.
func Defaults(v *viper.Viper) {
	v.SetDefault("log.log_level", "info")
	v.SetDefault("log.log_dir", "logs")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.protocol", "grpc")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "requirements-collector")
	v.SetDefault("http.timeout", time.Duration(30)*time.Second)
	v.SetDefault("http.user_agent", "requirements-collector/1.0")
	// api_key defaults exist so REQ_PROVIDERS_*_API_KEY is seen by Unmarshal.
	for _, name := range []string{"keyword_service", "fda", "usda", "epa", "census"} {
		v.SetDefault("providers."+name+".api_key", "")
	}
	v.SetDefault("providers.keyword_service.enabled", false)
	v.SetDefault("providers.keyword_service.base_url", "http://localhost:8000")
	v.SetDefault("providers.fda.enabled", true)
	v.SetDefault("providers.fda.base_url", "https://api.fda.gov")
	v.SetDefault("providers.usda.enabled", true)
	v.SetDefault("providers.usda.base_url", "https://api.nal.usda.gov/fdc/v1")
	v.SetDefault("providers.usda.api_key", "DEMO_KEY")
	v.SetDefault("providers.epa.enabled", true)
	v.SetDefault("providers.epa.base_url", "https://api-ccte.epa.gov")
	v.SetDefault("providers.census.enabled", true)
	v.SetDefault("providers.census.base_url", "https://api.census.gov/data")
	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.output", "./requirements.jsonl")
	v.SetDefault("batch.rows_per_second", 0)
}

// Load reads the config file (if any), REQ_* environment variables and the
// given flags, in increasing precedence. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix("REQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.requirements-collector")
		v.AddConfigPath("/etc/requirements-collector")
		v.SetConfigType("yaml")
	}

	Defaults(v)

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if !strings.Contains(f.Name, ".") {
				return
			}
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("config read error: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal error: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("validation failed: %w", err)
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Exporter == "otlp" && cfg.Telemetry.Endpoint == "" {
		return Config{}, fmt.Errorf("telemetry.endpoint is required when using otlp exporter")
	}
	for name, p := range cfg.Providers.byName() {
		if p.Enabled && p.BaseURL == "" {
			return Config{}, fmt.Errorf("providers.%s.base_url is required when enabled", name)
		}
	}
	return cfg, nil
}

// FromViper decodes and validates a prepared viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	return decode(v)
}
