package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/config"
	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/telemetry"
)

var (
	cfgFile  string
	cfg      config.Config
	logger   *zap.SugaredLogger
	tracer   trace.Tracer
	meter    metric.Meter
	shutdown telemetry.Shutdown
	services *internal.Services
	Version  = "dev" // Set at build time: go build -ldflags "-X github.com/Qubut/IP-Claim/packages/requirements_collector/cmd.Version=v1.0.0"
)

var RootCmd = &cobra.Command{
	Use:           "requirements-collector",
	Short:         "Collect U.S. regulatory requirements for a product",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// REQ_* API keys may live in a local .env file.
		_ = godotenv.Load()
		var err error
		cfg, err = config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFile := ""
		if logDir := cfg.Log.LogDir; logDir != "" {
			if err := os.MkdirAll(logDir, 0o755); err != nil {
				return fmt.Errorf("create log directory: %w", err)
			}
			logFile = filepath.Join(logDir,
				fmt.Sprintf("requirements-collector[%s].log", time.Now().Format("20060102-150405")))
		}

		teleCfg := telemetry.Config{
			Enabled:     cfg.Telemetry.Enabled,
			ServiceName: cfg.Telemetry.ServiceName,
			Version:     Version,
			Exporter:    cfg.Telemetry.Exporter,
			Endpoint:    cfg.Telemetry.Endpoint,
			Protocol:    cfg.Telemetry.Protocol,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     cfg.Telemetry.Headers,
			LogFile:     logFile,
			LogLevel:    cfg.Log.LogLevel,
		}
		tracer, meter, logger, shutdown, err = telemetry.InitOTEL(teleCfg)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		services, err = internal.InitServices(cfg, tracer, logger, meter)
		if err != nil {
			return fmt.Errorf("init services: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Errorw("shutdown error", "err", err)
				return err
			}
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of requirements-collector",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config operations",
}

var printFormat string

// API keys carry `json:"-"`, so they never appear in this output. YAML is
// rendered from the JSON form to keep that redaction.
var printConfigCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the current loaded configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		switch printFormat {
		case "json":
		case "yaml":
			var tree map[string]any
			if err := json.Unmarshal(data, &tree); err != nil {
				return fmt.Errorf("convert config: %w", err)
			}
			if data, err = yaml.Marshal(tree); err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
		default:
			return fmt.Errorf("unknown format %q (json|yaml)", printFormat)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "Path to config file (yaml/json/toml)")

	// Dotted names map onto config keys, with "-" read as "_".
	type flagDef struct {
		name, def, usage string
	}
	flags := []flagDef{
		{"log.log-level", "info", "Log level (debug/info/warn/error)"},
		{"log.log-dir", "logs", "Directory for JSON log files (empty disables file logging)"},
		{"telemetry.enabled", "false", "Enable OpenTelemetry export"},
		{"telemetry.exporter", "none", "Telemetry exporter (otlp|stdout|none)"},
		{"telemetry.endpoint", "localhost:4317", "OTLP endpoint (host:port)"},
		{"telemetry.protocol", "grpc", "OTLP protocol (grpc|http)"},
		{"telemetry.insecure", "true", "Allow insecure OTLP connection"},
		{"telemetry.service-name", "requirements-collector", "Service name for telemetry"},
		{"http.timeout", "30s", "Per-request timeout for outbound calls (duration)"},
		{"http.user-agent", "requirements-collector/1.0", "User-Agent sent to providers"},
		{"providers.keyword-service.enabled", "false", "Use the keyword extraction service"},
		{"providers.keyword-service.base-url", "http://localhost:8000", "Keyword extraction service base URL"},
		{"providers.fda.enabled", "true", "Query openFDA food enforcement"},
		{"providers.fda.base-url", "https://api.fda.gov", "openFDA base URL"},
		{"providers.usda.enabled", "true", "Query USDA FoodData Central"},
		{"providers.usda.base-url", "https://api.nal.usda.gov/fdc/v1", "USDA FoodData Central base URL"},
		{"providers.epa.enabled", "true", "Query EPA CompTox chemicals"},
		{"providers.epa.base-url", "https://api-ccte.epa.gov", "EPA CompTox base URL"},
		{"providers.census.enabled", "true", "Query Census international trade"},
		{"providers.census.base-url", "https://api.census.gov/data", "Census API base URL"},
		{"batch.workers", "4", "Concurrent pipeline runs in batch mode"},
		{"batch.output", "./requirements.jsonl", "Batch output path (JSON lines)"},
		{"batch.rows-per-second", "0", "Pace batch rows per second (0 = unlimited)"},
	}
	for _, f := range flags {
		RootCmd.PersistentFlags().String(f.name, f.def, f.usage)
	}

	printConfigCmd.Flags().StringVar(&printFormat, "format", "json", "Output format (json|yaml)")
	configCmd.AddCommand(printConfigCmd)

	RootCmd.AddCommand(collectCmd)
	RootCmd.AddCommand(batchCmd)
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(configCmd)
}
