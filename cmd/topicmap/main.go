package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/topicmap"
	"github.com/bft-labs/topicmap/internal/adapters/metrics"
	"github.com/bft-labs/topicmap/internal/adapters/sink"
	"github.com/bft-labs/topicmap/internal/app"
	"github.com/bft-labs/topicmap/internal/cliconfig"
	"github.com/bft-labs/topicmap/internal/domain"
	"github.com/bft-labs/topicmap/internal/mapping"
	tmlog "github.com/bft-labs/topicmap/pkg/log"
)

const longHelp = `Map topic-addressed messages to time-series records.

Each input line is "<topic><separator><payload>". Every [[mapping]] registered
for the topic resolves a value from the payload (the whole payload, a JSON key,
a JSON path or a formula over JSON values), converts it to the declared type
and emits one record, or two for signed mappings.

Records are written to stdout as InfluxDB line protocol or JSON lines.`

var exampleUsage = strings.TrimSpace(`
  mosquitto_sub -v -t 'sensors/#' | topicmap --config ./topicmap.toml
  topicmap --config ./topicmap.toml --input messages.txt --output json
  topicmap topics
  topicmap describe sensors/temp
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		tmlog.NewZerologAdapter(tmlog.ParseLevel(os.Getenv("TOPICMAP_LOG_LEVEL"))).Error("topicmap", tmlog.Err(err))
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "topicmap",
		Short:         "Map topic-addressed messages to time-series records",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(cmd, cfgPath, cfg)
			if err != nil {
				return err
			}
			return run(cmd.Context(), loaded, cfgPathOrDefault(cfgPath))
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.topicmap/config.toml)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error, off)")

	root.Flags().StringVar(&cfg.Output, "output", cfg.Output, "record format: line (InfluxDB line protocol) or json")
	root.Flags().StringVar(&cfg.Separator, "separator", cfg.Separator, "separator between topic and payload on input lines")
	root.Flags().StringVar(&cfg.Input, "input", cfg.Input, "read messages from file instead of stdin")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (empty disables)")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload mappings when the config file changes")
	root.Flags().BoolVar(&cfg.Strict, "strict", cfg.Strict, "stop on the first unknown topic or binary payload")

	root.AddCommand(
		&cobra.Command{
			Use:   "topics",
			Short: "List the configured topics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				mapper, _, err := mapperFromFlags(cmd, cfgPath, cfg)
				if err != nil {
					return err
				}
				for _, topic := range mapper.Topics() {
					fmt.Fprintln(cmd.OutOrStdout(), topic)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "describe <topic>",
			Short: "Describe the mappings of a topic",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mapper, _, err := mapperFromFlags(cmd, cfgPath, cfg)
				if err != nil {
					return err
				}
				desc := mapper.Describe(args[0])
				if desc == "" {
					return fmt.Errorf("%w: %q", domain.ErrUnknownTopic, args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), desc)
				return nil
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Validate the configuration and print a summary",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				mapper, loaded, err := mapperFromFlags(cmd, cfgPath, cfg)
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), mapper, loaded)
			},
		},
	)

	return root
}

func cfgPathOrDefault(path string) string {
	if path == "" {
		return cliconfig.DefaultConfigPath()
	}
	return path
}

// loadConfig layers file, environment and changed flags over the defaults.
func loadConfig(cmd *cobra.Command, cfgPath string, base cliconfig.Config) (cliconfig.Config, error) {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	return cliconfig.Load(cfgPathOrDefault(cfgPath), base, changed)
}

func mapperFromFlags(cmd *cobra.Command, cfgPath string, base cliconfig.Config) (*mapping.Mapper, cliconfig.Config, error) {
	loaded, err := loadConfig(cmd, cfgPath, base)
	if err != nil {
		return nil, loaded, err
	}
	logger := tmlog.NewZerologAdapter(tmlog.ParseLevel(loaded.LogLevel))
	mapper, err := topicmap.New(loaded.Mappings, logger)
	if err != nil {
		return nil, loaded, fmt.Errorf("build mappings: %w", err)
	}
	return mapper, loaded, nil
}

func printSummary(w io.Writer, mapper *mapping.Mapper, cfg cliconfig.Config) error {
	fmt.Fprintf(w, "%d mappings, %d topics, output=%s\n", len(cfg.Mappings), len(mapper.Topics()), cfg.Output)
	for _, topic := range mapper.Topics() {
		for _, def := range mapper.Definitions(topic) {
			if _, err := fmt.Fprintf(w, "  %s <- %s %s\n", def.Describe(), topic, sourceLabel(def)); err != nil {
				return err
			}
		}
	}
	return nil
}

func sourceLabel(def domain.Mapping) string {
	if def.Source.Kind == domain.SourceMessage {
		return "(payload)"
	}
	return fmt.Sprintf("%s=%q", def.Source.Kind, def.Source.Expr)
}

func run(ctx context.Context, cfg cliconfig.Config, cfgPath string) error {
	var logger tmlog.Logger = tmlog.NewZerologAdapter(tmlog.ParseLevel(cfg.LogLevel))
	var observer app.Observer

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		m, err := metrics.New(reg)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		observer = m
		logger = m.CountingLogger(logger)

		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", tmlog.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	build := func(mappings []domain.Mapping) (*mapping.Mapper, error) {
		return topicmap.New(mappings, logger)
	}
	mapper, err := build(cfg.Mappings)
	if err != nil {
		return fmt.Errorf("build mappings: %w", err)
	}

	writer, err := sink.New(cfg.Output, os.Stdout)
	if err != nil {
		return err
	}

	in := io.Reader(os.Stdin)
	if cfg.Input != "" {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	pipeline := app.NewPipeline(app.PipelineConfig{
		Separator: cfg.Separator,
		Strict:    cfg.Strict,
	}, mapper, writer, logger, observer)

	if cfg.Watch {
		reloader := app.NewReloader(app.ReloaderConfig{Path: cfgPath},
			cliconfig.LoadMappings, build, pipeline, logger, observer)
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := reloader.Run(watchCtx); err != nil {
				logger.Warn("config watcher disabled", tmlog.Err(err))
			}
		}()
	}

	logger.Info("mapping messages",
		tmlog.Int("mappings", len(cfg.Mappings)),
		tmlog.Int("topics", len(mapper.Topics())),
		tmlog.String("output", cfg.Output))

	err = pipeline.Run(ctx, in)
	stats := pipeline.Stats()
	logger.Info("done",
		tmlog.Uint64("messages", stats.Messages),
		tmlog.Uint64("records", stats.Records),
		tmlog.Uint64("empty", stats.Empty),
		tmlog.Uint64("errors", stats.Errors))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
