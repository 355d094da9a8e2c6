package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/pubship/internal/adapters/chronicle"
	logAdapter "github.com/bft-labs/pubship/internal/adapters/log"
	"github.com/bft-labs/pubship/internal/adapters/metrics"
	"github.com/bft-labs/pubship/internal/agent"
	"github.com/bft-labs/pubship/internal/cliconfig"
	"github.com/bft-labs/pubship/internal/ports"
)

const longHelp = `
Pull JSON log records from a subscription and ship them to Chronicle.

Each invocation waits on the subscription for the receive timeout, batches
decoded records by serialized size, and sends every batch to the Chronicle
unstructured log ingestion API. Whatever is left when the subscription goes
quiet is flushed before exit.

Sources: Google Cloud Pub/Sub (default), NATS, Kafka.
Configure via file ($HOME/.pubship/config.toml), environment, or flags.
`

var exampleUsage = strings.TrimSpace(`
  pubship run --project-id my-project --subscription-id chronicle-logs --customer-id <uuid>
  pubship serve --config /etc/pubship/config.toml --listen :8080
  pubship run --source nats --subscription-id logs.audit --nats-url nats://nats:4222
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := logAdapter.NewConsoleLogger(os.Stderr, cfg.LogLevel)

	// load layers defaults, file, environment and changed flags
	load := func(cmd *cobra.Command) (cliconfig.Loader, cliconfig.Config, error) {
		cfgFile := cfgPath
		if cfgFile == "" {
			cfgFile = cliconfig.DefaultConfigPath()
		}

		changed := map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		loader := cliconfig.Loader{Path: cfgFile, Base: cfg, Changed: changed}
		loaded, err := loader.Load()
		if err != nil {
			return loader, cliconfig.Config{}, err
		}

		log = logAdapter.NewConsoleLogger(os.Stderr, loaded.LogLevel)
		log.Info().Interface("config", loaded.Masked()).Msg("configuration")
		return loader, loaded, nil
	}

	root := &cobra.Command{
		Use:          "pubship",
		Short:        "Ship JSON log records from a subscription to Chronicle",
		Long:         strings.TrimSpace(longHelp),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Drain the subscription once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, loaded, err := load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner := agent.NewRunner(logAdapter.NewZerologAdapterWithLogger(log), nil)
			return runner.Run(ctx, loaded)
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an HTTP trigger that drains the subscription per request",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, loaded, err := load(cmd)
			if err != nil {
				return err
			}
			logger := logAdapter.NewZerologAdapterWithLogger(log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			recorder := metrics.NewRecorder(reg)
			holder := cliconfig.NewHolder(loaded)

			if cliconfig.FileExists(loader.Path) {
				watcher := cliconfig.NewWatcher(loader.Path, logger, func() {
					next, err := loader.Load()
					if err != nil {
						logger.Warn("config reload rejected, keeping previous configuration", ports.Err(err))
						return
					}
					holder.Set(next)
					logger.Info("configuration reloaded", ports.String("path", loader.Path))
				})
				go func() {
					if err := watcher.Run(ctx); err != nil {
						logger.Warn("config watcher stopped", ports.Err(err))
					}
				}()
			}

			runner := agent.NewRunner(logger, recorder)
			server := agent.NewServer(holder.Get, runner.Run, reg, logger)
			return server.ListenAndServe(ctx, loaded.ListenAddr)
		},
	}

	// Flags
	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.pubship/config.toml)")
	pf.StringVar(&cfg.Source, "source", cfg.Source, "subscription backend: pubsub, nats or kafka")
	pf.StringVar(&cfg.ProjectID, "project-id", cfg.ProjectID, "Google Cloud project of the subscription")
	pf.StringVar(&cfg.SubscriptionID, "subscription-id", cfg.SubscriptionID, "subscription ID or full path (NATS subject, Kafka topic)")
	pf.StringVar(&cfg.DataType, "data-type", cfg.DataType, "Chronicle log type attached to every batch")
	pf.StringVar(&cfg.CustomerID, "customer-id", cfg.CustomerID, "Chronicle customer ID")
	pf.StringVar(&cfg.Region, "region", cfg.Region, "Chronicle region (empty or us for the default endpoint)")
	pf.StringVar(&cfg.IngestURL, "ingest-url", cfg.IngestURL, fmt.Sprintf("ingestion base URL (defaults to %s or its regional variant)", chronicle.Endpoint("")))
	if err := pf.MarkHidden("ingest-url"); err != nil {
		log.Info().Err(err).Msg("failed to hide ingest-url flag")
	}
	pf.StringVar(&cfg.ServiceAccount, "service-account", cfg.ServiceAccount, "service account JSON or path to it")

	pf.DurationVar(&cfg.ReceiveTimeout, "receive-timeout", cfg.ReceiveTimeout, "how long one invocation waits on the subscription")
	pf.Var(cliconfig.NewByteSizeValue(cfg.BatchBytes, &cfg.BatchBytes), "batch-bytes", "serialized bytes buffered before a batch is flushed (e.g. 500000, 512KB)")
	pf.Var(cliconfig.NewByteSizeValue(cfg.RequestBytes, &cfg.RequestBytes), "request-bytes", "request body size above which a batch is split (e.g. 1000000, 1MB)")
	pf.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout for ingestion requests")
	pf.BoolVar(&cfg.Compress, "compress", cfg.Compress, "gzip ingestion request bodies")

	pf.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL")
	pf.StringVar(&cfg.NATSQueue, "nats-queue", cfg.NATSQueue, "NATS queue group (optional)")
	pf.StringSliceVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "Kafka broker addresses")
	pf.StringVar(&cfg.KafkaGroup, "kafka-group", cfg.KafkaGroup, "Kafka consumer group")

	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "address for the HTTP trigger and metrics")

	root.AddCommand(runCmd, serveCmd)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("pubship")
		os.Exit(1)
	}
}
