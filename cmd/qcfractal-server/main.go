// Command qcfractal-server runs the storage/queue/reconciliation side of
// the system: a BoltStore-backed Store, a TaskQueue, an event Broker, a
// lease-expiry Reconciler, and the /health /ready /metrics HTTP surface.
// Its flag set and cobra wiring follow the project's established CLI idiom.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ChayaSt/QCFractal/pkg/adapter"
	"github.com/ChayaSt/QCFractal/pkg/auth"
	"github.com/ChayaSt/QCFractal/pkg/config"
	"github.com/ChayaSt/QCFractal/pkg/events"
	"github.com/ChayaSt/QCFractal/pkg/health"
	"github.com/ChayaSt/QCFractal/pkg/log"
	"github.com/ChayaSt/QCFractal/pkg/queuemanager"
	"github.com/ChayaSt/QCFractal/pkg/reconciler"
	"github.com/ChayaSt/QCFractal/pkg/security"
	"github.com/ChayaSt/QCFractal/pkg/storage"
	"github.com/ChayaSt/QCFractal/pkg/taskqueue"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "qcfractal-server <name>",
	Short:   "QCFractal server - distributed quantum chemistry compute orchestration",
	Args:    cobra.ExactArgs(1),
	Version: Version,
	RunE:    runServer,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"qcfractal-server version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.Flags()
	flags.Int("port", 7777, "HTTP port for the health/metrics surface")
	flags.Bool("security", false, "Build the server's Auth with credential checks enabled (this process serves no client operations, so no request is checked)")
	flags.String("database-uri", "./qcfractal-data", "BoltDB data directory")
	flags.String("tls-cert", "", "Path to TLS certificate (loaded and validated at startup together with --tls-key; the health/metrics listener serves plain HTTP)")
	flags.String("tls-key", "", "Path to TLS private key")
	flags.String("log-prefix", "", "Prefix for log file names (logs to stdout when empty)")
	flags.String("config-file", "", "YAML config file merged under explicitly-set flags")
	flags.Bool("dask-manager", false, "Start an embedded dask-backed QueueManager")
	flags.Bool("dask-manager-single", false, "Start an embedded single-slot dask-backed QueueManager")
	flags.Bool("fireworks-manager", false, "Start an embedded fireworks-backed QueueManager")

	rootCmd.MarkFlagsMutuallyExclusive("dask-manager", "dask-manager-single", "fireworks-manager")
	rootCmd.MarkFlagsRequiredTogether("tls-cert", "tls-key")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: false})
}

func runServer(cmd *cobra.Command, args []string) error {
	name := args[0]
	flags := cmd.Flags()

	if configPath, _ := flags.GetString("config-file"); configPath != "" {
		values, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := config.ApplyDefaults(flags, values); err != nil {
			return err
		}
	}

	port, _ := flags.GetInt("port")
	requireAuth, _ := flags.GetBool("security")
	dataDir, _ := flags.GetString("database-uri")
	logPrefix, _ := flags.GetString("log-prefix")
	if logPrefix != "" {
		f, err := os.OpenFile(logPrefix+".log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("server: open log file: %w", err)
		}
		log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: f})
	}
	tlsCert, _ := flags.GetString("tls-cert")
	tlsKey, _ := flags.GetString("tls-key")

	if tlsCert != "" {
		if _, err := security.LoadTLSKeyPair(tlsCert, tlsKey); err != nil {
			return err
		}
	}

	store, err := storage.NewBoltStore(dataDir, 0)
	if err != nil {
		return fmt.Errorf("server: open store: %w", err)
	}
	defer store.Close()

	queue := taskqueue.New(store)
	_ = auth.New(store, !requireAuth)

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	rec := reconciler.New(store, queue, broker, 0)
	rec.Start()
	defer rec.Stop()

	daskManager, _ := flags.GetBool("dask-manager")
	daskSingle, _ := flags.GetBool("dask-manager-single")
	fireworksManager, _ := flags.GetBool("fireworks-manager")

	var embedded *queuemanager.QueueManager
	switch {
	case daskManager:
		embedded, err = startEmbeddedManager(store, queue, broker, adapter.KindDask, adapter.Config{MaxConcurrent: 4}, name)
	case daskSingle:
		embedded, err = startEmbeddedManager(store, queue, broker, adapter.KindDask, adapter.Config{MaxConcurrent: 1}, name)
	case fireworksManager:
		embedded, err = startEmbeddedManager(store, queue, broker, adapter.KindFireworks, adapter.Config{}, name)
	}
	if err != nil {
		return err
	}
	if embedded != nil {
		defer embedded.Close()
	}

	hs := health.NewServer(store, Version)
	log.Logger.Info().Str("name", name).Int("port", port).Msg("qcfractal-server starting")
	return hs.Start(fmt.Sprintf(":%d", port))
}

func startEmbeddedManager(store storage.Store, queue *taskqueue.TaskQueue, broker *events.Broker, kind adapter.Kind, cfg adapter.Config, clusterName string) (*queuemanager.QueueManager, error) {
	ad, err := adapter.New(kind, cfg)
	if err != nil {
		return nil, fmt.Errorf("server: build embedded %s adapter: %w", kind, err)
	}
	qm, err := queuemanager.New(queuemanager.Config{
		ManagerName: "embedded-" + string(kind),
		ClusterName: clusterName,
	}, store, queue, ad, broker)
	if err != nil {
		return nil, fmt.Errorf("server: start embedded %s manager: %w", kind, err)
	}
	qm.RunContinuous(context.Background())
	return qm, nil
}
