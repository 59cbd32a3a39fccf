// Command qcfractal-manager runs a QueueManager against a running
// qcfractal-server: it leases WAITING tasks, submits them to a compute
// backend adapter, and writes outcomes back. Subcommand-per-backend and
// exit-callback wiring follow the project's established CLI idiom and the original
// qcfractal_manager CLI's exit_callbacks list.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChayaSt/QCFractal/pkg/adapter"
	"github.com/ChayaSt/QCFractal/pkg/auth"
	"github.com/ChayaSt/QCFractal/pkg/config"
	"github.com/ChayaSt/QCFractal/pkg/events"
	"github.com/ChayaSt/QCFractal/pkg/log"
	"github.com/ChayaSt/QCFractal/pkg/queuemanager"
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
	Use:     "qcfractal-manager",
	Short:   "QCFractal manager - pulls tasks from a server and dispatches them to a compute backend",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"qcfractal-manager version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	pf := rootCmd.PersistentFlags()
	pf.String("fractal-uri", "./qcfractal-data", "Server's BoltDB data directory (in-process bridge target)")
	pf.String("username", "", "Username to authenticate with, if --security is set server-side")
	pf.String("password", "", "Password for --username")
	// The original CLI defaults --noverify to True; this manager defaults it
	// to false (verify by default) and documents the deviation here rather
	// than silently skipping authentication.
	pf.Bool("noverify", false, "Skip SSL certificate/credential verification (default differs from the original CLI, which defaulted to true)")
	pf.Int("max-tasks", 10, "Maximum tasks to lease per pull cycle")
	pf.String("cluster-name", "", "Cluster name reported in manager heartbeats")
	pf.String("queue-tag", "", "Only lease tasks carrying this tag")
	pf.Duration("update-frequency", 2*time.Second, "Interval between pull/poll cycles")
	pf.Bool("rapidfire", false, "Run until the queue is drained, then exit, instead of running continuously")
	pf.String("config-file", "", "YAML config file merged under explicitly-set flags")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(daskCmd)
	rootCmd.AddCommand(fireworksCmd)
	rootCmd.AddCommand(parslCmd)
}

func initLogging() {
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: false})
}

var daskCmd = &cobra.Command{
	Use:   "dask",
	Short: "Dispatch tasks to a dask-backed adapter",
	RunE:  runWith(adapter.KindDask),
}

var fireworksCmd = &cobra.Command{
	Use:   "fireworks",
	Short: "Dispatch tasks to a fireworks-backed adapter (single in-flight task)",
	RunE:  runWith(adapter.KindFireworks),
}

var parslCmd = &cobra.Command{
	Use:   "parsl",
	Short: "Dispatch tasks to a parsl-backed adapter (single in-flight task)",
	RunE:  runWith(adapter.KindParsl),
}

func runWith(kind adapter.Kind) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
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

		fractalURI, _ := flags.GetString("fractal-uri")
		username, _ := flags.GetString("username")
		password, _ := flags.GetString("password")
		noverify, _ := flags.GetBool("noverify")
		maxTasks, _ := flags.GetInt("max-tasks")
		clusterName, _ := flags.GetString("cluster-name")
		queueTag, _ := flags.GetString("queue-tag")
		updateFrequency, _ := flags.GetDuration("update-frequency")
		rapidfire, _ := flags.GetBool("rapidfire")

		store, err := storage.NewBoltStore(fractalURI, 0)
		if err != nil {
			return fmt.Errorf("manager: open store: %w", err)
		}
		defer store.Close()

		authn := auth.New(store, noverify)
		if username != "" {
			if ok, err := authn.Verify(username, password, "compute"); err != nil || !ok {
				return fmt.Errorf("manager: authentication failed for user %q", username)
			}
		}

		queue := taskqueue.New(store)
		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		ad, err := adapter.New(kind, adapter.Config{MaxConcurrent: maxTasks})
		if err != nil {
			return fmt.Errorf("manager: build adapter: %w", err)
		}

		managerName := fmt.Sprintf("%s-%s", kind, clusterName)
		qm, err := queuemanager.New(queuemanager.Config{
			ManagerName:     managerName,
			ClusterName:     clusterName,
			Tag:             queueTag,
			MaxTasks:        maxTasks,
			UpdateFrequency: updateFrequency,
		}, store, queue, ad, broker)
		if err != nil {
			return fmt.Errorf("manager: start: %w", err)
		}

		if rapidfire {
			ctx := context.Background()
			qm.RunRapidfire(ctx)
			return qm.Close()
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		qm.RunContinuous(ctx)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Logger.Info().Msg("manager shutting down")
		cancel()
		return qm.Close()
	}
}
