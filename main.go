package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dnstools/hosttech-dns-sync/config"
	"github.com/dnstools/hosttech-dns-sync/hosttech"
	"github.com/dnstools/hosttech-dns-sync/journal"
	"github.com/dnstools/hosttech-dns-sync/logger"
	"github.com/dnstools/hosttech-dns-sync/metrics"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "hosttech-dns-sync",
		Short:         "Manage DNS records on the hosttech name service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "config.yaml", "path to config file")
	root.PersistentFlags().Bool("dry-run", false, "compute the plan without issuing operations")
	root.AddCommand(
		newSetCommand(),
		newUnsetCommand(),
		newGetCommand(),
		newZonesCommand(),
		newChangeIPCommand(),
		newChangeTTLCommand(),
		newHistoryCommand(),
		newWatchCommand(),
	)
	return root
}

// app carries the collaborators every command needs. The journal is opened
// lazily since read-only commands never touch it.
type app struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	client  *hosttech.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun, _ = cmd.Flags().GetBool("dry-run")
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Env)

	m := metrics.New()
	transport := hosttech.NewHTTPTransport(cfg.API, cfg.Timeout, cfg.Retries)
	client := hosttech.New(cfg.API, cfg.Username, cfg.Password, transport, slog.Default(), m)
	return &app{cfg: cfg, metrics: m, client: client}, nil
}

func (a *app) openJournal() (*journal.Journal, error) {
	return journal.New(a.cfg.JournalPath, a.metrics)
}
