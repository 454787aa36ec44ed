package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/On-Jun9/ShutterGate/internal/config"
	"github.com/On-Jun9/ShutterGate/internal/log"
	"github.com/On-Jun9/ShutterGate/internal/sink"
	"github.com/On-Jun9/ShutterGate/internal/web"
)

var (
	version = "dev" // set by ldflags during build

	cfgFile string
	addr    string
	dest    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "shuttergate-web",
	Short:        "Serve the ShutterGate upload validation API",
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.Flags().StringVar(&addr, "addr", "", "HTTP server address (overrides web.addr)")
	rootCmd.Flags().StringVarP(&dest, "dest", "d", "", "store accepted uploads under this directory")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if cfgFile != "" {
		var err error
		cfg, err = config.LoadFromFile(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	if addr != "" {
		cfg.Web.Addr = addr
	}
	if dest != "" {
		cfg.Dest = dest
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := log.New(cfg.LogFile, cfg.LogJSON, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	server, err := web.NewServer(cfg, logger)
	if err != nil {
		return err
	}
	defer server.Close()
	server.SetVersion(version)

	if cfg.Dest != "" {
		store, err := sink.New(cfg.Dest, sink.Options{
			EventName:      cfg.Event.Name,
			DryRun:         cfg.DryRun,
			HashVerify:     cfg.HashVerify,
			DedupMethod:    cfg.DedupMethod,
			ConflictPolicy: cfg.ConflictPolicy,
		}, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		server.SetStore(store)
	}

	return server.Start(cfg.Web.Addr)
}
