package main

import (
	"context"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth"
	"github.com/Vivekk0712/Polaris-MCP/internal/config"
	"github.com/Vivekk0712/Polaris-MCP/internal/logger"
	"github.com/Vivekk0712/Polaris-MCP/internal/metrics"
	"github.com/Vivekk0712/Polaris-MCP/internal/proxy"
	"github.com/Vivekk0712/Polaris-MCP/internal/server"
	"github.com/Vivekk0712/Polaris-MCP/internal/store"
	"github.com/Vivekk0712/Polaris-MCP/internal/user"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "polaris-gateway",
	Short: "Session gateway in front of the MCP orchestration service",
	Long: `Polaris Gateway authenticates browser sessions against Firebase,
keeps user records reconciled in the document store and proxies chat and
ML project traffic to the MCP orchestration service.`,
	RunE: runServer,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags()
	rootCmd.PersistentFlags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	app := fx.New(
		fx.Supply(cfg),
		fx.NopLogger,
		metrics.Module,
		store.Module,
		user.Module,
		auth.Module,
		proxy.Module,
		server.Module,
		fx.Invoke(func(lc fx.Lifecycle, srv *server.Server, st store.Store) {
			lc.Append(fx.Hook{
				OnStart: srv.Start,
				OnStop:  srv.Shutdown,
			})
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					return st.Close()
				},
			})
		}),
	)

	app.Run()
	return nil
}
