package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cambra/puertos-china/internal/analysis"
	"github.com/cambra/puertos-china/internal/config"
	"github.com/cambra/puertos-china/internal/dataset"
	"github.com/cambra/puertos-china/internal/logging"
	"github.com/cambra/puertos-china/internal/report"
	"github.com/cambra/puertos-china/internal/server"
)

var (
	configPath string
	dataDir    string
	logLevel   string
	addr       string

	outDir      string
	merchandise []string
	ports       []string
	fromYear    int
	toYear      int
	tab         string

	force bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Dashboard de importaciones desde China por puerto",
	Long: `Loads the monthly series, merchandise ranking and merchandise-by-port
tables and serves an interactive dashboard over them, or exports a filtered
view as an Excel workbook and PNG charts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == configInitCmd {
			return nil
		}
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg.Data.Dir = dataDir
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if addr != "" {
			cfg.Server.Addr = addr
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = logging.New(cfg.Logging)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	RunE:  runServe,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the filtered view as dashboard.xlsx and PNG charts",
	RunE:  runReport,
}

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Print the merchandise, port and year values available for filtering",
	RunE:  runOptions,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the dashboard config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a YAML file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "dashboard.yaml", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding the source tables")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	reportCmd.Flags().StringVarP(&outDir, "out", "o", "salida", "Output directory")
	reportCmd.Flags().StringSliceVar(&merchandise, "mercaderia", nil, "Merchandise to include (repeatable)")
	reportCmd.Flags().StringSliceVar(&ports, "puerto", nil, "Customs ports to include (repeatable)")
	reportCmd.Flags().IntVar(&fromYear, "desde", 0, "First year of the series")
	reportCmd.Flags().IntVar(&toYear, "hasta", 0, "Last year of the series")
	reportCmd.Flags().StringVar(&tab, "tab", string(analysis.TabNetKilos), "Series measure (kilo, valor, flete, seguro)")

	configInitCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(serveCmd, reportCmd, optionsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadDashboard(ctx context.Context) (*analysis.Dashboard, error) {
	paths := cfg.Paths()
	start := time.Now()
	tables, err := dataset.Load(ctx, paths)
	if err != nil {
		return nil, err
	}
	logger.Info("datasets loaded",
		zap.Int("series", len(tables.Series)),
		zap.Int("ranking", len(tables.Ranking)),
		zap.Int("ports", len(tables.Ports)),
		zap.Duration("elapsed", time.Since(start)))

	return analysis.New(tables,
		analysis.WithRankingLimit(cfg.Dashboard.RankingLimit),
		analysis.WithDetailLimit(cfg.Dashboard.DetailLimit),
	), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := server.SetupTracing(cfg.Tracing, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	dash, err := loadDashboard(ctx)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.Server.Mode)
	srv, err := server.New(dash, cfg, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func runReport(cmd *cobra.Command, args []string) error {
	dash, err := loadDashboard(cmd.Context())
	if err != nil {
		return err
	}

	view := dash.Compute(cmd.Context(), analysis.Filter{
		Merchandise: merchandise,
		Ports:       ports,
		FromYear:    fromYear,
		ToYear:      toYear,
		Tab:         analysis.Tab(tab),
	})
	written, err := report.Write(outDir, view, cfg.Dashboard.ChartScale)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, k := range view.KPIs {
		fmt.Fprintf(out, "%-26s %s\n", k.Label, k.Display)
	}
	for _, path := range written {
		fmt.Fprintf(out, "   - %s\n", path)
	}
	return nil
}

func runOptions(cmd *cobra.Command, args []string) error {
	dash, err := loadDashboard(cmd.Context())
	if err != nil {
		return err
	}
	opts := dash.Options()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Mercaderías (%d):\n  %s\n", len(opts.Merchandise), strings.Join(opts.Merchandise, "\n  "))
	fmt.Fprintf(out, "Puertos (%d):\n  %s\n", len(opts.Ports), strings.Join(opts.Ports, "\n  "))
	fmt.Fprintf(out, "Período: %d-%d\n", opts.MinYear, opts.MaxYear)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
