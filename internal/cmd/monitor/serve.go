package monitor

import (
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transparenciamx/numeralia/internal/config"
	"github.com/transparenciamx/numeralia/internal/monitor"
)

const (
	defaultAddr     = ":8080"
	defaultInterval = time.Hour
)

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs polls on an interval and serves the last run state over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger, _ := zap.NewDevelopment()
			defer logger.Sync()
			l := logger.Named("numeralia.monitor.serve")

			godotenv.Load()

			c, err := config.NewNumeraliaFromFile(configPath)
			if err != nil {
				return err
			}

			addr := c.Serve.Addr
			if addr == "" {
				addr = defaultAddr
			}

			interval := defaultInterval
			if c.Serve.Interval != "" {
				interval, err = time.ParseDuration(c.Serve.Interval)
				if err != nil {
					return err
				}
			}

			server := monitor.NewServer(l)

			go func() {
				l.Info("serving run state", zap.String("addr", addr))
				if err := http.ListenAndServe(addr, server.Routes()); err != nil {
					l.Error("server stopped", zap.Error(err))
				}
			}()

			runAll := func() {
				monitors, err := config.InitializeMonitors(c, l)
				if err != nil {
					l.Error("initializing monitors failed", zap.Error(err))
					return
				}

				for _, m := range monitors {
					run, err := m.Run(ctx)
					if err != nil {
						l.Error("system run failed",
							zap.String("system", m.System()),
							zap.Error(err),
						)
					}
					server.RecordRun(run)
				}
			}

			runAll()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					runAll()
				}
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.MarkFlagRequired("config")

	return cmd
}
