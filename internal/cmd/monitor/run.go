package monitor

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/transparenciamx/numeralia/internal/config"
)

func newRunCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Invokes one polling run. Every configured system is polled and its reports appended.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger, _ := zap.NewDevelopment()
			defer logger.Sync()
			l := logger.Named("numeralia.monitor.run")
			l.Info("starting monitor!")

			godotenv.Load()
			viper.SetEnvPrefix("NUMERALIA")
			viper.AutomaticEnv()

			c, err := config.NewNumeraliaFromFile(configPath)
			if err != nil {
				return err
			}

			if out := viper.GetString("output"); out != "" {
				c.Output.Path = out
			}

			monitors, err := config.InitializeMonitors(c, l)
			if err != nil {
				return err
			}

			// A failed system never stops the ones after it.
			for _, m := range monitors {
				if _, err := m.Run(ctx); err != nil {
					l.Error("system run failed",
						zap.String("system", m.System()),
						zap.Error(err),
					)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.MarkFlagRequired("config")

	return cmd
}
