package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hedgepod/deployer/configs"
	"github.com/hedgepod/deployer/internal/addresses"
	"github.com/hedgepod/deployer/internal/app"
	"github.com/hedgepod/deployer/internal/compile"
	"github.com/hedgepod/deployer/internal/deploy"
	"github.com/hedgepod/deployer/internal/logger"
	"github.com/hedgepod/deployer/internal/networks"
	"github.com/hedgepod/deployer/internal/records"
	"github.com/hedgepod/deployer/internal/verify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "hedgepod-deployer"

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "CLI for deploying and verifying the HedgePod contracts across chains",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Initialize(slog.LevelInfo)

		if err := configs.ReadDefaults(viper.GetViper()); err != nil {
			return err
		}

		configFile, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		if configFile != "" {
			viper.SetConfigFile(configFile)
		} else {
			viper.SetConfigName("config")
			if execPath, err := os.Executable(); err == nil {
				viper.AddConfigPath(filepath.Dir(execPath))
			}
			viper.AddConfigPath(".")
			viper.AddConfigPath("./configs")
		}

		// The embedded defaults are already loaded, so a missing user config is fine
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				slog.Debug("no config file found, will rely on flags and defaults")
			} else {
				const errMsg = "error reading config file"
				slog.With("err", err.Error()).Error(errMsg)
				return errors.Join(err, errors.New(errMsg))
			}
		} else {
			slog.With("config_file", viper.ConfigFileUsed()).Debug("config file loaded")
		}

		if err := viper.BindEnv("deployer.private-key", "DEPLOYER_PRIVATE_KEY"); err != nil {
			return err
		}
		viper.SetEnvPrefix("HEDGEPOD")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		viper.AutomaticEnv()

		if err := app.BindFlags(viper.GetViper(), cmd); err != nil {
			return err
		}

		if err := viper.Unmarshal(&configs.Values); err != nil {
			const errMsg = "unable to decode application config"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}

		level, err := logger.ParseLevel(configs.Values.Log.Level)
		if err != nil {
			return err
		}
		logger.Initialize(level)

		slog.With("networks", len(configs.Values.Networks), "records_backend", configs.Values.Records.Backend).
			Debug("configuration loaded")

		return nil
	},
}

var persistentFlags = []app.FlagDef[string]{
	{Name: "log-level", ViperKey: "log.level", Description: "Log level (debug, info, warn, error)"},
	{Name: "records-backend", ViperKey: "records.backend", Description: "Deployment record backend (file or bolt)"},
	{Name: "records-dir", ViperKey: "records.dir", Description: "Directory of the file record backend"},
	{Name: "bolt-path", ViperKey: "records.bolt-path", Description: "Database path of the bolt record backend"},
}

func main() {
	rootCmd.PersistentFlags().String("config", "", "Path of a config file (default: config.yaml next to the binary, in . or ./configs)")
	app.MustDeclarePersistentFlags(rootCmd, persistentFlags)

	rootCmd.AddCommand(deploy.CMD)
	rootCmd.AddCommand(deploy.AllCMD)
	rootCmd.AddCommand(verify.CMD)
	rootCmd.AddCommand(compile.CMD)
	rootCmd.AddCommand(networks.CMD)
	rootCmd.AddCommand(addresses.CMD)
	rootCmd.AddCommand(records.CMD)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.With("err", err.Error()).Error("failed to execute command")
		stop()
		os.Exit(1)
	}
}
