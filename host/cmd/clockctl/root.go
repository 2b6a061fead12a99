package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"timekeeper/host/config"
	"timekeeper/host/mcu"
	"timekeeper/host/serial"
)

// GlobalFlags override values from the configuration file.
type GlobalFlags struct {
	ConfigFile string
	Device     string
	Baud       int
	LogLevel   string
}

var (
	globalFlags GlobalFlags
	cfg         *config.Config
	logger      *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clockctl",
	Short: "Control the clock of a timekeeper MCU",
	Long: `clockctl talks to a timekeeper MCU over its serial link.

Examples:
  clockctl get
  clockctl set --now
  clockctl status -d /dev/ttyUSB1
  clockctl monitor --listen :9110`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd, globalFlags)
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.LogLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "", "configuration file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Device, "device", "d", "", "serial device path")
	rootCmd.PersistentFlags().IntVar(&globalFlags.Baud, "baud", 0, "serial baud rate")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "log level: debug|info|warn|error")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(monitorCmd)
}

// loadConfig reads the configuration file, if any, and applies the flags
// that were set on the command line.
func loadConfig(cmd *cobra.Command, flags GlobalFlags) (*config.Config, error) {
	c := config.Default()
	if flags.ConfigFile != "" {
		var err error
		if c, err = config.Load(flags.ConfigFile); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if cmd.Flags().Changed("device") {
		c.Serial.Device = flags.Device
	}
	if cmd.Flags().Changed("baud") {
		c.Serial.Baud = flags.Baud
	}
	if cmd.Flags().Changed("log-level") {
		c.LogLevel = flags.LogLevel
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// connect opens the configured serial port and wraps it in a client.
func connect() (*mcu.Client, error) {
	port, err := serial.Open(cfg.SerialPort())
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		logger.Debug("flush failed", zap.Error(err))
	}
	logger.Debug("connected", zap.String("device", cfg.Serial.Device), zap.Int("baud", cfg.Serial.Baud))
	return mcu.NewClient(port,
		mcu.WithLogger(logger.Named("mcu")),
		mcu.WithTimeout(cfg.RequestTimeout),
	), nil
}

// withClient runs fn against a freshly connected client.
func withClient(ctx context.Context, fn func(context.Context, *mcu.Client) error) error {
	client, err := connect()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(ctx, client)
}
