// Package commands implements the denoise CLI commands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/born-ml/denoise"
	"github.com/born-ml/denoise/internal/config"
	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

var (
	cfgFile    string
	deviceName string
	verbose    bool

	logger = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "denoise",
	Short: "Image filter runtime CLI",
	Long: `denoise drives the filter runtime from the command line.

It can report the capabilities of the available devices and convert
images between pixel formats with the copy filter.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVarP(&deviceName, "device", "d", "default", "device type: default, cpu, webgpu or opencl")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setupLogging installs a text logger on stderr at the configured level.
func setupLogging(*cobra.Command, []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	level := parseLevel(cfg.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	denoise.SetLogger(logger)
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

var deviceTypes = map[string]denoise.DeviceType{
	"default": denoise.DeviceTypeDefault,
	"cpu":     denoise.DeviceTypeCPU,
	"webgpu":  denoise.DeviceTypeWebGPU,
	"opencl":  denoise.DeviceTypeOpenCL,
}

// openDevice creates and commits the device selected by the flags.
func openDevice() (*denoise.Device, error) {
	typ, ok := deviceTypes[strings.ToLower(deviceName)]
	if !ok {
		return nil, fmt.Errorf("unknown device %q", deviceName)
	}

	var dev *denoise.Device
	if cfgFile != "" {
		dev = denoise.NewDeviceWithConfigFile(typ, cfgFile)
	} else {
		dev = denoise.NewDevice(typ)
	}
	if err := deviceError(dev); err != nil {
		dev.Release()
		return nil, err
	}

	dev.SetErrorFunc(func(_ any, code denoise.Error, msg string) {
		logger.Debug("device error", "code", code.String(), "message", msg)
	}, nil)
	dev.Commit()
	if err := deviceError(dev); err != nil {
		dev.Release()
		return nil, err
	}
	return dev, nil
}

// deviceError returns the error latched on dev, or on the global slot when
// dev is nil.
func deviceError(dev *denoise.Device) error {
	code, msg := denoise.GetDeviceError(dev)
	if code == denoise.ErrorNone {
		if dev == nil {
			return fmt.Errorf("failed to create device")
		}
		return nil
	}
	return fmt.Errorf("%s: %s", code, msg)
}
