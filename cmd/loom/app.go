package loom

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go.loomcache.dev/loom/cmd/coordinator"
)

var (
	Build = "head"
)

var App = cli.App{
	Name:            "loom",
	Usage:           fmt.Sprintf("build for %s on %s", runtime.GOARCH, runtime.GOOS),
	Version:         Build,
	HideHelpCommand: true,
	Description:     "segment ownership coordination for distributed caches",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Value: false,
			Usage: "enable verbose logging",
		},
	},
	Commands: []*cli.Command{
		coordinator.Generate(),
	},
	Before: ConfigLogger,
}

func ConfigLogger(ctx *cli.Context) error {
	var config zap.Config
	if ctx.Bool("verbose") {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	// Redirect everything to stderr
	config.OutputPaths = []string{"stderr"}
	logger, err := config.Build()
	if err != nil {
		return err
	}
	if _, err := zap.RedirectStdLogAt(logger.With(zap.String("subsystem", "unknown")), zapcore.InfoLevel); err != nil {
		return fmt.Errorf("redirecting stdlog output: %w", err)
	}
	ctx.App.Metadata["logger"] = logger
	return nil
}
