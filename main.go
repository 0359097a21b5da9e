// Package main provides the entry point for the Mammography Annotator desktop application.
package main

import (
	"fmt"
	"os"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"mammo-annotator/internal/app"
	"mammo-annotator/internal/config"
	"mammo-annotator/internal/logging"
	"mammo-annotator/internal/version"
	"mammo-annotator/ui/mainwindow"
)

const appID = "io.github.mammo-annotator"

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var (
		configPath string
		imageRef   string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:     "mammo-annotator",
		Short:   "Annotate regions of interest on mammography images",
		Version: version.String(),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if imageRef == "" && len(args) == 1 {
				imageRef = args[0]
			}
			return run(configPath, imageRef, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVarP(&imageRef, "image", "i", "", "Image to open (path, URL or data URL)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	return cmd
}

func run(configPath, imageRef, logLevel string) error {
	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	for _, w := range warnings {
		logger.Warn("config value replaced", "detail", w)
	}
	logger.Info("starting", "version", version.Version)

	state, err := app.NewState(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}
	defer state.Close()

	a := fyneapp.NewWithID(appID)
	a.Settings().SetTheme(app.NewTheme(cfg.Palette()))

	win := mainwindow.New(a, state, logging.Module(logger, "ui"))
	if imageRef != "" {
		win.OpenImage(imageRef)
	}
	win.ShowAndRun()
	return nil
}
