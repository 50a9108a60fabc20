package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/config"
)

var log = logging.Logger("i18nsync")

const configKey = "config"

func main() {
	logging.SetLogLevel("*", "INFO")

	if err := newApp().Run(os.Args); err != nil {
		log.Errorf("%+v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "i18nsync",
		Usage: "Sync Drupal interface translations with an i18next front end",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the TOML config file",
				EnvVars: []string{config.EnvPrefix + "CONFIG"},
				Value:   config.DefaultFile,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level for every subsystem (debug, info, warn, error)",
				Value: "info",
			},
		},
		Before: func(cctx *cli.Context) error {
			if err := logging.SetLogLevel("*", cctx.String("log-level")); err != nil {
				return xerrors.Errorf("log level: %w", err)
			}
			cfg, err := config.Load(cctx.String("config"))
			if err != nil {
				return err
			}
			cctx.App.Metadata[configKey] = cfg
			return nil
		},
		Commands: []*cli.Command{
			sourceCmd,
			exportCmd,
			pushCmd,
			serveCmd,
			translateCmd,
		},
	}
}

func getConfig(cctx *cli.Context) config.Config {
	return cctx.App.Metadata[configKey].(config.Config)
}
