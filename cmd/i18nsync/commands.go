package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/xerrors"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/config"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/drupal"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/handlers"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/i18n"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/scanner"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/services"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/storage/sqlite"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/telemetry"
)

var sourceCmd = &cli.Command{
	Name:  "source",
	Usage: "Fetch interface translations from Drupal into the node store",
	Action: func(cctx *cli.Context) error {
		cfg := getConfig(cctx)
		return telemetry.Run(cctx.Context, "source", func(ctx context.Context) error {
			return withStore(ctx, cfg, func(store *sqlite.Store) error {
				_, err := source(ctx, cfg, store)
				return err
			})
		})
	},
}

var exportCmd = &cli.Command{
	Name:  "export",
	Usage: "Write one i18next bundle per locale and namespace from the node store",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "out",
			Usage: "output directory",
			Value: "public/locales",
		},
		&cli.BoolFlag{
			Name:  "source",
			Usage: "fetch from Drupal before exporting",
		},
	},
	Action: func(cctx *cli.Context) error {
		cfg := getConfig(cctx)
		return telemetry.Run(cctx.Context, "export", func(ctx context.Context) error {
			return withStore(ctx, cfg, func(store *sqlite.Store) error {
				if cctx.Bool("source") {
					if _, err := source(ctx, cfg, store); err != nil {
						return err
					}
				}
				svc, err := loadTable(ctx, cfg, store)
				if err != nil {
					return err
				}
				written, err := i18n.Export(svc.Table(), cctx.String("out"))
				if err != nil {
					return err
				}
				log.Infof("%s wrote %d bundles to %s", services.LogPrefix, len(written), cctx.String("out"))
				return nil
			})
		})
	},
}

var pushCmd = &cli.Command{
	Name:  "push",
	Usage: "Scan front-end sources and push new strings to Drupal",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "root",
			Usage: "project root the scanner globs are relative to",
			Value: ".",
		},
	},
	Action: func(cctx *cli.Context) error {
		cfg := getConfig(cctx)
		return telemetry.Run(cctx.Context, "push", func(ctx context.Context) error {
			svc := services.NewPushService(scanner.New(cctx.String("root"), cfg.Scanner), newClient(cfg), os.Stderr)
			res, err := svc.OnPostBuild(ctx)
			if err != nil {
				return err
			}
			if res != nil {
				log.Debugf("pushed %d keys", len(res.Keys))
			}
			return nil
		})
	},
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Serve the front end with translations injected",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "dev",
			Usage: "proxy assets and index.html from the dev server",
		},
		&cli.StringFlag{
			Name:  "addr",
			Usage: "listen address (overrides server.addr)",
		},
		&cli.BoolFlag{
			Name:  "source",
			Usage: "fetch from Drupal before serving",
		},
	},
	Action: func(cctx *cli.Context) error {
		cfg := getConfig(cctx)
		if addr := cctx.String("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		return telemetry.Run(cctx.Context, "serve", func(ctx context.Context) error {
			return withStore(ctx, cfg, func(store *sqlite.Store) error {
				if cctx.Bool("source") {
					if _, err := source(ctx, cfg, store); err != nil {
						return err
					}
				}
				svc, err := loadTable(ctx, cfg, store)
				if err != nil {
					return err
				}
				router, err := handlers.NewRouter(handlers.RouterOptions{
					Translator: svc,
					Locales:    cfg.Locales,
					Namespace:  cfg.Namespace,
					TitleKey:   cfg.Server.TitleKey,
					IsDev:      cctx.Bool("dev"),
					DevTarget:  cfg.Server.DevTarget,
					DistDir:    cfg.Server.DistDir,
				})
				if err != nil {
					return err
				}
				return serve(ctx, cfg.Server.Addr, router)
			})
		})
	},
}

var translateCmd = &cli.Command{
	Name:      "translate",
	Usage:     "Print the translation of a key as the runtime resolves it",
	ArgsUsage: "<key>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "lang",
			Usage: "locale to translate into (default: first configured locale)",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return xerrors.New("expected exactly one key")
		}
		cfg := getConfig(cctx)
		lang := cctx.String("lang")
		if lang == "" {
			lang = cfg.DefaultLocale()
		}
		return telemetry.Run(cctx.Context, "translate", func(ctx context.Context) error {
			return withStore(ctx, cfg, func(store *sqlite.Store) error {
				svc, err := loadTable(ctx, cfg, store)
				if err != nil {
					return err
				}
				rt, err := i18n.Provide(svc.Table(), cfg.Locales, cfg.Namespace)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cctx.App.Writer, rt.T(lang, cctx.Args().First()))
				return err
			})
		})
	},
}

func newClient(cfg config.Config) *drupal.Client {
	return drupal.New(drupal.Options{
		BaseURL:  cfg.BaseURL,
		Path:     cfg.Path,
		AddPath:  cfg.AddPath,
		Username: cfg.BasicAuth.Username,
		Password: cfg.BasicAuth.Password,
		Timeout:  cfg.Timeout,
	})
}

func withStore(ctx context.Context, cfg config.Config, fn func(*sqlite.Store) error) (err error) {
	store, err := sqlite.Open(ctx, cfg.StorePath)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, store.Close())
	}()
	return fn(store)
}

func source(ctx context.Context, cfg config.Config, store *sqlite.Store) (int, error) {
	svc := services.NewSourceService(newClient(cfg), store)
	if err := svc.CreateSchemaCustomization(ctx); err != nil {
		return 0, err
	}
	return svc.SourceNodes(ctx)
}

func loadTable(ctx context.Context, cfg config.Config, store *sqlite.Store) (*services.TableTranslationService, error) {
	svc := services.NewTableTranslationService(store, cfg.Locales, cfg.Namespace)
	if err := svc.LoadTranslations(ctx); err != nil {
		return nil, err
	}
	log.Infof("%s loaded %d translations for %d locales", services.LogPrefix, i18n.Count(svc.Table()), len(cfg.Locales))
	return svc, nil
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
