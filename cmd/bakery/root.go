package main

import (
	"fmt"
	"io"
	"log/slog"

	"bakery/internal/config"
	"bakery/internal/enrich"
	"bakery/internal/env"
	"bakery/internal/logging"
	"bakery/internal/session"
	"bakery/pkg/bakeryapi"
	"bakery/pkg/geolocation"
	"bakery/pkg/location"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	envFiles []string
	verbose  bool

	// Set up by PersistentPreRunE for every command except devserver.
	cli *app
)

var rootCmd = &cobra.Command{
	Use:   "bakery",
	Short: "Browse nearby bakeries, order and review from the terminal",
	Long: `bakery is a terminal client for the bakery marketplace backend.

Shops and search results are sorted by distance when a location is known.
The location comes from BAKERY_LATITUDE/BAKERY_LONGITUDE, or from geocoding
BAKERY_LOCATION_QUERY, and is remembered in the session file together with
the login cookie.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		env.LoadEnv(envFiles...)
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		slog.SetDefault(logger)
		cli, err = newApp(cfg, logger, cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	return logging.New(logging.Config{Level: level, JSON: cfg.LogJSON})
}

// app carries what the commands share.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *session.FileStore
	client    *bakeryapi.Client
	geocoder  *location.Client
	resolver  *geolocation.Resolver
	assembler *enrich.Assembler
	out       io.Writer
}

func newApp(cfg *config.Config, logger *slog.Logger, out io.Writer) (*app, error) {
	path := cfg.SessionFile
	if path == "" {
		var err error
		if path, err = session.DefaultPath(); err != nil {
			return nil, err
		}
	}
	store, err := session.OpenFile(path)
	if err != nil {
		return nil, err
	}

	opts := []bakeryapi.Option{
		bakeryapi.WithRetry(cfg.Retry),
		bakeryapi.WithPageLimit(cfg.PageLimit),
		bakeryapi.WithLogger(logger),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, bakeryapi.WithUserAgent(cfg.UserAgent))
	}
	client, err := bakeryapi.NewClient(cfg.APIURL, store, opts...)
	if err != nil {
		return nil, err
	}

	geoOpts := []location.Option{location.WithLogger(logger)}
	if cfg.UserAgent != "" {
		geoOpts = append(geoOpts, location.WithUserAgent(cfg.UserAgent))
	}
	geocoder := location.NewClient(geoOpts...)

	var provider geolocation.Provider
	switch {
	case cfg.Location != nil:
		provider = geolocation.Static(*cfg.Location)
	case cfg.LocateQuery != "":
		provider = geolocation.Geocoded(geocoder, cfg.LocateQuery)
	}
	resolver := geolocation.NewResolver(provider, store,
		geolocation.WithTimeout(cfg.GeoTimeout),
		geolocation.WithLogger(logger),
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		client:    client,
		geocoder:  geocoder,
		resolver:  resolver,
		assembler: enrich.NewAssembler(client, store, logger),
		out:       out,
	}, nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
