// Package config assembles the client settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bakery/internal/env"
	"bakery/internal/logging"
	"bakery/internal/storage"
	"bakery/models"
	"bakery/pkg/bakeryapi"
	"bakery/pkg/geolocation"
	"bakery/pkg/kafkaclient"
)

// ErrNoKafka is returned when a command needs the broker list and none is set.
var ErrNoKafka = errors.New("config: KAFKA_BROKER is not set")

type Config struct {
	APIURL      string
	UserAgent   string
	Retry       int
	PageLimit   int
	GeoTimeout  time.Duration
	Location    *models.Coordinates
	LocateQuery string
	SessionFile string

	LogLevel slog.Level
	LogJSON  bool

	Minio          storage.MinioConfig
	SnapshotBucket string
	Kafka          kafkaclient.Config
	DevAddr        string
}

// Load reads the environment. Only BAKERY_API_URL is required; minio and
// kafka settings are checked by the commands that need them.
func Load() (*Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := &Config{
		UserAgent:   env.String("BAKERY_USER_AGENT", ""),
		LocateQuery: env.String("BAKERY_LOCATION_QUERY", ""),
		SessionFile: env.String("BAKERY_SESSION_FILE", ""),
		DevAddr:     env.String("BAKERY_DEV_ADDR", "127.0.0.1:5000"),
		Minio: storage.MinioConfig{
			Endpoint:  env.String("MINIO_ENDPOINT", ""),
			AccessKey: env.String("MINIO_ACCESS_KEY", ""),
			SecretKey: env.String("MINIO_SECRET_KEY", ""),
			Region:    env.String("MINIO_REGION", ""),
		},
		SnapshotBucket: env.String("SNAPSHOT_BUCKET", "bakery-snapshots"),
		Kafka: kafkaclient.Config{
			Brokers: env.List("KAFKA_BROKER"),
			Topic:   env.String("KAFKA_ORDER_TOPIC", "order-status"),
			GroupID: env.String("KAFKA_GROUP_ID", "bakery-cli"),
		},
	}

	var err error
	cfg.APIURL, err = env.Require("BAKERY_API_URL")
	collect(err)
	cfg.Retry, err = env.Int("BAKERY_RETRY", bakeryapi.DefaultRetry)
	collect(err)
	cfg.PageLimit, err = env.Int("BAKERY_PAGE_LIMIT", bakeryapi.DefaultPageLimit)
	collect(err)
	cfg.GeoTimeout, err = env.Duration("BAKERY_GEO_TIMEOUT", geolocation.DefaultTimeout)
	collect(err)
	cfg.LogJSON, err = env.Bool("LOG_JSON", false)
	collect(err)
	cfg.Minio.UseSSL, err = env.Bool("MINIO_USE_SSL", false)
	collect(err)
	cfg.LogLevel, err = logging.ParseLevel(env.String("LOG_LEVEL", "info"))
	collect(err)

	lat, hasLat, err := env.Float("BAKERY_LATITUDE")
	collect(err)
	lng, hasLng, err := env.Float("BAKERY_LONGITUDE")
	collect(err)
	switch {
	case hasLat && hasLng:
		c := models.Coordinates{Latitude: lat, Longitude: lng}
		if !c.Valid() {
			collect(fmt.Errorf("BAKERY_LATITUDE/BAKERY_LONGITUDE out of range: %s", c))
		} else {
			cfg.Location = &c
		}
	case hasLat != hasLng:
		collect(errors.New("BAKERY_LATITUDE and BAKERY_LONGITUDE must be set together"))
	}

	if cfg.Retry < 0 {
		collect(fmt.Errorf("BAKERY_RETRY must not be negative, got %d", cfg.Retry))
	}
	if cfg.PageLimit < 1 {
		collect(fmt.Errorf("BAKERY_PAGE_LIMIT must be positive, got %d", cfg.PageLimit))
	}
	if cfg.GeoTimeout <= 0 {
		collect(fmt.Errorf("BAKERY_GEO_TIMEOUT must be positive, got %s", cfg.GeoTimeout))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// RequireKafka reports whether the order watcher can connect.
func (c *Config) RequireKafka() error {
	if len(c.Kafka.Brokers) == 0 {
		return ErrNoKafka
	}
	return nil
}

// RequireMinio reports whether snapshot export can connect.
func (c *Config) RequireMinio() error {
	if err := c.Minio.Validate(); err != nil {
		return err
	}
	if c.SnapshotBucket == "" {
		return errors.New("config: SNAPSHOT_BUCKET is not set")
	}
	return nil
}
