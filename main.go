package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"web/gridcluster/cluster"
)

var cfg = viper.New()

var rootCmd = &cobra.Command{
	Use:   "gridcluster",
	Short: "Standalone grid clustering server with websocket change push",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if path := cfg.GetString("config"); path != "" {
			cfg.SetConfigFile(path)
			if err := cfg.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}
		level, err := logrus.ParseLevel(cfg.GetString("log-level"))
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
	SilenceUsage: true,
}

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg.SetEnvPrefix("GRIDCLUSTER")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	flags := rootCmd.Flags()
	flags.String("config", "", "config file holding any of these options")
	flags.String("addr", ":8000", "HTTP listen address")
	flags.String("data-dir", "data/datasets", "directory holding saved point files")
	flags.String("format", "zst", "file format for new datasets: zst, lz4 or bin")
	flags.Float64("side-width", 0.001, "finest grid cell side in map units")
	flags.Float64("min-side-pixels", cluster.DefaultMinSidePixels, "minimum on-screen cell size")
	flags.Float64("max-resolution", 360.0/256, "map units per pixel at zoom 0")
	flags.Bool("disable-animation", false, "jump to the target view when zooming into a cluster")
	flags.String("dataset", "", "dataset id to load at startup")
	flags.String("shapefile", "", "shapefile to import at startup")
	flags.String("id-field", "", "shapefile attribute holding point ids")
	flags.String("log-level", "info", "logrus level")
	if err := cfg.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func formatExt(format string) (string, error) {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "zst", "zstd":
		return cluster.ExtZstd, nil
	case "lz4":
		return cluster.ExtLZ4, nil
	case "bin", "mmap":
		return cluster.ExtMMap, nil
	}
	return "", fmt.Errorf("unknown dataset format %q", format)
}

func run() error {
	log := logrus.WithField("component", "server")

	ext, err := formatExt(cfg.GetString("format"))
	if err != nil {
		return err
	}

	hub := NewHub(log.WithField("component", "hub"))
	server, err := NewClusterServer(ServerConfig{
		DataDir:          cfg.GetString("data-dir"),
		Format:           ext,
		SideWidth:        cfg.GetFloat64("side-width"),
		MinSidePixels:    cfg.GetFloat64("min-side-pixels"),
		MaxResolution:    cfg.GetFloat64("max-resolution"),
		DisableAnimation: cfg.GetBool("disable-animation"),
	}, hub, log)
	if err != nil {
		return err
	}

	switch {
	case cfg.GetString("shapefile") != "":
		info, err := server.ImportShapefile(cfg.GetString("shapefile"), cfg.GetString("id-field"))
		if err != nil {
			return err
		}
		log.WithField("dataset", info.ID).Info("imported shapefile")
	case cfg.GetString("dataset") != "":
		if _, err := server.Load(cfg.GetString("dataset")); err != nil {
			return err
		}
	default:
		log.Info("started without a dataset, waiting for one to be created or loaded")
	}

	if logrus.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:    cfg.GetString("addr"),
		Handler: server.Router(),
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
