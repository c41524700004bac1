package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"web/gridcluster/proto"
	"web/gridcluster/runner"
	"web/gridcluster/store"
)

var cfg = viper.New()

var options = []struct {
	name, usage string
	defaultVal  interface{}
}{
	{"config", "config file (yaml, toml or json) holding any of these options", ""},
	{"port", "the gRPC server port", 50051},
	{"max-datasets", "maximum number of datasets kept in memory", runner.DefaultMaxDatasets},
	{"data-dir", "directory holding the compressed point files", "data/datasets"},
	{"db", "SQLite point store; datasets in it are streamed by viewport", ""},
	{"side-width", "finest grid cell side in projection units", runner.DefaultSideWidth},
	{"min-side-pixels", "minimum on-screen cell size", 30.0},
	{"idle-timeout", "evict datasets not accessed for this long", runner.DefaultIdleTimeout},
	{"log-level", "logrus level", "info"},
}

var rootCmd = &cobra.Command{
	Use:   "runners",
	Short: "Serve grid clustering over gRPC",
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
		return serve()
	},
	SilenceUsage: true,
}

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg.SetEnvPrefix("GRIDCLUSTER")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	flags := rootCmd.Flags()
	for _, o := range options {
		switch v := o.defaultVal.(type) {
		case string:
			flags.String(o.name, v, o.usage)
		case int:
			flags.Int(o.name, v, o.usage)
		case float64:
			flags.Float64(o.name, v, o.usage)
		case time.Duration:
			flags.Duration(o.name, v, o.usage)
		}
		if err := cfg.BindPFlag(o.name, flags.Lookup(o.name)); err != nil {
			panic(err)
		}
	}
}

func serve() error {
	log := logrus.WithField("component", "runner")

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GetInt("port")))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	var pointStore *store.Store
	if path := cfg.GetString("db"); path != "" {
		pointStore, err = store.Open(path)
		if err != nil {
			return err
		}
		defer pointStore.Close()
		log.WithField("db", path).Info("using point store")
	}

	clusterRunner, err := runner.NewClusterRunner(runner.Config{
		DataDir:       cfg.GetString("data-dir"),
		MaxDatasets:   cfg.GetInt("max-datasets"),
		IdleTimeout:   cfg.GetDuration("idle-timeout"),
		SideWidth:     cfg.GetFloat64("side-width"),
		MinSidePixels: cfg.GetFloat64("min-side-pixels"),
		Store:         pointStore,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	defer clusterRunner.Close()

	s := grpc.NewServer()
	proto.RegisterClusterServiceServer(s, clusterRunner)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("shutting down gRPC server")
		s.GracefulStop()
	}()

	log.WithField("port", cfg.GetInt("port")).Info("starting gRPC server")
	if err := s.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
