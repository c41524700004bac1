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
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"web/gridcluster/proto"
)

var cfg = viper.New()

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "HTTP front end for the grid clustering runner",
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
	flags.String("runner", "localhost:50051", "gRPC address of the cluster runner")
	flags.Float64("rate", 50, "requests per second allowed across all clients")
	flags.Int("burst", 100, "request burst size")
	flags.String("log-level", "info", "logrus level")
	if err := cfg.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func run() error {
	log := logrus.WithField("component", "api")

	conn, err := grpc.NewClient(cfg.GetString("runner"),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to cluster runner: %w", err)
	}
	defer conn.Close()

	client := proto.NewClusterServiceClient(conn)
	server := NewServer(client, rate.NewLimiter(rate.Limit(cfg.GetFloat64("rate")), cfg.GetInt("burst")), log)

	// Default to the most recent dataset if any exist.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if resp, err := client.ListDatasets(ctx, &proto.ListDatasetsRequest{}); err == nil && len(resp.Datasets) > 0 {
		server.setDefault(resp.Datasets[0].Id)
	} else if err != nil {
		log.WithError(err).Warn("could not list datasets")
	}
	cancel()

	if logrus.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:    cfg.GetString("addr"),
		Handler: server.Router(),
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
