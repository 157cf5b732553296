package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "eldom_bridge/docs"
	"eldom_bridge/internal/coordinator"
	"eldom_bridge/internal/handlers"
	"eldom_bridge/internal/logger"
	"eldom_bridge/internal/mqtt"
	"eldom_bridge/internal/repository"
	"eldom_bridge/internal/repository/db"
	"eldom_bridge/internal/server"
	"eldom_bridge/internal/service"

	"github.com/spf13/viper"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// @title        eldom_bridge API
// @version      1.0
// @description  Eldom water heaters and convectors as controllable entities.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// load config.yml; the logger level comes from it
	cfgErr := loadConfig()
	log := logger.Get(viper.GetString("log.level"))
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, service.Options{
		Connector: &service.VendorConnector{
			ClassicURL: viper.GetString("eldom.classic_url"),
			IoTURL:     viper.GetString("eldom.iot_url"),
			Timeout:    durationOr("http.timeout", defaultHTTPTimeout),
			Log:        log.Named("eldom"),
		},
		PollInterval: durationOr("poll.interval", coordinator.DefaultInterval),
		SigningKey:   viper.GetString("auth.signing_key"),
		TokenTTL:     viper.GetDuration("auth.token_ttl"),
		Log:          log,
	})
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.Start(ctx); err != nil {
		log.Fatalw("failed to start entries", "err", err)
	}
	bootstrapEntry(ctx, services, log)

	var bridge *mqtt.Bridge
	if broker := viper.GetString("mqtt.broker"); broker != "" {
		bridge = mqtt.New(mqtt.Config{
			Broker:          broker,
			Username:        viper.GetString("mqtt.username"),
			Password:        viper.GetString("mqtt.password"),
			ClientID:        viper.GetString("mqtt.client_id"),
			DiscoveryPrefix: viper.GetString("mqtt.discovery_prefix"),
			TopicPrefix:     viper.GetString("mqtt.topic_prefix"),
		}, services.Control, log)
		if err := bridge.Start(ctx); err != nil {
			log.Errorw("mqtt bridge disabled", "err", err)
			bridge = nil
		}
	}

	// start HTTP server
	srv := server.New(log)
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, services, bridge, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	viper.SetEnvPrefix("ELDOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("log.level", logger.InfoLevel)
	viper.SetDefault("eldom.api", "eldom")
	return viper.ReadInConfig()
}

func durationOr(key string, def time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return def
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		dbPath = "app.db"
	}
	return db.InitDB(dbPath)
}

// bootstrapEntry adds the account from the config file once. During a vendor
// outage the entry is saved and retried in the background.
func bootstrapEntry(ctx context.Context, services *service.Service, log *logger.Logger) {
	username := viper.GetString("eldom.username")
	if username == "" {
		return
	}
	err := services.EnsureEntry(ctx, service.EntryParams{
		Username: username,
		Password: viper.GetString("eldom.password"),
		API:      viper.GetString("eldom.api"),
	})
	if err != nil {
		log.Errorw("bootstrap entry failed", "username", username, "err", err)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, bridge *mqtt.Bridge, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// allow in-flight requests to complete
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
	if bridge != nil {
		bridge.Stop()
	}
	if err := services.Shutdown(ctx); err != nil {
		log.Errorw("entries did not stop cleanly", "err", err)
	}

	// stop background goroutines
	cancel()
}
