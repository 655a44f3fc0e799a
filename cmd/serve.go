package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"food-delivery-backend/auth"
	"food-delivery-backend/events"
	"food-delivery-backend/handlers"
	"food-delivery-backend/middleware"
	"food-delivery-backend/routes"
	"food-delivery-backend/services"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(v)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
	cmd.Flags().Int("port", 0, "HTTP listen port")
	if err := v.BindPFlag("port", cmd.Flags().Lookup("port")); err != nil {
		panic(err)
	}
	return cmd
}

func serve(ctx context.Context, a *app) error {
	cfg, log := a.cfg, a.log
	gin.SetMode(cfg.GinMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	denylist, closeDenylist, err := newDenylist(ctx, a)
	if err != nil {
		return err
	}
	defer closeDenylist()

	publisher := newPublisher(a)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("Closing event publisher", zap.Error(err))
		}
	}()
	publisher = events.NewMetricsPublisher(reg, publisher)

	tokens := auth.NewTokenManager([]byte(cfg.JWT.Secret), cfg.JWT.TTL, denylist)
	svc := services.New(a.db, tokens, publisher, log, services.Options{
		AdminSignupEnabled: cfg.Admin.SignupEnabled,
	})
	if err := handlers.RegisterValidations(); err != nil {
		return fmt.Errorf("register validations: %w", err)
	}

	router := routes.NewRouter(handlers.New(svc), routes.Options{
		Log:            log,
		Tokens:         tokens,
		Registry:       reg,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthLimiter:    middleware.NewIPRateLimiter(cfg.Auth.RateLimit, cfg.Auth.RateBurst, 3*time.Minute),
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", zap.String("addr", srv.Addr), zap.String("db_driver", cfg.DB.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newDenylist uses Redis when an address is configured and the database
// otherwise.
func newDenylist(ctx context.Context, a *app) (auth.Denylist, func(), error) {
	if a.cfg.Redis.Addr == "" {
		return auth.NewGormDenylist(a.db), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", a.cfg.Redis.Addr, err)
	}
	a.log.Info("Token denylist backed by redis", zap.String("addr", a.cfg.Redis.Addr))
	return auth.NewRedisDenylist(rdb), func() { rdb.Close() }, nil
}

func newPublisher(a *app) events.Publisher {
	if len(a.cfg.Kafka.Brokers) == 0 {
		return events.Nop{}
	}
	a.log.Info("Publishing order events to kafka",
		zap.Strings("brokers", a.cfg.Kafka.Brokers),
		zap.String("topic", a.cfg.Kafka.Topic),
	)
	return events.NewKafkaPublisher(events.NewKafkaWriter(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic))
}
