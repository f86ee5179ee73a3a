// Command collabd serves the real-time collaboration core of the diagram
// editor: WebSocket channels per diagram, distributed element locks in
// Redis, and cross-instance event relay over Kafka.
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

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/erdlab/collab/bus"
	"github.com/erdlab/collab/lock"
	"github.com/erdlab/collab/logger"
	"github.com/erdlab/collab/relay"
	"github.com/erdlab/collab/session"
	"github.com/erdlab/collab/store"
	"github.com/erdlab/collab/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "collabd",
		Short: "Collaboration server for the diagram editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			return run(v)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config file")
	return cmd
}

// loadConfig reads configuration from the optional file, the environment
// (COLLABD_ prefix), and built-in defaults, in that order of precedence.
func loadConfig(configFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("listen", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "erd.collaboration")
	v.SetDefault("lock.heartbeat_ttl", lock.DefaultHeartbeatTTL)
	v.SetDefault("lock.sweep_interval", lock.DefaultSweepInterval)
	v.SetDefault("lock.enable_sweeper", true)

	v.SetEnvPrefix("COLLABD")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return v, nil
}

func run(v *viper.Viper) error {
	log := logger.NewStdLogger(v.GetString("log.level"))

	st := store.NewRedisStore(redis.NewClient(&redis.Options{
		Addr: v.GetString("redis.addr"),
	}))
	defer st.Close()

	locks := lock.NewManager(st,
		lock.WithLogger(log),
		lock.WithHeartbeatTTL(v.GetDuration("lock.heartbeat_ttl")),
		lock.WithSweepInterval(v.GetDuration("lock.sweep_interval")),
		lock.WithSweeper(v.GetBool("lock.enable_sweeper")),
	)
	defer locks.Close()

	hub := ws.NewHub(locks, log)

	// Each instance consumes the full collaboration stream, so the
	// consumer group must be unique per process.
	var b bus.Bus
	if brokers := v.GetStringSlice("kafka.brokers"); len(brokers) > 0 {
		kb := bus.NewKafkaBus(bus.KafkaConfig{
			Brokers: brokers,
			Topic:   v.GetString("kafka.topic"),
			GroupID: "collabd-" + uuid.NewString(),
			Logger:  log,
		})
		defer kb.Close()
		b = kb
	} else {
		log.Warnw("no kafka brokers configured, replicated events stay instance-local")
	}

	r := relay.New(hub, relay.WithBus(b), relay.WithLogger(log))
	cleaner := session.NewCleaner(locks, r, log)
	hub.Bind(r, cleaner)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := r.Run(ctx); err != nil {
			log.Errorw("bus subscription ended", "error", err)
		}
	}()

	resolver := ws.HeaderIdentityResolver{}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/ws/:diagram", hub.HandleWS(resolver))
	ws.NewLockAPI(locks, resolver, log).Register(router.Group("/api"))

	srv := &http.Server{
		Addr:    v.GetString("listen"),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("collabd listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
