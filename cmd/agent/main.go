// The agent keeps a logged-in rider's or driver's booking state warm on a
// device: it loads the persisted session, mounts the screens for that
// role, reloads them on an interval, follows server push, and serves
// local diagnostics.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/tricy-client/internal/archive"
	"github.com/example/tricy-client/internal/booking"
	"github.com/example/tricy-client/internal/config"
	"github.com/example/tricy-client/internal/diag"
	"github.com/example/tricy-client/internal/fare"
	"github.com/example/tricy-client/internal/gateway"
	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/mirror"
	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/push"
	"github.com/example/tricy-client/internal/session"
	sig "github.com/example/tricy-client/internal/signal"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAgentConfig()
	if err != nil {
		logging.NewLogger("info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.NewLogger(cfg.LogLevel)

	bus := sig.NewBus()

	var sessions session.Store
	var redisStore *session.RedisStore
	if cfg.RedisAddr != "" {
		redisStore = session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, bus, log)
		sessions = redisStore
	} else {
		sessions = session.NewFileStore(cfg.SessionDir, bus, log)
	}

	gw := gateway.New(cfg.APIBaseURL, sessions, log)
	gw.HTTPClient.Timeout = cfg.RequestTimeout

	estimator := fare.NewEstimator(cfg.BaseFare, cfg.PerKm)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	diagSrv := diag.NewServer(estimator, log)
	if redisStore != nil {
		diagSrv.AddProbe("redis", redisStore.Ping)
	}

	var store archive.BookingArchive
	if cfg.PGDSN != "" {
		pg, err := archive.NewPostgresArchive(cfg.PGDSN)
		if err != nil {
			log.Error("postgres archive unavailable", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		diagSrv.AddProbe("postgres", pg.Ping)
		store = pg
	}

	httpSrv := &http.Server{Addr: cfg.DiagAddr, Handler: diagSrv}
	go func() {
		log.Info("diagnostics listening", "addr", cfg.DiagAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("diagnostics server stopped", "error", err)
		}
	}()

	if len(cfg.KafkaBrokers) > 0 {
		pub := mirror.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		pub.Attach(bus)
		defer pub.Close()
		log.Info("mirroring booking updates", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	if cfg.PushURL != "" {
		listener := push.NewListener(cfg.PushURL, bus, log)
		go listener.Run(ctx)
		log.Info("following server push", "url", cfg.PushURL)
	}

	sess, err := sessions.Load()
	if err != nil {
		log.Error("loading session", "error", err)
		os.Exit(1)
	}
	if sess == nil {
		log.Info("no session on this device, log in with tricyctl; idling")
	} else {
		go runScreens(ctx, cfg, gw, bus, store, sess, log)
	}

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

// runScreens mounts the screens for the session's role and reloads them
// on the configured interval until the agent stops.
func runScreens(ctx context.Context, cfg config.AgentConfig, gw *gateway.Client, bus *sig.Bus, store archive.BookingArchive, sess *models.Session, log *slog.Logger) {
	reload := func(context.Context) error { return nil }

	switch sess.User.Role {
	case models.RoleDriver:
		screen := booking.NewDriverScreen(gw, bus, sess.User.ActorID(), log)
		if store != nil {
			screen.WithArchive(store)
		}
		screen.Mount()
		defer screen.Unmount()
		reload = func(ctx context.Context) error {
			_, err := screen.Load(ctx)
			return err
		}
	default:
		screen := booking.NewPassengerScreen(gw, bus, sess.User.UserID, log)
		screen.Mount()
		defer screen.Unmount()
		reload = func(ctx context.Context) error {
			_, err := screen.Load(ctx)
			return err
		}
	}

	if err := reload(ctx); err != nil {
		if gateway.IsUnauthorized(err) {
			log.Warn("session rejected by server, logged out")
			return
		}
		log.Warn("initial load failed", "error", err)
	}

	ticker := time.NewTicker(cfg.ReloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := reload(ctx); err != nil {
				if gateway.IsUnauthorized(err) {
					log.Warn("session rejected by server, logged out")
					return
				}
				log.Warn("reload failed", "error", err)
			}
		}
	}
}
