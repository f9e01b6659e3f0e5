package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "busyatri/internal/config"
	intdb "busyatri/internal/db"
	router "busyatri/internal/http"
	h "busyatri/internal/http/handlers"
	"busyatri/internal/notify"
	"busyatri/internal/repositories"
	"busyatri/internal/services"
	"busyatri/internal/utils"

	"github.com/gin-gonic/gin"
)

type backend struct {
	store services.Store
	ping  func() error
	close func()
}

func openStore(ctx context.Context, env intconfig.Env) (backend, error) {
	switch env.StoreBackend {
	case intconfig.BackendMemory, "":
		return backend{store: repositories.NewMemoryStore(), close: func() {}}, nil

	case intconfig.BackendMySQL:
		db, err := intconfig.ConnectDB(env.MySQLDSN)
		if err != nil {
			return backend{}, err
		}
		if err := intdb.EnsureSchema(ctx, db); err != nil {
			intconfig.CloseDB()
			return backend{}, fmt.Errorf("ensure schema: %w", err)
		}
		return backend{
			store: repositories.NewMySQLStore(db),
			ping:  func() error { return intconfig.EnsureDB(context.Background()) },
			close: intconfig.CloseDB,
		}, nil

	case intconfig.BackendMongo:
		client, err := intconfig.ConnectMongo(ctx, env.MongoURI)
		if err != nil {
			return backend{}, err
		}
		store := repositories.NewMongoStore(client, env.MongoDB, env.MongoTransactions)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return backend{}, fmt.Errorf("ensure indexes: %w", err)
		}
		return backend{
			store: store,
			ping: func() error {
				pctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return client.Ping(pctx, nil)
			},
			close: func() {
				cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(cctx)
			},
		}, nil
	}
	return backend{}, fmt.Errorf("unknown STORE_BACKEND %q", env.StoreBackend)
}

func openNotifier(env intconfig.Env) (*notify.Dispatcher, func()) {
	if env.NotifySink == intconfig.SinkKafka {
		w := notify.NewKafkaWriter(env.KafkaBrokers, env.KafkaTopic)
		d := notify.NewDispatcher(notify.KafkaSender{Writer: w}, env.NotifyWorkers, env.NotifyBuffer)
		return d, func() { _ = w.Close() }
	}
	return notify.NewDispatcher(notify.LogSender{}, env.NotifyWorkers, env.NotifyBuffer), func() {}
}

func main() {
	env := intconfig.LoadEnv()
	utils.ConfigureLogger(env.LogLevel, env.LogFormat, os.Stdout)
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	be, err := openStore(startCtx, env)
	if err != nil {
		cancelStart()
		utils.Log.WithError(err).Fatal("failed to open store")
	}
	defer be.close()

	dispatcher, closeSink := openNotifier(env)
	defer closeSink()

	trips := services.TripService{Store: be.store}
	if env.SeedDemo {
		n, err := trips.SeedDemo(startCtx, time.Now().AddDate(0, 0, 1).Format("2006-01-02"))
		if err != nil {
			utils.Log.WithError(err).Warn("demo seed failed")
		} else if n > 0 {
			utils.LogEvent("", "main", "seed", fmt.Sprintf("created %d demo trips", n))
		}
	}
	cancelStart()

	hd := h.Handler{
		Reservations: services.NewReservationService(be.store, dispatcher, env.StoreTimeout),
		Trips:        trips,
		Auth: services.AuthService{
			Users:       be.store,
			Secret:      []byte(env.JWTSecret),
			TTL:         env.JWTTTL,
			AdminEmails: env.AdminEmails,
		},
		Tickets: services.TicketService{Store: be.store},
		Ping:    be.ping,
	}
	r := router.NewRouter(env, hd)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		utils.LogEvent("", "main", "listen", fmt.Sprintf("server listening on %s (store=%s, notify=%s)", env.AppAddr, env.StoreBackend, env.NotifySink))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	utils.LogEvent("", "main", "shutdown", "shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		utils.Log.WithError(err).Error("server shutdown failed")
	}
	if err := dispatcher.Close(ctx); err != nil {
		utils.Log.WithError(err).Warn("notification queue not drained")
	}

	utils.LogEvent("", "main", "shutdown", "server stopped")
}
