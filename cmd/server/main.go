package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suPer8Hu/order-assistant/internal/ai"
	"github.com/suPer8Hu/order-assistant/internal/assistant"
	"github.com/suPer8Hu/order-assistant/internal/catalog"
	"github.com/suPer8Hu/order-assistant/internal/chat"
	"github.com/suPer8Hu/order-assistant/internal/config"
	"github.com/suPer8Hu/order-assistant/internal/db"
	"github.com/suPer8Hu/order-assistant/internal/email"
	"github.com/suPer8Hu/order-assistant/internal/httpapi"
	"github.com/suPer8Hu/order-assistant/internal/httpapi/handlers"
	"github.com/suPer8Hu/order-assistant/internal/identity"
	"github.com/suPer8Hu/order-assistant/internal/logging"
	"github.com/suPer8Hu/order-assistant/internal/models"
	"github.com/suPer8Hu/order-assistant/internal/notify"
	"github.com/suPer8Hu/order-assistant/internal/order"
	"github.com/suPer8Hu/order-assistant/internal/store/rabbitmq"
	"github.com/suPer8Hu/order-assistant/internal/store/redisstore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	gdb := db.Connect(cfg.DBDSN, log)
	if cfg.DBAutoMigrate {
		if err := db.Migrate(gdb,
			&models.User{},
			&order.Record{}, &order.Item{},
			&chat.Session{}, &chat.Message{},
			&notify.Job{},
		); err != nil {
			log.Fatal("auto migrate", zap.Error(err))
		}
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rds.Close() }()
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rds.Ping(pingCtx); err != nil {
		log.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	cancel()

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		if cat, err = catalog.LoadFile(cfg.CatalogPath); err != nil {
			log.Fatal("load catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
		}
	}

	reg := ai.NewRegistryFromConfig(cfg)
	gen := ai.NewStoreGenerator(reg, cfg.AIProvider, cfg.AIModel, cfg.StoreName, cat.Names())
	log.Info("ai providers", zap.Strings("registered", reg.Names()), zap.String("selected", cfg.AIProvider))

	orders := order.NewRepo(gdb)
	if err := orders.CheckSchema(context.Background()); err != nil {
		// orders still degrade to fallback records, see the !check schema command
		log.Warn("order schema check failed", zap.Error(err))
	}

	notifier, closeNotifier := buildNotifier(cfg, gdb, orders, log)
	defer closeNotifier()

	newEngine := func() (*assistant.Engine, error) {
		return assistant.New(assistant.Deps{
			Catalog:   cat,
			Identity:  identity.ContextSource{},
			Store:     orders,
			Notifier:  notifier,
			Generator: gen,
			Log:       log.Named("assistant"),
			StoreName: cfg.StoreName,
		})
	}
	chatSvc := chat.NewService(chat.NewRepo(gdb), rds, newEngine, cfg.DialogueStateTTL, log.Named("chat"))

	h := handlers.NewHandler(gdb, cfg, log, chatSvc, orders)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h, cfg.JWTSecret, log.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server started", zap.String("addr", cfg.HTTPAddr), zap.String("notify_mode", cfg.NotifyMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

// buildNotifier returns the inline SMTP mailer, or in queue mode a notifier
// that hands every email and reconciliation to the worker.
func buildNotifier(cfg config.Config, gdb *gorm.DB, orders *order.Repo, log *zap.Logger) (assistant.Notifier, func()) {
	if cfg.NotifyMode != "queue" {
		sender := notify.SMTPSender{Cfg: email.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		}}
		return notify.NewMailer(sender, orders, cfg.StoreName, log.Named("mailer")), func() {}
	}

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatal("rabbit publisher", zap.Error(err))
	}
	q := notify.NewQueueNotifier(notify.NewJobRepo(gdb), pub, log.Named("notify"))
	return q, func() { _ = pub.Close() }
}
