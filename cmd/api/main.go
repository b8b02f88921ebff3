package main

import (
	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/logger"
	"app/internal/mailer"
	"app/internal/notification"
	"app/internal/payment"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	//.envはあれば読む（本番は環境変数だけ）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.Notification{},
		&model.AuditLog{},
	); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	txManager := infraRepo.NewTxManagerGorm(gormDB)
	notifRepo := infraRepo.NewNotificationGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)

	//決済ゲートウェイ
	gateways := map[string]payment.Gateway{}
	for _, gw := range []payment.Gateway{payment.NewJazzCash(cfg), payment.NewEasypaisa(cfg)} {
		gateways[gw.Name()] = gw
	}

	//セラー通知パイプライン
	relay := mailer.NewRelayMailer(cfg)
	pipeline := notification.NewPipeline(notifRepo, relay, cfg.SellerUserID, cfg.SellerEmail, log)

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(txManager, gateways, pipeline, log)
	sellerOrderUC := usecase.NewSellerOrderUsecase(txManager, auditRepo)
	sellerNotifUC := usecase.NewSellerNotificationUsecase(txManager, auditRepo)

	//Handler生成
	orderH := handler.NewOrderHandler(orderUC)
	paymentH := handler.NewPaymentHandler(orderUC)
	sellerOrderH := handler.NewSellerOrderHandler(sellerOrderUC)
	sellerNotifH := handler.NewSellerNotificationHandler(sellerNotifUC)

	//Server起動
	e := server.New(cfg, orderH, paymentH, sellerOrderH, sellerNotifH)

	addr := ":" + cfg.Port
	if cfg.Port != "" && cfg.Port[0] == ':' {
		addr = cfg.Port
	}

	log.Info("starting api server", zap.String("addr", addr))
	if err := server.Start(addr, e); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
