package main

import (
	"context"
	"log"

	"smartplant/internal/config"
	"smartplant/internal/handler"
	"smartplant/internal/infra/aws"
	"smartplant/internal/infra/cache"
	"smartplant/internal/infra/classifier"
	"smartplant/internal/infra/db"
	"smartplant/internal/infra/events"
	"smartplant/internal/infra/httpclient"
	"smartplant/internal/infra/llm"
	"smartplant/internal/infra/notify"
	infraRepo "smartplant/internal/infra/repository"
	"smartplant/internal/infra/storage"
	"smartplant/internal/logger"
	mw "smartplant/internal/middleware"
	"smartplant/internal/server"
	"smartplant/internal/usecase"
	auth "smartplant/internal/usecase/auth_usecase"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server_failed", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx := context.Background()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	resetRepo := infraRepo.NewPasswordResetGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	plantRepo := infraRepo.NewPlantGormRepository(gormDB)
	conversationRepo := infraRepo.NewConversationGormRepository(gormDB)
	chatMessageRepo := infraRepo.NewChatMessageGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//Redis（任意）。無ければアクセストークンの即時失効なし
	var (
		denylistMW mw.TokenDenylist
		denylistUC usecase.AccessTokenDenylist
	)
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg)
		if err != nil {
			zl.Warn("redis_unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			dl := cache.NewTokenDenylist(rdb)
			denylistMW, denylistUC = dl, dl
		}
	}

	//AWS（S3: 植物画像 / SNS: 注文イベント）
	awsCfg, err := aws.LoadConfig(ctx, cfg)
	if err != nil {
		return err
	}
	var images storage.ImageStore
	if cfg.S3Bucket != "" {
		images = storage.NewS3ImageStore(awsCfg, cfg.S3Bucket, cfg.AWSEndpoint)
	}
	var publisher events.OrderPublisher = events.NoopPublisher{}
	if cfg.OrderEventsTopicARN != "" {
		publisher = events.NewSNSOrderPublisher(awsCfg, cfg.OrderEventsTopicARN, cfg.AWSEndpoint)
	}

	//外部サービス
	mailer := notify.NewSMTPSender(cfg)
	httpClient := httpclient.New(cfg.ExternalTimeout, zl)
	completer := llm.NewClient(httpClient, cfg.ChatAPIURL, cfg.ChatAPIKey, cfg.ChatModel, cfg.ChatTemperature)
	imageClassifier := classifier.NewHTTPClassifier(httpClient, cfg.ClassifierURL)

	//usecaseに渡す部品
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()
	issuer := auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	clock := auth.SystemClock{}

	//Usecase生成
	otpUC := usecase.NewOTPUsecase(txm, userRepo, auth.NewRandomCodeGenerator(), mailer, cfg.FEURL, zl)
	authUC := usecase.NewAuthUsecase(
		txm, userRepo, rtRepo, resetRepo,
		hasher, verifier, issuer, auth.UUIDGenerator{}, clock,
		otpUC, mailer, denylistUC,
		usecase.AuthConfig{RefreshTTL: cfg.RefreshTokenTTL, PasswordResetTTL: cfg.PasswordResetTTL, FEURL: cfg.FEURL},
		zl,
	)
	addressUC := usecase.NewAddressUsecase(addressRepo)
	productUC := usecase.NewProductUsecase(txm, categoryRepo, productRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, addressRepo, publisher, zl)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderRepo, publisher, zl)
	plantUC := usecase.NewPlantUsecase(plantRepo, images, zl)
	chatUC := usecase.NewChatUsecase(conversationRepo, chatMessageRepo, completer, zl)
	diseaseUC := usecase.NewDiseaseUsecase(imageClassifier, zl)
	auditUC := usecase.NewAuditLogUsecase(infraRepo.NewAuditLogGormRepository(gormDB))

	//Handler生成
	handlers := server.Handlers{
		Auth:       handler.NewAuthHandler(authUC),
		AdminUser:  handler.NewAdminUserHandler(authUC),
		Address:    handler.NewAddressHandler(addressUC),
		Product:    handler.NewProductHandler(productUC),
		Cart:       handler.NewCartHandler(cartUC),
		Order:      handler.NewOrderHandler(orderUC),
		AdminOrder: handler.NewAdminOrderHandler(adminOrderUC),
		AdminAudit: handler.NewAdminAuditHandler(auditUC),
		Plant:      handler.NewPlantHandler(plantUC),
		Chat:       handler.NewChatHandler(chatUC),
		Disease:    handler.NewDiseaseHandler(diseaseUC),
	}

	e := server.New(cfg, zl)
	server.RegisterRoutes(e, cfg, zl, handlers, server.Guards{
		Parser:   issuer,
		Denylist: denylistMW,
		Users:    userRepo,
	})

	zl.Info("config_loaded",
		zap.String("env", cfg.GoEnv),
		zap.Bool("redis", denylistMW != nil),
		zap.Bool("s3", images != nil),
		zap.Bool("sns", cfg.OrderEventsTopicARN != ""),
		zap.Duration("access_ttl", cfg.AccessTokenTTL),
	)

	//Server起動
	return server.Run(e, ":"+cfg.Port, zl)
}
