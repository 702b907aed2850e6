package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"community_hub/internal/config"
	"community_hub/internal/logger"
	"community_hub/internal/pkg"
	"community_hub/internal/repository/mysql"
	"community_hub/internal/repository/redis"
	"community_hub/internal/router"
	"community_hub/internal/service"
	"community_hub/internal/storage"
)

func main() {
	configPath := flag.String("c", "", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.Logger, cfg.Server.DevelopMode)
	defer logger.Sync()

	if err = pkg.InitSnowflake(cfg.Server.StartTime, cfg.Server.MachineID); err != nil {
		panic(err)
	}

	if err = mysql.InitDB(cfg.Database); err != nil {
		panic(err)
	}
	db := mysql.DB

	// 自动建表（开发阶段 OK）
	if err = mysql.Migrate(db); err != nil {
		panic(err)
	}

	// 连接redis
	rdb, err := redis.Init(cfg.Redis)
	if err != nil {
		panic(err)
	}
	defer rdb.Close()

	jwt := pkg.NewJWT(cfg.JWT)
	tokens := redis.NewUserRepository(rdb, jwt.AccessTTL())
	codes := redis.NewEmailRepository(rdb)
	roles := redis.NewRoleRepository(rdb)
	blobs := storage.NewQiniuStore(cfg.Qiniu)

	members := service.NewMembershipService(db, roles)
	emailSvc := service.NewEmailService(codes, pkg.NewSMTPMailer(cfg.SMTP), cfg.SMTP.CodeLength)

	// 领域事件投递，未启用 kafka 时只写日志
	var publisher pkg.Publisher = service.LogPublisher{}
	if cfg.Kafka.Enabled {
		producer := pkg.NewKafkaProducer(cfg.Kafka)
		defer producer.Close()
		publisher = producer
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	relayer := service.NewOutboxRelayer(db, publisher, cfg.Outbox)
	go relayer.Run(ctx)

	r := router.InitRouter(router.Deps{
		Server:       cfg.Server,
		JWT:          jwt,
		Tokens:       tokens,
		Users:        service.NewUserService(db, tokens, jwt, emailSvc, blobs, members.Authorizer()),
		Areas:        service.NewAreaService(db),
		Communities:  service.NewCommunityService(db, members),
		Members:      members,
		JoinRequests: service.NewJoinRequestService(db, members),
		Events:       service.NewEventService(db, members),
		Payments:     service.NewPaymentService(db, blobs, members.Authorizer()),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		logger.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("listen: %v", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
}
