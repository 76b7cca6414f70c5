package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/doerdesk/doerdesk-backend/config"
	accountsrepo "github.com/doerdesk/doerdesk-backend/internal/accounts/repository"
	auditrepo "github.com/doerdesk/doerdesk-backend/internal/audit/repository"
	"github.com/doerdesk/doerdesk-backend/internal/bootstrap"
	enginesvc "github.com/doerdesk/doerdesk-backend/internal/engine/service"
	"github.com/doerdesk/doerdesk-backend/internal/events"
	ledgerrepo "github.com/doerdesk/doerdesk-backend/internal/ledger/repository"
	ledgersvc "github.com/doerdesk/doerdesk-backend/internal/ledger/service"
	"github.com/doerdesk/doerdesk-backend/internal/logger"
	"github.com/doerdesk/doerdesk-backend/internal/quotes/pricing"
	quotesrepo "github.com/doerdesk/doerdesk-backend/internal/quotes/repository"
	quotessvc "github.com/doerdesk/doerdesk-backend/internal/quotes/service"
	"github.com/doerdesk/doerdesk-backend/internal/scheduler"
	cronjob "github.com/doerdesk/doerdesk-backend/internal/scheduler/cron"
	statsrepo "github.com/doerdesk/doerdesk-backend/internal/stats/repository"
	statssvc "github.com/doerdesk/doerdesk-backend/internal/stats/service"
	workflowrepo "github.com/doerdesk/doerdesk-backend/internal/workflow/repository"
	workflowsvc "github.com/doerdesk/doerdesk-backend/internal/workflow/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.App.Environment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dsn := cfg.Database.DSN()

	pool, err := bootstrap.OpenPool(ctx, bootstrap.DBOptions{DSN: dsn})
	if err != nil {
		zlog.Fatal("open pgx pool", zap.Error(err))
	}
	defer pool.Close()

	sqlDB, err := bootstrap.OpenSQL(ctx, dsn)
	if err != nil {
		zlog.Fatal("open sql db", zap.Error(err))
	}
	defer sqlDB.Close()

	redisClient, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		zlog.Fatal("open redis", zap.Error(err))
	}
	defer redisClient.Close()

	publisher := events.NewPublisher(redisClient, zlog)

	walletRepo := ledgerrepo.NewWalletRepository(sqlDB)
	projectRepo := workflowrepo.NewProjectRepository(sqlDB)
	historyRepo := auditrepo.NewHistoryRepository(sqlDB)
	quoteRepo := quotesrepo.NewQuoteRepository(sqlDB)
	profileRepo := accountsrepo.NewProfileRepository(sqlDB)

	ledgerService := ledgersvc.NewLedgerService(walletRepo, publisher, zlog)

	aggregator := statssvc.NewAggregator(statsrepo.NewStatsRepository(sqlDB), projectRepo, zlog, cfg.Engine.StatsQueueSize)
	aggregator.Start(ctx)

	machine := workflowsvc.NewStateMachine(projectRepo, ledgerService, publisher, aggregator, zlog,
		workflowsvc.WithGrace(time.Duration(cfg.Engine.AutoApproveGraceHours)*time.Hour))

	calc := quotessvc.NewCalculator(pricing.Default(), quotessvc.Split{
		SupervisorPct: cfg.Engine.SupervisorPct,
		PlatformPct:   cfg.Engine.PlatformPct,
	})

	eng := enginesvc.NewEngine(machine, ledgerService, projectRepo, quoteRepo, historyRepo, profileRepo, calc, zlog)

	sweeper := scheduler.NewSweeper(projectRepo, eng, zlog, cfg.Engine.SweepBatchSize)
	cronScheduler := cronjob.NewScheduler(sweeper, cfg.Engine.SweepCronSpec, zlog)
	if err := cronScheduler.Start(ctx); err != nil {
		zlog.Fatal("start scheduler", zap.Error(err))
	}
	defer cronScheduler.Stop()

	bootstrap.SetGinMode(cfg.App.Environment)
	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "lifecycle-engine",
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		Pool:        pool,
		Engine:      eng,
	})

	zlog.Info("listening", zap.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
