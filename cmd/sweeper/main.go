package main

import (
	"context"
	"log"
	"os"
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
	statsrepo "github.com/doerdesk/doerdesk-backend/internal/stats/repository"
	statssvc "github.com/doerdesk/doerdesk-backend/internal/stats/service"
	workflowrepo "github.com/doerdesk/doerdesk-backend/internal/workflow/repository"
	workflowsvc "github.com/doerdesk/doerdesk-backend/internal/workflow/service"
)

// Standalone auto-approval sweeper. Run "sweeper once" from a system
// scheduler, or "sweeper loop [interval]" as a long-lived worker.
// Multiple instances may run against the same database.
func main() {
	mode := "once"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

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

	sqlDB, err := bootstrap.OpenSQL(ctx, cfg.Database.DSN())
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
	ledgerService := ledgersvc.NewLedgerService(walletRepo, publisher, zlog)

	aggregator := statssvc.NewAggregator(statsrepo.NewStatsRepository(sqlDB), projectRepo, zlog, cfg.Engine.StatsQueueSize)
	aggregator.Start(ctx)

	machine := workflowsvc.NewStateMachine(projectRepo, ledgerService, publisher, aggregator, zlog,
		workflowsvc.WithGrace(time.Duration(cfg.Engine.AutoApproveGraceHours)*time.Hour))

	calc := quotessvc.NewCalculator(pricing.Default(), quotessvc.Split{
		SupervisorPct: cfg.Engine.SupervisorPct,
		PlatformPct:   cfg.Engine.PlatformPct,
	})

	eng := enginesvc.NewEngine(machine, ledgerService,
		projectRepo, quotesrepo.NewQuoteRepository(sqlDB),
		auditrepo.NewHistoryRepository(sqlDB),
		accountsrepo.NewProfileRepository(sqlDB), calc, zlog)

	sweeper := scheduler.NewSweeper(projectRepo, eng, zlog, cfg.Engine.SweepBatchSize)

	switch mode {
	case "once":
		if _, err := sweeper.SweepOnce(ctx); err != nil {
			zlog.Fatal("sweep failed", zap.Error(err))
		}
	case "loop":
		interval := 5 * time.Minute
		if len(os.Args) > 2 {
			if d, err := time.ParseDuration(os.Args[2]); err == nil {
				interval = d
			}
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := sweeper.SweepOnce(ctx); err != nil {
				zlog.Error("sweep failed", zap.Error(err))
			}
			<-ticker.C
		}
	default:
		log.Fatalf("unknown mode: %s (want once|loop)", mode)
	}
}
