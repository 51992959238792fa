package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/http/controller"
	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/http/middleware"
	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/http/router"
	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/memory"
	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/postgres"
	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/config"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/logger"
	"github.com/PersonalHub360/gateway-sub002/src/internal/notify"
	"github.com/PersonalHub360/gateway-sub002/src/internal/policy"
	"github.com/PersonalHub360/gateway-sub002/src/internal/usecase/services"
	"golang.org/x/sync/errgroup"
)

type repositories struct {
	Transactions repo_interfaces.TransactionRepository
	Accounts     repo_interfaces.AccountRepository
	Ledger       repo_interfaces.LedgerRepository
	Audit        repo_interfaces.AuditRepository
	Actors       repo_interfaces.ActorRepository
	Close        func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policies, err := policy.NewFileProvider(cfg.PolicyFile)
	if err != nil {
		log.Fatalf("load policy: %v", err)
	}

	repos, err := buildRepositories(rootCtx, cfg)
	if err != nil {
		log.Fatalf("build repositories: %v", err)
	}
	defer func() {
		if repos.Close != nil {
			_ = repos.Close()
		}
	}()

	identity := services.NewIdentityService(repos.Actors)
	if err := identity.EnsureActor(rootCtx, cfg.AdminActorID, "Platform Administrator", cfg.AdminActorSecret, domain.ActorRoleAdministrator); err != nil {
		log.Fatalf("seed administrator: %v", err)
	}

	dispatcher := notify.NewLogDispatcher()
	transitioner := services.NewStatusTransitioner(repos.Transactions, repos.Audit, dispatcher)
	limits := services.NewLimitEnforcer(repos.Ledger)

	transactionService := services.NewTransactionService(
		repos.Transactions,
		repos.Accounts,
		repos.Ledger,
		repos.Audit,
		policies,
		limits,
		transitioner,
		cfg.Currency,
		cfg.FeeAccountID,
		cfg.SettlementAccountID,
		cfg.CommitRetries,
	)
	approvalService := services.NewApprovalService(
		repos.Transactions,
		repos.Accounts,
		repos.Ledger,
		identity,
		transitioner,
		cfg.FeeAccountID,
		cfg.SettlementAccountID,
		cfg.ReviewTTL,
	)
	accountService := services.NewAccountService(repos.Accounts, cfg.Currency, cfg.DefaultTimezone)

	mux := router.New(
		controller.NewTransactionController(transactionService, approvalService),
		controller.NewAccountController(accountService),
		middleware.BasicAuth(cfg.ChannelID, cfg.ChannelKey),
	)

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(rootCtx)

	group.Go(func() error {
		logger.Info("server listening", logger.Fields{"port": cfg.AppPort})
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		if err := approvalService.RunSweeper(ctx, cfg.SweepInterval); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		watchPolicyReload(ctx, policies)
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func buildRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	if cfg.DatabaseDSN == "" {
		store := memory.NewStore(cfg.Currency, cfg.FeeAccountID, cfg.SettlementAccountID, cfg.DefaultTimezone)
		logger.Info("using in-memory repositories", nil)
		return repositories{
			Transactions: memory.NewTransactionRepository(store),
			Accounts:     memory.NewAccountRepository(store),
			Ledger:       memory.NewLedgerRepository(store),
			Audit:        memory.NewAuditRepository(store),
			Actors:       memory.NewActorRepository(store),
		}, nil
	}

	if err := postgres.RunMigrations(ctx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
		return repositories{}, err
	}

	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return repositories{}, err
	}

	if err := postgres.EnsureSystemAccounts(ctx, db, cfg.Currency, cfg.FeeAccountID, cfg.SettlementAccountID, cfg.DefaultTimezone); err != nil {
		_ = db.Close()
		return repositories{}, err
	}

	logger.Info("using postgres repositories", nil)
	return repositories{
		Transactions: postgres.NewTransactionRepository(db),
		Accounts:     postgres.NewAccountRepository(db),
		Ledger:       postgres.NewLedgerRepository(db),
		Audit:        postgres.NewAuditRepository(db),
		Actors:       postgres.NewActorRepository(db),
		Close:        db.Close,
	}, nil
}

// watchPolicyReload swaps in a fresh policy snapshot whenever the process
// receives SIGHUP.
func watchPolicyReload(ctx context.Context, policies *policy.FileProvider) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := policies.Reload(); err != nil {
				logger.Error("policy reload failed", err, nil)
				continue
			}
			logger.Info("policy reloaded", nil)
		}
	}
}
