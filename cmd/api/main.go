package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bmoreira/tesouraria/internal/audit"
	auditStore "github.com/bmoreira/tesouraria/internal/audit/store"
	"github.com/bmoreira/tesouraria/internal/auth"
	"github.com/bmoreira/tesouraria/internal/config"
	"github.com/bmoreira/tesouraria/internal/database"
	"github.com/bmoreira/tesouraria/internal/directory"
	dirStore "github.com/bmoreira/tesouraria/internal/directory/store"
	"github.com/bmoreira/tesouraria/internal/graduation"
	gradStore "github.com/bmoreira/tesouraria/internal/graduation/store"
	tesourariaHttp "github.com/bmoreira/tesouraria/internal/http"
	auditHandler "github.com/bmoreira/tesouraria/internal/http/auditlog"
	authHandler "github.com/bmoreira/tesouraria/internal/http/authn"
	dirHandler "github.com/bmoreira/tesouraria/internal/http/directory"
	gradHandler "github.com/bmoreira/tesouraria/internal/http/graduation"
	ledgerHandler "github.com/bmoreira/tesouraria/internal/http/ledger"
	reportHandler "github.com/bmoreira/tesouraria/internal/http/report"
	rosterHandler "github.com/bmoreira/tesouraria/internal/http/rosterimport"
	"github.com/bmoreira/tesouraria/internal/ledger"
	ledgerStore "github.com/bmoreira/tesouraria/internal/ledger/store"
	"github.com/bmoreira/tesouraria/internal/memstore"
	"github.com/bmoreira/tesouraria/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Auth.Secret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	users, err := auth.ParseUsers(cfg.Auth.Users)
	if err != nil {
		slog.Error("failed to parse AUTH_USERS", "error", err)
		os.Exit(1)
	}

	var (
		dirRepo    directory.Repository
		ledgerRepo ledger.Repository
		auditRepo  audit.Repository
		gradRepo   graduation.Repository
	)

	if cfg.Demo {
		slog.Info("running in demo mode, data will not survive a restart")

		mem := memstore.New()
		dirRepo, ledgerRepo, auditRepo, gradRepo = mem, mem, mem, mem
	} else {
		db, err := database.New(cfg.ConnectionString(), database.Pool{
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		dirRepo = dirStore.New(db)
		ledgerRepo = ledgerStore.New(db)
		auditRepo = auditStore.New(db)
		gradRepo = gradStore.New(db)
	}

	var (
		directoryService  = directory.NewService(dirRepo)
		ledgerService     = ledger.NewService(ledgerRepo)
		auditService      = audit.NewService(auditRepo)
		graduationService = graduation.NewService(gradRepo)
		reportService     = report.NewService(ledgerService, directoryService)
	)

	secret := []byte(cfg.Auth.Secret)

	var (
		authH      = authHandler.NewHandler(users, secret, cfg.Auth.TTL)
		directoryH = dirHandler.NewHandler(directoryService)
		ledgerH    = ledgerHandler.NewHandler(ledgerService)
		gradH      = gradHandler.NewHandler(graduationService)
		rosterH    = rosterHandler.NewHandler(graduationService)
		reportH    = reportHandler.NewHandler(reportService)
		auditH     = auditHandler.NewHandler(auditService)
	)

	router := tesourariaHttp.New(secret, authH, directoryH, ledgerH, gradH, rosterH, reportH, auditH)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "addr", addr, "demo", cfg.Demo)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	if err := server.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
