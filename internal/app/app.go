package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cuprecap/internal/api"
	"cuprecap/internal/config"
	"cuprecap/internal/digest"
	"cuprecap/internal/httpx"
	"cuprecap/internal/integrations/llm"
	slackbot "cuprecap/internal/integrations/slack"
	"cuprecap/internal/recap"
	"cuprecap/internal/redemption"
	"cuprecap/internal/report"
	"cuprecap/internal/storage/sqlite"

	"github.com/slack-go/slack"
)

// Open initializes the database and the services every surface shares.
func Open(cfg config.Config) (*sql.DB, *recap.Service, error) {
	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	svc := recap.NewService(
		sqlite.NewOrderStore(db),
		report.NewBuilder(sqlite.NewRankingStore(db), cfg.Report),
		redemption.NewLedger(sqlite.NewKVStore(db)),
		llm.New(cfg),
	)
	return db, svc, nil
}

// Serve runs the HTTP API and, when configured, the Slack bot and the
// redemption digest until SIGINT or SIGTERM.
func Serve(cfg config.Config) error {
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Store=%s Device=%s Timezone=%s PeriodStart=%s WindowMonths=%d CatalogSize=%d TieBreak=%s Staff=%d LLM=%s ExternalHTTPTimeout=%s",
		cfg.StoreName,
		cfg.DeviceLabel,
		cfg.Timezone,
		cfg.ReportPeriodStart,
		cfg.Report.WindowMonths,
		cfg.Report.CatalogSize,
		cfg.Report.TieBreak,
		len(cfg.StaffSlackIDs),
		cfg.LLMProvider,
		appliedHTTPTimeout,
	)

	db, svc, err := Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Printf("Database initialized at %s", cfg.DBPath)

	if cfg.SlackConfigured() {
		slackAPI := slack.New(
			cfg.SlackBotToken,
			slack.OptionAppLevelToken(cfg.SlackAppToken),
		)
		digest.StartDigestScheduler(cfg, db, slackAPI)
		go func() {
			if err := slackbot.StartSlackBot(cfg, svc, slackAPI); err != nil {
				log.Printf("Slack bot error: %v", err)
			}
		}()
	}

	server := api.NewServer(svc, cfg.RedeemBaseURL)
	if cfg.MetricsEnabled {
		server.EnableMetrics()
	}
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API listening on %s", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
