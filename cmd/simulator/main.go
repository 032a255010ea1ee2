package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/marketsim/config"
	"github.com/alejandrodnm/marketsim/internal/adapters/notify"
	"github.com/alejandrodnm/marketsim/internal/adapters/storage"
	"github.com/alejandrodnm/marketsim/internal/application/engine"
	"github.com/alejandrodnm/marketsim/internal/domain"
	"github.com/alejandrodnm/marketsim/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	seed := flag.Int64("seed", 0, "random seed (overrides config, 0 = time-based)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", true, "print full clearing tables (default: on)")
	human := flag.String("human", "You", "display name for the scripted human player")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if *seed != 0 {
		cfg.Session.Seed = *seed
	}
	if cfg.Session.Seed == 0 {
		cfg.Session.Seed = time.Now().UnixNano()
	}

	slog.Info("marketsim starting",
		"config", *configPath,
		"seed", cfg.Session.Seed,
		"companies", len(cfg.Companies),
		"bots", len(cfg.Bots),
	)

	var history ports.History
	if cfg.Storage.DSN != "" {
		h, err := storage.NewSQLiteHistory(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open history", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer h.Close()
		history = h
	}

	notifier := notify.NewConsole(*table)
	sessions := engine.NewManager()
	ctl := engine.NewController(sessions, notifier, history, engine.Config{
		ProcessingDelay: cfg.ClearingDelay(),
		RoundWindow:     cfg.RoundWindow(),
		LotSize:         cfg.Session.LotSize,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessionID := uuid.NewString()
	humanID := uuid.NewString()
	s, err := buildSession(sessions, sessionID, humanID, *human, cfg)
	if err != nil {
		slog.Error("failed to create session", "err", err)
		os.Exit(1)
	}

	if err := ctl.StartRound(sessionID); err != nil {
		slog.Error("failed to open round", "err", err)
		os.Exit(1)
	}

	submitHumanBids(ctx, s, humanID, cfg)

	if err := ctl.CloseRound(ctx, sessionID); err != nil {
		slog.Error("round failed", "err", err)
		os.Exit(1)
	}

	notifier.PrintLedger(s.LedgerSnapshot())

	if err := ctl.AdvancePhase(sessionID, domain.PhaseTrading); err != nil {
		slog.Error("failed to advance phase", "err", err)
		os.Exit(1)
	}

	if history != nil {
		rounds, err := history.GetRounds(ctx, sessionID)
		if err != nil {
			slog.Warn("failed to read back history", "err", err)
		} else {
			slog.Info("round history persisted", "session", sessionID, "rounds", len(rounds))
		}
	}

	slog.Info("marketsim stopped cleanly", "phase", s.Phase())
}

// buildSession arma el roster desde la config: un humano con bids guionizados
// y los bots con su arquetipo resuelto contra el registro de perfiles.
func buildSession(sessions *engine.Manager, sessionID, humanID, humanName string, cfg *config.Config) (*engine.Session, error) {
	companies := make([]engine.CompanySpec, 0, len(cfg.Companies))
	for _, c := range cfg.Companies {
		companies = append(companies, engine.CompanySpec{
			ID:          c.ID,
			Name:        c.Name,
			TotalShares: c.TotalShares,
		})
	}

	registry := domain.NewProfileRegistry()
	participants := []engine.ParticipantSpec{{
		ID:          humanID,
		DisplayName: humanName,
		IsHuman:     true,
		Capital:     cfg.Session.InitialCapital,
	}}
	for _, b := range cfg.Bots {
		profile, err := registry.Get(domain.Archetype(strings.ToLower(b.Archetype)))
		if err != nil {
			return nil, err
		}
		participants = append(participants, engine.ParticipantSpec{
			ID:          uuid.NewString(),
			DisplayName: b.Name,
			Capital:     cfg.Session.InitialCapital,
			Profile:     &profile,
		})
	}

	return sessions.Create(sessionID, cfg.Session.Seed, companies, participants)
}

// submitHumanBids envía las pujas guionizadas del humano mientras la ronda
// está abierta, con un rate limiter que imita el ritmo de un jugador real.
func submitHumanBids(ctx context.Context, s *engine.Session, humanID string, cfg *config.Config) {
	limiter := rate.NewLimiter(rate.Every(250*time.Millisecond), 1)
	rng := rand.New(rand.NewSource(cfg.Session.Seed + 1))

	// Reparte ~80% del capital entre dos compañías al azar, a precios medios.
	companies := s.Companies()
	if len(companies) == 0 {
		return
	}
	rng.Shuffle(len(companies), func(i, j int) {
		companies[i], companies[j] = companies[j], companies[i]
	})
	targets := companies[:min(2, len(companies))]

	budget := cfg.Session.InitialCapital * 0.80 / float64(len(targets))
	for _, c := range targets {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		price := domain.RoundToQuarter(1.75 + rng.Float64())
		shares := domain.FloorToLot(int(budget/price), cfg.Session.LotSize)
		if shares < cfg.Session.LotSize {
			continue
		}

		if _, err := s.SubmitBid(humanID, c.ID, shares, price); err != nil {
			slog.Warn("human bid rejected", "company", c.ID, "err", err)
			continue
		}
		slog.Info("human bid placed", "company", c.ID, "shares", shares, "price", price)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
