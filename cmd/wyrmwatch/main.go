package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wyrmwatch/server/internal/boss"
	"github.com/wyrmwatch/server/internal/config"
	"github.com/wyrmwatch/server/internal/data"
	"github.com/wyrmwatch/server/internal/persist"
	"github.com/wyrmwatch/server/internal/scripting"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m           Wyrmwatch  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      cross-guild world boss engine        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("WYRMWATCH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Connect to PostgreSQL and run migrations
	printSection("database")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL connected")

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")
	fmt.Println()

	// 4. Load static data
	printSection("data")

	names, err := data.LoadNameTable("data/yaml/boss_names.yaml")
	if err != nil {
		return fmt.Errorf("load boss names: %w", err)
	}
	printStat("boss name pools", names.Count())

	catalog, err := data.LoadCatalog("data/yaml/item_catalog.yaml")
	if err != nil {
		return fmt.Errorf("load item catalog: %w", err)
	}
	printStat("catalog items", catalog.Count())

	loot, err := data.LoadLootTable("data/yaml/loot_weights.yaml")
	if err != nil {
		return fmt.Errorf("load loot weights: %w", err)
	}
	printStat("loot weight tiers", loot.Count())

	// 5. Lua combat formulas (embedded defaults, optional overrides)
	formulas, err := scripting.NewEngine("scripts", log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer formulas.Close()
	printOK("combat scripts loaded")
	fmt.Println()

	// 6. Repositories
	encounterRepo := persist.NewEncounterRepo(db)
	guildRepo := persist.NewGuildRepo(db)
	playerRepo := persist.NewPlayerRepo(db)
	roleRepo := persist.NewRoleRepo(db)
	schedulerRepo := persist.NewSchedulerRepo(db)

	// 7. Engine wiring. The platform gateway and side-effect hooks are
	// log-only stand-ins here; the embedding service injects real ones.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	hooks := boss.Hooks{
		Analytics:    &logAnalytics{log: log},
		Challenges:   &logChallenges{log: log},
		Gems:         &logGems{log: log},
		Achievements: &logAchievements{log: log},
	}
	gateway := &logRoleGateway{log: log}
	notifier := &logNotifier{log: log}

	sync := boss.NewSynchronizer(roleRepo, gateway, log)
	expirer := boss.NewExpirer(encounterRepo, sync, notifier, log)
	governor := boss.NewGovernor(encounterRepo, guildRepo, names, cfg.Boss, rng, log)
	// nil oracle: payouts use the premium flag mirrored on the player row.
	distributor := boss.NewDistributor(encounterRepo, catalog, loot, nil, sync, notifier, hooks, cfg.Rewards, rng, log)
	resolver := boss.NewResolver(encounterRepo, playerRepo, sync, distributor, expirer, catalog, formulas, hooks, cfg.Combat, log)
	_ = resolver // exposed to the embedding service's command layer

	scheduler := boss.NewScheduler(governor, expirer, sync, encounterRepo, guildRepo, schedulerRepo, notifier, cfg.Scheduler, rng, log)

	// 8. Run until signalled
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printSection("ready")
	printReady(fmt.Sprintf("spawn window %s to %s", cfg.Scheduler.MinInterval, cfg.Scheduler.MaxInterval))
	printReady(fmt.Sprintf("global boss cap %d", cfg.Boss.Cap))
	fmt.Println()

	if err := scheduler.Run(runCtx); err != nil && runCtx.Err() == nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
