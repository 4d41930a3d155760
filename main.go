package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"soltrader/internal/api"
	"soltrader/internal/events"
	"soltrader/internal/executor"
	"soltrader/internal/market"
	"soltrader/internal/order"
	"soltrader/internal/strategy"
	"soltrader/internal/trades"
	"soltrader/internal/wallet"
	"soltrader/pkg/amount"
	"soltrader/pkg/config"
	"soltrader/pkg/db"
	"soltrader/pkg/solana"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: config load failed: %v", err)
	}

	buildVersion := os.Getenv("APP_VERSION")
	if buildVersion == "" {
		buildVersion = "v1.0-dev"
	}
	log.Printf("main: starting soltrader %s (sim=%v, port=%s)", buildVersion, cfg.SimMode, cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("main: db init failed: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("main: db migrations failed: %v", err)
	}
	log.Printf("main: using database %s", cfg.DBPath)

	bus := events.NewBus()

	// RPC clients stay nil in sim mode; every consumer tolerates that.
	var rpcClient *solana.Client
	var streamClient *solana.StreamClient
	if !cfg.SimMode {
		rpcClient = solana.NewClient(cfg.RPCHTTPURL, cfg.RPCWSSURL, int(cfg.RPCRequestsPerSec))
		streamClient = solana.NewStreamClient(cfg.RPCWSSURL)
		log.Printf("main: rpc %s", cfg.RPCHTTPURL)
	}

	mkt := market.NewManager(rpcClient, bus)
	mkt.WatchTicks(ctx)

	if cfg.SimMode {
		// Synthetic pools so sim trades have reserves to price against.
		for _, mint := range cfg.MockTokens {
			mkt.RegisterToken(market.TokenInfo{
				TokenAddress: mint,
				Symbol:       "SIM",
				Decimals:     6,
				SolVault:     amount.SolUI(100),
				TokenVault:   amount.TokensUI(1_000_000, 6),
				Supply:       decimal.NewFromInt(10_000_000),
			})
		}
		log.Printf("main: seeded %d sim pools", len(cfg.MockTokens))
	}
	if cfg.UseMockFeed {
		feed := market.MockFeed{
			Bus:      bus,
			Manager:  mkt,
			Tokens:   cfg.MockTokens,
			StepPct:  cfg.MockFeedStepPct,
			Interval: time.Duration(cfg.MockFeedInterval) * time.Second,
		}
		feed.Start(ctx)
		log.Println("main: mock price feed started")
	}

	watched := append([]string{cfg.DefaultPayer}, cfg.WatchAccounts...)
	tracker := wallet.NewTracker(rpcClient, streamClient, bus, watched)
	tracker.Start(ctx)

	runner := strategy.NewRunner(bus, 4)
	factory := strategy.NewFactory()
	strategy.RegisterBuiltins(factory)

	wallets := order.NewSignerWalletSettings(cfg.DefaultPayer)
	facet := executor.NewFacet(runner, wallets)

	var (
		swaps    executor.SwapInfoSource
		accounts executor.AccountReader
	)
	if cfg.SimMode {
		sim := executor.NewSimExecutor(wallets, amount.SolUI(cfg.SimStartingSol))
		facet.Register(order.KindSwap, sim)
		facet.Register(order.KindBundledSwap, sim)
		swaps, accounts = sim, sim
	} else {
		// Live swap submission needs a signing executor, which this build
		// does not ship. Triggers and accounting still run against the chain.
		log.Println("main: live mode has no swap executor, swap orders will be rejected")
		swaps, accounts = rpcClient, tracker
	}

	mgr := trades.NewManager(trades.Deps{
		Bus:             bus,
		Facet:           facet,
		Market:          mkt,
		Factory:         factory,
		Client:          rpcClient,
		Swaps:           swaps,
		Accounts:        accounts,
		Store:           database,
		DefaultSettings: order.DefaultSwapSettings(amount.SolUI(cfg.DefaultTradeSol)),
		DefaultWallets:  wallets,
		ConfirmMaxTries: cfg.ConfirmMaxTries,
	})
	if sim, ok := swaps.(*executor.SimExecutor); ok {
		sim.BindOps(mgr)
	}

	// Limit/stop and market-cap triggers run as watcher strategies that
	// trade back through the manager.
	facet.Register(order.KindLimitsStops, executor.NewLimitsExecutor(runner, mgr))
	facet.Register(order.KindMcap, executor.NewMcapExecutor(runner, mgr, mkt))

	mgr.Start()
	defer mgr.Stop()
	defer runner.Stop()

	if cfg.ExecutionEnabled {
		mgr.WatchCommands()
		if cfg.StrategySettingsPath != "" {
			ids, err := mgr.RunStrategies(cfg.StrategySettingsPath)
			if err != nil {
				log.Printf("main: strategy bootstrap failed: %v", err)
			} else if len(ids) > 0 {
				log.Printf("main: started %d strategies from %s", len(ids), cfg.StrategySettingsPath)
			}
		}
	} else {
		log.Println("main: execution disabled, running observe-only")
	}

	server := api.NewServer(bus, database, mgr, mkt, api.SystemMeta{
		SimMode:     cfg.SimMode,
		UseMockFeed: cfg.UseMockFeed,
		Version:     buildVersion,
	}, cfg.JWTSecret)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("main: api server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("main: shutting down")
}
