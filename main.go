package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentdesk/agentdesk/internal/adapters/price"
	"github.com/agentdesk/agentdesk/internal/catalog"
	"github.com/agentdesk/agentdesk/internal/config"
	"github.com/agentdesk/agentdesk/internal/core/domain"
	"github.com/agentdesk/agentdesk/internal/core/service"
	"github.com/agentdesk/agentdesk/internal/history"
	"github.com/agentdesk/agentdesk/internal/journal"
	"github.com/agentdesk/agentdesk/internal/logging"
	"github.com/agentdesk/agentdesk/internal/scheduler"
	"github.com/agentdesk/agentdesk/internal/server"
	"github.com/agentdesk/agentdesk/pkg/deploy"
	"github.com/agentdesk/agentdesk/pkg/jobs"
	"github.com/agentdesk/agentdesk/pkg/sequencer"
	"github.com/agentdesk/agentdesk/pkg/swap"
	"github.com/agentdesk/agentdesk/pkg/types"
	"github.com/agentdesk/agentdesk/pkg/version"
	"github.com/agentdesk/agentdesk/pkg/wallet"
)

// journalRetention is how long finished runs stay in the journal
const journalRetention = 7 * 24 * time.Hour

type cleaningJournal interface {
	journal.Journal
	scheduler.Cleaner
}

func main() {
	var cfg config.Config
	if err := config.Load(&cfg, os.Args[1:]); err != nil {
		if config.IsHelp(err) {
			fmt.Println(err)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg.Version {
		fmt.Print(version.GetBanner())
		return
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logging.SetGlobalLogger(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().Str("version", version.Version()).Msg("Starting AgentDesk")

	ctx := context.Background()

	cat := catalog.Default()
	if cfg.Catalog != "" {
		var err error
		if cat, err = catalog.Load(cfg.Catalog); err != nil {
			log.Fatal().Err(err).Msg("Failed to load catalog")
		}
	}

	store, err := history.Open(ctx, cfg.HistoryDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open trade history")
	}
	defer store.Close()

	feed, err := newPriceService(&cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create price feed")
	}
	defer feed.Close()

	trading := service.NewTradingService(cat, feed, store, nil, log)

	runJournal, closeJournal, err := newJournal(ctx, &cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open run journal")
	}
	defer closeJournal()

	w, err := newWallet(&cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create wallet")
	}

	var executor sequencer.Executor
	if cfg.SwapURL != "" {
		executor = swap.NewExecutor(swap.NewClient(cfg.SwapURL), w, log)
		log.Info().Str("url", cfg.SwapURL).Msg("Swap execution enabled")
	}

	var analystClient *jobs.Client
	if cfg.AnalystURL != "" {
		analystClient = jobs.NewClient(cfg.AnalystURL)
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if info, err := analystClient.CheckVersion(checkCtx); err != nil {
			log.Warn().Err(err).Str("url", cfg.AnalystURL).Msg("Analysis backend version check failed")
		} else {
			log.Info().Str("url", cfg.AnalystURL).Str("backend_version", info.Version).Msg("Remote analysis enabled")
		}
		cancel()
	}

	factory := func(ctx context.Context, flow sequencer.Flow) (sequencer.Config, error) {
		rc := sequencer.Config{
			Executor:      executor,
			StrictTimeout: cfg.StrictTimeout,
			Pair:          sequencer.DefaultPair,
		}
		if flow == sequencer.FlowOrder {
			rc.Script = cat.NegotiationScript
			return rc, nil
		}
		rc.Script = cat.AnalysisScript
		if analystClient != nil {
			rc.Analyst = jobs.NewAnalyst(analystClient, jobRequest(ctx, trading, w))
		}
		return rc, nil
	}

	runs := server.NewRegistry(server.RegistryConfig{
		Factory: factory,
		Journal: runJournal,
		Swaps:   store,
		Price: func() float64 {
			p, _ := trading.AdaUsdPrice()
			return p
		},
		Logger: log,
	})

	deployer, err := deploy.NewDeployer(&deploy.DeployConfig{
		StateFilePath: cfg.DeployState,
		Installer:     trading,
		Logger:        log,
		OnUpdate: func(st deploy.DeployState) {
			log.Info().Str("status", string(st.Status)).Int("step", st.Step).Msg("Deployment progress")
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create deployer")
	}
	defer deployer.Stop()
	if resumed, err := deployer.Resume(); err != nil {
		log.Error().Err(err).Msg("Failed to resume deployment")
	} else if resumed {
		log.Info().Msg("Resumed interrupted deployment")
	}

	sched := scheduler.New(log)
	if err := registerJobs(sched, &cfg, trading, runJournal, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Addr:     cfg.Listen,
		Trading:  trading,
		Wallet:   w,
		Deployer: deployer,
		History:  store,
		Runs:     runs,
		Auth:     server.NewAuthenticator(cfg.JWTSecret, cfg.JWTTTL),
		Log:      log,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server stopped")
}

func registerJobs(sched *scheduler.Scheduler, cfg *config.Config, trading *service.TradingService, j cleaningJournal, log zerolog.Logger) error {
	refresh := &scheduler.PriceRefreshJob{Service: trading}
	if err := sched.AddJob(cfg.PriceRefresh, refresh); err != nil {
		return err
	}
	// Fill the price before the first tick
	go func() {
		if err := sched.RunNow(refresh); err != nil {
			log.Warn().Err(err).Msg("Initial price refresh failed")
		}
	}()

	return sched.AddJob("@hourly", &scheduler.CleanupJob{
		Target:    j,
		OlderThan: journalRetention,
		JobName:   "journal_cleanup",
	})
}

func newPriceService(cfg *config.Config) (*price.CachedService, error) {
	var src domain.PriceService
	switch cfg.PriceSource {
	case config.PriceSourceBinance:
		src = price.NewBinanceService(cfg.BinanceKey, cfg.BinanceSecret, cfg.BinanceURL)
	case config.PriceSourceDexScreener:
		src = price.NewDexScreenerService(cfg.DexScreenURL, nil)
	default:
		src = price.NewMockService(time.Now().UnixNano())
	}
	return price.NewCachedService(src, cfg.PriceCacheTTL)
}

func newJournal(ctx context.Context, cfg *config.Config) (cleaningJournal, func(), error) {
	if cfg.RedisURL == "" {
		return journal.NewFileJournalWithDir(cfg.JournalDir), func() {}, nil
	}
	client, err := journal.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return journal.NewRedisJournal(client, journal.DefaultRedisPrefix, journalRetention), func() { client.Close() }, nil
}

func newWallet(cfg *config.Config) (wallet.Connector, error) {
	if cfg.RPCURL == "" || cfg.PrivateKey == "" {
		return wallet.NewMockConnector(), nil
	}
	return wallet.NewEthereumConnector(cfg.RPCURL, strconv.FormatInt(cfg.ChainID, 10), cfg.PrivateKey)
}

// jobRequest describes the connected account to the analyst
func jobRequest(ctx context.Context, trading *service.TradingService, w wallet.Connector) types.JobRequest {
	info := wallet.Describe(ctx, w)
	req := types.JobRequest{
		WalletAddress: info.Address,
		RiskLevel:     string(trading.RiskLevel()),
		Pair:          sequencer.DefaultPair,
	}
	for _, t := range trading.Tokens(info.Balance) {
		if t.Balance > 0 {
			req.Holdings = append(req.Holdings, types.Holding{Symbol: t.Symbol, Balance: t.Balance})
		}
	}
	return req
}
