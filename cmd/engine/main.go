// Command engine runs the live event loop against the simulated broker,
// polling its bid/ask every second and letting engine.Loop's own due*
// throttles decide when real work happens. Grounded on cmd/backnrun's
// cobra root-command pattern and backnrun.go's Run (setup collaborators,
// then run until the context is cancelled).
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tidwall/buntdb"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/raykavin/backnrun/broker"
	"github.com/raykavin/backnrun/cmd/internal/candlefeed"
	"github.com/raykavin/backnrun/config"
	"github.com/raykavin/backnrun/construct"
	"github.com/raykavin/backnrun/core"
	"github.com/raykavin/backnrun/engine"
	"github.com/raykavin/backnrun/indicator"
	"github.com/raykavin/backnrun/logger"
	zerologadapter "github.com/raykavin/backnrun/logger/zerolog"
	"github.com/raykavin/backnrun/notification"
	"github.com/raykavin/backnrun/reporter"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:     "engine",
		Short:   "Run the market-regime-aware execution engine against the simulated broker",
		Version: "1.0.0",
		RunE:    run,
	}
	root.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to the engine config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := zerologadapter.New(cfg.Logging.Level, cfg.Logging.DateTimeLayout, cfg.Logging.Colored, cfg.Logging.JSON)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	sim := broker.New(cfg.ToSymbolInfo(), broker.WithStartBalance(cfg.Broker.StartBalance), broker.WithLogger(log))

	rep, repCloser, err := buildReporter(cfg, log)
	if err != nil {
		return fmt.Errorf("build reporter: %w", err)
	}
	defer repCloser()

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return fmt.Errorf("build notifier: %w", err)
	}

	settings := cfg.ToSettings()
	provider := indicator.NewProvider()
	loop := engine.New(settings, engine.Deps{
		Broker:     sim,
		Indicators: provider,
		Reporter:   rep,
		Notifier:   notifier,
	})
	loop.SetConstructor(construct.NewConstructor(settings.Stops, cfg.ToSymbolInfo()))

	feed, err := candlefeed.New(settings.Timeframes.Chart, settings.Timeframes.Primary,
		settings.Timeframes.Secondary, settings.Timeframes.Tertiary)
	if err != nil {
		return fmt.Errorf("build candle feed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.WithField("symbol", cfg.Symbol).Info("engine started")
	return driveLoop(ctx, loop, sim, provider, feed, cfg.ToSymbolInfo().Pip(), log)
}

// driveLoop ticks once a second: a synthetic random-walk price (this repo
// ships no live exchange adapter, per the Non-goal on real broker
// integration — cmd/replay is the historically-accurate driver) feeds the
// broker's quote and the candle aggregator together, then OnTick/OnTimer
// run; engine.Loop's own due* helpers decide what actually executes each
// cycle (§4.9).
func driveLoop(ctx context.Context, loop *engine.Loop, sim *broker.Simulator, provider *indicator.Provider,
	feed *candlefeed.Aggregator, pip float64, log logger.Logger) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	price, err := sim.Bid(ctx)
	if err != nil || price <= 0 {
		price = 1.0
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		select {
		case <-ctx.Done():
			for _, c := range feed.Flush() {
				provider.Ingest(c.Timeframe, c.Candle)
			}
			return nil
		case now := <-ticker.C:
			price += rng.NormFloat64() * pip * 5
			if price <= 0 {
				price = pip
			}
			sim.SetPrice(ctx, price, price+pip)

			for _, c := range feed.Push(now, price, 1) {
				provider.Ingest(c.Timeframe, c.Candle)
			}

			bid, err := sim.Bid(ctx)
			if err != nil {
				continue
			}
			ask, err := sim.Ask(ctx)
			if err != nil {
				continue
			}
			loop.OnTick(ctx, now, bid, ask, (bid+ask)/2)
			if err := loop.OnTimer(ctx, now); err != nil {
				log.WithError(err).Error("engine: timer cycle failed")
			}
		}
	}
}

func buildReporter(cfg *config.FileConfig, log logger.Logger) (*reporter.Reporter, func(), error) {
	var opts []reporter.Option
	closer := func() {}

	db, err := buntdb.Open(cfg.Storage.BuntPath)
	if err != nil {
		return nil, closer, fmt.Errorf("open decision store: %w", err)
	}
	opts = append(opts, reporter.WithStore(db, cfg.Storage.RingCapacity))
	closer = func() { db.Close() }

	if cfg.Storage.SQLiteEnabled {
		sqlDB, err := gorm.Open(sqlite.Open(cfg.Storage.SQLitePath), &gorm.Config{})
		if err != nil {
			db.Close()
			return nil, func() {}, fmt.Errorf("open sqlite store: %w", err)
		}
		opts = append(opts, reporter.WithSQLStore(sqlDB))
	}

	return reporter.New(log, opts...), closer, nil
}

// buildNotifier wires telegram/mail channels behind their own logrus
// logger, matching the package split documented in DESIGN.md: the rest of
// the tree logs through logger.Logger/zerolog, notification/ logs through
// logrus the way the teacher's notification package always did.
func buildNotifier(cfg *config.FileConfig) (notification.Multi, error) {
	notifyLog := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		notifyLog.SetLevel(level)
	}

	var channels notification.Multi

	if cfg.Notify.Telegram.Enabled {
		tg, err := notification.NewTelegram(core.TelegramSettings{
			Enabled: cfg.Notify.Telegram.Enabled,
			Token:   cfg.Notify.Telegram.Token,
			Users:   cfg.Notify.Telegram.Users,
		}, notifyLog)
		if err != nil {
			return nil, fmt.Errorf("start telegram notifier: %w", err)
		}
		channels = append(channels, tg)
	}
	if cfg.Notify.Mail.Enabled {
		channels = append(channels, notification.NewMail(core.MailSettings{
			Enabled:           cfg.Notify.Mail.Enabled,
			SMTPServerAddress: cfg.Notify.Mail.SMTPServerAddress,
			SMTPServerPort:    cfg.Notify.Mail.SMTPServerPort,
			From:              cfg.Notify.Mail.From,
			To:                cfg.Notify.Mail.To,
			Password:          cfg.Notify.Mail.Password,
		}, notifyLog))
	}
	return channels, nil
}
