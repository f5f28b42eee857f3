// Command replay drives the event loop against historical Binance klines
// instead of live ticks, for manual verification of a configuration before
// it runs against cmd/engine's live loop. Grounded on cmd/backnrun's
// download subcommand (cobra flags, binance.NewClient) and backnrun.go's
// backtestCandles/Summary (progress bar while replaying, tablewriter +
// uniplot histogram at the end).
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/raykavin/backnrun/broker"
	"github.com/raykavin/backnrun/cmd/internal/candlefeed"
	"github.com/raykavin/backnrun/config"
	"github.com/raykavin/backnrun/construct"
	"github.com/raykavin/backnrun/core"
	"github.com/raykavin/backnrun/engine"
	"github.com/raykavin/backnrun/indicator"
	zerologadapter "github.com/raykavin/backnrun/logger/zerolog"
	"github.com/raykavin/backnrun/reporter"
)

var (
	configPath string
	pair       string
	days       int
)

func main() {
	root := &cobra.Command{
		Use:     "replay",
		Short:   "Replay historical candles through the engine for manual verification",
		Version: "1.0.0",
		RunE:    run,
	}
	root.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to the engine config file")
	root.Flags().StringVarP(&pair, "pair", "p", "", "Trading pair (e.g. EURUSD); defaults to the config's symbol")
	root.Flags().IntVarP(&days, "days", "d", 30, "Number of days of chart-timeframe candles to replay")

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
	if pair == "" {
		pair = cfg.Symbol
	}

	log, err := zerologadapter.New(cfg.Logging.Level, cfg.Logging.DateTimeLayout, cfg.Logging.Colored, cfg.Logging.JSON)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	settings := cfg.ToSettings()
	candles, err := fetchCandles(cmd.Context(), pair, string(settings.Timeframes.Chart), days)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("no candles returned for %s", pair)
	}

	sim := broker.New(cfg.ToSymbolInfo(), broker.WithStartBalance(cfg.Broker.StartBalance), broker.WithLogger(log))
	sim.SetPrice(cmd.Context(), candles[0].Close, candles[0].Close+cfg.ToSymbolInfo().Pip())

	// No buntdb/sqlite sink: the zerolog decision trail plus the
	// end-of-run summary below are what a replay run is for.
	rep := reporter.New(log)
	provider := indicator.NewProvider()

	loop := engine.New(settings, engine.Deps{
		Broker:     sim,
		Indicators: provider,
		Reporter:   rep,
	})
	loop.SetConstructor(construct.NewConstructor(settings.Stops, cfg.ToSymbolInfo()))

	feed, err := candlefeed.New(settings.Timeframes.Primary, settings.Timeframes.Secondary, settings.Timeframes.Tertiary)
	if err != nil {
		return fmt.Errorf("build candle feed: %w", err)
	}

	startEquity, _ := sim.Equity(cmd.Context())
	equityTrack := make([]float64, 0, len(candles))

	bar := progressbar.Default(int64(len(candles)))
	for _, c := range candles {
		sim.SetPrice(cmd.Context(), c.Close, c.Close+cfg.ToSymbolInfo().Pip())
		provider.Ingest(settings.Timeframes.Chart, c)
		for _, closed := range feed.Push(c.Time, c.Close, c.Volume) {
			provider.Ingest(closed.Timeframe, closed.Candle)
		}

		loop.OnTick(cmd.Context(), c.Time, c.Close, c.Close+cfg.ToSymbolInfo().Pip(), c.Close)
		if err := loop.OnTimer(cmd.Context(), c.Time); err != nil {
			log.WithError(err).Warn("replay: timer cycle failed")
		}

		equity, _ := sim.Equity(cmd.Context())
		equityTrack = append(equityTrack, equity)
		if err := bar.Add(1); err != nil {
			log.Warnf("replay: update progressbar fail: %v", err)
		}
	}

	endEquity, _ := sim.Equity(cmd.Context())
	records, _ := rep.Recent()
	printSummary(pair, startEquity, endEquity, equityTrack, records)
	return nil
}

func fetchCandles(ctx context.Context, pair, interval string, days int) ([]indicator.Candle, error) {
	client := binance.NewClient("", "")
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	data, err := client.NewKlinesService().
		Symbol(pair).
		Interval(interval).
		StartTime(start.UnixNano() / int64(time.Millisecond)).
		EndTime(end.UnixNano() / int64(time.Millisecond)).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	candles := make([]indicator.Candle, 0, len(data))
	for i, k := range data {
		if i == len(data)-1 {
			break // discard the last, possibly-incomplete candle
		}
		candles = append(candles, indicator.Candle{
			Time:   time.Unix(0, k.OpenTime*int64(time.Millisecond)),
			Open:   parseFloat(k.Open),
			High:   parseFloat(k.High),
			Low:    parseFloat(k.Low),
			Close:  parseFloat(k.Close),
			Volume: parseFloat(k.Volume),
		})
	}
	return candles, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func printSummary(pair string, startEquity, endEquity float64, equityTrack []float64, records []core.DecisionRecord) {
	var accepted, rejected int
	byRegime := map[core.RegimeLabel]int{}
	for _, rec := range records {
		if rec.Decision == "pass" {
			accepted++
		} else {
			rejected++
		}
		byRegime[rec.Regime]++
	}

	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Pair", "Decisions", "Accepted", "Rejected", "Start Equity", "End Equity", "Return"})
	ret := 0.0
	if startEquity != 0 {
		ret = (endEquity - startEquity) / startEquity * 100
	}
	table.Append([]string{
		pair,
		strconv.Itoa(len(records)),
		strconv.Itoa(accepted),
		strconv.Itoa(rejected),
		fmt.Sprintf("%.2f", startEquity),
		fmt.Sprintf("%.2f", endEquity),
		fmt.Sprintf("%.2f %%", ret),
	})
	table.Render()
	fmt.Println(buffer.String())

	fmt.Println("------ DECISIONS BY REGIME -------")
	for regime, count := range byRegime {
		fmt.Printf("%-16s %d\n", regime, count)
	}

	if len(equityTrack) > 1 {
		returns := make([]float64, 0, len(equityTrack)-1)
		for i := 1; i < len(equityTrack); i++ {
			if equityTrack[i-1] == 0 {
				continue
			}
			returns = append(returns, (equityTrack[i]-equityTrack[i-1])/equityTrack[i-1]*100)
		}
		if len(returns) > 0 {
			fmt.Println("\n------ PER-CANDLE EQUITY RETURN -------")
			hist := histogram.Hist(15, returns)
			histogram.Fprint(os.Stdout, hist, histogram.Linear(10))
		}
	}
}
