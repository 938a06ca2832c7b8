package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"stockscreen/internal/analysis/divergence"
	"stockscreen/internal/analysis/indicator"
	"stockscreen/internal/config"
	"stockscreen/internal/logger"
	"stockscreen/internal/market"
	"stockscreen/internal/render"
	"stockscreen/internal/screener"
	"stockscreen/internal/store"
	screenhttp "stockscreen/internal/transport/http/screen"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var cfg config.Config

	root := &cobra.Command{
		Use:           "screener",
		Short:         "Screen candle history for price/indicator divergences",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			return logger.Init(cfg.Log)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to the TOML config file")

	root.AddCommand(screenCmd(&cfg))
	root.AddCommand(importCmd(&cfg))
	root.AddCommand(chartCmd(&cfg))
	root.AddCommand(serveCmd(&cfg))
	return root
}

func openStore(cfg *config.Config) (store.CandleStore, func(), error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryCandleStore(), func() {}, nil
	default:
		s, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}

func screenCmd(cfg *config.Config) *cobra.Command {
	var (
		symbols   []string
		csvPath   string
		direction string

		window         int
		lookback       int
		method         string
		emaPriceSpan   int
		emaIndSpan     int
		minSwingPoints int
		tolerancePct   float64
		indTolerance   float64
		proximity      int
		useScoring     bool
		minScore       float64
		maxBarGap      int
		atrPeriod      int
		minMagnitude   float64
		strictOrder    bool
		excludeBroken  bool
		excludeFailed  bool
	)

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Run divergence detection over the stored universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := cfg.Divergence
			flags := cmd.Flags()
			if flags.Changed("swing-window") {
				d.Window = window
			}
			if flags.Changed("lookback") {
				d.Lookback = lookback
			}
			if flags.Changed("pivot-method") {
				d.Method = method
			}
			if flags.Changed("ema-price-span") {
				d.EMAPriceSpan = emaPriceSpan
			}
			if flags.Changed("ema-indicator-span") {
				d.EMAIndicatorSpan = emaIndSpan
			}
			if flags.Changed("min-swing-points") {
				d.MinSwingPoints = minSwingPoints
			}
			if flags.Changed("sequence-tolerance-pct") {
				d.TolerancePct = tolerancePct
			}
			if flags.Changed("indicator-tolerance") {
				d.IndicatorTolerance = indTolerance
			}
			if flags.Changed("index-proximity-factor") {
				d.IndexProximityFactor = proximity
			}
			if flags.Changed("use-sequence-scoring") {
				d.UseScoring = useScoring
			}
			if flags.Changed("min-sequence-score") {
				d.MinScore = minScore
			}
			if flags.Changed("max-bar-gap") {
				d.MaxBarGap = maxBarGap
			}
			if flags.Changed("atr-period") {
				d.ATRPeriod = atrPeriod
			}
			if flags.Changed("min-magnitude-atr-mult") {
				d.MinMagnitudeATRMult = minMagnitude
			}
			if flags.Changed("require-strict-order") {
				d.RequireStrictOrder = strictOrder
			}

			opts := cfg.Screen
			if direction != "" {
				opts.Direction = direction
			}
			if flags.Changed("exclude-broken-out") {
				opts.ExcludeBrokenOut = excludeBroken
			}
			if flags.Changed("exclude-failed") {
				opts.ExcludeFailed = excludeFailed
			}

			st, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			scr, err := screener.New(st, d, opts)
			if err != nil {
				return err
			}
			res, err := scr.Run(context.Background(), symbols)
			if err != nil {
				return err
			}

			printResult(cmd, res)

			if csvPath != "" {
				if err := os.WriteFile(csvPath, []byte(screener.BuildResultCSV(res)), 0o644); err != nil {
					return fmt.Errorf("write csv: %w", err)
				}
				cmd.Printf("wrote %s\n", csvPath)
			}
			if rec, ok := st.(*store.SQLiteCandleStore); ok {
				if err := rec.RecordSignals(context.Background(), res.Records()); err != nil {
					logger.Warnf("persist signals: %v", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to screen (default: all stored)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write results to this CSV file")
	cmd.Flags().StringVar(&direction, "direction", "", "keep only bullish or bearish hits")
	cmd.Flags().IntVar(&window, "swing-window", 5, "pivot half-width for the swing method")
	cmd.Flags().IntVar(&lookback, "lookback", 60, "recent bars to scan")
	cmd.Flags().StringVar(&method, "pivot-method", "swing", "pivot strategy: swing or ema-deriv")
	cmd.Flags().IntVar(&emaPriceSpan, "ema-price-span", 5, "price EMA span for ema-deriv")
	cmd.Flags().IntVar(&emaIndSpan, "ema-indicator-span", 5, "indicator EMA span for ema-deriv")
	cmd.Flags().IntVar(&minSwingPoints, "min-swing-points", 2, "required pivots per divergence: 2 or 3")
	cmd.Flags().Float64Var(&tolerancePct, "sequence-tolerance-pct", 0.002, "relative slack on price monotonicity")
	cmd.Flags().Float64Var(&indTolerance, "indicator-tolerance", 0, "extra indicator confirmation points")
	cmd.Flags().IntVar(&proximity, "index-proximity-factor", 2, "alignment bound as a multiple of the window")
	cmd.Flags().BoolVar(&useScoring, "use-sequence-scoring", false, "gate 3-point hits on the conviction score")
	cmd.Flags().Float64Var(&minScore, "min-sequence-score", 1.0, "minimum accepted conviction score")
	cmd.Flags().IntVar(&maxBarGap, "max-bar-gap", 10, "alignment bound during scoring")
	cmd.Flags().IntVar(&atrPeriod, "atr-period", 14, "ATR period for scoring")
	cmd.Flags().Float64Var(&minMagnitude, "min-magnitude-atr-mult", 0.5, "magnitude floor in ATR multiples")
	cmd.Flags().BoolVar(&strictOrder, "require-strict-order", false, "strict pivot ordering during scoring")
	cmd.Flags().BoolVar(&excludeBroken, "exclude-broken-out", false, "drop already-resolved signals")
	cmd.Flags().BoolVar(&excludeFailed, "exclude-failed", false, "drop failed-breakout signals")
	return cmd
}

func printResult(cmd *cobra.Command, res screener.Result) {
	cmd.Printf("run %s: scanned %d, skipped %d, %d signal(s)\n",
		res.RunID, res.Scanned, res.Skipped, len(res.Signals))
	if len(res.Signals) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.AppendHeader(table.Row{"symbol", "dir", "pts", "score", "close", "broken", "failed", "description"})
	for _, sig := range res.Signals {
		score := ""
		if sig.Scored {
			score = fmt.Sprintf("%.2f", sig.Score)
		}
		tw.AppendRow(table.Row{
			sig.Symbol, sig.Direction, sig.Points, score,
			fmt.Sprintf("%.4g", sig.LastClose), sig.BrokenOut, sig.Failed, sig.Description,
		})
	}
	tw.Render()
}

func importCmd(cfg *config.Config) *cobra.Command {
	var interval string
	var replace bool

	cmd := &cobra.Command{
		Use:   "import SYMBOL FILE",
		Short: "Import candle history from a CSV file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			candles, err := store.ParseCandlesCSV(f)
			if err != nil {
				return err
			}
			if len(candles) == 0 {
				return fmt.Errorf("no candle rows in %s", args[1])
			}

			st, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx := context.Background()
			if replace {
				err = st.Set(ctx, symbol, interval, candles)
			} else {
				err = st.Put(ctx, symbol, interval, candles, cfg.Store.MaxCandles)
			}
			if err != nil {
				return err
			}
			cmd.Printf("imported %d candles for %s %s\n", len(candles), symbol, interval)
			return nil
		},
	}
	cmd.Flags().StringVar(&interval, "interval", "1d", "bar interval the file contains")
	cmd.Flags().BoolVar(&replace, "replace", false, "replace stored history instead of appending")
	return cmd
}

func chartCmd(cfg *config.Config) *cobra.Command {
	var interval, out string

	cmd := &cobra.Command{
		Use:   "chart SYMBOL",
		Short: "Render an annotated divergence chart to HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			st, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			candles, err := st.Get(context.Background(), symbol, interval)
			if err != nil {
				return err
			}
			if len(candles) == 0 {
				return fmt.Errorf("no candles stored for %s %s", symbol, interval)
			}

			series := market.NewSeries(candles)
			rsi := indicator.RSI(series.Closes(), cfg.Screen.RSIPeriod)
			det, err := divergence.Detect(series, rsi, cfg.Divergence)
			if err != nil {
				return err
			}

			in := render.ChartInput{Symbol: symbol, Interval: interval, Series: series, Indicator: rsi}
			for _, cand := range []divergence.Candidate{det.Bullish, det.Bearish} {
				if cand == nil {
					continue
				}
				cmd.Printf("%s: %s\n", cand.Direction(), cand.Describe())
				in.PricePivots = append(in.PricePivots, cand.PricePivots()...)
				in.IndicatorPivots = append(in.IndicatorPivots, cand.IndicatorPivots()...)
			}

			if out == "" {
				out = strings.ToLower(symbol) + ".html"
			}
			if err := render.WriteHTMLFile(in, out); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&interval, "interval", "1d", "bar interval to chart")
	cmd.Flags().StringVar(&out, "out", "", "output HTML path (default SYMBOL.html)")
	return cmd
}

func serveCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the screen API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			gin.SetMode(gin.ReleaseMode)
			engine := gin.New()
			engine.Use(gin.Recovery())
			router := screenhttp.NewRouter(st, cfg.Divergence, cfg.Screen)
			router.Register(engine.Group("/api/screen"))
			engine.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

			logger.Infof("listening on %s", cfg.Server.Addr)
			return engine.Run(cfg.Server.Addr)
		},
	}
	return cmd
}
