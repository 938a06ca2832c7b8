// Package screen exposes the screener over HTTP: import candle history, run
// screens, and fetch annotated charts.
package screen

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stockscreen/internal/analysis/divergence"
	"stockscreen/internal/analysis/indicator"
	"stockscreen/internal/logger"
	"stockscreen/internal/market"
	"stockscreen/internal/render"
	"stockscreen/internal/screener"
	"stockscreen/internal/store"
)

// Router handles the screen API endpoints.
type Router struct {
	store store.CandleStore
	cfg   divergence.Config
	opts  screener.Options
}

func NewRouter(st store.CandleStore, cfg divergence.Config, opts screener.Options) *Router {
	return &Router{store: st, cfg: cfg, opts: opts}
}

// Register mounts the routes on the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/run", r.handleRun)
	group.POST("/import/:symbol", r.handleImport)
	group.GET("/symbols", r.handleSymbols)
	group.GET("/chart/:symbol", r.handleChart)
}

// RunRequest optionally narrows one screen run; zero values fall back to the
// configured options.
type RunRequest struct {
	Symbols          []string `json:"symbols"`
	Direction        string   `json:"direction"`
	ExcludeBrokenOut *bool    `json:"exclude_broken_out"`
	ExcludeFailed    *bool    `json:"exclude_failed"`
}

func (r *Router) handleRun(c *gin.Context) {
	var req RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request: " + err.Error()})
			return
		}
	}

	opts := r.opts
	if req.Direction != "" {
		opts.Direction = req.Direction
	}
	if req.ExcludeBrokenOut != nil {
		opts.ExcludeBrokenOut = *req.ExcludeBrokenOut
	}
	if req.ExcludeFailed != nil {
		opts.ExcludeFailed = *req.ExcludeFailed
	}

	scr, err := screener.New(r.store, r.cfg, opts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := scr.Run(c.Request.Context(), normalizeSymbols(req.Symbols))
	if err != nil {
		logger.Errorf("[screen-api] run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Router) handleImport(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing symbol"})
		return
	}
	interval := c.DefaultQuery("interval", r.opts.Interval)

	candles, err := store.ParseCandlesCSV(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(candles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no candle rows"})
		return
	}
	if err := r.store.Set(c.Request.Context(), symbol, interval, candles); err != nil {
		logger.Errorf("[screen-api] import %s failed: %v", symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[screen-api] imported %d candles for %s %s", len(candles), symbol, interval)
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "interval": interval, "count": len(candles)})
}

func (r *Router) handleSymbols(c *gin.Context) {
	interval := c.DefaultQuery("interval", r.opts.Interval)
	symbols, err := r.store.Symbols(c.Request.Context(), interval)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"interval": interval, "symbols": symbols})
}

func (r *Router) handleChart(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	interval := c.DefaultQuery("interval", r.opts.Interval)
	period := r.opts.RSIPeriod
	if v := c.Query("rsi_period"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad rsi_period"})
			return
		}
		period = p
	}

	candles, err := r.store.Get(c.Request.Context(), symbol, interval)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(candles) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no candles for " + symbol})
		return
	}

	series := market.NewSeries(candles)
	rsi := indicator.RSI(series.Closes(), period)
	det, err := divergence.Detect(series, rsi, r.cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := render.ChartInput{
		Symbol:    symbol,
		Interval:  interval,
		Series:    series,
		Indicator: rsi,
	}
	for _, cand := range []divergence.Candidate{det.Bullish, det.Bearish} {
		if cand == nil {
			continue
		}
		in.PricePivots = append(in.PricePivots, cand.PricePivots()...)
		in.IndicatorPivots = append(in.IndicatorPivots, cand.IndicatorPivots()...)
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := render.WriteHTML(in, c.Writer); err != nil {
		logger.Errorf("[screen-api] chart %s failed: %v", symbol, err)
	}
}

func normalizeSymbols(symbols []string) []string {
	var out []string
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
