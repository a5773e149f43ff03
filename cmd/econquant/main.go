package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"econquant/internal/domain/models"
	"econquant/internal/loader"
	"econquant/internal/report"
	"econquant/internal/usecase"
	"econquant/pkg/config"
	xhttp "econquant/pkg/http"
	applogger "econquant/pkg/logger"
	"econquant/pkg/metrics"
)

// Exit codes reported to the shell. Anything not mapped below is an invalid
// invocation or input and exits 1.
const (
	exitOK       = 0
	exitUsage    = 1
	exitLoad     = 2
	exitQuality  = 3
	exitTimeout  = 4
	exitBacktest = 5
)

func main() {
	// .env before anything else, so config env overrides see it
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf(".env load failed: %v", err)
		}
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUsage)
	}
	os.Exit(run(os.Args[1], os.Args[2:]))
}

func run(cmd string, args []string) int {
	switch cmd {
	case "validate":
		return runValidate(args)
	case "analyze":
		return runAnalyze(args)
	case "backtest":
		return runBacktest(args)
	case "optimize":
		return runOptimize(args)
	case "help", "-h", "--help":
		usage()
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		return exitUsage
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: econquant <command> [flags]

commands:
  validate  check a records CSV and report data quality
  analyze   derive indicators and combined signals for one series
  backtest  replay one series' signals against daily prices
  optimize  grid-search strategy parameters against daily prices

run 'econquant <command> -h' for command flags
`)
}

// app is the per-invocation wiring: config, logger, optional telemetry, and
// the pipeline.
type app struct {
	cfg  *config.Config
	log  *applogger.Logger
	pipe *usecase.Pipeline
	srv  *xhttp.Server
}

func newApp(configPath string) (*app, error) {
	var cfg *config.Config
	var err error
	if configPath == "" {
		cfg = config.Default()
	} else {
		cfg, err = config.LoadWithEnv(configPath)
		if err != nil {
			return nil, err
		}
	}

	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, err
	}

	var rec *metrics.Recorder
	var srv *xhttp.Server
	if cfg.Metrics.Enabled {
		rec = metrics.New()
		srv = xhttp.NewServer(
			xhttp.WithHost(cfg.Metrics.Host),
			xhttp.WithPort(cfg.Metrics.Port),
			xhttp.WithMetricsPath(cfg.Metrics.Path),
		)
	}

	return &app{
		cfg:  cfg,
		log:  l,
		pipe: usecase.NewPipeline(cfg.Pipeline, l, rec),
		srv:  srv,
	}, nil
}

// signalContext cancels on SIGINT/SIGTERM so long runs stop cooperatively.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	recordsPath := fs.String("records", "", "records CSV path")
	repair := fs.String("repair", "", "gap repair method: forward_fill, backward_fill, linear, mean, median")
	format := fs.String("format", "json", "output format: json or markdown")
	out := fs.String("out", "", "output path (default stdout)")
	_ = fs.Parse(args)

	if *recordsPath == "" {
		fmt.Fprintln(os.Stderr, "validate: -records is required")
		return exitUsage
	}

	a, err := newApp(*configPath)
	if err != nil {
		log.Printf("startup failed: %v", err)
		return exitUsage
	}

	records, err := loader.ReadRecords(*recordsPath)
	if err != nil {
		a.log.Error("records load failed", applogger.Error(err))
		return exitCodeFor(err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	rep, err := a.pipe.ValidateRecords(ctx, records, models.RepairMethod(*repair))
	if err != nil {
		a.log.Error("validation failed", applogger.Error(err))
		return exitCodeFor(err)
	}

	if err := write(*out, *format, rep, report.WriteValidationMarkdown); err != nil {
		a.log.Error("report write failed", applogger.Error(err))
		return exitUsage
	}
	if !rep.Passed(a.cfg.Pipeline.Validation.MinQualityScore) {
		a.log.Warn("quality below floor",
			applogger.Float64("score", rep.QualityScore),
			applogger.Float64("min", a.cfg.Pipeline.Validation.MinQualityScore))
		return exitQuality
	}
	return exitOK
}

func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	recordsPath := fs.String("records", "", "records CSV path")
	series := fs.String("series", "", "series id to analyze (default: the file's only series)")
	out := fs.String("out", "", "output path (default stdout)")
	_ = fs.Parse(args)

	if *recordsPath == "" {
		fmt.Fprintln(os.Stderr, "analyze: -records is required")
		return exitUsage
	}

	a, err := newApp(*configPath)
	if err != nil {
		log.Printf("startup failed: %v", err)
		return exitUsage
	}

	records, err := loadSeries(*recordsPath, *series)
	if err != nil {
		a.log.Error("records load failed", applogger.Error(err))
		return exitCodeFor(err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := a.pipe.AnalyzeSeries(ctx, records, a.params(*series))
	if err != nil {
		a.log.Error("analysis failed", applogger.Error(err))
		return exitCodeFor(err)
	}
	if err := write(*out, "json", res, nil); err != nil {
		a.log.Error("report write failed", applogger.Error(err))
		return exitUsage
	}
	return exitOK
}

func runBacktest(args []string) int {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	recordsPath := fs.String("records", "", "records CSV path")
	pricesPath := fs.String("prices", "", "daily OHLCV CSV path")
	series := fs.String("series", "", "series id to trade on (default: the file's only series)")
	format := fs.String("format", "json", "output format: json or markdown")
	out := fs.String("out", "", "output path (default stdout)")
	tradesOut := fs.String("trades-csv", "", "also write round trips to this CSV path")
	_ = fs.Parse(args)

	if *recordsPath == "" || *pricesPath == "" {
		fmt.Fprintln(os.Stderr, "backtest: -records and -prices are required")
		return exitUsage
	}

	a, err := newApp(*configPath)
	if err != nil {
		log.Printf("startup failed: %v", err)
		return exitUsage
	}

	records, prices, code := loadInputs(a, *recordsPath, *pricesPath, *series)
	if code != exitOK {
		return code
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := a.pipe.RunBacktest(ctx, records, prices, a.params(*series))
	if err != nil {
		a.log.Error("backtest failed", applogger.Error(err))
		return exitCodeFor(err)
	}

	if err := write(*out, *format, res, report.WriteBacktestMarkdown); err != nil {
		a.log.Error("report write failed", applogger.Error(err))
		return exitUsage
	}
	if *tradesOut != "" {
		if err := writeTo(*tradesOut, func(w io.Writer) error {
			return report.WriteTradesCSV(w, res.Trades)
		}); err != nil {
			a.log.Error("trades write failed", applogger.Error(err))
			return exitUsage
		}
	}
	return exitOK
}

func runOptimize(args []string) int {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	recordsPath := fs.String("records", "", "records CSV path")
	pricesPath := fs.String("prices", "", "daily OHLCV CSV path")
	series := fs.String("series", "", "series id to optimize on (default: the file's only series)")
	format := fs.String("format", "json", "output format: json or markdown")
	out := fs.String("out", "", "output path (default stdout)")
	_ = fs.Parse(args)

	if *recordsPath == "" || *pricesPath == "" {
		fmt.Fprintln(os.Stderr, "optimize: -records and -prices are required")
		return exitUsage
	}

	a, err := newApp(*configPath)
	if err != nil {
		log.Printf("startup failed: %v", err)
		return exitUsage
	}

	records, prices, code := loadInputs(a, *recordsPath, *pricesPath, *series)
	if code != exitOK {
		return code
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Telemetry stays up for the whole sweep so progress is scrapeable.
	if a.srv != nil {
		if err := a.srv.Start(); err != nil {
			a.log.Error("telemetry start failed", applogger.Error(err))
		}
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := a.srv.Stop(stopCtx); err != nil {
				a.log.Warn("telemetry stop error", applogger.Error(err))
			}
		}()
	}

	res, err := a.pipe.RunOptimization(ctx, records, prices)
	if err != nil {
		a.log.Error("optimization failed", applogger.Error(err))
		return exitCodeFor(err)
	}

	if err := write(*out, *format, res, report.WriteOptimizationMarkdown); err != nil {
		a.log.Error("report write failed", applogger.Error(err))
		return exitUsage
	}
	if res.TimedOut {
		// Partial ranking was written above; the exit code still signals it.
		a.log.Warn("optimization timed out",
			applogger.Int("evaluated", res.Evaluated),
			applogger.Int("total", res.TotalCombinations))
		return exitTimeout
	}
	return exitOK
}

// params builds the single-run parameter set from config, stamping the
// series being analyzed as its indicator name.
func (a *app) params(series string) models.ParameterSet {
	p := a.cfg.Params
	if p.IndicatorName == "" {
		p.IndicatorName = series
	}
	return p
}

// loadSeries reads records and keeps only the named series. An empty name
// keeps everything; the pipeline still insists on a single series.
func loadSeries(path, series string) ([]models.RawIndicatorRecord, error) {
	records, err := loader.ReadRecords(path)
	if err != nil {
		return nil, err
	}
	if series == "" {
		return records, nil
	}
	filtered := lo.Filter(records, func(r models.RawIndicatorRecord, _ int) bool {
		return r.SeriesID == series
	})
	if len(filtered) == 0 {
		return nil, fmt.Errorf("no records for series %q in %s", series, path)
	}
	return filtered, nil
}

func loadInputs(a *app, recordsPath, pricesPath, series string) ([]models.RawIndicatorRecord, []models.OHLCV, int) {
	records, err := loadSeries(recordsPath, series)
	if err != nil {
		a.log.Error("records load failed", applogger.Error(err))
		return nil, nil, exitCodeFor(err)
	}
	prices, err := loader.ReadPrices(pricesPath)
	if err != nil {
		a.log.Error("prices load failed", applogger.Error(err))
		return nil, nil, exitCodeFor(err)
	}
	return records, prices, exitOK
}

// write renders v as JSON or, when a markdown renderer is given and asked
// for, as markdown.
func write[T any](path, format string, v T, markdown func(io.Writer, T) error) error {
	return writeTo(path, func(w io.Writer) error {
		if format == "markdown" && markdown != nil {
			return markdown(w, v)
		}
		return report.WriteJSON(w, v)
	})
}

func writeTo(path string, render func(io.Writer) error) error {
	if path == "" || path == "-" {
		return render(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// exitCodeFor maps pipeline failures onto the documented exit codes.
func exitCodeFor(err error) int {
	var loadErr *models.DataLoadError
	var qualityErr *models.DataQualityError
	var timeoutErr *models.TimeoutError
	var dataErr *models.InsufficientDataError
	var priceErr *models.InvalidPriceError
	switch {
	case errors.As(err, &loadErr):
		return exitLoad
	case errors.As(err, &qualityErr):
		return exitQuality
	case errors.As(err, &timeoutErr):
		return exitTimeout
	case errors.As(err, &dataErr), errors.As(err, &priceErr):
		return exitBacktest
	default:
		return exitUsage
	}
}
