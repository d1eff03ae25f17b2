package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"deliverystats/internal/app"
	"deliverystats/internal/config"
	"deliverystats/internal/exporter"
	"deliverystats/internal/infrastructure"
	"deliverystats/internal/services"
	"deliverystats/internal/validation"
	"deliverystats/pkg/contracts"
	api "deliverystats/pkg/contracts/api/v1"
	"deliverystats/pkg/contracts/domain"
)

const allReports = "all"

// options are the parsed command line flags
type options struct {
	report     string
	period     string
	symbol     string
	format     exporter.Format
	out        string
	configPath string
	version    bool
}

func main() {
	// A missing .env is fine; the environment and config file still apply
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("delivery", flag.ContinueOnError)
	fs.SetOutput(stderr)

	report := fs.String("report", "", "report id, or \"all\" for every report the inputs allow")
	period := fs.String("period", "", "month (YYYYMM) or day (YYYYMMDD) the report covers")
	symbol := fs.String("symbol", "", "variety code for symbol keyed reports, e.g. a")
	format := fs.String("format", "csv", "output format: csv | xlsx | json")
	out := fs.String("out", ".", "directory to write exports to, or - for stdout")
	configPath := fs.String("config", "", "path to config.yaml")
	showVersion := fs.Bool("version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *showVersion {
		return &options{version: true}, nil
	}
	if *report == "" {
		fs.Usage()
		return nil, errors.New("-report is required")
	}

	f, err := exporter.ParseFormat(*format)
	if err != nil {
		return nil, err
	}

	return &options{
		report:     strings.ToLower(strings.TrimSpace(*report)),
		period:     strings.TrimSpace(*period),
		symbol:     strings.TrimSpace(*symbol),
		format:     f,
		out:        *out,
		configPath: *configPath,
	}, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	if opts.configPath != "" {
		if err := validation.NewFileValidator(nil).ValidateFile(opts.configPath); err != nil {
			return err
		}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()
	logger = infrastructure.WithComponent(logger, "cli")
	ctx = infrastructure.EnsureTraceID(ctx)

	if cfg.Tracing.Enabled {
		providers, err := infrastructure.InitializeOTel(cfg.Tracing, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
		defer providers.Shutdown(context.Background())
	}

	svc := app.NewReportService(cfg.Exchange, logger, nil)

	jobs, err := plan(svc, opts)
	if err != nil {
		return err
	}
	if opts.out == "-" && len(jobs) != 1 {
		return errors.New("-out - needs exactly one report")
	}

	if opts.out != "-" {
		if err := validation.NewFileValidator(logger).ValidateOutputDirectory(opts.out); err != nil {
			return err
		}
	}
	writer := exporter.NewFileWriter(opts.out, logger)

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []error
	)
	g.SetLimit(cfg.Exchange.Concurrency)

	for _, j := range jobs {
		g.Go(func() error {
			result, err := svc.Report(ctx, j.info.ID, j.params)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				err = emit(stdout, writer, opts, result)
			}
			if err != nil {
				failed = append(failed, err)
			}
			return nil
		})
	}
	g.Wait()

	if len(failed) > 0 {
		logger.ErrorContext(ctx, "reports failed",
			slog.Int("failed", len(failed)),
			slog.Int("total", len(jobs)))
		return errors.Join(failed...)
	}
	return nil
}

// job is one report run
type job struct {
	info   domain.ReportInfo
	params domain.ReportParams
}

// plan expands -report into report runs. For "all", every report whose input
// can be derived from -period and -symbol is run: a day also serves the
// month reports of its month.
func plan(svc *services.DeliveryService, opts *options) ([]job, error) {
	if opts.report != allReports {
		info, err := svc.Lookup(domain.ReportID(opts.report))
		if err != nil {
			return nil, err
		}
		req := api.ReportRequest{Period: opts.period, Symbol: opts.symbol}
		return []job{{info: info, params: req.Params(info.Param)}}, nil
	}

	var jobs []job
	for _, info := range svc.Reports() {
		input, ok := deriveInput(info.Param, opts.period, opts.symbol)
		if !ok {
			continue
		}
		if info.Param == domain.ParamSymbol {
			jobs = append(jobs, job{info: info, params: domain.ReportParams{Symbol: input}})
		} else {
			jobs = append(jobs, job{info: info, params: domain.ReportParams{Period: input}})
		}
	}
	if len(jobs) == 0 {
		return nil, errors.New("-report all needs -period (YYYYMM or YYYYMMDD) or -symbol")
	}
	return jobs, nil
}

// deriveInput picks the input of a report kind from the flags
func deriveInput(kind domain.ParamKind, period, symbol string) (string, bool) {
	switch kind {
	case domain.ParamSymbol:
		return symbol, symbol != ""
	case domain.ParamMonth:
		if len(period) == 8 {
			return period[:6], true
		}
		return period, len(period) == 6
	case domain.ParamDay:
		return period, len(period) == 8
	}
	return "", false
}

func emit(stdout io.Writer, writer *exporter.FileWriter, opts *options, result *domain.ReportResult) error {
	if opts.out == "-" {
		return exporter.Encode(stdout, opts.format, result)
	}
	path, err := writer.Save(result, opts.format)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, path)
	return nil
}
