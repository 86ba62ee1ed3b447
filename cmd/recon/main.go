package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/sokinpui/recon/cli"
	"github.com/sokinpui/recon/internal/logging"
	"github.com/sokinpui/recon/internal/metrics"
	"github.com/sokinpui/recon/internal/tui"
	"github.com/sokinpui/recon/internal/ui"
	"github.com/sokinpui/recon/model"
	"github.com/sokinpui/recon/recon"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := cli.ParseFlags()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Component: "recon"})
	opts := []recon.Option{recon.WithLogger(logger)}

	if cfg.MetricsAddr != "" {
		shutdown, sink, err := serveMetrics(cfg.MetricsAddr, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start metrics server: %v\n", err)
			return 1
		}
		defer shutdown()
		opts = append(opts, recon.WithSink(sink))
	}

	app, err := recon.New(cfg, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		return 1
	}

	var summary model.Summary
	switch {
	case cfg.Format != "text":
		summary, err = app.Execute(ctx)
		if werr := cli.WriteReport(os.Stdout, cfg.Format, summary, err); werr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", werr)
			return 1
		}
	case cfg.NoTUI:
		summary, err = runPlain(ctx, app)
	default:
		summary, err = runTUI(ctx, app)
	}

	if err != nil {
		if stack := tui.Stack(err); stack != nil {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", stack)
		}
		if cfg.Format == "text" {
			ui.Error("Error: %v", err)
		}
		return 1
	}
	if len(summary.Failed) > 0 {
		return 1
	}
	return 0
}

func runPlain(ctx context.Context, app *recon.App) (model.Summary, error) {
	var bar *ui.ProgressBar
	app.SetProgressCallback(func(current, total int) {
		if bar == nil {
			bar = ui.NewProgressBar(total, "Writing")
			bar.Start()
		}
		bar.Set(current)
	})
	summary, err := app.Execute(ctx)
	if bar != nil {
		bar.Finish()
	}
	ui.PrintSummary(summary)
	return summary, err
}

func runTUI(ctx context.Context, app *recon.App) (model.Summary, error) {
	m := tui.New(ctx, app)
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	m.SetProgram(p)
	app.SetProgressCallback(m.Progress)

	if _, err := p.Run(); err != nil {
		return model.Summary{}, fmt.Errorf("error running program: %w", err)
	}
	return m.Summary(), m.Err()
}

func serveMetrics(addr string, logger logging.Logger) (func(), metrics.Sink, error) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPrometheus(reg)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return shutdown, sink, nil
}
