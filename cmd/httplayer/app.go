package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GriffinCanCode/httplayer/internal/infrastructure/config"
	"github.com/GriffinCanCode/httplayer/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/httplayer/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/httplayer/internal/logging"
	"github.com/GriffinCanCode/httplayer/internal/providers/http/client"
	"github.com/GriffinCanCode/httplayer/internal/providers/http/requests"
	"github.com/GriffinCanCode/httplayer/internal/transport"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const defaultBackgroundID = "httplayer"

// backgroundDrain bounds the wait for a background session to report its
// events finished after the last transfer completed.
const backgroundDrain = 2 * time.Second

type cliOptions struct {
	configPath string
	headers    []string
	ephemeral  bool
	background string
	verbose    bool
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}
	cmd := &cobra.Command{
		Use:           "httplayer",
		Short:         "Issue HTTP transfers through pooled sessions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	bindGlobalFlags(cmd.PersistentFlags(), opts)

	cmd.AddCommand(
		newGetCommand(opts),
		newSendCommand(opts),
		newUploadCommand(opts),
		newDownloadCommand(opts),
	)
	return cmd
}

func bindGlobalFlags(flags *pflag.FlagSet, opts *cliOptions) {
	flags.StringVar(&opts.configPath, "config", "", "YAML or TOML config file")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "request header 'Name: value' (repeatable)")
	flags.BoolVar(&opts.ephemeral, "ephemeral", false, "use a session without cookies")
	flags.StringVar(&opts.background, "background", "", "use the background session with this identifier")
	flags.Lookup("background").NoOptDefVal = defaultBackgroundID
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "print status, headers and transfer totals")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
}

func (o *cliOptions) configuration() (transport.Configuration, error) {
	switch {
	case o.ephemeral && o.background != "":
		return transport.Configuration{}, errors.New("--ephemeral and --background are mutually exclusive")
	case o.ephemeral:
		return transport.EphemeralConfig(), nil
	case o.background != "":
		return transport.BackgroundConfig(o.background), nil
	default:
		return transport.ForegroundConfig(), nil
	}
}

func parseHeaders(raw []string) (http.Header, error) {
	h := http.Header{}
	for _, line := range raw {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Name: value'", line)
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}

// app is the per-invocation runtime shared by all commands.
type app struct {
	opts    *cliOptions
	cfg     *config.Config
	log     *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
	client  *client.Client
	session transport.Configuration
	header  http.Header
	out     io.Writer
	errOut  io.Writer
}

func (o *cliOptions) open(cmd *cobra.Command) (*app, error) {
	sessionCfg, err := o.configuration()
	if err != nil {
		return nil, err
	}
	header, err := parseHeaders(o.headers)
	if err != nil {
		return nil, err
	}

	cfg := config.LoadOrDefault()
	if o.configPath != "" {
		if cfg, err = config.LoadFile(o.configPath); err != nil {
			return nil, err
		}
	}

	// Quieter than the library default unless configured otherwise
	logCfg := cfg.LoggingConfig()
	if cmd.Flags().Changed("log-level") || cfg.Logging.Level == config.Default().Logging.Level {
		logCfg.Level = o.logLevel
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &app{
		opts:    o,
		cfg:     cfg,
		log:     logger,
		metrics: monitoring.NewMetrics(cfg.Metrics.Namespace, prometheus.NewRegistry()),
		tracer:  tracing.New("httplayer", logger.Named("trace")),
		session: sessionCfg,
		header:  header,
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
	}
	a.client = client.New(client.Config{
		Transport: cfg.TransportOptions(),
		Metrics:   a.metrics,
		Tracer:    a.tracer,
		Logger:    logger.Logger,
	})
	return a, nil
}

func (a *app) Close() {
	a.client.Close()
	a.tracer.Close()
	_ = a.log.Close()
}

// run starts a transfer with start, waits for it and reports the outcome.
func (a *app) run(ctx context.Context, start func(client.Request) (*client.Handle, error), req client.Request) (*client.Response, error) {
	req.Header = a.header
	req.Configuration = a.session

	var drained chan struct{}
	if a.session.Kind == transport.Background {
		drained = make(chan struct{})
		if err := a.client.HandleBackgroundEvents(a.session.Identifier, func() { close(drained) }); err != nil {
			return nil, err
		}
	}

	h, err := start(req)
	if err != nil {
		return nil, err
	}
	resp, err := h.Wait(ctx)
	if err != nil {
		return nil, err
	}

	if drained != nil {
		select {
		case <-drained:
			a.log.Debug("background events finished", zap.String("identifier", a.session.Identifier))
		case <-time.After(backgroundDrain):
		}
	}

	if a.opts.verbose {
		a.describe(resp)
	}
	return resp, requests.Expect2xx(resp)
}

func (a *app) describe(resp *client.Response) {
	fmt.Fprintf(a.errOut, "HTTP %d (%s) %s\n", resp.StatusCode, requests.Classify(resp.StatusCode), resp.URL)
	for name, values := range resp.Header {
		for _, v := range values {
			fmt.Fprintf(a.errOut, "%s: %s\n", name, v)
		}
	}
	snap := a.metrics.Snapshot()
	fmt.Fprintf(a.errOut, "sent %s, received %s\n",
		humanize.Bytes(uint64(snap.BytesSent)),
		humanize.Bytes(uint64(snap.BytesReceived)),
	)
}

// progressPrinter writes a single updating progress line.
func (a *app) progressPrinter(label string) client.ProgressFunc {
	return func(p client.Progress) {
		if p.Total > 0 {
			fmt.Fprintf(a.errOut, "\r%s %s / %s (%.0f%%)", label,
				humanize.Bytes(uint64(p.Completed)),
				humanize.Bytes(uint64(p.Total)),
				p.Fraction*100,
			)
			return
		}
		fmt.Fprintf(a.errOut, "\r%s %s", label, humanize.Bytes(uint64(p.Completed)))
	}
}
