// Command pitchwatch joins a live voice call and fact-checks the pitch as it
// is spoken: finalized user utterances are dispatched to the verdict
// service, and claims crossing the threshold interrupt the call with a
// spoken challenge.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pitchwatch/pitchwatch/internal/config"
	"github.com/pitchwatch/pitchwatch/internal/dotenv"
	"github.com/pitchwatch/pitchwatch/pkg/core/call"
	"github.com/pitchwatch/pitchwatch/pkg/core/transport"
	"github.com/pitchwatch/pitchwatch/pkg/core/verdict"
)

type appDeps struct {
	loadConfig    func() (config.Config, error)
	dialTransport func(ctx context.Context, url, apiKey string) (transport.Transport, error)
	signalNotify  func(chan<- os.Signal, ...os.Signal)
	signalStop    func(chan<- os.Signal)
}

func defaultAppDeps() appDeps {
	return appDeps{
		loadConfig: config.LoadFromEnv,
		dialTransport: func(ctx context.Context, url, apiKey string) (transport.Transport, error) {
			return transport.DialWebSocket(ctx, url, apiKey)
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func run(ctx context.Context, logger *slog.Logger, deps appDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.dialTransport == nil {
		return errors.New("missing dialTransport dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	tr, err := deps.dialTransport(ctx, cfg.TransportURL, cfg.TransportAPIKey)
	if err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}

	opts := []call.Option{call.WithLogger(logger)}
	if cfg.DetectionLogPath != "" {
		dl, err := verdict.OpenDetectionLog(cfg.DetectionLogPath)
		if err != nil {
			return fmt.Errorf("open detection log: %w", err)
		}
		defer dl.Close()
		opts = append(opts, call.WithDetectionLog(dl))
	}

	session := call.NewSession(cfg.SessionConfig(), tr, verdict.NewClient(cfg.VerdictURL), opts...)
	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.Close()

	go consumeEvents(ctx, logger, session.Events())

	if err := session.StartCall(); err != nil {
		return fmt.Errorf("start call: %w", err)
	}
	logger.Info("joining call",
		"assistant_id", cfg.AssistantID,
		"verdict_url", cfg.VerdictURL,
	)

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	if err := session.StopCall(); err != nil && !errors.Is(err, call.ErrSessionClosed) {
		logger.Warn("stop call failed", "error", err)
	}
	logger.Info("session stopped")
	return nil
}

// consumeEvents turns the session's observer feed into log lines.
func consumeEvents(ctx context.Context, logger *slog.Logger, events <-chan call.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			logEvent(logger, ev)
		}
	}
}

func logEvent(logger *slog.Logger, ev call.Event) {
	switch e := ev.(type) {
	case *call.StatusChangedEvent:
		logger.Info("status", "status", e.Status)
	case *call.StateChangedEvent:
		logger.Info("call state", "from", e.From.String(), "to", e.To.String())
	case *call.DetectionEvent:
		attrs := []any{"text", e.Entry.Text}
		if v := e.Entry.Verdict; v != nil {
			attrs = append(attrs,
				"score", v.Score,
				"category", v.Category,
				"severity", v.Severity,
				"explanation", v.Explanation,
			)
		}
		logger.Warn("detection", attrs...)
	case *call.DispatchStartedEvent:
		logger.Info("checking claim", "text", e.Text)
	case *call.DispatchTimedOutEvent:
		logger.Warn("check timed out", "text", e.Text)
	case *call.EntryAppendedEvent:
		logger.Debug("ledger entry", "speaker", e.Entry.Speaker, "text", e.Entry.Text)
	case *call.ErrorEvent:
		logger.Error("session error", "error", e.Message)
	default:
		logger.Debug("event", "type", ev.EventType())
	}
}

func runMain(ctx context.Context, stderr io.Writer, deps appDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.Load(".env"); err != nil {
		fmt.Fprintf(stderr, "pitchwatch: %v\n", err)
		return 1
	}

	if err := run(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "pitchwatch: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultAppDeps()))
}
