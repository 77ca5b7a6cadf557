package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/trogers1052/trade-journal/internal/analytics"
	"github.com/trogers1052/trade-journal/internal/config"
	"github.com/trogers1052/trade-journal/internal/journalfile"
	"github.com/trogers1052/trade-journal/internal/logger"
	"github.com/trogers1052/trade-journal/internal/report"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "journal-report:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("journal-report", pflag.ContinueOnError)
	model := flags.StringP("model", "m", "", "only include trades annotated with this model")
	tz := flags.String("tz", "local", `zone for day buckets when the journal names none ("local", IANA name or offset)`)
	watch := flags.BoolP("watch", "w", false, "recompute whenever the journal file changes")
	compact := flags.Bool("compact", false, "print single-line JSON")
	verbose := flags.BoolP("verbose", "v", false, "log debug output to stderr")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: journal-report [flags] <journal.yaml|journal.json>")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return fmt.Errorf("expected one journal file, got %d", flags.NArg())
	}
	path := flags.Arg(0)

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logger.New(config.LogConfig{Level: level, Encoding: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := journalfile.Options{Model: *model, Timezone: analytics.ParseTimezone(*tz)}
	render := func() error {
		in, err := journalfile.Load(path, opts)
		if err != nil {
			return err
		}
		r := report.Build(in)
		r.GeneratedAt = time.Now().UTC()
		report.WarnFlags(log, r)
		return write(out, r, !*compact)
	}

	if err := render(); err != nil {
		return err
	}
	if !*watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log.Info("watching journal file", zap.String("path", path))
	return journalfile.Watch(ctx, path, log, func() {
		if err := render(); err != nil {
			log.Error("failed to recompute report", zap.Error(err))
		}
	})
}

func write(out io.Writer, r report.Report, indent bool) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
