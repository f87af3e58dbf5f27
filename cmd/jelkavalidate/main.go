package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jelka/validator/internal/config"
	"github.com/jelka/validator/internal/observability"
	"github.com/jelka/validator/internal/stream"
	"github.com/jelka/validator/internal/tools"
	"github.com/rs/zerolog/log"
)

const (
	exitOK       = 0
	exitProtocol = 1
	exitUsage    = 2
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	configPath := flag.String("config", "", "validator config path (toml)")
	fps := flag.Int("fps", 0, "override playback fps (0 follows the header)")
	fast := flag.Bool("fast", false, "deliver frames as they arrive instead of at fps")
	statusAddr := flag.String("status", "", "status server address, e.g. 127.0.0.1:7070")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: jelkavalidate [flags] [-- producer args...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	observability.InitLogger("jelkavalidate")

	cfg := config.DefaultValidatorConfig()
	if *configPath != "" {
		loaded, err := config.LoadValidatorConfig(*configPath)
		if err != nil {
			log.Error().Err(err).Msg("failed to load validator config")
			return exitUsage
		}
		cfg = loaded
		log.Info().Str("path", *configPath).Msg("loaded validator config")
	}
	if *fps > 0 {
		cfg.Playback.FPS = *fps
	}
	if *fast {
		cfg.Playback.Realtime = false
	}
	if *statusAddr != "" {
		cfg.Status.Addr = *statusAddr
	}
	if args := flag.Args(); len(args) > 0 {
		cfg.Source.Command = args
	}
	if err := config.ValidateValidatorConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid validator config")
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, wait, err := openSource(ctx, cfg.Source.Command)
	if err != nil {
		log.Error().Err(err).Strs("command", cfg.Source.Command).Msg("failed to start producer")
		return exitUsage
	}

	v := newValidator(cfg, os.Stdout)
	result, runErr := v.run(ctx, src)
	stop()
	if err := wait(); err != nil && runErr == nil && !result.EndOfStream {
		log.Warn().Err(err).Msg("producer exited with error")
	}

	if runErr != nil {
		var lineErr *stream.LineError
		if errors.As(runErr, &lineErr) {
			fmt.Fprintf(os.Stderr, "invalid %s record: %v\n%s\n", lineErr.Record, lineErr.Err, lineErr.Line)
		}
		log.Error().Err(runErr).Str("stream", result.StreamID).Int("received", result.Received).Msg("validation failed")
		return exitProtocol
	}

	log.Info().
		Str("stream", result.StreamID).
		Str("title", result.Header.Title).
		Int("received", result.Received).
		Int("delivered", result.Delivered).
		Bool("end_of_stream", result.EndOfStream).
		Msg("validation passed")
	return exitOK
}

// openSource starts the producer command, or falls back to stdin. wait
// reaps the producer; a producer still running when ctx ends is killed.
func openSource(ctx context.Context, command []string) (io.Reader, func() error, error) {
	if len(command) == 0 {
		return os.Stdin, func() error { return nil }, nil
	}
	p, err := tools.StartProducer(ctx, command[0], command[1:], os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Strs("command", command).Int("pid", p.Pid()).Msg("producer started")
	wait := func() error {
		code, err := p.Wait()
		if err != nil {
			return fmt.Errorf("producer exit code %d: %w", code, err)
		}
		return nil
	}
	return p.Stdout, wait, nil
}
