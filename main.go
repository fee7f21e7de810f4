package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/matt0x6f/driftwood/internal/app"
	"github.com/matt0x6f/driftwood/internal/chatlog"
	"github.com/matt0x6f/driftwood/internal/config"
	"github.com/matt0x6f/driftwood/internal/dcc"
	"github.com/matt0x6f/driftwood/internal/irc"
	"github.com/matt0x6f/driftwood/internal/logger"
	"github.com/matt0x6f/driftwood/internal/security"
	"github.com/matt0x6f/driftwood/internal/state"
)

const queueSize = 256

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the configuration file")
	logPath := flag.String("log", "", "write diagnostic logs to this file")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	if *logPath != "" {
		if err := logger.Init(*logPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
	} else {
		// The terminal belongs to the client; without a log file,
		// diagnostics are dropped rather than corrupting the display.
		logger.Discard()
	}
	if *debug {
		logger.SetLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	chat, err := chatlog.Open(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open chat log: %v\n", err)
		os.Exit(1)
	}

	session := state.NewSession(&cfg)
	queue := make(chan interface{}, queueSize)
	reactor := app.New(
		session,
		queue,
		irc.NewManager(queue),
		dcc.NewManager(queue),
		chat,
		newTermFrontend(os.Stdout),
		security.NewKeychain(),
	)

	for _, srv := range cfg.Servers {
		if srv.AutoConnect {
			queue <- state.ConnectServer{
				Name: srv.Name,
				Host: srv.Host,
				Port: srv.Port,
				TLS:  srv.TLS,
				Nick: srv.Nickname,
			}
		}
	}

	go readInput(queue)
	go tick(queue)

	// Ctrl+C from outside the input loop still shuts down cleanly.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		queue <- app.KeyEvent{Kind: app.KeyCtrlC}
	}()

	reactor.Run()
}

// readInput feeds stdin to the reactor one key at a time. Input is line
// buffered; each line is replayed as its runes followed by Enter, so the
// editor, history, and command parser see the same key stream a raw
// terminal would produce.
func readInput(queue chan<- interface{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		for _, r := range scanner.Text() {
			queue <- app.KeyEvent{Kind: app.KeyRune, Rune: r}
		}
		queue <- app.KeyEvent{Kind: app.KeyEnter}
	}
	// EOF on stdin means the user is done.
	queue <- app.KeyEvent{Kind: app.KeyCtrlC}
}

func tick(queue chan<- interface{}) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for now := range t.C {
		queue <- app.TickEvent{Now: now}
	}
}
