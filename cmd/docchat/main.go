// Command docchat chats with a single document using local or hosted models.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xcro3dile/docchat-go/internal/config"
)

const usage = `Usage: docchat [-config path] [-debug] <command> [args]

Commands:
  serve                      start the HTTP server
  chat <file>                open the terminal chat for a document
  ask <file> <question>      stream one answer to stdout
  watch                      invalidate cache entries when files change
  invalidate <file>          drop the cache entry for one document
`

func main() {
	a, err := setup()
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

// setup parses flags, loads configuration and wires the components.
func setup() (*app, error) {
	var cfgPath string
	var debug bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./docchat.yaml or ~/.config/docchat/config.yaml if not provided)")
	flag.BoolVar(&debug, "debug", false, "Log debug lines")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, cfgPath, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.Log.Debug = true
	}
	log.SetOutput(newLevelFilter(os.Stderr, cfg.Log.Debug))
	loadEnv()
	if cfgPath != "" {
		log.Printf("[DEBUG] Config loaded from %s", cfgPath)
	}

	return newApp(context.Background(), cfg)
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch cmd, rest := args[0], args[1:]; cmd {
	case "serve":
		return a.serve(ctx)
	case "chat":
		if len(rest) != 1 {
			return errUsage
		}
		return a.chat(ctx, rest[0])
	case "ask":
		if len(rest) != 2 {
			return errUsage
		}
		return a.ask(ctx, rest[0], rest[1], os.Stdout)
	case "watch":
		return a.watch(ctx)
	case "invalidate":
		if len(rest) != 1 {
			return errUsage
		}
		return a.invalidate(ctx, rest[0])
	default:
		return errUsage
	}
}
