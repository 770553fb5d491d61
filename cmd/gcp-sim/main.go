package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/gcp-sim/internal/config"
	"github.com/ironsheep/gcp-sim/internal/httpapi"
	"github.com/ironsheep/gcp-sim/internal/logging"
	"github.com/ironsheep/gcp-sim/internal/publish"
	"github.com/ironsheep/gcp-sim/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// shutdownTimeout bounds the graceful shutdown of the loop and HTTP server.
const shutdownTimeout = 15 * time.Second

type options struct {
	configDir string
	mcp       bool
	once      bool
}

var errUsage = errors.New("usage")

func main() {
	opts, err := parseArgs(os.Args[1:])
	if errors.Is(err, errUsage) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "gcp-sim: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'gcp-sim --help' for usage.")
		os.Exit(2)
	}

	// Logging goes to stderr until the configured sinks are known.
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := run(opts); err != nil {
		log.Fatalf("gcp-sim: %v", err)
	}
}

// parseArgs handles the informational flags itself and returns errUsage
// once it has printed them.
func parseArgs(args []string) (options, error) {
	var opts options
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v", "version":
			fmt.Printf("gcp-sim %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return opts, errUsage
		case "--help", "-h", "help":
			printHelp()
			return opts, errUsage
		case "--config", "-c":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s requires a directory", args[i])
			}
			i++
			opts.configDir = args[i]
		case "--mcp":
			opts.mcp = true
		case "--once":
			opts.once = true
		default:
			return opts, fmt.Errorf("unknown option %q", args[i])
		}
	}
	return opts, nil
}

func printHelp() {
	fmt.Println("gcp-sim - ground control point marker simulator")
	fmt.Println()
	fmt.Println("Usage: gcp-sim [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config, -c DIR Read " + config.FileName + " from DIR")
	fmt.Println("  --mcp            Also serve MCP tools over stdin/stdout")
	fmt.Println("  --once           Run a single cycle, print its record and exit")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  " + config.EnvPrefix + "_<KEY>    Override any config key, e.g. " +
		config.EnvPrefix + "_SCALE_MIN=0.08")
	fmt.Println("  " + config.EnvPrefix + "_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println()
	fmt.Println("Status, control and the published images are served over HTTP")
	fmt.Println("(default :5000); see /api/status.")
}

func run(opts options) error {
	if err := config.Load(opts.configDir); err != nil {
		return err
	}
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	closer := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	defer closer.Close()

	logging.Debugf("GCP simulator v%s (built %s, commit %s)", Version, BuildTime, GitCommit)

	store, err := publish.NewStore(cfg.Publish.Dir, cfg.Publish.CompositeName, cfg.Publish.FilterName)
	if err != nil {
		return err
	}
	loop := publish.NewLoop(cfg.LoopConfig(), store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.once {
		state, err := loop.RunCycle(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	api := httpapi.New(loop, Version)

	if cfg.Loop.AutoStart {
		if err := loop.Start(ctx); err != nil {
			return fmt.Errorf("start loop: %w", err)
		}
	}

	if opts.mcp {
		mcp := server.New(server.Options{
			Loop:       loop,
			Classifier: cfg.RingClassifier(),
			Ladder:     cfg.Classifier.Ladder,
			Version:    Version,
		})
		// A blocked stdin read cannot be interrupted, so the MCP server
		// lives outside the group and ends the process when stdin closes.
		go func() {
			if err := mcp.Run(ctx); err != nil {
				log.Printf("MCP server error: %v", err)
			}
			log.Printf("MCP client disconnected, shutting down")
			stop()
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.ListenAndServe(cfg.HTTP.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		stopErr := loop.Stop(shutdownCtx)
		if stopErr != nil {
			log.Printf("Publish loop did not stop cleanly: %v", stopErr)
		}
		return errors.Join(stopErr, api.Shutdown(shutdownCtx))
	})

	return g.Wait()
}
