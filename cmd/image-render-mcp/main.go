package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pierrre/imageserver"
	"go.uber.org/zap"

	"github.com/ironsheep/image-render-mcp/internal/config"
	"github.com/ironsheep/image-render-mcp/internal/imageserve"
	"github.com/ironsheep/image-render-mcp/internal/logging"
	"github.com/ironsheep/image-render-mcp/internal/render"
	"github.com/ironsheep/image-render-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type options struct {
	configPath string
	httpAddr   string
}

func usage() {
	fmt.Println("image-render-mcp - MCP server for thumbnail rendering")
	fmt.Println()
	fmt.Println("Usage: image-render-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <file>  YAML config file (log, cache, render limits, presets, minio)")
	fmt.Println("  --http <addr>    Serve images over HTTP on addr instead of MCP over stdio")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables override the config file, e.g.:")
	fmt.Println("  IMAGE_MCP_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println("  IMAGE_MCP_HTTP_ADDR=:8080    Same as --http :8080")
	fmt.Println()
	fmt.Println("Without --http the server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

// parseArgs returns done=true when a flag such as --version was fully handled.
func parseArgs(args []string) (opts options, done bool, err error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "--version", "-v", "version":
			fmt.Printf("image-render-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return opts, true, nil
		case "--help", "-h", "help":
			usage()
			return opts, true, nil
		case "--config", "--http":
			if !hasValue {
				if i+1 >= len(args) {
					return opts, false, fmt.Errorf("%s requires a value", name)
				}
				i++
				value = args[i]
			}
			if name == "--config" {
				opts.configPath = value
			} else {
				opts.httpAddr = value
			}
		default:
			return opts, false, fmt.Errorf("unknown option: %s", arg)
		}
	}
	return opts, false, nil
}

func main() {
	opts, done, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if done {
		return
	}

	loader := config.NewLoader(opts.configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout is for the MCP protocol
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	logger.Debug("starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit),
		zap.String("config", opts.configPath))

	presets := render.NewPresetRegistry()
	if err := config.ApplyPresets(cfg, presets); err != nil {
		logger.Fatal("invalid presets", zap.Error(err))
	}
	loader.WatchPresets(presets, logger)

	renderer := render.NewRenderer(
		render.WithLogger(logger),
		render.WithLimits(cfg.Render.Limits()),
	)

	addr := opts.httpAddr
	if addr == "" {
		addr = cfg.HTTP.Addr
	}
	if addr != "" {
		if err := serveHTTP(addr, cfg, renderer, presets, logger); err != nil {
			logger.Fatal("http server error", zap.Error(err))
		}
		return
	}

	srv := server.New(
		server.WithLogger(logger),
		server.WithRenderer(renderer),
		server.WithPresets(presets),
		server.WithVersion(Version),
		server.WithWorkers(cfg.Render.Workers),
	)
	if err := srv.Run(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newSource(cfg *config.Config) (imageserver.Server, error) {
	if !cfg.Minio.Enabled() {
		return &imageserve.FileSource{Root: cfg.HTTP.Root}, nil
	}
	client, err := imageserve.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Secure)
	if err != nil {
		return nil, err
	}
	return imageserve.NewMinioSource(imageserve.NewMinioStore(client), cfg.Minio.Bucket), nil
}

func serveHTTP(addr string, cfg *config.Config, renderer *render.Renderer, presets *render.PresetRegistry, logger *zap.Logger) error {
	source, err := newSource(cfg)
	if err != nil {
		return err
	}
	handler := imageserve.NewHandler(renderer, presets, logger)
	images := imageserve.NewServer(source, handler, cfg.Cache.SizeBytes)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           imageserve.NewHTTPHandler(images, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("serving images over http",
			zap.String("addr", addr),
			zap.Bool("minio", cfg.Minio.Enabled()),
			zap.Int64("cache_bytes", cfg.Cache.SizeBytes))
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
