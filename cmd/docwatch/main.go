// @title           DocWatch API
// @version         1.0
// @description     Uploads documents to the processing backend and tracks their progress until a terminal state.
// @termsOfService  http://swagger.io/terms/

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akolanti/DocWatch/internal/apiclient"
	"github.com/akolanti/DocWatch/internal/channel"
	"github.com/akolanti/DocWatch/internal/config"
	"github.com/akolanti/DocWatch/internal/data/redisStore"
	"github.com/akolanti/DocWatch/internal/data/store"
	"github.com/akolanti/DocWatch/internal/domain/commonModels"
	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/internal/handlers"
	"github.com/akolanti/DocWatch/internal/ingest"
	"github.com/akolanti/DocWatch/internal/job"
	"github.com/akolanti/DocWatch/internal/middleware"
	"github.com/akolanti/DocWatch/internal/orchestrator"
	"github.com/akolanti/DocWatch/internal/poller"
	"github.com/akolanti/DocWatch/internal/reconciler"
	"github.com/akolanti/DocWatch/internal/server"
	"github.com/akolanti/DocWatch/pkg/logger_i"
)

const (
	exitCompleted   = 0
	exitFailed      = 1
	exitTimedOut    = 2
	exitUsage       = 64
	exitInterrupted = 130
)

var (
	configPath string
	filePath   string
	docName    string
	listenAddr string
	serve      bool
)

func main() {
	flag.StringVar(&configPath, "config", "docwatch.yaml", "path to the YAML config")
	flag.StringVar(&filePath, "file", "", "document to upload and track")
	flag.StringVar(&docName, "name", "", "display name of the document, defaults to the file name")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the config")
	flag.BoolVar(&serve, "serve", false, "run the companion HTTP service")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(exitUsage)
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	logger_i.Init(cfg)
	var logger = logger_i.NewLogger("main")

	serviceContext, closeExternalServices := context.WithCancel(context.Background())

	service, err := buildService(serviceContext, cfg)
	if err != nil {
		logger.Error("Could not build service", "error", err)
		closeExternalServices()
		os.Exit(exitUsage)
	}

	if serve {
		runServer(cfg, service, closeExternalServices)
		logger.Info("Server stopped")
		return
	}

	if filePath == "" {
		flag.Usage()
		closeExternalServices()
		os.Exit(exitUsage)
	}
	code := runUpload(serviceContext, service)
	service.Close()
	closeExternalServices()
	os.Exit(code)
}

func buildService(ctx context.Context, cfg config.Config) (*job.Service, error) {
	client, err := apiclient.New(cfg.API)
	if err != nil {
		return nil, err
	}

	var opener orchestrator.ChannelOpener
	if !cfg.Channel.Disabled {
		opener = channel.NewDialer(channel.OptionsFromConfig(cfg))
	}

	cache, board := buildStores(ctx, cfg)
	tracker := orchestrator.New(opener, client, reconciler.New(cache, client), orchestrator.Options{
		Poll:           poller.OptionsFromConfig(cfg),
		StreamDeadline: cfg.Channel.MaxStreamDuration,
	})

	return job.InitJobService(job.ServiceConfig{
		Inspector: ingest.NewInspector(cfg.Preflight),
		Backend:   client,
		Tracker:   tracker,
		Board:     board,
		Cache:     cache,
		Source:    client,
	}), nil
}

// buildStores prefers redis and falls back to memory when it is disabled or offline.
func buildStores(ctx context.Context, cfg config.Config) (commonModels.DocumentCache, jobModel.ProgressBoard) {
	logger := logger_i.NewLogger("main")
	if cfg.Redis.Enabled {
		cacheStore := redisStore.GetRedisStore(ctx, cfg.Redis, config.RedisDocumentCache)
		boardStore := redisStore.GetRedisStore(ctx, cfg.Redis, config.RedisProgressBoard)
		if cacheStore != nil && boardStore != nil {
			return store.NewRedisDocumentCache(cacheStore), store.NewRedisProgressBoard(boardStore)
		}
		logger.Error("Redis stores are offline, using in-memory stores")
	}
	return store.NewInMemoryDocumentCache(), store.NewInMemoryProgressBoard()
}

func runServer(cfg config.Config, service *job.Service, closeExternalServices context.CancelFunc) {
	handlers.InitDocumentHandler(service, cfg)
	middleware.Init(cfg.Server)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)
	stopPruning := make(chan struct{})

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		CloseServices: func() {
			close(stopPruning)
			service.Close()
			closeExternalServices()
		},
	}
	go server.ShutDownHandler(shutdownParams)
	go middleware.PruneEvery(time.Minute, stopPruning)
	go server.CreateServer(cfg.Server.ListenAddr)

	<-stopExecution
}

// runUpload tracks one document on the terminal and maps the outcome to an exit code.
func runUpload(ctx context.Context, service *job.Service) int {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	terminal := make(chan jobModel.TerminalNotification, 1)
	cb := orchestrator.Callbacks{
		OnUpdate: printUpdate,
		OnTerminal: func(note jobModel.TerminalNotification) {
			terminal <- note
		},
	}

	handle, pre, err := service.UploadAndTrack(sigCtx, filePath, docName, cb)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitFailed
	}
	fmt.Printf("tracking %s as document %s, job %s (%s, %d pages)\n", pre.Name, handle.DocumentId, handle.JobId, pre.ContentType, pre.TotalPages)

	select {
	case note := <-terminal:
		return printTerminal(note)
	case <-sigCtx.Done():
		service.StopTracking(ctx, handle.DocumentId)
		fmt.Fprintln(os.Stderr, "interrupted, the backend keeps processing")
		return exitInterrupted
	}
}

func printUpdate(update jobModel.ProgressUpdate) {
	if update.Message != "" {
		fmt.Printf("[%5.1f%%] %-10s %s\n", update.Percentage, update.Status, update.Message)
		return
	}
	fmt.Printf("[%5.1f%%] %s\n", update.Percentage, update.Status)
}

func printTerminal(note jobModel.TerminalNotification) int {
	switch note.Kind {
	case jobModel.TerminalCompleted:
		fmt.Println("processing complete")
		return exitCompleted
	case jobModel.TerminalTimedOut:
		fmt.Fprintln(os.Stderr, "processing is taking longer than expected, stopped waiting")
		return exitTimedOut
	default:
		fmt.Fprintln(os.Stderr, "processing failed:", note.Message)
		return exitFailed
	}
}
