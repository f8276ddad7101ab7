package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/DocWatch/internal/config"
	"github.com/akolanti/DocWatch/internal/job"
	"github.com/akolanti/DocWatch/pkg/logger_i"
)

var (
	handlerInstance *DocumentHandler //private singleton
	once            sync.Once
	logDH           = logger_i.NewLogger("DocumentHandler")
	logRH           = logger_i.NewLogger("RequestHandler")
)

type DocumentHandler struct {
	service       *job.Service
	maxUploadSize int64
	// uploadDeadline replaces the server read and write timeouts on the upload route.
	uploadDeadline time.Duration
}

func InitDocumentHandler(service *job.Service, cfg config.Config) {
	once.Do(func() {
		handlerInstance = &DocumentHandler{
			service:        service,
			maxUploadSize:  cfg.Preflight.MaxUploadSize,
			uploadDeadline: cfg.API.UploadTimeout + cfg.API.RequestTimeout + config.WriteTimeout,
		}
		logDH.Info("Starting document handler")
	})
}

func traceOf(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}
