package reconciler

import (
	"context"
	"encoding/json"

	"github.com/akolanti/DocWatch/internal/domain/commonModels"
	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/pkg/logger_i"
)

// Reconciler refreshes the document views once a job is terminal.
// It only writes to the cache, it never reads it.
type Reconciler struct {
	cache  commonModels.DocumentCache
	source commonModels.DocumentSource
	logger *logger_i.Logger
}

func New(cache commonModels.DocumentCache, source commonModels.DocumentSource) *Reconciler {
	return &Reconciler{
		cache:  cache,
		source: source,
		logger: logger_i.NewLogger("CacheReconciler"),
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, documentId string, kind jobModel.TerminalKind) {
	log := r.logger.WithTrace(ctx).With("documentId", documentId, "kind", kind)

	for _, key := range []string{commonModels.DocumentListKey, commonModels.DocumentKey(documentId)} {
		if err := r.cache.Invalidate(ctx, key); err != nil {
			log.Error("cache invalidation failed", "key", key, "error", err)
		}
	}
	if kind != jobModel.TerminalCompleted || r.source == nil {
		return
	}

	doc, err := r.source.GetDocument(ctx, documentId)
	if err != nil {
		log.Error("refetching document failed", "error", err)
	} else {
		r.store(ctx, log, commonModels.DocumentKey(documentId), doc)
	}

	docs, err := r.source.ListDocuments(ctx)
	if err != nil {
		log.Error("refetching document list failed", "error", err)
		return
	}
	r.store(ctx, log, commonModels.DocumentListKey, docs)
	log.Debug("document views refreshed", "documents", len(docs))
}

func (r *Reconciler) store(ctx context.Context, log *logger_i.Logger, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Error("encoding cache value failed", "key", key, "error", err)
		return
	}
	if err := r.cache.SetValue(ctx, key, data); err != nil {
		log.Error("cache write failed", "key", key, "error", err)
	}
}
