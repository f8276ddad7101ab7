package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/akolanti/DocWatch/internal/config"
	"github.com/akolanti/DocWatch/internal/data/redisStore"
	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/pkg/logger_i"
)

var logger = logger_i.NewLogger("Store")

type RedisProgressBoard struct {
	redisStore *redisStore.Store
	ttl        time.Duration
}

func NewRedisProgressBoard(s *redisStore.Store) *RedisProgressBoard {
	return &RedisProgressBoard{
		redisStore: s,
		ttl:        config.RedisProgressBoardTTL,
	}
}

func progressKey(documentId string) string {
	return "progress:" + documentId
}

func terminalKey(documentId string) string {
	return "terminal:" + documentId
}

func (r *RedisProgressBoard) SaveUpdate(ctx context.Context, update jobModel.ProgressUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return r.redisStore.Set(ctx, progressKey(update.DocumentId), data, r.ttl)
}

func (r *RedisProgressBoard) SaveTerminal(ctx context.Context, note jobModel.TerminalNotification) error {
	data, err := json.Marshal(note)
	if err != nil {
		return err
	}
	return r.redisStore.Set(ctx, terminalKey(note.DocumentId), data, r.ttl)
}

func (r *RedisProgressBoard) GetProgress(ctx context.Context, documentId string) (jobModel.ProgressUpdate, *jobModel.TerminalNotification, bool) {
	var update jobModel.ProgressUpdate
	val, err := r.redisStore.Get(ctx, progressKey(documentId))
	if err != nil {
		if !r.redisStore.IsNil(err) {
			logger.Error("Error reading progress", "documentId", documentId, "error", err)
		}
		return update, nil, false
	}
	if err = json.Unmarshal([]byte(val), &update); err != nil {
		logger.Error("Error decoding progress", "documentId", documentId, "error", err)
		return update, nil, false
	}

	val, err = r.redisStore.Get(ctx, terminalKey(documentId))
	if err != nil {
		if !r.redisStore.IsNil(err) {
			logger.Error("Error reading terminal notification", "documentId", documentId, "error", err)
		}
		return update, nil, true
	}
	var note jobModel.TerminalNotification
	if err = json.Unmarshal([]byte(val), &note); err != nil {
		logger.Error("Error decoding terminal notification", "documentId", documentId, "error", err)
		return update, nil, true
	}
	return update, &note, true
}

func (r *RedisProgressBoard) DeleteProgress(ctx context.Context, documentId string) {
	if err := r.redisStore.Del(ctx, progressKey(documentId), terminalKey(documentId)); err != nil {
		logger.Error("Error deleting progress", "documentId", documentId, "error", err)
	}
}
