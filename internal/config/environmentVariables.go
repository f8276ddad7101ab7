package config

import (
	"log/slog"
	"time"
)

const (
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"
	TRACE_HEADER   = "X-Trace-Id"

	//companion service rate limiting
	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//backend api
	DefaultAPIBaseURL        = "http://localhost:8000/api"
	DefaultRequestTimeout    = 30 * time.Second
	DefaultUploadTimeout     = 5 * time.Minute
	DefaultMaxRetries        = 3
	DefaultRetryBaseDelay    = 500 * time.Millisecond
	DefaultRetryMaxDelay     = 8 * time.Second
	DefaultClientRatePerSec  = 10
	DefaultClientBurst       = 20
	DefaultMaxUploadSizeByte = 50 << 20 //50mb

	//polling fallback, 150 attempts at 3s caps the wait at 7.5 minutes
	DefaultPollInterval    = 3 * time.Second
	DefaultPollMaxAttempts = 150

	//progress channel keepalive
	DefaultPingInterval    = 25 * time.Second
	DefaultLivenessTimeout = 60 * time.Second
	DefaultDialTimeout     = 10 * time.Second

	//a job still streaming after this falls back to the capped polling loop
	DefaultMaxStreamDuration = 30 * time.Minute

	//companion server
	ServerListenAddr       = ":3000"
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisDocumentCache = 2
	RedisProgressBoard = 3

	RedisDocumentCacheTTL = 10 * time.Minute
	RedisProgressBoardTTL = 24 * time.Hour
)
