package channel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/DocWatch/internal/config"
	"github.com/akolanti/DocWatch/internal/domain/jobModel"
	"github.com/akolanti/DocWatch/internal/metrics"
	"github.com/akolanti/DocWatch/pkg/logger_i"
	"github.com/gorilla/websocket"
)

// Handlers receive the events of one channel. OnError fires at most once.
type Handlers struct {
	OnProgress     func(snapshot jobModel.ProgressSnapshot)
	OnStatusChange func(status string, errorMessage string)
	OnError        func(err error)
}

// Channel is a push connection for a single job.
type Channel interface {
	Close()
}

type Options struct {
	PingInterval    time.Duration
	LivenessTimeout time.Duration
	DialTimeout     time.Duration
	Header          http.Header
}

func OptionsFromConfig(cfg config.Config) Options {
	header := http.Header{}
	if cfg.API.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.API.Token)
	}
	return Options{
		PingInterval:    cfg.Channel.PingInterval,
		LivenessTimeout: cfg.Channel.LivenessTimeout,
		DialTimeout:     cfg.Channel.DialTimeout,
		Header:          header,
	}
}

type Dialer struct {
	opts   Options
	dialer *websocket.Dialer
	logger *logger_i.Logger
}

func NewDialer(opts Options) *Dialer {
	if opts.PingInterval <= 0 {
		opts.PingInterval = config.DefaultPingInterval
	}
	if opts.LivenessTimeout <= opts.PingInterval {
		opts.LivenessTimeout = 2 * opts.PingInterval
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = config.DefaultDialTimeout
	}
	return &Dialer{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.DialTimeout,
		},
		logger: logger_i.NewLogger("ProgressChannel"),
	}
}

// Open starts connecting in the background and returns immediately.
// Connection failures are reported through h.OnError.
func (d *Dialer) Open(ctx context.Context, handle jobModel.JobHandle, h Handlers) Channel {
	chCtx, cancel := context.WithCancel(ctx)
	c := &progressChannel{
		jobId:    handle.JobId,
		url:      handle.ChannelURL,
		handlers: h,
		opts:     d.opts,
		dialer:   d.dialer,
		ctx:      chCtx,
		cancel:   cancel,
		logger:   d.logger.WithTrace(ctx).With("jobId", handle.JobId),
	}
	go c.run()
	return c
}

type progressChannel struct {
	jobId    string
	url      string
	handlers Handlers
	opts     Options
	dialer   *websocket.Dialer
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *logger_i.Logger

	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	closed    atomic.Bool
	errOnce   sync.Once
	closeOnce sync.Once
}

func (c *progressChannel) run() {
	if c.url == "" {
		c.fail(fmt.Errorf("%w: no channel url for job %s", jobModel.ErrTransport, c.jobId))
		return
	}

	dialCtx, cancel := context.WithTimeout(c.ctx, c.opts.DialTimeout)
	conn, resp, err := c.dialer.DialContext(dialCtx, c.url, c.opts.Header)
	cancel()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.fail(fmt.Errorf("%w: dial: %v", jobModel.ErrTransport, err))
		return
	}

	c.connMu.Lock()
	if c.closed.Load() {
		c.connMu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.connMu.Unlock()
	c.logger.Debug("progress channel connected", "url", c.url)

	go func() {
		<-c.ctx.Done()
		c.Close()
	}()
	go c.keepAlive(conn)
	c.readLoop(conn)
}

func (c *progressChannel) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.LivenessTimeout))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				c.fail(fmt.Errorf("%w: nothing received for %s", jobModel.ErrLivenessTimeout, c.opts.LivenessTimeout))
				return
			}
			c.fail(fmt.Errorf("%w: read: %v", jobModel.ErrTransport, err))
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.opts.LivenessTimeout))

		msg, err := decodeMessage(data)
		if err != nil {
			c.fail(err)
			return
		}
		if c.closed.Load() {
			return
		}
		metrics.CaptureChannelMessage(msg.Type)

		switch msg.Type {
		case typeProgressUpdate:
			if c.handlers.OnProgress != nil {
				c.handlers.OnProgress(*msg.Progress)
			}
		case typeJobStatus:
			if c.handlers.OnStatusChange != nil {
				c.handlers.OnStatusChange(msg.Status, msg.ErrorMessage)
			}
		case typePing:
			if err := c.write(conn, outboundMessage{Type: typePong}); err != nil && !c.closed.Load() {
				c.fail(fmt.Errorf("%w: pong: %v", jobModel.ErrTransport, err))
				return
			}
		case typePong:
		default:
			c.logger.Debug("ignoring channel message", "type", msg.Type)
		}
	}
}

func (c *progressChannel) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.write(conn, outboundMessage{Type: typePing}); err != nil {
				if !c.closed.Load() {
					c.fail(fmt.Errorf("%w: ping: %v", jobModel.ErrTransport, err))
				}
				return
			}
		}
	}
}

func (c *progressChannel) write(conn *websocket.Conn, msg outboundMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.LivenessTimeout))
	return conn.WriteJSON(msg)
}

// fail reports err once unless the channel was closed by its owner, then releases the transport.
func (c *progressChannel) fail(err error) {
	c.errOnce.Do(func() {
		if c.closed.Load() {
			return
		}
		c.logger.Warn("progress channel failed", "error", err)
		if c.handlers.OnError != nil {
			c.handlers.OnError(err)
		}
	})
	c.Close()
}

func (c *progressChannel) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		if err := conn.Close(); err != nil {
			c.logger.Debug("closing progress channel", "error", err)
		}
	})
}
