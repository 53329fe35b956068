package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kayz/dogcmd/internal/logger"
)

const (
	writeTimeout      = 10 * time.Second
	handshakeTimeout  = 10 * time.Second
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 60 * time.Second
)

// ErrBackoff is returned while the publisher waits before redialing.
var ErrBackoff = errors.New("websocket publisher backing off")

// WebSocket sends envelopes as JSON text frames. It dials lazily, drops the
// connection on a failed write and redials with exponential backoff.
type WebSocket struct {
	url   string
	token string

	conn       *websocket.Conn
	retryDelay time.Duration
	nextDial   time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewWebSocket creates a publisher for url. A non-empty token is sent as a
// bearer Authorization header during the handshake.
func NewWebSocket(url, token string) *WebSocket {
	return &WebSocket{
		url:        url,
		token:      token,
		retryDelay: initialRetryDelay,
		now:        time.Now,
	}
}

func (p *WebSocket) Publish(ctx context.Context, env Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if p.conn == nil {
			if err := p.connect(ctx); err != nil {
				return err
			}
		}
		deadline := time.Now().Add(writeTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		p.conn.SetWriteDeadline(deadline)
		err := p.conn.WriteJSON(env)
		if err == nil {
			return nil
		}
		logger.Warn("[Publish] Write to %s failed: %v", p.url, err)
		p.conn.Close()
		p.conn = nil
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("failed to publish %s to %s", env.ID, p.url)
}

// connect dials unless still inside the backoff window. Caller holds mu.
func (p *WebSocket) connect(ctx context.Context) error {
	if now := p.now(); now.Before(p.nextDial) {
		return fmt.Errorf("%w: retry in %v", ErrBackoff, p.nextDial.Sub(now).Round(time.Millisecond))
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	header := http.Header{}
	if p.token != "" {
		header.Set("Authorization", "Bearer "+p.token)
	}

	conn, _, err := dialer.DialContext(ctx, p.url, header)
	if err != nil {
		p.nextDial = p.now().Add(p.retryDelay)
		logger.Warn("[Publish] Connect to %s failed, next attempt in %v: %v", p.url, p.retryDelay, err)
		p.retryDelay *= 2
		if p.retryDelay > maxRetryDelay {
			p.retryDelay = maxRetryDelay
		}
		return fmt.Errorf("failed to connect: %w", err)
	}

	p.conn = conn
	p.retryDelay = initialRetryDelay
	p.nextDial = time.Time{}
	logger.Info("[Publish] Connected to %s", p.url)
	return nil
}

func (p *WebSocket) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := p.conn.Close()
	p.conn = nil
	return err
}
