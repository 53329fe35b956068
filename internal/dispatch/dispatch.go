package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/kayz/dogcmd/internal/intent"
	"github.com/kayz/dogcmd/internal/logger"
	"github.com/kayz/dogcmd/internal/publish"
)

// ErrEmptyInput is returned for blank utterances.
var ErrEmptyInput = errors.New("empty input")

// Router is the part of *intent.Engine the serving surfaces use.
type Router interface {
	Route(ctx context.Context, raw string) (*intent.Result, error)
	Stats() intent.Stats
}

// Dispatcher routes an utterance and publishes the filled actions.
type Dispatcher struct {
	router    Router
	publisher publish.Publisher
	topics    publish.Topics
}

// New creates a dispatcher. A nil publisher discards results.
func New(router Router, publisher publish.Publisher, topics publish.Topics) *Dispatcher {
	if publisher == nil {
		publisher = publish.Nop{}
	}
	return &Dispatcher{router: router, publisher: publisher, topics: topics}
}

// Dispatch routes text. Sequences with no actions are not published. A
// publish failure is logged and reported as a warning; the routed result is
// still returned.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) (*intent.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	res, err := d.router.Route(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(res.Actions) == 0 {
		return res, nil
	}

	env := publish.NewEnvelope(d.topics, text, res.Actions)
	env.ID = res.RequestID
	if err := d.publisher.Publish(ctx, env); err != nil {
		logger.Error("[Dispatch] Publish %s failed: %v", env.ID, err)
		res.Warnings = append(res.Warnings, "publish failed: "+err.Error())
	}
	return res, nil
}

// Stats forwards the router counters.
func (d *Dispatcher) Stats() intent.Stats {
	return d.router.Stats()
}

// Close closes the publisher.
func (d *Dispatcher) Close() error {
	return d.publisher.Close()
}
