package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nerrad567/mixroute-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mixroute-core/internal/routing"
	"github.com/nerrad567/mixroute-core/internal/sidechain"
	"github.com/nerrad567/mixroute-core/internal/vca"
)

// Event sources.
const (
	SourceRouting   = "routing"
	SourceVCA       = "vca"
	SourceSidechain = "sidechain"
)

const defaultBufferSize = 256

var (
	relayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mixroute",
		Subsystem: "relay",
		Name:      "events_relayed_total",
		Help:      "Events delivered to external subscribers, by source",
	}, []string{"source"})

	dropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mixroute",
		Subsystem: "relay",
		Name:      "events_dropped_total",
		Help:      "Events dropped because the relay queue was full",
	})
)

// Logger is the logging interface used by the relay.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Publisher sends a JSON payload to a topic. *mqtt.Client implements it.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Broadcaster fans a payload out to WebSocket subscribers of channel.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Message is an event as seen by external subscribers.
type Message struct {
	Source    string    `json:"source"`
	Type      string    `json:"type"`
	Event     any       `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// Channel returns the WebSocket channel name, "{source}.{type}".
func (m Message) Channel() string {
	return m.Source + "." + m.Type
}

// Deps holds the relay's collaborators. Publisher and Broadcaster are
// optional; leave them nil to disable that output.
type Deps struct {
	BufferSize  int
	Publisher   Publisher
	Broadcaster Broadcaster
	Logger      Logger
}

// Stats reports relay throughput.
type Stats struct {
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Pending   int    `json:"pending"`
}

// Relay queues domain events and delivers them from a single goroutine.
type Relay struct {
	queue       chan Message
	publisher   Publisher
	broadcaster Broadcaster
	logger      Logger

	mu     sync.Mutex
	unsubs []func()

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a relay. Nothing is delivered until Run is called.
func New(deps Deps) *Relay {
	size := deps.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Relay{
		queue:       make(chan Message, size),
		publisher:   deps.Publisher,
		broadcaster: deps.Broadcaster,
		logger:      logger,
	}
}

// AttachRouting subscribes to routing matrix events.
func (r *Relay) AttachRouting(m *routing.Matrix) {
	r.track(m.OnEvent(func(ev routing.Event) {
		r.enqueue(Message{Source: SourceRouting, Type: string(ev.Type), Event: ev, Timestamp: ev.Timestamp})
	}))
}

// AttachVCA subscribes to VCA manager events.
func (r *Relay) AttachVCA(m *vca.Manager) {
	r.track(m.OnEvent(func(ev vca.Event) {
		r.enqueue(Message{Source: SourceVCA, Type: string(ev.Type), Event: ev, Timestamp: ev.Timestamp})
	}))
}

// AttachSidechain subscribes to sidechain matrix events.
func (r *Relay) AttachSidechain(m *sidechain.Matrix) {
	r.track(m.OnEvent(func(ev sidechain.Event) {
		r.enqueue(Message{Source: SourceSidechain, Type: string(ev.Type), Event: ev, Timestamp: ev.Timestamp})
	}))
}

func (r *Relay) track(unsub func()) {
	r.mu.Lock()
	r.unsubs = append(r.unsubs, unsub)
	r.mu.Unlock()
}

// Detach removes every handler registered by Attach*.
func (r *Relay) Detach() {
	r.mu.Lock()
	unsubs := r.unsubs
	r.unsubs = nil
	r.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}

// enqueue never blocks: a full queue drops the message.
func (r *Relay) enqueue(msg Message) {
	select {
	case r.queue <- msg:
	default:
		r.dropped.Add(1)
		dropped.Inc()
		r.logger.Warn("relay queue full, event dropped", "source", msg.Source, "type", msg.Type)
	}
}

// Run delivers queued messages until ctx is cancelled. On cancellation it
// detaches from every source and delivers what is still queued.
func (r *Relay) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.Detach()
			r.drain()
			return
		case msg := <-r.queue:
			r.deliver(msg)
		}
	}
}

func (r *Relay) drain() {
	for {
		select {
		case msg := <-r.queue:
			r.deliver(msg)
		default:
			return
		}
	}
}

func (r *Relay) deliver(msg Message) {
	if r.publisher != nil {
		if err := r.publisher.PublishJSON(mqtt.Topics{}.CoreEvent(msg.Type), msg); err != nil {
			r.logger.Warn("relay publish failed", "type", msg.Type, "error", err)
		}
	}
	if r.broadcaster != nil {
		r.broadcaster.Broadcast(msg.Channel(), msg)
	}
	r.delivered.Add(1)
	relayed.WithLabelValues(msg.Source).Inc()
	r.logger.Debug("event relayed", "source", msg.Source, "type", msg.Type)
}

// Stats returns delivery counters.
func (r *Relay) Stats() Stats {
	return Stats{
		Delivered: r.delivered.Load(),
		Dropped:   r.dropped.Load(),
		Pending:   len(r.queue),
	}
}
