package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

// Subjects used on the wire. Inbound chat arrives on
// buddy.chat.<sessionID>; responses go out on buddy.response.<sessionID>;
// system events (lifecycle, degradation) on buddy.system.>.
const (
	chatStream      = "CHAT_MESSAGES"
	chatSubjects    = "buddy.chat.>"
	ResponseSubject = "buddy.response"
	SystemSubject   = "buddy.system"
)

// NATSListener consumes chat messages from a durable JetStream consumer and
// fans them out to registered handlers.
type NATSListener struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	subs     []jetstream.ConsumeContext
	handlers []Handler
	ctx      context.Context
	cancel   context.CancelFunc
}

func ConnectNATS(natsURL string) (*NATSListener, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &NATSListener{nc: nc, js: js, ctx: ctx, cancel: cancel}, nil
}

// OnMessage registers a delivery callback. Register before Start.
func (l *NATSListener) OnMessage(h Handler) {
	l.handlers = append(l.handlers, h)
}

// Start binds a durable consumer on the chat stream and begins consuming.
func (l *NATSListener) Start() error {
	ctx := context.Background()

	if err := l.ensureStream(ctx); err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}

	consumerName := "buddy-" + chatStream
	consumer, err := l.js.CreateOrUpdateConsumer(ctx, chatStream, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    3,
		AckWait:       30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		l.handleMessage(msg)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", consumerName, err)
	}

	l.subs = append(l.subs, cc)
	slog.Info("subscribed to chat stream", "stream", chatStream, "consumer", consumerName)
	return nil
}

func (l *NATSListener) ensureStream(ctx context.Context) error {
	_, err := l.js.Stream(ctx, chatStream)
	if err == nil {
		return nil
	}

	_, err = l.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:      chatStream,
		Subjects:  []string{chatSubjects},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", chatStream, err)
	}

	slog.Info("created stream", "name", chatStream, "subjects", chatSubjects)
	return nil
}

func (l *NATSListener) handleMessage(msg jetstream.Msg) {
	m, err := chat.Normalize(msg.Data())
	if err != nil {
		slog.Warn("malformed chat message, skipping",
			"subject", msg.Subject(),
			"error", err,
		)
		// Ack to avoid redelivery of permanently broken messages.
		_ = msg.Ack()
		return
	}

	// Infer the session from the subject when the payload doesn't carry one.
	if m.SessionID == "default" {
		if id := sessionFromSubject(msg.Subject()); id != "" {
			m.SessionID = id
		}
	}

	for _, h := range l.handlers {
		h(l.ctx, m)
	}

	// Ack after dispatch. The durable consumer redelivers on crash before
	// processing completes; duplicate processing of a chat message is
	// harmless since message ids are stable.
	if err := msg.Ack(); err != nil {
		slog.Warn("failed to ack message", "subject", msg.Subject(), "error", err)
	}
}

func sessionFromSubject(subject string) string {
	parts := strings.Split(subject, ".")
	if len(parts) >= 3 && parts[0] == "buddy" && parts[1] == "chat" {
		return strings.Join(parts[2:], ".")
	}
	return ""
}

// Publish sends a payload to NATS (responses, lifecycle, system events).
func (l *NATSListener) Publish(subject string, data []byte) error {
	return l.nc.Publish(subject, data)
}

// IsConnected reports connection state.
func (l *NATSListener) IsConnected() bool {
	return l.nc != nil && l.nc.IsConnected()
}

// Stop drains subscriptions and closes the connection.
func (l *NATSListener) Stop() {
	l.cancel()
	for _, cc := range l.subs {
		cc.Stop()
	}
	l.nc.Drain()
}
