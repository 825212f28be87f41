package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	defaultForwardBuffer = 1024
	forwardWriteTimeout  = 10 * time.Second
)

// ErrForwardQueueFull is returned when the forwarder cannot accept another event.
var ErrForwardQueueFull = errors.New("kafka forward queue full")

// ErrForwarderClosed is returned by Forward after Close.
var ErrForwarderClosed = errors.New("kafka forwarder closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaForwarder copies lifecycle events onto a Kafka topic keyed by ticket id,
// so all events of one ticket land on the same partition in order. Forward only
// enqueues; a single background loop performs the writes.
type KafkaForwarder struct {
	writer messageWriter
	topic  string
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

// NewKafkaForwarder builds a forwarder writing to topic on brokers.
func NewKafkaForwarder(brokers []string, topic string, logger *zap.Logger) (*KafkaForwarder, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka forwarder requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka forwarder requires a topic")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return newKafkaForwarder(writer, topic, logger, defaultForwardBuffer), nil
}

func newKafkaForwarder(writer messageWriter, topic string, logger *zap.Logger, buffer int) *KafkaForwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = defaultForwardBuffer
	}
	f := &KafkaForwarder{
		writer: writer,
		topic:  topic,
		logger: logger,
		queue:  make(chan kafka.Message, buffer),
		done:   make(chan struct{}),
	}
	go f.run()
	return f
}

// Register subscribes the forwarder to every lifecycle event.
func (f *KafkaForwarder) Register(d Dispatcher) {
	SubscribeAll(d, f.Forward)
}

// Forward encodes the event and queues it for the writer loop. It never waits on the broker.
func (f *KafkaForwarder) Forward(_ context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.Type, err)
	}
	msg := kafka.Message{
		Topic: f.topic,
		Key:   []byte(event.TicketID),
		Value: value,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrForwarderClosed
	}
	select {
	case f.queue <- msg:
		return nil
	default:
		f.logger.Warn("kafka forward queue full; dropping event",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)))
		return ErrForwardQueueFull
	}
}

func (f *KafkaForwarder) run() {
	defer close(f.done)
	for msg := range f.queue {
		ctx, cancel := context.WithTimeout(context.Background(), forwardWriteTimeout)
		err := f.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			f.logger.Warn("forward event to kafka failed",
				zap.String("ticket_id", string(msg.Key)),
				zap.Error(err))
		}
	}
}

// Close drains queued events, then closes the writer.
func (f *KafkaForwarder) Close() error {
	if f == nil || f.writer == nil {
		return nil
	}
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()
	<-f.done
	return f.writer.Close()
}
