// Package tickets hands finalized and cancelled orders to the ticket
// renderer (kitchen and receipt printers) over AMQP.
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	EventFinalized = "order.finalized"
	EventEdited    = "order.edited"
	EventCompleted = "order.completed"
	EventCancelled = "order.cancelled"
)

// Line is one printed line. Components are already flattened.
type Line struct {
	Name       string          `json:"name"`
	Quantity   int32           `json:"quantity"`
	Total      decimal.Decimal `json:"total"`
	Components []string        `json:"components,omitempty"`
}

type Ticket struct {
	Event         string           `json:"event"`
	OrderID       uuid.UUID        `json:"order_id"`
	OrderNumber   int32            `json:"order_number"`
	CustomerName  string           `json:"customer_name"`
	PaymentMethod string           `json:"payment_method"`
	Status        string           `json:"status"`
	Total         decimal.Decimal  `json:"total"`
	PaidAmount    *decimal.Decimal `json:"paid_amount,omitempty"`
	ChangeGiven   *decimal.Decimal `json:"change_given,omitempty"`
	Lines         []Line           `json:"lines"`
	Reason        string           `json:"reason,omitempty"`
	At            time.Time        `json:"at"`
}

// Publisher delivers tickets. Publishing happens after the order commit, so
// a failure is logged by callers and never undoes the order.
type Publisher interface {
	Publish(ctx context.Context, t Ticket) error
}

// Nop discards tickets. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Ticket) error { return nil }

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes each ticket to a topic exchange with the event
// name as routing key.
type AMQPPublisher struct {
	exchange string
	open     func() (Channel, error)
	closer   func() error
	logger   *zap.Logger

	mu       sync.Mutex
	declared bool
}

// Dial connects to the broker at url.
func Dial(url, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	open := func() (Channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
	return NewAMQPPublisher(exchange, open, conn.Close, logger), nil
}

// NewAMQPPublisher builds a publisher over an arbitrary channel source.
func NewAMQPPublisher(exchange string, open func() (Channel, error), closer func() error, logger *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{exchange: exchange, open: open, closer: closer, logger: logger}
}

func (p *AMQPPublisher) Publish(ctx context.Context, t Ticket) error {
	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := p.declare(ch); err != nil {
		return err
	}

	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}

	err = ch.PublishWithContext(ctx, p.exchange, t.Event, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    fmt.Sprintf("%s-%s-%d", t.OrderID, t.Event, t.At.UnixNano()),
		Timestamp:    t.At,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish ticket: %w", err)
	}
	p.logger.Debug("ticket published",
		zap.String("event", t.Event),
		zap.Int32("order_number", t.OrderNumber))
	return nil
}

func (p *AMQPPublisher) declare(ch Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declared {
		return nil
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.declared = true
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
