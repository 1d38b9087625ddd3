package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
	closed    int
	failPub   error
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.failPub != nil {
		return f.failPub
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed++
	return nil
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := NewAMQPPublisher("tickets", func() (Channel, error) { return ch, nil }, nil, zap.NewNop())

	ticket := Ticket{
		Event:       EventFinalized,
		OrderID:     uuid.New(),
		OrderNumber: 7,
		Total:       decimal.NewFromInt(125),
		Lines:       []Line{{Name: "Wings 6", Quantity: 1, Total: decimal.NewFromInt(125)}},
		At:          time.Now(),
	}
	require.NoError(t, p.Publish(context.Background(), ticket))
	require.NoError(t, p.Publish(context.Background(), ticket))

	assert.Equal(t, []string{"tickets:topic"}, ch.declared, "exchange declared once")
	assert.Equal(t, []string{EventFinalized, EventFinalized}, ch.keys)
	assert.Equal(t, 2, ch.closed)

	var got Ticket
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &got))
	assert.Equal(t, int32(7), got.OrderNumber)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(125)))
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
}

func TestAMQPPublisher_Errors(t *testing.T) {
	openErr := errors.New("no channel")
	p := NewAMQPPublisher("tickets", func() (Channel, error) { return nil, openErr }, nil, zap.NewNop())
	err := p.Publish(context.Background(), Ticket{Event: EventCancelled})
	assert.ErrorIs(t, err, openErr)

	ch := &fakeChannel{failPub: errors.New("broker gone")}
	p = NewAMQPPublisher("tickets", func() (Channel, error) { return ch, nil }, nil, zap.NewNop())
	err = p.Publish(context.Background(), Ticket{Event: EventCancelled})
	assert.ErrorContains(t, err, "broker gone")
	assert.Equal(t, 1, ch.closed)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Ticket{}))
}
