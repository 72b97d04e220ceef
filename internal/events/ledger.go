package events

import (
	"context"
	"time"

	"github.com/gsmwallet/server/internal/model"
)

// DefaultLedgerExchange receives ledger.<kind>.recorded messages.
const DefaultLedgerExchange = "ledger.events"

// EntryRecorded is the payload published once a ledger entry is confirmed.
type EntryRecorded struct {
	Entry       model.LedgerEntry `json:"entry"`
	PublishedAt time.Time         `json:"publishedAt"`
}

// LedgerEvents publishes ledger entry notifications.
type LedgerEvents struct {
	publisher Publisher
	exchange  string
}

// NewLedgerEvents binds a publisher to an exchange.
func NewLedgerEvents(publisher Publisher, exchange string) *LedgerEvents {
	if exchange == "" {
		exchange = DefaultLedgerExchange
	}
	return &LedgerEvents{publisher: publisher, exchange: exchange}
}

// RoutingKey returns the routing key for entries of kind.
func RoutingKey(kind model.TransactionKind) string {
	return "ledger." + string(kind) + ".recorded"
}

// EntryRecorded publishes e.
func (l *LedgerEvents) EntryRecorded(ctx context.Context, e model.LedgerEntry) error {
	return l.publisher.Publish(ctx, l.exchange, RoutingKey(e.Kind), EntryRecorded{Entry: e, PublishedAt: time.Now().UTC()})
}
