package ledger

import (
	"context"
	"encoding/json"
	"time"
)

type EventType string

const (
	EventDeposited EventType = "Deposited"
	EventWithdrawn EventType = "Withdrawn"
	EventRenamed   EventType = "Renamed"
)

// Event is one append-only audit record. ID, Seq and CreatedAt are assigned
// by the log; the remaining fields are set by the operation that emitted it.
type Event struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	CreatedAt time.Time `json:"created_at"`

	Account           Address `json:"account,omitempty"`
	To                Address `json:"to,omitempty"`
	Amount            Amount  `json:"amount,omitempty"`
	NewAccountBalance Amount  `json:"new_account_balance,omitempty"`
	NewCustodialTotal Amount  `json:"new_custodial_total,omitempty"`
	NewName           string  `json:"new_name,omitempty"`
}

type eventHeader struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalJSON writes exactly the fields of the event's type. Zero amounts and
// balances are kept.
func (e Event) MarshalJSON() ([]byte, error) {
	header := eventHeader{ID: e.ID, Seq: e.Seq, Type: e.Type, CreatedAt: e.CreatedAt}
	switch e.Type {
	case EventDeposited:
		return json.Marshal(struct {
			eventHeader
			Account           Address `json:"account"`
			Amount            Amount  `json:"amount"`
			NewAccountBalance Amount  `json:"new_account_balance"`
			NewCustodialTotal Amount  `json:"new_custodial_total"`
		}{header, e.Account, e.Amount, e.NewAccountBalance, e.NewCustodialTotal})
	case EventWithdrawn:
		return json.Marshal(struct {
			eventHeader
			Account           Address `json:"account"`
			To                Address `json:"to"`
			Amount            Amount  `json:"amount"`
			NewAccountBalance Amount  `json:"new_account_balance"`
			NewCustodialTotal Amount  `json:"new_custodial_total"`
		}{header, e.Account, e.To, e.Amount, e.NewAccountBalance, e.NewCustodialTotal})
	case EventRenamed:
		return json.Marshal(struct {
			eventHeader
			NewName string `json:"new_name"`
		}{header, e.NewName})
	default:
		type plain Event
		return json.Marshal(plain(e))
	}
}

func Deposited(account Address, amount, newAccountBalance, newCustodialTotal Amount) Event {
	return Event{
		Type:              EventDeposited,
		Account:           account,
		Amount:            amount,
		NewAccountBalance: newAccountBalance,
		NewCustodialTotal: newCustodialTotal,
	}
}

func Withdrawn(account, to Address, amount, newAccountBalance, newCustodialTotal Amount) Event {
	return Event{
		Type:              EventWithdrawn,
		Account:           account,
		To:                to,
		Amount:            amount,
		NewAccountBalance: newAccountBalance,
		NewCustodialTotal: newCustodialTotal,
	}
}

func Renamed(newName string) Event {
	return Event{Type: EventRenamed, NewName: newName}
}

// EventPublisher receives committed events, in log order, after the
// transaction that produced them has committed.
type EventPublisher interface {
	Publish(ctx context.Context, events []Event) error
}

// Publishers fans committed events out to several publishers. Every publisher
// is called; the first error is returned.
type Publishers []EventPublisher

func (p Publishers) Publish(ctx context.Context, events []Event) error {
	var first error
	for _, pub := range p {
		if pub == nil {
			continue
		}
		if err := pub.Publish(ctx, events); err != nil && first == nil {
			first = err
		}
	}
	return first
}
