// Package event carries refresh requests between components that must
// not import each other. A publisher asks every interested party to
// re-read contract state; subscribers filter by contract address.
package event

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// RefreshRequest asks subscribers to re-read the state of one contract.
type RefreshRequest struct {
	ContractAddress common.Address
	CorrelationID   string
	RequestedAt     time.Time
}

// NewRefreshRequest builds a request for the given contract. The
// correlation id ties the request back to its cause, normally the
// transaction hash of a confirmed purchase; publishers without one get
// a generated id so the request is still traceable in logs.
func NewRefreshRequest(addr common.Address, correlationID string) RefreshRequest {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return RefreshRequest{
		ContractAddress: addr,
		CorrelationID:   correlationID,
		RequestedAt:     time.Now(),
	}
}

type subscriber struct {
	addr    common.Address
	all     bool
	handler func(RefreshRequest)
}

// Bus is an in-process publish/subscribe channel for refresh requests.
// Publish never blocks the caller; each delivery runs on its own
// goroutine, so no ordering holds between deliveries, even to the same
// subscriber.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers a handler for requests targeting addr. The
// returned cancel removes the registration; it is safe to call more
// than once.
func (b *Bus) Subscribe(addr common.Address, handler func(RefreshRequest)) (cancel func()) {
	return b.add(&subscriber{addr: addr, handler: handler})
}

// SubscribeAll registers a handler for every request regardless of the
// target contract.
func (b *Bus) SubscribeAll(handler func(RefreshRequest)) (cancel func()) {
	return b.add(&subscriber{all: true, handler: handler})
}

func (b *Bus) add(sub *subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
		})
	}
}

// Publish delivers the request to every matching subscriber without
// blocking the caller. A request for a contract with no subscribers is
// dropped.
func (b *Bus) Publish(req RefreshRequest) {
	b.mu.Lock()
	matched := make([]func(RefreshRequest), 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.all || sub.addr == req.ContractAddress {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.Unlock()

	for _, handler := range matched {
		go handler(req)
	}
}
