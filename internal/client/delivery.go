package client

import (
	"context"
	"sync"
)

// Delivery is the outcome of one chat send. It settles exactly once.
type Delivery struct {
	done     chan struct{}
	once     sync.Once
	err      error
	remoteID string
}

// NewDelivery returns an unsettled delivery and the func that settles it.
// Calls after the first are ignored.
func NewDelivery() (*Delivery, func(remoteID string, err error)) {
	d := &Delivery{done: make(chan struct{})}
	return d, d.settle
}

func (d *Delivery) settle(remoteID string, err error) {
	d.once.Do(func() {
		d.remoteID = remoteID
		d.err = err
		close(d.done)
	})
}

func (d *Delivery) Done() <-chan struct{} { return d.done }

// Err is nil while pending and after a successful delivery.
func (d *Delivery) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}

// RemoteID is the server-assigned message id, empty until delivered.
func (d *Delivery) RemoteID() string {
	select {
	case <-d.done:
		return d.remoteID
	default:
		return ""
	}
}

// Wait blocks until the delivery settles or ctx ends. A ctx error does not
// settle the delivery.
func (d *Delivery) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
