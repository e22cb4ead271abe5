package network

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/hashicorp/go-hclog"
)

const (
	// PACKET_SIZE fits the largest frame a TUN/TAP device delivers (64KiB MTU
	// plus the optional packet information header).
	PACKET_SIZE = 65536 + 4
	QUEUE_SIZE  = 10
)

var (
	ErrNotBound     = errors.New("queue is not bound")
	ErrQueueClosed  = errors.New("incoming queue is closed")
	ErrDeviceClosed = errors.New("device closed")
)

// Packet is one frame as read from or written to the device.
type Packet struct {
	Buf []byte
}

// Queue moves frames between a device and a pair of buffered channels. Bind
// starts exactly one reader and one writer goroutine, which is the access
// pattern a TUN/TAP descriptor supports without extra locking.
type Queue struct {
	dev           io.ReadWriter
	incomingQueue chan Packet
	outgoingQueue chan Packet
	ctx           context.Context
	cancel        context.CancelFunc
	logger        hclog.Logger

	mu  sync.Mutex
	err error
}

func NewQueue(dev io.ReadWriter, parentLogger hclog.Logger) *Queue {
	logger := hclog.Default().Named("Queue")
	if parentLogger != nil {
		logger = parentLogger.Named("Queue")
	}
	return &Queue{
		dev:           dev,
		incomingQueue: make(chan Packet, QUEUE_SIZE),
		outgoingQueue: make(chan Packet, QUEUE_SIZE),
		logger:        logger,
	}
}

// Bind starts pumping frames. The reader stops at the first read error,
// which Err then reports; closing the device is the way to unblock it.
func (q *Queue) Bind(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)

	go func() {
		defer close(q.incomingQueue)
		for {
			buf := make([]byte, PACKET_SIZE)
			n, err := q.dev.Read(buf)
			if err != nil {
				if q.ctx.Err() == nil {
					q.logger.Error("read error", "Error", err.Error())
				}
				q.setErr(err)
				return
			}
			q.logger.Trace("read", "len", n)
			select {
			case <-q.ctx.Done():
				return
			case q.incomingQueue <- Packet{Buf: buf[:n]}:
			}
		}
	}()

	go func() {
		for {
			select {
			case <-q.ctx.Done():
				return
			case pkt := <-q.outgoingQueue:
				if _, err := q.dev.Write(pkt.Buf); err != nil {
					q.logger.Error("write error", "Error", err.Error())
				}
			}
		}
	}()
}

// Read returns the next frame read from the device.
func (q *Queue) Read() (Packet, error) {
	if q.ctx == nil {
		return Packet{}, ErrNotBound
	}
	if q.ctx.Err() != nil {
		return Packet{}, ErrDeviceClosed
	}
	select {
	case pkt, ok := <-q.incomingQueue:
		if !ok {
			if err := q.Err(); err != nil {
				return Packet{}, err
			}
			return Packet{}, ErrQueueClosed
		}
		return pkt, nil
	case <-q.ctx.Done():
		return Packet{}, ErrDeviceClosed
	}
}

// Write queues pkt for the writer goroutine.
func (q *Queue) Write(pkt Packet) error {
	if q.ctx == nil {
		return ErrNotBound
	}
	if q.ctx.Err() != nil {
		return ErrDeviceClosed
	}
	select {
	case q.outgoingQueue <- pkt:
		return nil
	case <-q.ctx.Done():
		return ErrDeviceClosed
	}
}

// Close stops both goroutines. It does not close the device.
func (q *Queue) Close() {
	if q.cancel != nil {
		q.cancel()
	}
}

// Err returns the error that stopped the reader, if any.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

func (q *Queue) setErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}
