package mq

import (
	"context"
	"fmt"
	"sync"
)

type topicQueue struct {
	ch     chan []byte
	closed bool
}

type InMemoryMQ struct {
	maxSize   int
	mu        sync.RWMutex
	topics    map[string]*topicQueue
	closeCh   chan struct{}
	closeOnce sync.Once
}

func NewInMemoryMQ(maxSize int) (*InMemoryMQ, error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("invalid queue size %d", maxSize)
	}

	return &InMemoryMQ{
		maxSize: maxSize,
		topics:  make(map[string]*topicQueue),
		closeCh: make(chan struct{}),
	}, nil
}

func (q *InMemoryMQ) topic(name string) *topicQueue {
	q.mu.RLock()
	t, ok := q.topics[name]
	q.mu.RUnlock()
	if ok {
		return t
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok = q.topics[name]; !ok {
		t = &topicQueue{ch: make(chan []byte, q.maxSize)}
		q.topics[name] = t
	}
	return t
}

func (q *InMemoryMQ) Publish(ctx context.Context, topic string, message []byte) error {
	select {
	case <-q.closeCh:
		return ErrQueueClosed
	default:
	}

	t := q.topic(topic)

	// the read lock keeps CloseTopic from closing the channel mid-send
	q.mu.RLock()
	defer q.mu.RUnlock()
	if t.closed {
		return ErrTopicClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case t.ch <- message:
		return nil
	default:
		return ErrQueueFull
	}
}

// Receive blocks until a message arrives. Messages still buffered in a
// closed topic are delivered before ErrTopicClosed.
func (q *InMemoryMQ) Receive(ctx context.Context, topic string) ([]byte, error) {
	t := q.topic(topic)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.closeCh:
		return nil, ErrQueueClosed
	case data, ok := <-t.ch:
		if !ok {
			return nil, ErrTopicClosed
		}
		return data, nil
	}
}

func (q *InMemoryMQ) CloseTopic(topic string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.topics[topic]
	if !ok {
		return ErrTopicNotExists
	}
	if !t.closed {
		t.closed = true
		close(t.ch)
	}
	return nil
}

func (q *InMemoryMQ) Close() error {
	q.closeOnce.Do(func() { close(q.closeCh) })
	return nil
}
