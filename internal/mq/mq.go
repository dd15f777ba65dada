package mq

import (
	"context"
	"errors"
)

var (
	ErrTopicNotExists = errors.New("topic does not exist")
	ErrQueueFull      = errors.New("queue is full")
	ErrQueueClosed    = errors.New("queue closed")
	ErrTopicClosed    = errors.New("topic closed")
)

const TopicPredictionCompleted = "predictions/completed"

// MQ fans finished work out to background consumers. Publish never blocks:
// a full topic reports ErrQueueFull.
type MQ interface {
	Publish(ctx context.Context, topic string, message []byte) error
	Receive(ctx context.Context, topic string) ([]byte, error)
	CloseTopic(topic string) error
	Close() error
}

func NewMQ(maxSize int) (MQ, error) {
	return NewInMemoryMQ(maxSize)
}
