//////////////////////////////////////////////////////////////////////////////
//
// Broadcast reader events from one publisher to multiple subscribers.
//
// Each subscriber has its own channel (i.e. queue). When the publisher
// writes a message, the message is added to each subscriber's channel.
// The data within the slice is not copied, so subscribers must not modify
// it.
//
// Each subscriber may specify the maximum number of messages it wishes to
// buffer. Once this capacity is reached, the oldest message is dropped for
// each new one.
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package monitor

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/lanikai/alohareader/internal/logging"
)

var log = logging.DefaultLogger.WithTag("monitor")

var (
	errNotFound = errors.New("Subscriber not found")
	errClosed   = errors.New("Hub closed")
)

type Subscriber interface {
	Subscribe(n int) <-chan []byte
	Unsubscribe(s <-chan []byte) error
}

// Hub implements the io.WriteCloser and Subscriber interfaces.
type Hub struct {
	mutex       sync.Mutex
	subscribers []chan []byte
	closed      bool
}

func NewHub() *Hub {
	return &Hub{}
}

// Close the hub. All subscriber channels are drained and closed. Writes
// return an error afterwards.
func (h *Hub) Close() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, subscriber := range h.subscribers {
		for len(subscriber) > 0 {
			<-subscriber // Drain
		}
		close(subscriber)
	}
	h.subscribers = nil
	h.closed = true
	return nil
}

// Subscribe to messages, buffering up to n of them for the subscriber.
func (h *Hub) Subscribe(n int) <-chan []byte {
	if n < 1 {
		panic("malformed buffer size")
	}

	channel := make(chan []byte, n)
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		close(channel)
		return channel
	}
	h.subscribers = append(h.subscribers, channel)
	return channel
}

// Unsubscribe by providing the read-only channel returned by Subscribe().
func (h *Hub) Unsubscribe(s <-chan []byte) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for i, subscriber := range h.subscribers {
		if s == subscriber {
			// Remove subscriber from slice (order not preserved)
			subs := h.subscribers
			close(subs[i])
			subs[len(subs)-1], subs[i] = subs[i], subs[len(subs)-1]
			h.subscribers = subs[:len(subs)-1]
			return nil
		}
	}
	return errNotFound
}

// Write a message to all subscribers.
func (h *Hub) Write(p []byte) (n int, err error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return 0, errClosed
	}

	for _, subscriber := range h.subscribers {
		select {
		case subscriber <- p:
		default:
			// Subscriber backlogged. Drop oldest message, add newest.
			select {
			case <-subscriber:
			default:
			}
			subscriber <- p
		}
	}
	return len(p), nil
}

// Publish writes v as a JSON message.
func (h *Hub) Publish(v interface{}) error {
	p, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = h.Write(p)
	return err
}
