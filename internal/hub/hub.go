// Package hub is the pub/sub fanout: one logical channel per list id,
// snapshots pushed to every live subscriber of that channel. A single
// goroutine owns the subscription table; subscribe, unsubscribe, and
// publish are commands sent to it, so no lock is held across delivery.
package hub

import "sync"

type frame struct {
	channel string
	payload []byte
}

// Subscriber receives every publish on its channel from the moment it
// subscribes. There is no backlog: state published before Subscribe
// must be fetched separately.
type Subscriber struct {
	channel string
	send    chan []byte
	hub     *Hub
	once    sync.Once
}

// C is the stream of snapshots. It is closed on Unsubscribe and on hub
// shutdown.
func (s *Subscriber) C() <-chan []byte { return s.send }

// Channel returns the channel (list id) this subscriber is attached to.
func (s *Subscriber) Channel() string { return s.channel }

// Unsubscribe detaches the subscriber and closes C. Idempotent.
func (s *Subscriber) Unsubscribe() {
	s.once.Do(func() {
		select {
		case s.hub.unsubscribe <- s:
		case <-s.hub.done:
		}
	})
}

type Hub struct {
	sendBuffer  int
	subscribe   chan *Subscriber
	unsubscribe chan *Subscriber
	publish     chan frame
	done        chan struct{}
	closeOnce   sync.Once

	// owned by the run goroutine
	channels map[string]map[*Subscriber]struct{}
}

// New starts a hub. sendBuffer is the per-subscriber queue depth; a
// subscriber that falls further behind loses frames rather than
// stalling delivery to everyone else.
func New(sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	h := &Hub{
		sendBuffer:  sendBuffer,
		subscribe:   make(chan *Subscriber),
		unsubscribe: make(chan *Subscriber),
		publish:     make(chan frame),
		done:        make(chan struct{}),
		channels:    make(map[string]map[*Subscriber]struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case s := <-h.subscribe:
			subs := h.channels[s.channel]
			if subs == nil {
				subs = make(map[*Subscriber]struct{})
				h.channels[s.channel] = subs
			}
			subs[s] = struct{}{}
		case s := <-h.unsubscribe:
			if subs, ok := h.channels[s.channel]; ok {
				if _, ok := subs[s]; ok {
					delete(subs, s)
					close(s.send)
					if len(subs) == 0 {
						delete(h.channels, s.channel)
					}
				}
			}
		case f := <-h.publish:
			for s := range h.channels[f.channel] {
				select {
				case s.send <- f.payload:
				default:
					// slow subscriber: drop the frame, it will
					// catch up on the next publish
				}
			}
		case <-h.done:
			for _, subs := range h.channels {
				for s := range subs {
					close(s.send)
				}
			}
			h.channels = make(map[string]map[*Subscriber]struct{})
			return
		}
	}
}

// Subscribe attaches a new subscriber to the channel.
func (h *Hub) Subscribe(channel string) *Subscriber {
	s := &Subscriber{
		channel: channel,
		send:    make(chan []byte, h.sendBuffer),
		hub:     h,
	}
	select {
	case h.subscribe <- s:
	case <-h.done:
		close(s.send)
	}
	return s
}

// Publish delivers the snapshot to every current subscriber of the
// channel. Never blocks on any individual subscriber.
func (h *Hub) Publish(channel string, snapshot []byte) {
	select {
	case h.publish <- frame{channel: channel, payload: snapshot}:
	case <-h.done:
	}
}

// Close shuts the hub down and closes every subscriber stream.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
