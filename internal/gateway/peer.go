package gateway

import (
	"encoding/json"
	"errors"
	"sync"
)

// sendQueueSize bounds the per-peer outbound queue. A peer that cannot
// drain this many frames is detached instead of stalling the broadcaster.
const sendQueueSize = 64

var errPeerClosed = errors.New("peer connection is closed")
var errPeerStalled = errors.New("peer send queue overflowed")

// wsPeer owns the outbound half of one websocket connection. Frames are
// queued and written by a single goroutine, so broadcasts never block on a
// slow reader.
type wsPeer struct {
	send chan wsFrame
	done chan struct{}
	once sync.Once
}

func newWSPeer() *wsPeer {
	return &wsPeer{
		send: make(chan wsFrame, sendQueueSize),
		done: make(chan struct{}),
	}
}

// run drains the send queue into the encoder until the peer closes or a
// write fails. It must be called exactly once, on its own goroutine.
func (p *wsPeer) run(encoder *json.Encoder) {
	for {
		select {
		case <-p.done:
			return
		case frame := <-p.send:
			if err := encoder.Encode(frame); err != nil {
				p.close()
				return
			}
		}
	}
}

// writeFrame queues a frame without blocking. A full queue closes the
// peer and reports errPeerStalled.
func (p *wsPeer) writeFrame(frame wsFrame) error {
	select {
	case <-p.done:
		return errPeerClosed
	default:
	}
	select {
	case p.send <- frame:
		return nil
	case <-p.done:
		return errPeerClosed
	default:
		p.close()
		return errPeerStalled
	}
}

func (p *wsPeer) close() {
	p.once.Do(func() { close(p.done) })
}

func (p *wsPeer) closed() <-chan struct{} {
	return p.done
}
