package gateway

import "sync"

// campaignRoom tracks the connected peers of one campaign, keyed by player
// so a reconnect supersedes the previous connection.
type campaignRoom struct {
	mu         sync.Mutex
	campaignID string
	peers      map[string]*wsPeer
}

func newCampaignRoom(campaignID string) *campaignRoom {
	return &campaignRoom{
		campaignID: campaignID,
		peers:      map[string]*wsPeer{},
	}
}

// attach registers the player's peer and returns the superseded one, if
// the player was already connected elsewhere.
func (r *campaignRoom) attach(playerID string, peer *wsPeer) *wsPeer {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous := r.peers[playerID]
	r.peers[playerID] = peer
	return previous
}

// detach removes the player's peer if it is still the attached one. It
// reports whether the peer was removed; a superseded peer detaching later
// must not kick out its replacement.
func (r *campaignRoom) detach(playerID string, peer *wsPeer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.peers[playerID] != peer {
		return false
	}
	delete(r.peers, playerID)
	return true
}

// broadcast queues a frame for every attached peer. Stalled peers are
// closed by their own writeFrame, never blocking the others.
func (r *campaignRoom) broadcast(frame wsFrame) {
	r.mu.Lock()
	peers := make([]*wsPeer, 0, len(r.peers))
	for _, peer := range r.peers {
		peers = append(peers, peer)
	}
	r.mu.Unlock()

	for _, peer := range peers {
		_ = peer.writeFrame(frame)
	}
}

// roomHub maps campaign IDs to rooms.
type roomHub struct {
	mu    sync.Mutex
	rooms map[string]*campaignRoom
}

func newRoomHub() *roomHub {
	return &roomHub{rooms: map[string]*campaignRoom{}}
}

func (h *roomHub) room(campaignID string) *campaignRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[campaignID]
	if !ok {
		room = newCampaignRoom(campaignID)
		h.rooms[campaignID] = room
	}
	return room
}
