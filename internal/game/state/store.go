// Package state holds the authoritative in-memory campaign state. Each
// campaign gets its own Store guarded by its own lock, so activity in one
// campaign never blocks another.
package state

import (
	"sync"
	"time"

	apperrors "github.com/hearthside/hearthside/internal/platform/errors"

	"github.com/hearthside/hearthside/internal/game/domain"
)

// Snapshot is a deep copy of a campaign's state at one instant. It is safe
// to serialize and broadcast without further locking.
type Snapshot struct {
	Campaign   domain.Campaign
	Players    []domain.Player
	Characters []domain.Character
	Messages   []domain.Message
	Combat     domain.CombatState
	Generating bool
	LastSeq    uint64
}

// Store is the mutation point for one campaign. Every method acquires the
// campaign lock, so callers get linearizable updates; no caller holds the
// lock across I/O.
type Store struct {
	mu sync.Mutex

	campaign   domain.Campaign
	players    map[string]*domain.Player
	playerIDs  []string
	characters map[string]*domain.Character
	charIDs    []string
	messages   []domain.Message
	nextSeq    uint64
	combat     domain.CombatState
	generating bool

	onMessage func(domain.Message)

	now func() time.Time
}

// NewStore creates an empty store for a campaign. The now function is
// injectable for tests and defaults to time.Now.
func NewStore(campaign domain.Campaign, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		campaign:   campaign,
		players:    map[string]*domain.Player{},
		characters: map[string]*domain.Character{},
		nextSeq:    1,
		combat:     domain.NewCombatState(),
		now:        now,
	}
}

// Observe registers a callback invoked for every appended message, while
// the campaign lock is still held. That makes the callback order identical
// to commit order with each message delivered exactly once, so observers
// can fan out to clients without re-reading the log. The callback must not
// block and must not call back into the store.
func (s *Store) Observe(fn func(domain.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = fn
}

// CampaignID returns the campaign's identifier.
func (s *Store) CampaignID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaign.ID
}

// Campaign returns a copy of the campaign metadata.
func (s *Store) Campaign() domain.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaign
}

// SetPaused toggles the campaign pause flag.
func (s *Store) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaign.Paused = paused
	s.campaign.UpdatedAt = s.now().UTC()
}

// Paused reports whether the campaign is paused.
func (s *Store) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaign.Paused
}

// UpsertPlayer adds or replaces a player. First insertion fixes the
// player's position in snapshot order.
func (s *Store) UpsertPlayer(player domain.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[player.ID]; !ok {
		s.playerIDs = append(s.playerIDs, player.ID)
	}
	p := player
	s.players[player.ID] = &p
	if player.IsDM && s.campaign.DMPlayerID == "" {
		s.campaign.DMPlayerID = player.ID
	}
}

// Player returns a copy of a player by ID.
func (s *Store) Player(playerID string) (domain.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return domain.Player{}, false
	}
	return *p, true
}

// HasPlayer reports whether the player belongs to this campaign.
func (s *Store) HasPlayer(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[playerID]
	return ok
}

// IsDM reports whether the player is the campaign's DM.
func (s *Store) IsDM(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	return ok && p.IsDM
}

// SetConnected updates a player's connection flag.
func (s *Store) SetConnected(playerID string, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return apperrors.New(apperrors.CodePlayerNotFound, "player not found")
	}
	p.Connected = connected
	if !connected {
		p.Ready = false
	}
	return nil
}

// SetReady updates a player's ready flag.
func (s *Store) SetReady(playerID string, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return apperrors.New(apperrors.CodePlayerNotFound, "player not found")
	}
	p.Ready = ready
	return nil
}

// AllReady reports whether every connected non-DM player is ready. It is
// false when no such player is connected.
func (s *Store) AllReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	any := false
	for _, id := range s.playerIDs {
		p := s.players[id]
		if p.IsDM || !p.Connected {
			continue
		}
		if !p.Ready {
			return false
		}
		any = true
	}
	return any
}

// ResetReady clears every player's ready flag.
func (s *Store) ResetReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		p.Ready = false
	}
}

// AddCharacter registers a character.
func (s *Store) AddCharacter(character domain.Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.characters[character.ID]; !ok {
		s.charIDs = append(s.charIDs, character.ID)
	}
	c := character.Clone()
	s.characters[character.ID] = &c
}

// Character returns a deep copy of a character by ID.
func (s *Store) Character(characterID string) (domain.Character, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[characterID]
	if !ok {
		return domain.Character{}, false
	}
	return c.Clone(), true
}

// Characters returns deep copies of every character in creation order.
func (s *Store) Characters() []domain.Character {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Character, 0, len(s.charIDs))
	for _, id := range s.charIDs {
		out = append(out, s.characters[id].Clone())
	}
	return out
}

// CharacterForPlayer returns the first character owned by the player.
func (s *Store) CharacterForPlayer(playerID string) (domain.Character, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.charIDs {
		if s.characters[id].PlayerID == playerID {
			return s.characters[id].Clone(), true
		}
	}
	return domain.Character{}, false
}

// SetCharacterHP sets current hit points, clamped to [0, MaxHP].
func (s *Store) SetCharacterHP(characterID string, hp int) (domain.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[characterID]
	if !ok {
		return domain.Character{}, apperrors.New(apperrors.CodeCharacterNotFound, "character not found")
	}
	if hp < 0 {
		hp = 0
	}
	if hp > c.MaxHP {
		hp = c.MaxHP
	}
	c.CurrentHP = hp
	c.UpdatedAt = s.now().UTC()
	return c.Clone(), nil
}

// SetCharacterCondition applies a condition to a character. A duration of
// zero means the condition stays until cleared.
func (s *Store) SetCharacterCondition(characterID, condition string, rounds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[characterID]
	if !ok {
		return apperrors.New(apperrors.CodeCharacterNotFound, "character not found")
	}
	if c.Conditions == nil {
		c.Conditions = map[string]int{}
	}
	c.Conditions[condition] = rounds
	c.UpdatedAt = s.now().UTC()
	return nil
}

// ClearCharacterCondition removes a condition from a character.
func (s *Store) ClearCharacterCondition(characterID, condition string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[characterID]
	if !ok {
		return apperrors.New(apperrors.CodeCharacterNotFound, "character not found")
	}
	delete(c.Conditions, condition)
	c.UpdatedAt = s.now().UTC()
	return nil
}

// AppendMessage appends a transcript message, assigning the next sequence
// number. Sequence numbers are strictly increasing with no gaps.
func (s *Store) AppendMessage(kind domain.MessageKind, senderID, senderName, text string) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(kind, senderID, senderName, text)
}

// AppendSystemMessage appends a server-authored message.
func (s *Store) AppendSystemMessage(text string) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(domain.MessageKindSystem, "", "System", text)
}

func (s *Store) appendLocked(kind domain.MessageKind, senderID, senderName, text string) domain.Message {
	msg := domain.Message{
		Seq:        s.nextSeq,
		Kind:       kind,
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		CreatedAt:  s.now().UTC(),
	}
	s.nextSeq++
	s.messages = append(s.messages, msg)
	if s.onMessage != nil {
		s.onMessage(msg)
	}
	return msg
}

// MessagesSince returns messages with Seq greater than afterSeq, in order.
func (s *Store) MessagesSince(afterSeq uint64) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.messages {
		if m.Seq > afterSeq {
			out = append(out, m)
		}
	}
	return out
}

// LastSeq returns the highest assigned sequence number, zero if none.
func (s *Store) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq - 1
}

// UnconsciousCondition is applied automatically when a combatant drops to
// zero hit points and removed when healing brings it back above zero.
const UnconsciousCondition = "unconscious"

// AdjustCombatantHP applies a hit-point delta to a combatant during active
// combat, clamped to [0, MaxHP]. Dropping to zero applies the unconscious
// condition; healing above zero removes it. A linked character sheet is
// updated in the same critical section, so no snapshot observes combatant
// and sheet hit points diverging. The returned name is non-empty when the
// delta dropped the combatant from above zero to zero.
func (s *Store) AdjustCombatantHP(operation, combatantID string, delta int) (domain.CombatState, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.combat.Phase != domain.CombatPhaseActive {
		return domain.CombatState{}, "", apperrors.WithMetadata(apperrors.CodeInvalidTransition, "invalid combat transition", map[string]string{
			"Operation": operation,
			"Phase":     string(s.combat.Phase),
		})
	}

	for i := range s.combat.Order {
		combatant := &s.combat.Order[i]
		if combatant.ID != combatantID {
			continue
		}

		hp := combatant.CurrentHP + delta
		if hp < 0 {
			hp = 0
		}
		if hp > combatant.MaxHP {
			hp = combatant.MaxHP
		}
		wasUp := combatant.CurrentHP > 0
		combatant.CurrentHP = hp

		if combatant.Conditions == nil {
			combatant.Conditions = map[string]int{}
		}
		var downed string
		if wasUp && hp == 0 {
			combatant.Conditions[UnconsciousCondition] = 0
			downed = combatant.Name
		}
		if hp > 0 {
			delete(combatant.Conditions, UnconsciousCondition)
		}

		if c, ok := s.characters[combatant.CharacterID]; ok {
			c.CurrentHP = hp
			if c.CurrentHP > c.MaxHP {
				c.CurrentHP = c.MaxHP
			}
			if c.Conditions == nil {
				c.Conditions = map[string]int{}
			}
			if hp == 0 {
				c.Conditions[UnconsciousCondition] = 0
			} else {
				delete(c.Conditions, UnconsciousCondition)
			}
			c.UpdatedAt = s.now().UTC()
		}
		return s.combat.Clone(), downed, nil
	}
	return domain.CombatState{}, "", apperrors.New(apperrors.CodeCombatantNotFound, "combatant not found")
}

// Combat returns a deep copy of the combat state.
func (s *Store) Combat() domain.CombatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combat.Clone()
}

// UpdateCombat runs fn against the combat state under the campaign lock
// and returns a deep copy of the result. When fn returns an error the
// state is left as fn left it, so fn must mutate only after validating.
func (s *Store) UpdateCombat(fn func(cs *domain.CombatState) error) (domain.CombatState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(&s.combat); err != nil {
		return domain.CombatState{}, err
	}
	return s.combat.Clone(), nil
}

// SetGenerating records whether narration is in flight for this campaign.
func (s *Store) SetGenerating(generating bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = generating
}

// Generating reports whether narration is in flight.
func (s *Store) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

// Snapshot returns a deep copy of the full campaign state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Campaign:   s.campaign,
		Players:    make([]domain.Player, 0, len(s.playerIDs)),
		Characters: make([]domain.Character, 0, len(s.charIDs)),
		Messages:   append([]domain.Message(nil), s.messages...),
		Combat:     s.combat.Clone(),
		Generating: s.generating,
		LastSeq:    s.nextSeq - 1,
	}
	for _, id := range s.playerIDs {
		snap.Players = append(snap.Players, *s.players[id])
	}
	for _, id := range s.charIDs {
		snap.Characters = append(snap.Characters, s.characters[id].Clone())
	}
	return snap
}

// Hydrate replaces the store contents from persisted state. It is meant
// for registry use right after NewStore, before the store is shared.
func (s *Store) Hydrate(players []domain.Player, characters []domain.Character, messages []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players = make(map[string]*domain.Player, len(players))
	s.playerIDs = s.playerIDs[:0]
	for _, player := range players {
		p := player
		p.Connected = false
		p.Ready = false
		s.players[p.ID] = &p
		s.playerIDs = append(s.playerIDs, p.ID)
	}

	s.characters = make(map[string]*domain.Character, len(characters))
	s.charIDs = s.charIDs[:0]
	for _, character := range characters {
		c := character.Clone()
		s.characters[c.ID] = &c
		s.charIDs = append(s.charIDs, c.ID)
	}

	s.messages = append([]domain.Message(nil), messages...)
	s.nextSeq = 1
	if n := len(s.messages); n > 0 {
		s.nextSeq = s.messages[n-1].Seq + 1
	}
}
