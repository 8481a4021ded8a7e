// Package gateway hosts the realtime boundary: one websocket endpoint per
// campaign table, plus the HTTP join handshake that issues session tokens.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/hearthside/hearthside/internal/core/dice"
	"github.com/hearthside/hearthside/internal/game/combat"
	"github.com/hearthside/hearthside/internal/game/domain"
	"github.com/hearthside/hearthside/internal/game/state"
	"github.com/hearthside/hearthside/internal/narrator"
	apperrors "github.com/hearthside/hearthside/internal/platform/errors"
	"github.com/hearthside/hearthside/internal/platform/errors/i18n"
	"github.com/hearthside/hearthside/internal/random"
	"github.com/hearthside/hearthside/internal/session"
	"github.com/hearthside/hearthside/internal/storage/cursor"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3

	maxActionRunes = 2000

	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	timeFormat = time.RFC3339
)

// Gateway wires the session registry, campaign state and narration into
// the websocket surface.
type Gateway struct {
	sessions *session.Registry
	registry *state.Registry
	story    *narrator.Orchestrator
	hub      *roomHub

	mu           sync.Mutex
	coordinators map[string]*combat.Coordinator
	watched      map[string]bool

	catalog    *i18n.Catalog
	dmPassword string
	now        func() time.Time
	seed       func() (int64, error)
}

// Config carries the gateway dependencies.
type Config struct {
	Sessions  *session.Registry
	Registry  *state.Registry
	Generator narrator.Generator

	// DMPassword gates DM seats. Empty disables DM joins entirely.
	DMPassword string

	// Now and Seed are injectable for tests.
	Now  func() time.Time
	Seed func() (int64, error)

	// NarrationTimeout overrides the generation deadline when positive.
	NarrationTimeout time.Duration
}

// New creates a gateway. The narration orchestrator is built here so its
// broadcasts flow back through the gateway's rooms.
func New(config Config) *Gateway {
	g := &Gateway{
		sessions:     config.Sessions,
		registry:     config.Registry,
		hub:          newRoomHub(),
		coordinators: map[string]*combat.Coordinator{},
		watched:      map[string]bool{},
		catalog:      i18n.GetCatalog("en-US"),
		dmPassword:   config.DMPassword,
		now:          config.Now,
		seed:         config.Seed,
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.seed == nil {
		g.seed = random.NewSeed
	}
	opts := []narrator.Option{narrator.WithEvents(g)}
	if config.NarrationTimeout > 0 {
		opts = append(opts, narrator.WithTimeout(config.NarrationTimeout))
	}
	g.story = narrator.NewOrchestrator(config.Generator, opts...)
	return g
}

// watch fans every message the campaign commits out to its room. The
// store invokes the observer while still holding the campaign lock, so
// the frames every peer sees arrive in commit order with no duplicates.
// Broadcasting in there is safe because peer writes never block.
func (g *Gateway) watch(store *state.Store) {
	campaignID := store.CampaignID()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.watched[campaignID] {
		return
	}
	g.watched[campaignID] = true
	room := g.hub.room(campaignID)
	store.Observe(func(msg domain.Message) {
		room.broadcast(wsFrame{
			Type:    "game.message",
			Payload: mustJSON(messageToView(msg)),
		})
	})
}

// NarrationStatus implements narrator.Events.
func (g *Gateway) NarrationStatus(campaignID string, generating bool) {
	g.hub.room(campaignID).broadcast(wsFrame{
		Type:    "game.status",
		Payload: mustJSON(statusPayload{Generating: generating}),
	})
}

// coordinator returns the campaign's combat coordinator, creating it on
// first use.
func (g *Gateway) coordinator(store *state.Store) *combat.Coordinator {
	g.mu.Lock()
	defer g.mu.Unlock()
	campaignID := store.CampaignID()
	c, ok := g.coordinators[campaignID]
	if !ok {
		c = combat.NewCoordinator(store, g.seed, nil)
		g.coordinators[campaignID] = c
	}
	return c
}

// Handler returns the gateway's HTTP routes.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/api/join", g.handleJoin)
	mux.HandleFunc("/api/campaigns", g.handleListCampaigns)

	wsHandler := websocket.Handler(g.handleWSConn)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})
	return mux
}

// connState is the per-connection mutable state. It is only touched by the
// connection's own reader goroutine, so no lock is needed.
type connState struct {
	peer   *wsPeer
	claims session.Claims
	store  *state.Store
	room   *campaignRoom
	joined bool
}

func (g *Gateway) handleWSConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	peer := newWSPeer()
	go peer.run(json.NewEncoder(conn))
	defer peer.close()
	go func() {
		// Unblocks the read loop when another connection supersedes this
		// one or the send queue overflows.
		<-peer.closed()
		_ = conn.Close()
	}()

	sess := &connState{peer: peer}
	defer g.leaveRoom(sess)

	decoder := json.NewDecoder(conn)
	windowStart := g.now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case <-peer.closed():
				return
			default:
			}
			decodeErrors++
			g.writeError(peer, "", apperrors.New(apperrors.CodeUnknown, "invalid frame payload"))
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			g.writeError(peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "payload too large"))
			continue
		}

		now := g.now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			g.writeError(peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "rate limit exceeded"))
			return
		}

		if frame.Type == "game.join" {
			g.handleJoinFrame(sess, frame)
			continue
		}
		if !sess.joined {
			g.writeError(peer, frame.RequestID, apperrors.New(apperrors.CodeForbidden, "join the campaign before sending frames"))
			continue
		}

		switch frame.Type {
		case "game.action":
			g.handleActionFrame(sess, frame)
		case "game.chat":
			g.handleChatFrame(sess, frame)
		case "game.narrate":
			g.handleNarrateFrame(sess, frame)
		case "game.ready":
			g.handleReadyFrame(sess, frame)
		case "game.roll":
			g.handleRollFrame(sess, frame)
		case "game.history":
			g.handleHistoryFrame(sess, frame)
		case "game.pause":
			g.handlePauseFrame(sess, frame)
		case "game.save":
			g.handleSaveFrame(sess, frame)
		case "game.character.create":
			g.handleCharacterCreateFrame(sess, frame)
		case "game.combat":
			g.handleCombatFrame(sess, frame)
		default:
			g.writeError(peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "unsupported frame type"))
		}
	}
}

func (g *Gateway) leaveRoom(sess *connState) {
	if !sess.joined || sess.room == nil {
		return
	}
	if !sess.room.detach(sess.claims.PlayerID, sess.peer) {
		// A newer connection superseded this one; presence belongs to it.
		return
	}
	if err := sess.store.SetConnected(sess.claims.PlayerID, false); err == nil {
		sess.room.broadcast(wsFrame{
			Type: "game.presence",
			Payload: mustJSON(presencePayload{
				PlayerID:   sess.claims.PlayerID,
				PlayerName: sess.claims.PlayerName,
				Connected:  false,
			}),
		})
	}
}

func (g *Gateway) handleJoinFrame(sess *connState, frame wsFrame) {
	var payload joinFramePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "invalid join payload"))
		return
	}

	claims, err := g.sessions.Validate(payload.Token)
	if err != nil {
		g.writeError(sess.peer, frame.RequestID, err)
		return
	}

	store, err := g.registry.Get(context.Background(), claims.CampaignID)
	if err != nil {
		g.writeError(sess.peer, frame.RequestID, err)
		return
	}
	g.watch(store)

	// Re-joining this connection to another campaign first releases the
	// old room.
	g.leaveRoom(sess)

	sess.claims = claims
	sess.store = store
	sess.room = g.hub.room(claims.CampaignID)
	sess.joined = true

	if superseded := sess.room.attach(claims.PlayerID, sess.peer); superseded != nil {
		superseded.close()
	}
	_ = store.SetConnected(claims.PlayerID, true)

	_ = sess.peer.writeFrame(wsFrame{
		Type:      "game.joined",
		RequestID: frame.RequestID,
		Payload: mustJSON(joinedPayload{
			CampaignID: claims.CampaignID,
			PlayerID:   claims.PlayerID,
			PlayerName: claims.PlayerName,
			IsDM:       claims.IsDM,
			LastSeq:    store.LastSeq(),
			ServerTime: g.now().UTC().Format(timeFormat),
		}),
	})
	_ = sess.peer.writeFrame(wsFrame{
		Type:    "game.state",
		Payload: mustJSON(snapshotToPayload(store.Snapshot(), payload.LastSeq)),
	})

	sess.room.broadcast(wsFrame{
		Type: "game.presence",
		Payload: mustJSON(presencePayload{
			PlayerID:   claims.PlayerID,
			PlayerName: claims.PlayerName,
			Connected:  true,
		}),
	})
}

func (g *Gateway) handleActionFrame(sess *connState, frame wsFrame) {
	var payload actionPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "invalid action payload"))
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "action text is required"))
		return
	}
	if len([]rune(text)) > maxActionRunes {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "action text is too long"))
		return
	}

	msg, err := g.story.SubmitAction(context.Background(), sess.store, sess.claims.PlayerID, text)
	if err != nil {
		g.writeError(sess.peer, frame.RequestID, err)
		return
	}
	g.ack(sess.peer, frame.RequestID, msg.Seq)
}

// handleChatFrame appends table talk to the transcript. Chat never starts
// a generation and is allowed while the campaign is paused.
func (g *Gateway) handleChatFrame(sess *connState, frame wsFrame) {
	text, ok := g.decodeText(sess.peer, frame, "chat")
	if !ok {
		return
	}
	msg := sess.store.AppendMessage(domain.MessageKindPlayer, sess.claims.PlayerID, sess.claims.PlayerName, text)
	g.ack(sess.peer, frame.RequestID, msg.Seq)
}

// handleNarrateFrame lets the DM speak as the narrator directly, without
// going through the generator.
func (g *Gateway) handleNarrateFrame(sess *connState, frame wsFrame) {
	text, ok := g.decodeText(sess.peer, frame, "narration")
	if !ok {
		return
	}
	if !sess.store.IsDM(sess.claims.PlayerID) {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeForbidden, "only the DM may narrate"))
		return
	}
	msg := sess.store.AppendMessage(domain.MessageKindNarrator, sess.claims.PlayerID, narrator.NarratorName, text)
	g.ack(sess.peer, frame.RequestID, msg.Seq)
}

// decodeText unmarshals and validates a text-bearing frame payload.
func (g *Gateway) decodeText(peer *wsPeer, frame wsFrame, what string) (string, bool) {
	var payload actionPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		g.writeError(peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "invalid "+what+" payload"))
		return "", false
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		g.writeError(peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, what+" text is required"))
		return "", false
	}
	if len([]rune(text)) > maxActionRunes {
		g.writeError(peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, what+" text is too long"))
		return "", false
	}
	return text, true
}

func (g *Gateway) handleReadyFrame(sess *connState, frame wsFrame) {
	var payload readyPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "invalid ready payload"))
		return
	}
	if err := sess.store.SetReady(sess.claims.PlayerID, payload.Ready); err != nil {
		g.writeError(sess.peer, frame.RequestID, err)
		return
	}
	sess.room.broadcast(wsFrame{
		Type: "game.ready",
		Payload: mustJSON(struct {
			PlayerID string `json:"player_id"`
			Ready    bool   `json:"ready"`
			AllReady bool   `json:"all_ready"`
		}{sess.claims.PlayerID, payload.Ready, sess.store.AllReady()}),
	})
	g.ack(sess.peer, frame.RequestID, 0)
}

func (g *Gateway) handleRollFrame(sess *connState, frame wsFrame) {
	var payload rollPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeDiceInvalidSpec, "invalid roll payload"))
		return
	}
	seed, err := g.seed()
	if err != nil {
		g.writeError(sess.peer, frame.RequestID, err)
		return
	}
	result, err := dice.RollNotation(payload.Notation, seed)
	if err != nil {
		g.writeError(sess.peer, frame.RequestID, apperrors.Wrap(apperrors.CodeDiceInvalidSpec, "invalid dice notation", err))
		return
	}

	sess.store.AppendSystemMessage(sess.claims.PlayerName + " " + result.Describe())
	sess.room.broadcast(wsFrame{
		Type: "game.roll.result",
		Payload: mustJSON(rollResultPayload{
			PlayerID: sess.claims.PlayerID,
			Notation: result.Notation,
			Results:  result.Results,
			Modifier: result.Modifier,
			Total:    result.Total,
		}),
	})
	g.ack(sess.peer, frame.RequestID, 0)
}

func (g *Gateway) handleHistoryFrame(sess *connState, frame wsFrame) {
	var payload historyPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "invalid history payload"))
		return
	}
	c, err := cursor.Decode(payload.Cursor, sess.claims.CampaignID)
	if err != nil {
		g.writeError(sess.peer, frame.RequestID, apperrors.Wrap(apperrors.CodeUnknown, "invalid history cursor", err))
		return
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	messages := sess.store.MessagesSince(c.Seq)
	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	result := historyResultPayload{Messages: make([]messageView, 0, len(messages)), HasMore: hasMore}
	for _, msg := range messages {
		result.Messages = append(result.Messages, messageToView(msg))
	}
	if len(messages) > 0 {
		token, err := cursor.Encode(cursor.Cursor{Seq: messages[len(messages)-1].Seq, CampaignID: sess.claims.CampaignID})
		if err == nil {
			result.Cursor = token
		}
	}
	_ = sess.peer.writeFrame(wsFrame{
		Type:      "game.history",
		RequestID: frame.RequestID,
		Payload:   mustJSON(result),
	})
}

func (g *Gateway) handlePauseFrame(sess *connState, frame wsFrame) {
	var payload pausePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "invalid pause payload"))
		return
	}
	if !sess.store.IsDM(sess.claims.PlayerID) {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeForbidden, "only the DM may pause the campaign"))
		return
	}

	sess.store.SetPaused(payload.Paused)
	if payload.Paused {
		sess.store.AppendSystemMessage("The DM paused the campaign. The table is saved.")
	} else {
		sess.store.AppendSystemMessage("The campaign resumes.")
	}
	if err := g.registry.Save(context.Background(), sess.claims.CampaignID); err != nil {
		log.Printf("save campaign on pause failed campaign_id=%s error=%q", sess.claims.CampaignID, err)
	}
	sess.room.broadcast(wsFrame{
		Type:    "game.paused",
		Payload: mustJSON(pausePayload{Paused: payload.Paused}),
	})
	g.ack(sess.peer, frame.RequestID, 0)
}

func (g *Gateway) handleSaveFrame(sess *connState, frame wsFrame) {
	if !sess.store.IsDM(sess.claims.PlayerID) {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeForbidden, "only the DM may save the campaign"))
		return
	}
	if err := g.registry.Save(context.Background(), sess.claims.CampaignID); err != nil {
		g.writeError(sess.peer, frame.RequestID, apperrors.Wrap(apperrors.CodeSaveFailed, "campaign save failed", err))
		return
	}
	g.ack(sess.peer, frame.RequestID, sess.store.LastSeq())
}

func (g *Gateway) handleCharacterCreateFrame(sess *connState, frame wsFrame) {
	var payload characterCreatePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "invalid character payload"))
		return
	}

	abilities, err := g.resolveAbilities(payload)
	if err != nil {
		g.writeError(sess.peer, frame.RequestID, err)
		return
	}

	character, err := domain.CreateCharacter(domain.CreateCharacterInput{
		PlayerID:   sess.claims.PlayerID,
		Name:       payload.Name,
		Race:       payload.Race,
		Class:      payload.Class,
		Background: payload.Background,
		Abilities:  abilities,
	}, g.now, nil)
	if err != nil {
		g.writeError(sess.peer, frame.RequestID, apperrors.Wrap(apperrors.CodeCharacterNameEmpty, "create character", err))
		return
	}
	sess.store.AddCharacter(character)

	sess.store.AppendSystemMessage(sess.claims.PlayerName + " created " + character.Name + " the " + displayClass(character) + ".")
	sess.room.broadcast(wsFrame{
		Type: "game.character",
		Payload: mustJSON(characterView{
			ID:               character.ID,
			PlayerID:         character.PlayerID,
			Name:             character.Name,
			Race:             character.Race,
			Class:            character.Class,
			Background:       character.Background,
			Level:            character.Level,
			Abilities:        character.Abilities,
			MaxHP:            character.MaxHP,
			CurrentHP:        character.CurrentHP,
			ArmorClass:       character.ArmorClass,
			ProficiencyBonus: character.ProficiencyBonus,
		}),
	})
	g.ack(sess.peer, frame.RequestID, 0)
}

// resolveAbilities maps the creation method to final ability scores.
func (g *Gateway) resolveAbilities(payload characterCreatePayload) (domain.AbilityScores, error) {
	switch payload.Method {
	case "", "point_buy":
		if len(payload.Abilities) == 0 {
			return domain.DefaultAbilityScores(), nil
		}
		scores, err := abilitiesFromMap(payload.Abilities)
		if err != nil {
			return domain.AbilityScores{}, err
		}
		if payload.Method == "point_buy" {
			values := []int{scores.Strength, scores.Dexterity, scores.Constitution, scores.Intelligence, scores.Wisdom, scores.Charisma}
			if ok, spent := dice.ValidatePointBuy(values); !ok {
				return domain.AbilityScores{}, apperrors.WithMetadata(apperrors.CodeDiceInvalidSpec, "invalid point buy spread", map[string]string{"Spent": strconv.Itoa(spent)})
			}
		}
		return scores, nil
	case "standard":
		return abilitiesFromMap(payload.Abilities)
	case "roll":
		seed, err := g.seed()
		if err != nil {
			return domain.AbilityScores{}, err
		}
		rng := rand.New(rand.NewSource(seed))
		rolled := make([]int, 6)
		for i := range rolled {
			_, _, total := dice.AbilityScoreRoll(rng)
			rolled[i] = total
		}
		return domain.AbilityScores{
			Strength:     rolled[0],
			Dexterity:    rolled[1],
			Constitution: rolled[2],
			Intelligence: rolled[3],
			Wisdom:       rolled[4],
			Charisma:     rolled[5],
		}, nil
	default:
		return domain.AbilityScores{}, apperrors.New(apperrors.CodeUnknown, "unknown ability score method")
	}
}

func abilitiesFromMap(values map[string]int) (domain.AbilityScores, error) {
	scores := domain.DefaultAbilityScores()
	for name, value := range values {
		switch strings.ToLower(name) {
		case "strength", "str":
			scores.Strength = value
		case "dexterity", "dex":
			scores.Dexterity = value
		case "constitution", "con":
			scores.Constitution = value
		case "intelligence", "int":
			scores.Intelligence = value
		case "wisdom", "wis":
			scores.Wisdom = value
		case "charisma", "cha":
			scores.Charisma = value
		default:
			return domain.AbilityScores{}, apperrors.New(apperrors.CodeUnknown, "unknown ability score "+name)
		}
	}
	return scores, nil
}

func displayClass(character domain.Character) string {
	if character.Class != "" {
		return character.Class
	}
	return "adventurer"
}

func (g *Gateway) handleCombatFrame(sess *connState, frame wsFrame) {
	var payload combatPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		g.writeError(sess.peer, frame.RequestID, apperrors.New(apperrors.CodeUnknown, "invalid combat payload"))
		return
	}

	coordinator := g.coordinator(sess.store)
	actorID := sess.claims.PlayerID

	var (
		updated domain.CombatState
		err     error
	)
	switch payload.Op {
	case "setup":
		updated, err = coordinator.StartSetup(actorID)
	case "add":
		updated, err = coordinator.AddCombatant(actorID, combat.AddCombatantInput{
			Name:        payload.Name,
			Modifier:    payload.Modifier,
			MaxHP:       payload.MaxHP,
			IsPlayer:    payload.IsPlayer,
			CharacterID: payload.CharacterID,
		})
	case "remove":
		updated, err = coordinator.RemoveCombatant(actorID, payload.CombatantID)
	case "begin":
		updated, err = coordinator.Begin(actorID)
	case "next":
		updated, err = coordinator.AdvanceTurn(actorID)
	case "damage":
		updated, err = coordinator.ApplyDamage(actorID, payload.CombatantID, payload.Amount)
	case "heal":
		updated, err = coordinator.ApplyHeal(actorID, payload.CombatantID, payload.Amount)
	case "condition.set":
		updated, err = coordinator.SetCondition(actorID, payload.CombatantID, payload.Condition, payload.Rounds)
	case "condition.clear":
		updated, err = coordinator.ClearCondition(actorID, payload.CombatantID, payload.Condition)
	case "end":
		updated, err = coordinator.End(actorID)
	default:
		err = apperrors.New(apperrors.CodeUnknown, "unsupported combat op")
	}
	if err != nil {
		g.writeError(sess.peer, frame.RequestID, err)
		return
	}

	sess.room.broadcast(wsFrame{
		Type:    "game.combat",
		Payload: mustJSON(combatToView(updated)),
	})
	g.ack(sess.peer, frame.RequestID, 0)
}

func (g *Gateway) ack(peer *wsPeer, requestID string, seq uint64) {
	_ = peer.writeFrame(wsFrame{
		Type:      "game.ack",
		RequestID: requestID,
		Payload:   mustJSON(ackPayload{Status: "ok", Seq: seq}),
	})
}

// writeError localizes and frames an error for one peer.
func (g *Gateway) writeError(peer *wsPeer, requestID string, err error) {
	code := apperrors.GetCode(err)
	message := g.catalog.Format(string(code), apperrors.GetMetadata(err))
	if message == string(code) {
		message = err.Error()
	}
	_ = peer.writeFrame(wsFrame{
		Type:      "game.error",
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{Error: wsError{
			Code:      string(code),
			Message:   message,
			Retryable: code == apperrors.CodeGeneratorTimeout,
		}}),
	})
}

