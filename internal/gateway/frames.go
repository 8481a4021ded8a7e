package gateway

import (
	"encoding/json"
	"log"

	"github.com/hearthside/hearthside/internal/game/domain"
	"github.com/hearthside/hearthside/internal/game/state"
)

// wsFrame is the framing for every websocket message in both directions.
type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Inbound payloads.

type joinFramePayload struct {
	Token   string `json:"token"`
	LastSeq uint64 `json:"last_seq,omitempty"`
}

type actionPayload struct {
	Text string `json:"text"`
}

type readyPayload struct {
	Ready bool `json:"ready"`
}

type rollPayload struct {
	Notation string `json:"notation"`
}

type historyPayload struct {
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type pausePayload struct {
	Paused bool `json:"paused"`
}

type characterCreatePayload struct {
	Name       string `json:"name"`
	Race       string `json:"race,omitempty"`
	Class      string `json:"class,omitempty"`
	Background string `json:"background,omitempty"`
	// Method selects how ability scores are assigned: "point_buy" and
	// "standard" use Abilities, "roll" ignores it and rolls 4d6 drop
	// lowest per score.
	Method    string         `json:"method,omitempty"`
	Abilities map[string]int `json:"abilities,omitempty"`
}

type combatPayload struct {
	Op          string `json:"op"`
	CombatantID string `json:"combatant_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Modifier    int    `json:"modifier,omitempty"`
	MaxHP       int    `json:"max_hp,omitempty"`
	IsPlayer    bool   `json:"is_player,omitempty"`
	CharacterID string `json:"character_id,omitempty"`
	Amount      int    `json:"amount,omitempty"`
	Condition   string `json:"condition,omitempty"`
	Rounds      int    `json:"rounds,omitempty"`
}

// Outbound payloads.

type joinedPayload struct {
	CampaignID string `json:"campaign_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	IsDM       bool   `json:"is_dm"`
	LastSeq    uint64 `json:"last_seq"`
	ServerTime string `json:"server_time"`
}

type playerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDM      bool   `json:"is_dm"`
	Connected bool   `json:"connected"`
	Ready     bool   `json:"ready"`
}

type characterView struct {
	ID               string               `json:"id"`
	PlayerID         string               `json:"player_id"`
	Name             string               `json:"name"`
	Race             string               `json:"race,omitempty"`
	Class            string               `json:"class,omitempty"`
	Background       string               `json:"background,omitempty"`
	Level            int                  `json:"level"`
	Abilities        domain.AbilityScores `json:"abilities"`
	MaxHP            int                  `json:"max_hp"`
	CurrentHP        int                  `json:"current_hp"`
	TempHP           int                  `json:"temp_hp,omitempty"`
	ArmorClass       int                  `json:"armor_class"`
	ProficiencyBonus int                  `json:"proficiency_bonus"`
	Conditions       map[string]int       `json:"conditions,omitempty"`
}

type messageView struct {
	Seq        uint64 `json:"seq"`
	Kind       string `json:"kind"`
	SenderID   string `json:"sender_id,omitempty"`
	SenderName string `json:"sender_name"`
	Text       string `json:"text"`
	SentAt     string `json:"sent_at"`
}

type combatantView struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Initiative int            `json:"initiative"`
	CurrentHP  int            `json:"current_hp"`
	MaxHP      int            `json:"max_hp"`
	IsPlayer   bool           `json:"is_player"`
	Conditions map[string]int `json:"conditions,omitempty"`
}

type combatView struct {
	Phase     string          `json:"phase"`
	Order     []combatantView `json:"order,omitempty"`
	TurnIndex int             `json:"turn_index"`
	Round     int             `json:"round"`
}

type snapshotPayload struct {
	CampaignID   string          `json:"campaign_id"`
	CampaignName string          `json:"campaign_name"`
	Paused       bool            `json:"paused"`
	Players      []playerView    `json:"players"`
	Characters   []characterView `json:"characters"`
	Messages     []messageView   `json:"messages"`
	Combat       combatView      `json:"combat"`
	Generating   bool            `json:"generating"`
	LastSeq      uint64          `json:"last_seq"`
}

type statusPayload struct {
	Generating bool `json:"generating"`
}

type presencePayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Connected  bool   `json:"connected"`
}

type rollResultPayload struct {
	PlayerID string `json:"player_id"`
	Notation string `json:"notation"`
	Results  []int  `json:"results"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
}

type historyResultPayload struct {
	Messages []messageView `json:"messages"`
	Cursor   string        `json:"cursor,omitempty"`
	HasMore  bool          `json:"has_more"`
}

type ackPayload struct {
	Status string `json:"status"`
	Seq    uint64 `json:"seq,omitempty"`
}

func messageToView(msg domain.Message) messageView {
	return messageView{
		Seq:        msg.Seq,
		Kind:       string(msg.Kind),
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		SentAt:     msg.CreatedAt.Format(timeFormat),
	}
}

func combatToView(cs domain.CombatState) combatView {
	view := combatView{
		Phase:     string(cs.Phase),
		TurnIndex: cs.TurnIndex,
		Round:     cs.Round,
	}
	for _, combatant := range cs.Order {
		view.Order = append(view.Order, combatantView{
			ID:         combatant.ID,
			Name:       combatant.Name,
			Initiative: combatant.Initiative,
			CurrentHP:  combatant.CurrentHP,
			MaxHP:      combatant.MaxHP,
			IsPlayer:   combatant.IsPlayer,
			Conditions: combatant.Conditions,
		})
	}
	return view
}

func snapshotToPayload(snap state.Snapshot, afterSeq uint64) snapshotPayload {
	payload := snapshotPayload{
		CampaignID:   snap.Campaign.ID,
		CampaignName: snap.Campaign.Name,
		Paused:       snap.Campaign.Paused,
		Players:      make([]playerView, 0, len(snap.Players)),
		Characters:   make([]characterView, 0, len(snap.Characters)),
		Combat:       combatToView(snap.Combat),
		Generating:   snap.Generating,
		LastSeq:      snap.LastSeq,
	}
	for _, player := range snap.Players {
		payload.Players = append(payload.Players, playerView{
			ID:        player.ID,
			Name:      player.Name,
			IsDM:      player.IsDM,
			Connected: player.Connected,
			Ready:     player.Ready,
		})
	}
	for _, character := range snap.Characters {
		payload.Characters = append(payload.Characters, characterView{
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
			TempHP:           character.TempHP,
			ArmorClass:       character.ArmorClass,
			ProficiencyBonus: character.ProficiencyBonus,
			Conditions:       character.Conditions,
		})
	}
	// Reconnecting clients already hold messages up to afterSeq; replay
	// only what they missed.
	payload.Messages = make([]messageView, 0, len(snap.Messages))
	for _, msg := range snap.Messages {
		if msg.Seq > afterSeq {
			payload.Messages = append(payload.Messages, messageToView(msg))
		}
	}
	return payload
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
