package gateway

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/hearthside/hearthside/internal/game/domain"
	"github.com/hearthside/hearthside/internal/game/state"
	apperrors "github.com/hearthside/hearthside/internal/platform/errors"
)

const maxJoinBodyBytes = 4 * 1024

type joinRequest struct {
	CampaignID   string `json:"campaign_id,omitempty"`
	CampaignName string `json:"campaign_name,omitempty"`
	PlayerName   string `json:"player_name"`
	DMPassword   string `json:"dm_password,omitempty"`
}

type joinResponse struct {
	Token      string `json:"token"`
	CampaignID string `json:"campaign_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	IsDM       bool   `json:"is_dm"`
}

type campaignSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Paused bool   `json:"paused"`
}

// handleJoin issues a session token for a campaign seat. Supplying
// campaign_name without campaign_id creates the campaign, which requires
// the DM password.
func (g *Gateway) handleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeAPIError(w, apperrors.New(apperrors.CodeUnknown, "method not allowed"))
		return
	}

	var req joinRequest
	body := http.MaxBytesReader(w, r.Body, maxJoinBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeAPIError(w, apperrors.New(apperrors.CodeUnknown, "invalid request body"))
		return
	}

	req.PlayerName = strings.TrimSpace(req.PlayerName)
	if req.PlayerName == "" {
		writeAPIError(w, apperrors.New(apperrors.CodePlayerNameEmpty, "player name is required"))
		return
	}

	isDM := g.dmPassword != "" && req.DMPassword != "" &&
		subtle.ConstantTimeCompare([]byte(req.DMPassword), []byte(g.dmPassword)) == 1
	if req.DMPassword != "" && !isDM {
		writeAPIError(w, apperrors.New(apperrors.CodeForbidden, "DM password does not match"))
		return
	}

	var (
		store *state.Store
		err   error
	)
	switch {
	case req.CampaignID != "":
		store, err = g.registry.Get(r.Context(), req.CampaignID)
	case req.CampaignName != "":
		if !isDM {
			writeAPIError(w, apperrors.New(apperrors.CodeForbidden, "only the DM may create a campaign"))
			return
		}
		store, err = g.registry.Create(r.Context(), req.CampaignName)
	default:
		writeAPIError(w, apperrors.New(apperrors.CodeCampaignNotFound, "campaign_id or campaign_name is required"))
		return
	}
	if err != nil {
		writeAPIError(w, err)
		return
	}

	player, found := g.findPlayerByName(store, req.PlayerName)
	if found && player.IsDM != isDM {
		writeAPIError(w, apperrors.New(apperrors.CodeForbidden, "that seat is already taken"))
		return
	}
	if !found {
		player, err = domain.CreatePlayer(domain.CreatePlayerInput{Name: req.PlayerName, IsDM: isDM}, g.now, nil)
		if err != nil {
			writeAPIError(w, apperrors.Wrap(apperrors.CodePlayerNameEmpty, "create player", err))
			return
		}
		store.UpsertPlayer(player)
		if err := g.registry.Save(r.Context(), store.CampaignID()); err != nil {
			log.Printf("save campaign on join failed campaign_id=%s error=%q", store.CampaignID(), err)
		}
	}

	token, err := g.sessions.Issue(store.CampaignID(), player.ID, player.Name, player.IsDM)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, joinResponse{
		Token:      token,
		CampaignID: store.CampaignID(),
		PlayerID:   player.ID,
		PlayerName: player.Name,
		IsDM:       player.IsDM,
	})
}

// handleListCampaigns lists saved campaigns so clients can offer a picker.
func (g *Gateway) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeAPIError(w, apperrors.New(apperrors.CodeUnknown, "method not allowed"))
		return
	}

	campaigns, err := g.registry.List(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	summaries := make([]campaignSummary, 0, len(campaigns))
	for _, campaign := range campaigns {
		summaries = append(summaries, campaignSummary{
			ID:     campaign.ID,
			Name:   campaign.Name,
			Paused: campaign.Paused,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Campaigns []campaignSummary `json:"campaigns"`
	}{summaries})
}

// findPlayerByName matches an existing seat so a returning player keeps
// their identity after losing the token.
func (g *Gateway) findPlayerByName(store *state.Store, name string) (domain.Player, bool) {
	for _, player := range store.Snapshot().Players {
		if strings.EqualFold(player.Name, name) {
			return player, true
		}
	}
	return domain.Player{}, false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response failed error=%q", err)
	}
}

func writeAPIError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	writeJSON(w, code.HTTPStatus(), wsErrorEnvelope{Error: wsError{
		Code:    string(code),
		Message: err.Error(),
	}})
}
