package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
)

func postJoin(t *testing.T, env *testEnv, body map[string]any) (*http.Response, joinResponse) {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(env.srv.URL+"/api/join", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post join: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})

	var joined joinResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&joined); err != nil {
			t.Fatalf("decode join response: %v", err)
		}
	}
	return resp, joined
}

func TestJoinCreatesCampaignForDM(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, joined := postJoin(t, env, map[string]any{
		"campaign_name": "The Sunken Keep",
		"player_name":   "Avery",
		"dm_password":   "mellon",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if joined.Token == "" || joined.CampaignID == "" {
		t.Fatalf("join response = %+v, want token and campaign id", joined)
	}
	if !joined.IsDM {
		t.Fatal("creator should hold the DM seat")
	}

	claims, err := env.sessions.Validate(joined.Token)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.CampaignID != joined.CampaignID || !claims.IsDM {
		t.Fatalf("claims = %+v, want DM claims for %s", claims, joined.CampaignID)
	}
}

func TestJoinCreateRequiresDMPassword(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := postJoin(t, env, map[string]any{
		"campaign_name": "The Sunken Keep",
		"player_name":   "Brin",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestJoinRejectsWrongDMPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	campaignID, _, _ := env.newTable(t)

	resp, _ := postJoin(t, env, map[string]any{
		"campaign_id": campaignID,
		"player_name": "Marn",
		"dm_password": "radagast",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestJoinExistingCampaignAsPlayer(t *testing.T) {
	env := newTestEnv(t, nil)
	campaignID, _, _ := env.newTable(t)

	resp, joined := postJoin(t, env, map[string]any{
		"campaign_id": campaignID,
		"player_name": "Marn",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if joined.IsDM {
		t.Fatal("player join should not grant the DM seat")
	}
	if joined.CampaignID != campaignID {
		t.Fatalf("campaign id = %q, want %q", joined.CampaignID, campaignID)
	}
}

func TestJoinReusesSeatByName(t *testing.T) {
	env := newTestEnv(t, nil)
	campaignID, _, _ := env.newTable(t)

	resp, joined := postJoin(t, env, map[string]any{
		"campaign_id": campaignID,
		"player_name": "Brin",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if joined.PlayerID != "pl-1" {
		t.Fatalf("player id = %q, want existing seat pl-1", joined.PlayerID)
	}
}

func TestJoinUnknownCampaignReturns404(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := postJoin(t, env, map[string]any{
		"campaign_id": "no-such-campaign",
		"player_name": "Brin",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestJoinRequiresPlayerName(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := postJoin(t, env, map[string]any{
		"campaign_id": "camp-1",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListCampaigns(t *testing.T) {
	env := newTestEnv(t, nil)
	campaignID, _, _ := env.newTable(t)

	resp, err := http.Get(env.srv.URL + "/api/campaigns")
	if err != nil {
		t.Fatalf("get campaigns: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Campaigns []campaignSummary `json:"campaigns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode campaigns: %v", err)
	}
	if len(body.Campaigns) != 1 || body.Campaigns[0].ID != campaignID {
		t.Fatalf("campaigns = %+v, want the seeded campaign", body.Campaigns)
	}
}
