package state

import (
	"sync"
	"testing"
	"time"

	"github.com/hearthside/hearthside/internal/game/domain"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func testCampaign() domain.Campaign {
	return domain.Campaign{ID: "camp-1", Name: "Test Campaign", CreatedAt: fixedNow(), UpdatedAt: fixedNow()}
}

func testPlayer(id string, isDM bool) domain.Player {
	return domain.Player{ID: id, Name: "Player " + id, IsDM: isDM, JoinedAt: fixedNow()}
}

func TestAppendMessageSequence(t *testing.T) {
	store := NewStore(testCampaign(), fixedNow)

	first := store.AppendMessage(domain.MessageKindPlayer, "p1", "Mira", "hello")
	if first.Seq != 1 {
		t.Fatalf("first Seq = %d, want 1", first.Seq)
	}
	second := store.AppendSystemMessage("combat begins")
	if second.Seq != 2 {
		t.Fatalf("second Seq = %d, want 2", second.Seq)
	}
	if store.LastSeq() != 2 {
		t.Fatalf("LastSeq() = %d, want 2", store.LastSeq())
	}
}

func TestAppendMessageConcurrent(t *testing.T) {
	store := NewStore(testCampaign(), nil)

	const writers = 8
	const perWriter = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				store.AppendMessage(domain.MessageKindPlayer, "p", "P", "msg")
			}
		}()
	}
	wg.Wait()

	messages := store.MessagesSince(0)
	if len(messages) != writers*perWriter {
		t.Fatalf("message count = %d, want %d", len(messages), writers*perWriter)
	}
	for i, m := range messages {
		if m.Seq != uint64(i+1) {
			t.Fatalf("messages[%d].Seq = %d, want %d (sequence must be gap free)", i, m.Seq, i+1)
		}
	}
}

func TestObserveDeliversInCommitOrder(t *testing.T) {
	store := NewStore(testCampaign(), nil)

	// The observer runs under the store lock, so appending to a plain
	// slice here is already serialized.
	var seen []uint64
	store.Observe(func(msg domain.Message) {
		seen = append(seen, msg.Seq)
	})

	const writers = 8
	const perWriter = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				store.AppendMessage(domain.MessageKindPlayer, "p", "P", "msg")
			}
		}()
	}
	wg.Wait()

	if len(seen) != writers*perWriter {
		t.Fatalf("observed %d messages, want %d delivered exactly once", len(seen), writers*perWriter)
	}
	for i, seq := range seen {
		if seq != uint64(i+1) {
			t.Fatalf("seen[%d] = %d, want %d (delivery must match commit order)", i, seq, i+1)
		}
	}
}

func TestMessagesSince(t *testing.T) {
	store := NewStore(testCampaign(), fixedNow)
	for i := 0; i < 5; i++ {
		store.AppendSystemMessage("msg")
	}

	since := store.MessagesSince(3)
	if len(since) != 2 {
		t.Fatalf("MessagesSince(3) returned %d messages, want 2", len(since))
	}
	if since[0].Seq != 4 || since[1].Seq != 5 {
		t.Fatalf("MessagesSince(3) seqs = %d, %d, want 4, 5", since[0].Seq, since[1].Seq)
	}
}

func TestReadiness(t *testing.T) {
	store := NewStore(testCampaign(), fixedNow)
	dm := testPlayer("dm", true)
	dm.Connected = true
	p1 := testPlayer("p1", false)
	p1.Connected = true
	p2 := testPlayer("p2", false)
	p2.Connected = true
	store.UpsertPlayer(dm)
	store.UpsertPlayer(p1)
	store.UpsertPlayer(p2)

	if store.AllReady() {
		t.Fatal("AllReady() = true before anyone is ready")
	}
	if err := store.SetReady("p1", true); err != nil {
		t.Fatalf("SetReady(p1) error = %v", err)
	}
	if store.AllReady() {
		t.Fatal("AllReady() = true with one player pending")
	}
	if err := store.SetReady("p2", true); err != nil {
		t.Fatalf("SetReady(p2) error = %v", err)
	}
	if !store.AllReady() {
		t.Fatal("AllReady() = false with every player ready; DM readiness must not count")
	}

	store.ResetReady()
	if store.AllReady() {
		t.Fatal("AllReady() = true after ResetReady")
	}
}

func TestAllReadyIgnoresDisconnected(t *testing.T) {
	store := NewStore(testCampaign(), fixedNow)
	p1 := testPlayer("p1", false)
	p1.Connected = true
	p1.Ready = true
	p2 := testPlayer("p2", false)
	store.UpsertPlayer(p1)
	store.UpsertPlayer(p2)

	if !store.AllReady() {
		t.Fatal("AllReady() = false; disconnected players must not block readiness")
	}
}

func TestSetConnectedClearsReady(t *testing.T) {
	store := NewStore(testCampaign(), fixedNow)
	p := testPlayer("p1", false)
	p.Connected = true
	p.Ready = true
	store.UpsertPlayer(p)

	if err := store.SetConnected("p1", false); err != nil {
		t.Fatalf("SetConnected() error = %v", err)
	}
	got, _ := store.Player("p1")
	if got.Ready {
		t.Fatal("disconnect must clear the ready flag")
	}
}

func TestSetCharacterHPClamps(t *testing.T) {
	store := NewStore(testCampaign(), fixedNow)
	store.AddCharacter(domain.Character{ID: "c1", PlayerID: "p1", Name: "Mira", MaxHP: 20, CurrentHP: 20})

	tests := []struct {
		name string
		hp   int
		want int
	}{
		{"below zero clamps to zero", -5, 0},
		{"above max clamps to max", 25, 20},
		{"in range stays", 7, 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.SetCharacterHP("c1", tc.hp)
			if err != nil {
				t.Fatalf("SetCharacterHP() error = %v", err)
			}
			if got.CurrentHP != tc.want {
				t.Fatalf("CurrentHP = %d, want %d", got.CurrentHP, tc.want)
			}
		})
	}
}

func TestSnapshotIsolation(t *testing.T) {
	store := NewStore(testCampaign(), fixedNow)
	store.UpsertPlayer(testPlayer("p1", false))
	store.AddCharacter(domain.Character{ID: "c1", PlayerID: "p1", Name: "Mira", MaxHP: 10, CurrentHP: 10, Conditions: map[string]int{}})
	store.AppendSystemMessage("welcome")

	snap := store.Snapshot()
	snap.Players[0].Name = "mutated"
	snap.Characters[0].Conditions["stunned"] = 1
	snap.Messages[0].Text = "mutated"

	fresh := store.Snapshot()
	if fresh.Players[0].Name == "mutated" {
		t.Fatal("snapshot player mutation leaked into store")
	}
	if len(fresh.Characters[0].Conditions) != 0 {
		t.Fatal("snapshot character mutation leaked into store")
	}
	if fresh.Messages[0].Text == "mutated" {
		t.Fatal("snapshot message mutation leaked into store")
	}
}

func TestHydrateRestoresSequence(t *testing.T) {
	store := NewStore(testCampaign(), fixedNow)
	store.Hydrate(
		[]domain.Player{{ID: "p1", Name: "Mira", Connected: true, Ready: true}},
		nil,
		[]domain.Message{{Seq: 41, Kind: domain.MessageKindPlayer, Text: "a"}, {Seq: 42, Kind: domain.MessageKindSystem, Text: "b"}},
	)

	msg := store.AppendSystemMessage("resumed")
	if msg.Seq != 43 {
		t.Fatalf("Seq after hydrate = %d, want 43", msg.Seq)
	}
	player, ok := store.Player("p1")
	if !ok {
		t.Fatal("hydrated player missing")
	}
	if player.Connected || player.Ready {
		t.Fatal("hydrated players must start disconnected and not ready")
	}
}
