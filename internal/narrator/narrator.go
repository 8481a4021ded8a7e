// Package narrator turns player actions into story narration.
//
// Generation is single flight per campaign: while one generation is in
// flight, further actions are recorded and broadcast but do not start a
// second generator call; everyone waits on the in-flight result. A
// generation that outlives the deadline fails open with a system message
// and unlocks the campaign; its late response is still applied unless a
// newer generation has started by the time it arrives.
package narrator

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hearthside/hearthside/internal/game/domain"
	"github.com/hearthside/hearthside/internal/game/state"
	apperrors "github.com/hearthside/hearthside/internal/platform/errors"
	"github.com/hearthside/hearthside/internal/platform/timeouts"
)

// NarratorName is the sender name attached to generated messages.
const NarratorName = "Narrator"

// transcriptWindow is how many trailing messages a generation sees.
const transcriptWindow = 20

const timeoutNotice = "The narrator pauses, lost in thought. The story will continue shortly."
const failureNotice = "The narrator loses the thread of the story for a moment."

// Request carries everything a generator needs to narrate one action.
type Request struct {
	CampaignName string
	ActorName    string
	Action       string
	Transcript   []domain.Message
	Combat       domain.CombatState
}

// Generator produces narration text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Events receives orchestrator side effects for broadcast. Message fanout
// happens through the store's observer, so only status changes flow here.
// Implementations must not block.
type Events interface {
	NarrationStatus(campaignID string, generating bool)
}

type noopEvents struct{}

func (noopEvents) NarrationStatus(string, bool) {}

// flight tracks one in-progress generation.
type flight struct {
	gen      uint64
	timedOut bool
	done     bool
}

// Orchestrator coordinates narration across campaigns.
type Orchestrator struct {
	generator Generator
	events    Events
	timeout   time.Duration

	mu      sync.Mutex
	newest  map[string]uint64
	flights map[string]*flight
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEvents sets the broadcast sink.
func WithEvents(events Events) Option {
	return func(o *Orchestrator) { o.events = events }
}

// WithTimeout overrides the generation deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = timeout }
}

// NewOrchestrator creates an orchestrator around a generator.
func NewOrchestrator(generator Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator: generator,
		events:    noopEvents{},
		timeout:   timeouts.Narration,
		newest:    map[string]uint64{},
		flights:   map[string]*flight{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SubmitAction records the player's action in the transcript and starts a
// narration generation for it unless one is already in flight, in which
// case the action rides along and the in-flight result serves everyone.
// The returned message is the player's own, already sequenced; narration
// lands in the store later and reaches clients through its observer.
func (o *Orchestrator) SubmitAction(ctx context.Context, store *state.Store, playerID, action string) (domain.Message, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return domain.Message{}, apperrors.New(apperrors.CodeUnknown, "action text is required")
	}
	player, ok := store.Player(playerID)
	if !ok {
		return domain.Message{}, apperrors.New(apperrors.CodePlayerNotFound, "player not found")
	}
	if store.Paused() {
		return domain.Message{}, apperrors.New(apperrors.CodeCampaignPaused, "campaign is paused")
	}

	campaignID := store.CampaignID()
	msg := store.AppendMessage(domain.MessageKindPlayer, player.ID, player.Name, action)

	req := Request{
		CampaignName: store.Campaign().Name,
		ActorName:    player.Name,
		Action:       action,
		Transcript:   tail(store.MessagesSince(0), transcriptWindow),
		Combat:       store.Combat(),
	}

	f, started := o.tryBegin(campaignID)
	if !started {
		return msg, nil
	}
	store.SetGenerating(true)
	o.events.NarrationStatus(campaignID, true)
	go o.generate(campaignID, store, f, req)

	return msg, nil
}

// tryBegin registers a new generation as the campaign's newest unless one
// is already in flight. A timed-out flight no longer blocks; its late
// result is handled by the staleness check on arrival.
func (o *Orchestrator) tryBegin(campaignID string) (*flight, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if f, ok := o.flights[campaignID]; ok && !f.done && !f.timedOut {
		return nil, false
	}
	o.newest[campaignID]++
	f := &flight{gen: o.newest[campaignID]}
	o.flights[campaignID] = f
	return f, true
}

func (o *Orchestrator) generate(campaignID string, store *state.Store, f *flight, req Request) {
	timer := time.AfterFunc(o.timeout, func() {
		o.mu.Lock()
		stale := f.done || o.newest[campaignID] != f.gen
		f.timedOut = true
		o.mu.Unlock()
		if stale {
			return
		}
		log.Printf("narrator generation timed out campaign_id=%s generation=%d timeout=%s", campaignID, f.gen, o.timeout)
		store.AppendSystemMessage(timeoutNotice)
		store.SetGenerating(false)
		o.events.NarrationStatus(campaignID, false)
	})
	defer timer.Stop()

	text, err := o.generator.Generate(context.Background(), req)

	o.mu.Lock()
	f.done = true
	stale := o.newest[campaignID] != f.gen
	timedOut := f.timedOut
	o.mu.Unlock()

	if stale {
		log.Printf("narrator generation superseded campaign_id=%s generation=%d", campaignID, f.gen)
		return
	}

	if err != nil {
		log.Printf("narrator generation failed campaign_id=%s generation=%d error=%q", campaignID, f.gen, err)
		if !timedOut {
			store.AppendSystemMessage(failureNotice)
			store.SetGenerating(false)
			o.events.NarrationStatus(campaignID, false)
		}
		return
	}

	store.AppendMessage(domain.MessageKindNarrator, "", NarratorName, strings.TrimSpace(text))
	if !timedOut {
		store.SetGenerating(false)
		o.events.NarrationStatus(campaignID, false)
	}
}

// Generating reports whether the campaign's newest generation is still in
// flight.
func (o *Orchestrator) Generating(campaignID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	f, ok := o.flights[campaignID]
	return ok && !f.done && !f.timedOut
}

func tail(messages []domain.Message, n int) []domain.Message {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
