// Package combat drives the combat encounter lifecycle for a campaign.
//
// Every transition is DM-gated and runs under the owning campaign's state
// lock, so two DM clients racing the same transition resolve to one winner
// and one INVALID_TRANSITION error.
package combat

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/hearthside/hearthside/internal/core/dice"
	"github.com/hearthside/hearthside/internal/game/domain"
	"github.com/hearthside/hearthside/internal/game/state"
	apperrors "github.com/hearthside/hearthside/internal/platform/errors"
	"github.com/hearthside/hearthside/internal/random"
)

// Coordinator applies encounter transitions to one campaign's combat state.
type Coordinator struct {
	store       *state.Store
	seed        func() (int64, error)
	idGenerator func() (string, error)
}

// NewCoordinator creates a coordinator for the campaign behind store. The
// seed function is injectable for deterministic tests and defaults to
// random.NewSeed.
func NewCoordinator(store *state.Store, seed func() (int64, error), idGenerator func() (string, error)) *Coordinator {
	if seed == nil {
		seed = random.NewSeed
	}
	if idGenerator == nil {
		idGenerator = domain.NewID
	}
	return &Coordinator{store: store, seed: seed, idGenerator: idGenerator}
}

// AddCombatantInput describes a participant to add during setup.
type AddCombatantInput struct {
	Name        string
	Modifier    int
	MaxHP       int
	IsPlayer    bool
	CharacterID string
}

func (c *Coordinator) requireDM(actorID string) error {
	if !c.store.IsDM(actorID) {
		return apperrors.New(apperrors.CodeForbidden, "only the DM may manage combat")
	}
	return nil
}

func transitionError(operation string, phase domain.CombatPhase) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidTransition, "invalid combat transition", map[string]string{
		"Operation": operation,
		"Phase":     string(phase),
	})
}

// State returns a deep copy of the current combat state.
func (c *Coordinator) State() domain.CombatState {
	return c.store.Combat()
}

// StartSetup opens a new encounter for combatant assembly, seeding the
// order with every existing player character. Allowed from the idle and
// ended phases only.
func (c *Coordinator) StartSetup(actorID string) (domain.CombatState, error) {
	if err := c.requireDM(actorID); err != nil {
		return domain.CombatState{}, err
	}

	characters := c.store.Characters()
	order := make([]domain.Combatant, 0, len(characters))
	for _, character := range characters {
		combatantID, err := c.idGenerator()
		if err != nil {
			return domain.CombatState{}, fmt.Errorf("generate combatant id: %w", err)
		}
		order = append(order, domain.Combatant{
			ID:          combatantID,
			Name:        character.Name,
			Modifier:    character.DexModifier(),
			CurrentHP:   character.CurrentHP,
			MaxHP:       character.MaxHP,
			IsPlayer:    true,
			CharacterID: character.ID,
			Conditions:  map[string]int{},
		})
	}

	return c.store.UpdateCombat(func(cs *domain.CombatState) error {
		if cs.Phase != domain.CombatPhaseIdle && cs.Phase != domain.CombatPhaseEnded {
			return transitionError("start setup", cs.Phase)
		}
		*cs = domain.CombatState{Phase: domain.CombatPhaseSetup, Order: order}
		return nil
	})
}

// AddCombatant registers a participant during setup.
func (c *Coordinator) AddCombatant(actorID string, input AddCombatantInput) (domain.CombatState, error) {
	if err := c.requireDM(actorID); err != nil {
		return domain.CombatState{}, err
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return domain.CombatState{}, apperrors.New(apperrors.CodeCombatantInvalid, "combatant name is required")
	}
	if input.MaxHP < 1 {
		return domain.CombatState{}, apperrors.New(apperrors.CodeCombatantInvalid, "combatant max hp must be positive")
	}
	combatantID, err := c.idGenerator()
	if err != nil {
		return domain.CombatState{}, fmt.Errorf("generate combatant id: %w", err)
	}

	return c.store.UpdateCombat(func(cs *domain.CombatState) error {
		if cs.Phase != domain.CombatPhaseSetup {
			return transitionError("add combatant", cs.Phase)
		}
		cs.Order = append(cs.Order, domain.Combatant{
			ID:          combatantID,
			Name:        input.Name,
			Modifier:    input.Modifier,
			CurrentHP:   input.MaxHP,
			MaxHP:       input.MaxHP,
			IsPlayer:    input.IsPlayer,
			CharacterID: input.CharacterID,
			Conditions:  map[string]int{},
		})
		return nil
	})
}

// RemoveCombatant drops a participant during setup.
func (c *Coordinator) RemoveCombatant(actorID, combatantID string) (domain.CombatState, error) {
	if err := c.requireDM(actorID); err != nil {
		return domain.CombatState{}, err
	}
	return c.store.UpdateCombat(func(cs *domain.CombatState) error {
		if cs.Phase != domain.CombatPhaseSetup {
			return transitionError("remove combatant", cs.Phase)
		}
		for i, combatant := range cs.Order {
			if combatant.ID == combatantID {
				cs.Order = append(cs.Order[:i], cs.Order[i+1:]...)
				return nil
			}
		}
		return apperrors.New(apperrors.CodeCombatantNotFound, "combatant not found")
	})
}

// Begin rolls initiative and activates the encounter. Each combatant rolls
// d20 plus its modifier from one seeded sequence in insertion order, then
// the order sorts by initiative descending. Ties break on the higher
// modifier, then on insertion order.
func (c *Coordinator) Begin(actorID string) (domain.CombatState, error) {
	if err := c.requireDM(actorID); err != nil {
		return domain.CombatState{}, err
	}
	seed, err := c.seed()
	if err != nil {
		return domain.CombatState{}, fmt.Errorf("initiative seed: %w", err)
	}

	updated, err := c.store.UpdateCombat(func(cs *domain.CombatState) error {
		if cs.Phase != domain.CombatPhaseSetup {
			return transitionError("begin combat", cs.Phase)
		}
		if len(cs.Order) == 0 {
			return transitionError("begin combat without combatants", cs.Phase)
		}

		rng := rand.New(rand.NewSource(seed))
		for i := range cs.Order {
			result, rollErr := dice.RollWithRng(rng, []dice.Spec{{Sides: 20, Count: 1}})
			if rollErr != nil {
				return rollErr
			}
			cs.Order[i].Initiative = result.Total + cs.Order[i].Modifier
		}

		sort.SliceStable(cs.Order, func(a, b int) bool {
			if cs.Order[a].Initiative != cs.Order[b].Initiative {
				return cs.Order[a].Initiative > cs.Order[b].Initiative
			}
			return cs.Order[a].Modifier > cs.Order[b].Modifier
		})

		cs.Phase = domain.CombatPhaseActive
		cs.TurnIndex = 0
		cs.Round = 1
		return nil
	})
	if err != nil {
		return domain.CombatState{}, err
	}

	c.store.ResetReady()
	first := updated.Order[0]
	c.store.AppendSystemMessage(fmt.Sprintf("Combat begins! Round 1: %s acts first.", first.Name))
	return updated, nil
}

// AdvanceTurn moves to the next combatant, wrapping to a new round at the
// end of the order. Timed conditions on the combatant whose turn starts
// tick down and expire at zero. Player readiness resets when a new round
// begins.
func (c *Coordinator) AdvanceTurn(actorID string) (domain.CombatState, error) {
	if err := c.requireDM(actorID); err != nil {
		return domain.CombatState{}, err
	}

	wrapped := false
	updated, err := c.store.UpdateCombat(func(cs *domain.CombatState) error {
		if cs.Phase != domain.CombatPhaseActive {
			return transitionError("advance turn", cs.Phase)
		}
		cs.TurnIndex++
		if cs.TurnIndex >= len(cs.Order) {
			cs.TurnIndex = 0
			cs.Round++
			wrapped = true
		}
		current := &cs.Order[cs.TurnIndex]
		for condition, rounds := range current.Conditions {
			if rounds <= 0 {
				continue
			}
			if rounds == 1 {
				delete(current.Conditions, condition)
			} else {
				current.Conditions[condition] = rounds - 1
			}
		}
		return nil
	})
	if err != nil {
		return domain.CombatState{}, err
	}

	current := updated.Order[updated.TurnIndex]
	if wrapped {
		// Readiness is per round, so it only resets when a new one starts.
		c.store.ResetReady()
		c.store.AppendSystemMessage(fmt.Sprintf("Round %d begins! %s acts first.", updated.Round, current.Name))
	} else {
		c.store.AppendSystemMessage(fmt.Sprintf("Round %d: it is %s's turn.", updated.Round, current.Name))
	}
	return updated, nil
}

// ApplyDamage subtracts hit points from a combatant, clamping at zero.
// A combatant dropping to zero gains the unconscious condition, and any
// linked character stays in sync within the same critical section.
func (c *Coordinator) ApplyDamage(actorID, combatantID string, amount int) (domain.CombatState, error) {
	return c.adjustHP(actorID, combatantID, "apply damage", -amount)
}

// ApplyHeal restores hit points to a combatant, clamping at MaxHP.
// Healing above zero clears the unconscious condition, and any linked
// character stays in sync within the same critical section.
func (c *Coordinator) ApplyHeal(actorID, combatantID string, amount int) (domain.CombatState, error) {
	return c.adjustHP(actorID, combatantID, "apply healing", amount)
}

func (c *Coordinator) adjustHP(actorID, combatantID, operation string, delta int) (domain.CombatState, error) {
	if err := c.requireDM(actorID); err != nil {
		return domain.CombatState{}, err
	}
	updated, downed, err := c.store.AdjustCombatantHP(operation, combatantID, delta)
	if err != nil {
		return domain.CombatState{}, err
	}
	if downed != "" {
		c.store.AppendSystemMessage(fmt.Sprintf("%s falls unconscious!", downed))
	}
	return updated, nil
}

// SetCondition applies a condition to a combatant. rounds of zero keeps
// the condition until cleared.
func (c *Coordinator) SetCondition(actorID, combatantID, condition string, rounds int) (domain.CombatState, error) {
	if err := c.requireDM(actorID); err != nil {
		return domain.CombatState{}, err
	}
	condition = strings.TrimSpace(strings.ToLower(condition))
	if condition == "" {
		return domain.CombatState{}, apperrors.New(apperrors.CodeCombatantInvalid, "condition name is required")
	}
	return c.store.UpdateCombat(func(cs *domain.CombatState) error {
		if cs.Phase != domain.CombatPhaseActive {
			return transitionError("set condition", cs.Phase)
		}
		for i := range cs.Order {
			if cs.Order[i].ID == combatantID {
				if cs.Order[i].Conditions == nil {
					cs.Order[i].Conditions = map[string]int{}
				}
				cs.Order[i].Conditions[condition] = rounds
				return nil
			}
		}
		return apperrors.New(apperrors.CodeCombatantNotFound, "combatant not found")
	})
}

// ClearCondition removes a condition from a combatant.
func (c *Coordinator) ClearCondition(actorID, combatantID, condition string) (domain.CombatState, error) {
	if err := c.requireDM(actorID); err != nil {
		return domain.CombatState{}, err
	}
	condition = strings.TrimSpace(strings.ToLower(condition))
	return c.store.UpdateCombat(func(cs *domain.CombatState) error {
		if cs.Phase != domain.CombatPhaseActive {
			return transitionError("clear condition", cs.Phase)
		}
		for i := range cs.Order {
			if cs.Order[i].ID == combatantID {
				delete(cs.Order[i].Conditions, condition)
				return nil
			}
		}
		return apperrors.New(apperrors.CodeCombatantNotFound, "combatant not found")
	})
}

// End finishes the encounter. Allowed from setup, which cancels it, and
// from the active phase. The order, turn index and round counter are
// discarded either way.
func (c *Coordinator) End(actorID string) (domain.CombatState, error) {
	if err := c.requireDM(actorID); err != nil {
		return domain.CombatState{}, err
	}
	updated, err := c.store.UpdateCombat(func(cs *domain.CombatState) error {
		if cs.Phase != domain.CombatPhaseSetup && cs.Phase != domain.CombatPhaseActive {
			return transitionError("end combat", cs.Phase)
		}
		*cs = domain.CombatState{Phase: domain.CombatPhaseEnded}
		return nil
	})
	if err != nil {
		return domain.CombatState{}, err
	}
	c.store.AppendSystemMessage("Combat has ended.")
	return updated, nil
}
