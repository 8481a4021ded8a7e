package domain

// CombatPhase is the lifecycle phase of a campaign's combat encounter.
type CombatPhase string

const (
	// CombatPhaseIdle means no encounter exists.
	CombatPhaseIdle CombatPhase = "idle"
	// CombatPhaseSetup means the DM is assembling combatants.
	CombatPhaseSetup CombatPhase = "setup"
	// CombatPhaseActive means initiative is rolled and turns advance.
	CombatPhaseActive CombatPhase = "active"
	// CombatPhaseEnded means the encounter finished and its state was discarded.
	CombatPhaseEnded CombatPhase = "ended"
)

// Combatant is one participant in an encounter. Initiative is the rolled
// total, Modifier the dexterity modifier used to break ties.
type Combatant struct {
	ID          string
	Name        string
	Initiative  int
	Modifier    int
	CurrentHP   int
	MaxHP       int
	IsPlayer    bool
	CharacterID string
	Conditions  map[string]int
}

// Clone returns a deep copy of the combatant.
func (c Combatant) Clone() Combatant {
	clone := c
	clone.Conditions = make(map[string]int, len(c.Conditions))
	for k, v := range c.Conditions {
		clone.Conditions[k] = v
	}
	return clone
}

// CombatState is the full encounter state. Order holds combatants in
// initiative order once rolled; TurnIndex points into Order during the
// active phase. Round starts at 1 when combat begins.
type CombatState struct {
	Phase     CombatPhase
	Order     []Combatant
	TurnIndex int
	Round     int
}

// NewCombatState returns an idle encounter.
func NewCombatState() CombatState {
	return CombatState{Phase: CombatPhaseIdle}
}

// Current returns the combatant whose turn it is, or false outside the
// active phase.
func (s CombatState) Current() (Combatant, bool) {
	if s.Phase != CombatPhaseActive || len(s.Order) == 0 {
		return Combatant{}, false
	}
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.Order) {
		return Combatant{}, false
	}
	return s.Order[s.TurnIndex], true
}

// Clone returns a deep copy of the combat state.
func (s CombatState) Clone() CombatState {
	clone := s
	clone.Order = make([]Combatant, len(s.Order))
	for i, c := range s.Order {
		clone.Order[i] = c.Clone()
	}
	return clone
}
