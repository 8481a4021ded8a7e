package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyCharacterName indicates a missing character name.
	ErrEmptyCharacterName = errors.New("character name is required")
	// ErrEmptyCharacterPlayer indicates a character without an owning player.
	ErrEmptyCharacterPlayer = errors.New("character owning player is required")
	// ErrInvalidHP indicates hit points outside the [0, MaxHP] range.
	ErrInvalidHP = errors.New("hp must be in range 0..max hp")
)

// AbilityScores holds the six core ability scores.
type AbilityScores struct {
	Strength     int
	Dexterity    int
	Constitution int
	Intelligence int
	Wisdom       int
	Charisma     int
}

// DefaultAbilityScores returns the flat 10-across-the-board spread.
func DefaultAbilityScores() AbilityScores {
	return AbilityScores{
		Strength:     10,
		Dexterity:    10,
		Constitution: 10,
		Intelligence: 10,
		Wisdom:       10,
		Charisma:     10,
	}
}

// Item is one inventory entry.
type Item struct {
	ID          string
	Name        string
	Description string
	Quantity    int
	Weight      float64
	Value       int
}

// Character belongs to exactly one player and never exists without one.
//
// Conditions map a label to remaining rounds; zero means untracked duration
// (the label stays until explicitly cleared).
type Character struct {
	ID               string
	PlayerID         string
	Name             string
	Race             string
	Class            string
	Background       string
	Level            int
	Abilities        AbilityScores
	MaxHP            int
	CurrentHP        int
	TempHP           int
	ArmorClass       int
	ProficiencyBonus int
	Skills           map[string]bool
	Actions          []string
	KnownSpells      []string
	Inventory        []Item
	Conditions       map[string]int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreateCharacterInput describes the input for creating a character.
type CreateCharacterInput struct {
	PlayerID   string
	Name       string
	Race       string
	Class      string
	Background string
	Abilities  AbilityScores
}

// CreateCharacter creates a level 1 character with derived HP, AC and
// proficiency bonus computed from the ability scores and class.
func CreateCharacter(input CreateCharacterInput, now func() time.Time, idGenerator func() (string, error)) (Character, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewID
	}

	input.PlayerID = strings.TrimSpace(input.PlayerID)
	if input.PlayerID == "" {
		return Character{}, ErrEmptyCharacterPlayer
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Character{}, ErrEmptyCharacterName
	}

	characterID, err := idGenerator()
	if err != nil {
		return Character{}, fmt.Errorf("generate character id: %w", err)
	}

	level := 1
	maxHP := HitPointsForClass(input.Class, level, AbilityModifier(input.Abilities.Constitution))
	createdAt := now().UTC()

	return Character{
		ID:               characterID,
		PlayerID:         input.PlayerID,
		Name:             input.Name,
		Race:             strings.TrimSpace(input.Race),
		Class:            strings.TrimSpace(input.Class),
		Background:       strings.TrimSpace(input.Background),
		Level:            level,
		Abilities:        input.Abilities,
		MaxHP:            maxHP,
		CurrentHP:        maxHP,
		ArmorClass:       ArmorClass(AbilityModifier(input.Abilities.Dexterity), "", false),
		ProficiencyBonus: ProficiencyBonus(level),
		Skills:           map[string]bool{},
		Conditions:       map[string]int{},
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}, nil
}

// DexModifier returns the character's dexterity modifier, used for initiative.
func (c Character) DexModifier() int {
	return AbilityModifier(c.Abilities.Dexterity)
}

// ValidateHP validates hit points against the character's maximum.
func (c Character) ValidateHP(hp int) error {
	if hp < 0 || hp > c.MaxHP {
		return fmt.Errorf("%w: hp %d, max %d", ErrInvalidHP, hp, c.MaxHP)
	}
	return nil
}

// Clone returns a deep copy safe to hand out of the state store's lock.
func (c Character) Clone() Character {
	clone := c
	clone.Skills = make(map[string]bool, len(c.Skills))
	for k, v := range c.Skills {
		clone.Skills[k] = v
	}
	clone.Conditions = make(map[string]int, len(c.Conditions))
	for k, v := range c.Conditions {
		clone.Conditions[k] = v
	}
	clone.Actions = append([]string(nil), c.Actions...)
	clone.KnownSpells = append([]string(nil), c.KnownSpells...)
	clone.Inventory = append([]Item(nil), c.Inventory...)
	return clone
}
