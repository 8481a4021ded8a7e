package domain

import "strings"

// AbilityModifier derives a modifier from an ability score. The division
// must round toward negative infinity so a score of 9 yields -1.
func AbilityModifier(score int) int {
	diff := score - 10
	if diff < 0 {
		return -((-diff + 1) / 2)
	}
	return diff / 2
}

// ProficiencyBonus returns the bonus for a character level. Levels below 1
// are treated as level 1.
func ProficiencyBonus(level int) int {
	if level < 1 {
		level = 1
	}
	return (level-1)/4 + 2
}

// classHitDice maps a lowercased class name to its hit die size.
var classHitDice = map[string]int{
	"barbarian": 12,
	"fighter":   10,
	"paladin":   10,
	"ranger":    10,
	"bard":      8,
	"cleric":    8,
	"druid":     8,
	"monk":      8,
	"rogue":     8,
	"warlock":   8,
	"sorcerer":  6,
	"wizard":    6,
}

const defaultHitDie = 8

// HitDieForClass returns the hit die size for a class, defaulting to d8 for
// unknown classes.
func HitDieForClass(class string) int {
	if die, ok := classHitDice[strings.ToLower(strings.TrimSpace(class))]; ok {
		return die
	}
	return defaultHitDie
}

// HitPointsForClass computes maximum hit points: full hit die at level 1,
// average (die/2 + 1) per level after, plus the constitution modifier each
// level. Never below 1.
func HitPointsForClass(class string, level, conModifier int) int {
	if level < 1 {
		level = 1
	}
	die := HitDieForClass(class)
	hp := die + conModifier
	if level > 1 {
		hp += (level - 1) * (die/2 + 1 + conModifier)
	}
	if hp < 1 {
		hp = 1
	}
	return hp
}

type armorSpec struct {
	base      int
	maxDexMod int
}

// armorTable maps a lowercased armor name to a base AC and dexterity cap.
// A negative cap means the full dexterity modifier applies.
var armorTable = map[string]armorSpec{
	"padded":          {11, -1},
	"leather":         {11, -1},
	"studded leather": {12, -1},
	"hide":            {12, 2},
	"chain shirt":     {13, 2},
	"scale mail":      {14, 2},
	"breastplate":     {14, 2},
	"half plate":      {15, 2},
	"ring mail":       {14, 0},
	"chain mail":      {16, 0},
	"splint":          {17, 0},
	"plate":           {18, 0},
}

// ArmorClass computes armor class from an armor name, dexterity modifier and
// shield. An empty or unknown armor name means unarmored (10 + dex).
func ArmorClass(dexModifier int, armor string, shield bool) int {
	ac := 10 + dexModifier
	if spec, ok := armorTable[strings.ToLower(strings.TrimSpace(armor))]; ok {
		dex := dexModifier
		if spec.maxDexMod >= 0 && dex > spec.maxDexMod {
			dex = spec.maxDexMod
		}
		ac = spec.base + dex
	}
	if shield {
		ac += 2
	}
	return ac
}
