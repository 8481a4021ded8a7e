package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidNotation indicates a dice expression that does not parse.
	ErrInvalidNotation = errors.New("invalid dice notation")
	// ErrPointBuyScore indicates an ability score outside the point-buy range.
	ErrPointBuyScore = errors.New("point buy score must be in range 8..15")
)

// maxNotationCount caps the number of dice a single notation may request.
const maxNotationCount = 100

// standardSides lists the die sizes accepted in player-facing notation.
var standardSides = map[int]struct{}{4: {}, 6: {}, 8: {}, 10: {}, 12: {}, 20: {}, 100: {}}

var notationPattern = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

// Notation is a parsed player-facing dice expression like "2d6+3".
type Notation struct {
	Spec     Spec
	Modifier int
}

// ParseNotation parses expressions of the form "[count]d<sides>[+/-modifier]".
//
// Count defaults to 1 and is capped at 100; sides must be one of the
// standard die sizes (4, 6, 8, 10, 12, 20, 100).
func ParseNotation(input string) (Notation, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	match := notationPattern.FindStringSubmatch(normalized)
	if match == nil {
		return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, input)
	}

	count := 1
	if match[1] != "" {
		parsed, err := strconv.Atoi(match[1])
		if err != nil {
			return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, input)
		}
		count = parsed
	}
	if count < 1 || count > maxNotationCount {
		return Notation{}, fmt.Errorf("%w: count %d out of range", ErrInvalidNotation, count)
	}

	sides, err := strconv.Atoi(match[2])
	if err != nil {
		return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, input)
	}
	if _, ok := standardSides[sides]; !ok {
		return Notation{}, fmt.Errorf("%w: d%d is not a standard die", ErrInvalidNotation, sides)
	}

	modifier := 0
	if match[3] != "" {
		parsed, err := strconv.Atoi(match[3])
		if err != nil {
			return Notation{}, fmt.Errorf("%w: %q", ErrInvalidNotation, input)
		}
		modifier = parsed
	}

	return Notation{
		Spec:     Spec{Sides: sides, Count: count},
		Modifier: modifier,
	}, nil
}

// NotationResult holds the outcome of rolling a parsed dice expression.
type NotationResult struct {
	Notation string
	Results  []int
	Modifier int
	Total    int
}

// RollNotation parses and rolls a dice expression with a deterministic seed.
func RollNotation(input string, seed int64) (NotationResult, error) {
	rng := rand.New(rand.NewSource(seed))
	return RollNotationWithRng(rng, input)
}

// RollNotationWithRng parses and rolls a dice expression from an existing source.
func RollNotationWithRng(rng *rand.Rand, input string) (NotationResult, error) {
	notation, err := ParseNotation(input)
	if err != nil {
		return NotationResult{}, err
	}

	result, err := RollWithRng(rng, []Spec{notation.Spec})
	if err != nil {
		return NotationResult{}, err
	}

	return NotationResult{
		Notation: strings.ToLower(strings.TrimSpace(input)),
		Results:  result.Rolls[0].Results,
		Modifier: notation.Modifier,
		Total:    result.Total + notation.Modifier,
	}, nil
}

// Describe renders the roll in the "Rolled 2d6+3: [4, 2] + 3 = 9" form.
func (r NotationResult) Describe() string {
	parts := make([]string, len(r.Results))
	for i, v := range r.Results {
		parts[i] = strconv.Itoa(v)
	}
	description := fmt.Sprintf("Rolled %s: [%s]", r.Notation, strings.Join(parts, ", "))
	if r.Modifier > 0 {
		description += fmt.Sprintf(" + %d", r.Modifier)
	} else if r.Modifier < 0 {
		description += fmt.Sprintf(" - %d", -r.Modifier)
	}
	return fmt.Sprintf("%s = %d", description, r.Total)
}

// AbilityScoreRoll rolls 4d6 and drops the lowest die.
func AbilityScoreRoll(rng *rand.Rand) (kept []int, dropped int, total int) {
	rolls := make([]int, 4)
	for i := range rolls {
		rolls[i] = rollDie(rng, 6)
	}
	sort.Ints(rolls)
	dropped = rolls[0]
	kept = append([]int(nil), rolls[1:]...)
	for _, v := range kept {
		total += v
	}
	return kept, dropped, total
}

// StandardArray is the fixed ability score spread offered during creation.
var StandardArray = [6]int{15, 14, 13, 12, 10, 8}

// pointBuyCosts maps an ability score to its point-buy cost.
var pointBuyCosts = map[int]int{8: 0, 9: 1, 10: 2, 11: 3, 12: 4, 13: 5, 14: 7, 15: 9}

// PointBuyBudget is the total points available in a standard point buy.
const PointBuyBudget = 27

// PointBuyCost returns the point-buy cost for one ability score.
func PointBuyCost(score int) (int, error) {
	cost, ok := pointBuyCosts[score]
	if !ok {
		return 0, fmt.Errorf("%w: got %d", ErrPointBuyScore, score)
	}
	return cost, nil
}

// ValidatePointBuy reports whether scores fit the point-buy budget and the
// points spent. Scores outside the allowed range fail validation.
func ValidatePointBuy(scores []int) (bool, int) {
	total := 0
	for _, score := range scores {
		cost, err := PointBuyCost(score)
		if err != nil {
			return false, total
		}
		total += cost
	}
	return total <= PointBuyBudget, total
}
