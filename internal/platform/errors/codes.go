// Package errors provides structured error handling for the session core.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Auth errors
	CodeAuthExpired Code = "AUTH_EXPIRED"
	CodeAuthInvalid Code = "AUTH_INVALID"
	CodeForbidden   Code = "FORBIDDEN"

	// Campaign errors
	CodeCampaignNotFound  Code = "CAMPAIGN_NOT_FOUND"
	CodeCampaignNameEmpty Code = "CAMPAIGN_NAME_EMPTY"
	CodeCampaignPaused    Code = "CAMPAIGN_PAUSED"

	// Player errors
	CodePlayerNotFound  Code = "PLAYER_NOT_FOUND"
	CodePlayerNameEmpty Code = "PLAYER_NAME_EMPTY"

	// Character errors
	CodeCharacterNotFound  Code = "CHARACTER_NOT_FOUND"
	CodeCharacterNameEmpty Code = "CHARACTER_NAME_EMPTY"
	CodeCharacterInvalidHp Code = "CHARACTER_INVALID_HP"

	// Combat errors
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeCombatantNotFound Code = "COMBATANT_NOT_FOUND"
	CodeCombatantInvalid  Code = "COMBATANT_INVALID"

	// Narration errors
	CodeGeneratorTimeout Code = "GENERATOR_TIMEOUT"
	CodeGeneratorFailure Code = "GENERATOR_FAILURE"

	// Dice errors
	CodeDiceMissing     Code = "DICE_MISSING"
	CodeDiceInvalidSpec Code = "DICE_INVALID_SPEC"

	// Storage errors
	CodeNotFound   Code = "NOT_FOUND"
	CodeSaveFailed Code = "SAVE_FAILED"
)

// HTTPStatus maps the error code to an HTTP status for the join boundary.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeAuthExpired, CodeAuthInvalid:
		return 401
	case CodeForbidden:
		return 403
	case CodeCampaignNotFound, CodePlayerNotFound, CodeCharacterNotFound,
		CodeCombatantNotFound, CodeNotFound:
		return 404
	case CodeInvalidTransition, CodeCampaignPaused:
		return 409
	case CodeGeneratorTimeout:
		return 504
	case CodeGeneratorFailure:
		return 502
	case CodeUnknown, CodeSaveFailed:
		return 500
	default:
		return 400
	}
}
