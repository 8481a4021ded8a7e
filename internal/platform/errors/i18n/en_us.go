package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeAuthExpired        = "AUTH_EXPIRED"
	CodeAuthInvalid        = "AUTH_INVALID"
	CodeForbidden          = "FORBIDDEN"
	CodeCampaignNotFound   = "CAMPAIGN_NOT_FOUND"
	CodeCampaignNameEmpty  = "CAMPAIGN_NAME_EMPTY"
	CodeCampaignPaused     = "CAMPAIGN_PAUSED"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodePlayerNameEmpty    = "PLAYER_NAME_EMPTY"
	CodeCharacterNotFound  = "CHARACTER_NOT_FOUND"
	CodeCharacterNameEmpty = "CHARACTER_NAME_EMPTY"
	CodeCharacterInvalidHp = "CHARACTER_INVALID_HP"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeCombatantNotFound  = "COMBATANT_NOT_FOUND"
	CodeCombatantInvalid   = "COMBATANT_INVALID"
	CodeGeneratorTimeout   = "GENERATOR_TIMEOUT"
	CodeGeneratorFailure   = "GENERATOR_FAILURE"
	CodeDiceMissing        = "DICE_MISSING"
	CodeDiceInvalidSpec    = "DICE_INVALID_SPEC"
	CodeNotFound           = "NOT_FOUND"
	CodeSaveFailed         = "SAVE_FAILED"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	messages: map[Code]string{
		CodeAuthExpired:        "Your session has expired, rejoin the campaign to continue",
		CodeAuthInvalid:        "Your session token could not be verified",
		CodeForbidden:          "Only the DM can perform this action",
		CodeCampaignNotFound:   "Campaign not found",
		CodeCampaignNameEmpty:  "Campaign name cannot be empty",
		CodeCampaignPaused:     "The session is paused",
		CodePlayerNotFound:     "Player not found",
		CodePlayerNameEmpty:    "Player name cannot be empty",
		CodeCharacterNotFound:  "Character not found",
		CodeCharacterNameEmpty: "Character name cannot be empty",
		CodeCharacterInvalidHp: "Hit points must stay between 0 and the character's maximum",
		CodeInvalidTransition:  "Combat cannot {{.Operation}} while {{.Phase}}",
		CodeCombatantNotFound:  "Combatant not found in the turn order",
		CodeCombatantInvalid:   "Combatant needs a name and positive hit points",
		CodeGeneratorTimeout:   "The narrator did not respond in time",
		CodeGeneratorFailure:   "The narrator is unavailable right now",
		CodeDiceMissing:        "No dice were provided to roll",
		CodeDiceInvalidSpec:    "Dice notation is invalid",
		CodeNotFound:           "Not found",
		CodeSaveFailed:         "The campaign could not be saved",
	},
}
