// Package session issues and validates the signed tokens that tie a
// websocket connection to a campaign seat.
//
// Tokens are HMAC-signed JWTs carrying the campaign, player and DM claims.
// Validation checks the signature, the expiry and that the player is still
// registered in the campaign, so a token survives a server restart but not
// a roster change.
package session
