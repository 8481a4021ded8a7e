// Package domain defines the campaign session data model: campaigns,
// players, characters, the ordered message log and combat state.
//
// Types here carry no synchronization; the state registry owns mutation
// and guards each campaign behind its own lock.
package domain
