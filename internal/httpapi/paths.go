package httpapi

import (
	"net/url"
)

const (
	PathLogin    = "/api/auth/login"
	PathRegister = "/api/auth/register"
	PathHealth   = "/api/health"
	PathInfo     = "/api/info"
)

// PlayerPath is the full player record endpoint.
func PlayerPath(playerID string) string {
	return "/api/game/player/" + url.PathEscape(playerID)
}

// PlayerSavePath is the player persistence endpoint.
func PlayerSavePath(playerID string) string {
	return PlayerPath(playerID) + "/save"
}

// CombatStatusPath is the combat status endpoint for a player.
func CombatStatusPath(playerID string) string {
	return "/api/combat/status/" + url.PathEscape(playerID)
}
