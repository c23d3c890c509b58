package protocol

// Outbound real-time events.
const (
	EventPlayerJoin   = "player:join"
	EventPlayerMove   = "player:move"
	EventReportDamage = "player:reportDamage"
	EventSpellCast    = "spell:cast"
	EventDamageDealt  = "damage:dealt"
	EventPing         = "ping"
)

// Inbound real-time events.
const (
	EventPlayersList    = "players:list"
	EventPlayerJoined   = "player:joined"
	EventPlayerMoved    = "player:moved"
	EventPlayerLeft     = "player:left"
	EventSpellCasted    = "spell:casted"
	EventDamageReceived = "damage:received"
	EventPlayerDied     = "player:died"
	EventPong           = "pong"
)
