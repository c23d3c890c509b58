package protocol

import (
	"encoding/json"
	"fmt"
	"math"
)

// Envelope is the frame carried over the real-time connection.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes payload under the given event name.
func NewEnvelope(event string, payload any) ([]byte, error) {
	if event == "" {
		return nil, fmt.Errorf("event name is required")
	}
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshalling %s payload: %w", event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Lerp moves v toward to by t in [0,1].
func (v Vector3) Lerp(to Vector3, t float64) Vector3 {
	if t <= 0 {
		return v
	}
	if t >= 1 {
		return to
	}
	return Vector3{
		X: v.X + (to.X-v.X)*t,
		Y: v.Y + (to.Y-v.Y)*t,
		Z: v.Z + (to.Z-v.Z)*t,
	}
}

// Distance returns the euclidean distance between v and o.
func (v Vector3) Distance(o Vector3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

type PlayerJoin struct {
	PlayerID string  `json:"playerId"`
	Username string  `json:"username"`
	House    string  `json:"house"`
	Position Vector3 `json:"position"`
}

type PlayerMove struct {
	PlayerID string  `json:"playerId"`
	Position Vector3 `json:"position"`
}

// SpellCast is both the outbound spell:cast and the inbound spell:casted payload.
type SpellCast struct {
	CastID     string  `json:"castId,omitempty"`
	CasterID   string  `json:"casterId"`
	CasterName string  `json:"casterName"`
	SpellName  string  `json:"spellName"`
	Position   Vector3 `json:"position"`
	Direction  Vector3 `json:"direction"`
	Color      Color   `json:"color"`
	Damage     int     `json:"damage"`
	Speed      float64 `json:"speed"`
}

type DamageDealt struct {
	AttackerID string `json:"attackerId"`
	TargetID   string `json:"targetId"`
	Damage     int    `json:"damage"`
	Source     string `json:"source"`
}

type ReportDamage struct {
	PlayerID    string `json:"playerId"`
	DamageTaken int    `json:"damageTaken"`
	NewHealth   int    `json:"newHealth"`
	MaxHealth   int    `json:"maxHealth"`
}

type Ping struct {
	SentAt int64 `json:"sentAt,omitempty"`
}

type Pong struct {
	SentAt     int64 `json:"sentAt"`
	ServerTime int64 `json:"serverTime,omitempty"`
}

// RemotePlayer describes another player sharing the world.
type RemotePlayer struct {
	PlayerID  string  `json:"playerId"`
	Username  string  `json:"username"`
	House     string  `json:"house"`
	Position  Vector3 `json:"position"`
	Health    int     `json:"health,omitempty"`
	MaxHealth int     `json:"maxHealth,omitempty"`
}

type PlayersList struct {
	Players []RemotePlayer `json:"players"`
}

type PlayerJoined = RemotePlayer

type PlayerMoved struct {
	PlayerID string  `json:"playerId"`
	Position Vector3 `json:"position"`
}

type PlayerLeft struct {
	PlayerID string `json:"playerId"`
}

type DamageReceived struct {
	AttackerID string `json:"attackerId"`
	TargetID   string `json:"targetId"`
	Damage     int    `json:"damage"`
	Source     string `json:"source"`
}

type PlayerDied struct {
	PlayerID string `json:"playerId"`
	KillerID string `json:"killerId"`
}
