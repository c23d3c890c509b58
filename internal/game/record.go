package game

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pixil98/go-gamesync/internal/protocol"
)

const DefaultMaxHealth = 100

// Stats holds the combat attributes mirrored from the backend.
type Stats struct {
	Health    int `json:"health"`
	MaxHealth int `json:"maxHealth"`
	Mana      int `json:"mana"`
	MaxMana   int `json:"maxMana"`
	Attack    int `json:"attack"`
	Defense   int `json:"defense"`
}

// InventoryItem is a stack of one item kind.
type InventoryItem struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// PlayerRecord mirrors the server-authoritative player state. It is replaced
// wholesale on every successful fetch and mutated locally for optimistic
// updates in between.
type PlayerRecord struct {
	ID              string            `json:"id"`
	Username        string            `json:"username"`
	House           string            `json:"house"`
	Level           int               `json:"level"`
	Experience      int               `json:"experience"`
	Gold            int               `json:"gold"`
	Position        protocol.Vector3  `json:"position"`
	Rotation        float64           `json:"rotation"`
	Inventory       []InventoryItem   `json:"inventory"`
	Equipment       map[string]string `json:"equipment"`
	Stats           Stats             `json:"stats"`
	KnownSpells     []string          `json:"knownSpells"`
	ActiveQuests    []string          `json:"activeQuests"`
	CompletedQuests []string          `json:"completedQuests"`
	Flags           map[string]bool   `json:"flags"`
	LastSaved       time.Time         `json:"lastSaved,omitempty"`
}

// NewSeedRecord builds the minimal record used between login and the first
// full fetch.
func NewSeedRecord(id, username, house string) *PlayerRecord {
	r := &PlayerRecord{
		ID:       id,
		Username: username,
		House:    house,
		Level:    1,
	}
	r.Normalize()
	return r
}

// Normalize guarantees non-nil collections and sane counters so consumers
// never have to nil-check.
func (r *PlayerRecord) Normalize() {
	if r.Inventory == nil {
		r.Inventory = []InventoryItem{}
	}
	if r.Equipment == nil {
		r.Equipment = map[string]string{}
	}
	if r.KnownSpells == nil {
		r.KnownSpells = []string{}
	}
	if r.ActiveQuests == nil {
		r.ActiveQuests = []string{}
	}
	if r.CompletedQuests == nil {
		r.CompletedQuests = []string{}
	}
	if r.Flags == nil {
		r.Flags = map[string]bool{}
	}
	if r.Level < 1 {
		r.Level = 1
	}
	if r.Stats.MaxHealth <= 0 {
		r.Stats.MaxHealth = DefaultMaxHealth
		if r.Stats.Health <= 0 {
			r.Stats.Health = DefaultMaxHealth
		}
	}
	r.House = CanonicalHouse(r.House)
}

// Validate is used before the record is written to the local cache.
func (r *PlayerRecord) Validate() error {
	el := errors.NewErrorList()

	if r.ID == "" {
		el.Add(fmt.Errorf("id is required"))
	}
	if r.Username == "" {
		el.Add(fmt.Errorf("username is required"))
	}
	if r.Experience < 0 {
		el.Add(fmt.Errorf("experience must not be negative"))
	}

	return el.Err()
}

// Clone returns a deep copy suitable for handing to another goroutine.
func (r *PlayerRecord) Clone() *PlayerRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Inventory = append([]InventoryItem(nil), r.Inventory...)
	c.KnownSpells = append([]string(nil), r.KnownSpells...)
	c.ActiveQuests = append([]string(nil), r.ActiveQuests...)
	c.CompletedQuests = append([]string(nil), r.CompletedQuests...)
	c.Equipment = make(map[string]string, len(r.Equipment))
	for k, v := range r.Equipment {
		c.Equipment[k] = v
	}
	c.Flags = make(map[string]bool, len(r.Flags))
	for k, v := range r.Flags {
		c.Flags[k] = v
	}
	return &c
}

// AddExperience applies an XP award and levels up as far as the table allows.
// It returns the number of levels gained.
func (r *PlayerRecord) AddExperience(amount int) int {
	if amount <= 0 {
		return 0
	}
	r.Experience += amount
	newLevel := LevelForExp(r.Experience)
	gained := 0
	if newLevel > r.Level {
		gained = newLevel - r.Level
		r.Level = newLevel
	}
	return gained
}

// ApplyDamage lowers health, clamped at zero, and returns the new value.
func (r *PlayerRecord) ApplyDamage(amount int) int {
	if amount < 0 {
		amount = 0
	}
	r.Stats.Health -= amount
	if r.Stats.Health < 0 {
		r.Stats.Health = 0
	}
	return r.Stats.Health
}

// CanonicalHouse normalizes house names ("gryffindor" -> "Gryffindor").
func CanonicalHouse(house string) string {
	if house == "" {
		return ""
	}
	// Casers are stateful, so one is built per call.
	return cases.Title(language.English).String(house)
}
