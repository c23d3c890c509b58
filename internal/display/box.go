package display

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-gamesync/internal/game"
)

const BoxWidth = 40

type Line struct {
	Value  string
	Center bool
}

// Section is a block of lines inside a box, separated from its neighbours by
// a border.
type Section struct {
	Header string
	Lines  []Line
}

// RecordSections lays out a player record for RenderBox.
func RecordSections(rec *game.PlayerRecord) []Section {
	if rec == nil {
		return nil
	}
	return []Section{
		{
			Lines: []Line{
				{Value: rec.Username, Center: true},
				{Value: fmt.Sprintf("%s, level %d", rec.House, rec.Level), Center: true},
			},
		},
		{
			Header: "Stats",
			Lines: []Line{
				{Value: fmt.Sprintf("Health: %d/%d", rec.Stats.Health, rec.Stats.MaxHealth)},
				{Value: fmt.Sprintf("Mana:   %d/%d", rec.Stats.Mana, rec.Stats.MaxMana)},
				{Value: fmt.Sprintf("XP:     %d (%d to next)", rec.Experience, game.ExpToNextLevel(rec.Level, rec.Experience))},
				{Value: fmt.Sprintf("Gold:   %d", rec.Gold)},
			},
		},
		{
			Header: "Spells",
			Lines:  []Line{{Value: spellList(rec.KnownSpells)}},
		},
	}
}

func spellList(spells []string) string {
	if len(spells) == 0 {
		return "none"
	}
	return strings.Join(spells, ", ")
}

// RenderBox draws sections inside an ASCII border width columns wide.
func RenderBox(sections []Section, width int) string {
	var lines []string
	lines = append(lines, boxBorder(width))
	for i, section := range sections {
		if i > 0 {
			lines = append(lines, boxBorder(width))
		}
		if section.Header != "" {
			lines = append(lines, boxLine(section.Header, width))
		}
		for _, line := range section.Lines {
			if line.Center {
				lines = append(lines, boxLineCenter(line.Value, width))
			} else {
				lines = append(lines, boxLine(line.Value, width))
			}
		}
	}
	lines = append(lines, boxBorder(width))
	return strings.Join(lines, "\n")
}

func boxBorder(width int) string {
	return "+" + strings.Repeat("-", width-2) + "+"
}

func boxLine(text string, width int) string {
	inner := width - 4
	if len(text) > inner {
		text = text[:inner]
	}
	return fmt.Sprintf("| %-*s |", inner, text)
}

func boxLineCenter(text string, width int) string {
	inner := width - 4
	if len(text) > inner {
		text = text[:inner]
	}
	pad := (inner - len(text)) / 2
	return fmt.Sprintf("| %*s%-*s |", pad+len(text), text, inner-pad-len(text), "")
}
