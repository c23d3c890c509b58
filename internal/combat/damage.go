package combat

import "fmt"

var damageMessages = []struct {
	maxDamage int
	verb3rd   string // "{attacker} {verb} {target}!"
}{
	{0, "misses"},
	{2, "barely scratches"},
	{4, "tickles"},
	{6, "barely hurts"},
	{10, "hits"},
	{14, "hits hard"},
	{19, "pummels"},
	{24, "thrashes"},
	{30, "mauls"},
	{40, "decimates"},
	{50, "devastates"},
	{65, "obliterates"},
	{80, "annihilates"},
}

// DamageVerb returns the 3rd person verb for a damage amount.
func DamageVerb(damage int) string {
	for _, msg := range damageMessages {
		if damage <= msg.maxDamage {
			return msg.verb3rd
		}
	}
	return "does UNSPEAKABLE things to"
}

// DescribeDamage renders a combat log line such as
// "ron thrashes you with Stupefy (22)".
func DescribeDamage(attacker, target string, damage int, source string) string {
	if attacker == "" {
		attacker = "someone"
	}
	msg := fmt.Sprintf("%s %s %s", attacker, DamageVerb(damage), target)
	if source != "" {
		msg += " with " + source
	}
	return fmt.Sprintf("%s (%d)", msg, damage)
}
