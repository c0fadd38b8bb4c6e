package seeder

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

var firstNames = []string{
	"Ada", "Bruno", "Chiara", "Dmitri", "Elena", "Farid", "Greta", "Hugo",
	"Ines", "Jonas", "Keiko", "Lars", "Mira", "Nikhil", "Olga", "Pablo",
	"Quinn", "Rosa", "Sven", "Talia", "Umar", "Vera", "Wim", "Yara", "Zeno",
}

var lastNames = []string{
	"Abbott", "Baptiste", "Castillo", "Dvorak", "Eriksen", "Fontaine", "Gallo",
	"Haddad", "Ivanova", "Jansen", "Kowalski", "Lindqvist", "Moreau", "Nakamura",
	"Okafor", "Petrov", "Quintero", "Rossi", "Silva", "Tanaka", "Urban", "Varga",
	"Weber", "Xu", "Young", "Zamora",
}

const contactDomain = "example.com"

// nameGenerator yields distinct display names and candidate contact handles.
type nameGenerator struct {
	rng  *rand.Rand
	used map[string]int
}

func newNameGenerator(rng *rand.Rand) *nameGenerator {
	return &nameGenerator{rng: rng, used: make(map[string]int)}
}

// name returns a display name not returned before. Repeats of a first/last
// pair get a numeric suffix.
func (g *nameGenerator) name() string {
	base := firstNames[g.rng.IntN(len(firstNames))] + " " + lastNames[g.rng.IntN(len(lastNames))]
	n := g.used[base]
	g.used[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s %d", base, n+1)
}

// contact derives a random handle for name. Handles can collide; the store
// rejects duplicates and the caller asks for another.
func (g *nameGenerator) contact(name string) string {
	local := strings.ToLower(strings.Join(strings.Fields(name), "."))
	return fmt.Sprintf("%s.%03d@%s", local, g.rng.IntN(1000), contactDomain)
}
