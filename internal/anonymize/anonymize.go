package anonymize

import (
	"math/rand"
	"sort"

	"github.com/esonde/galisondaggi/internal/core"
)

var adjectivesMasculine = []string{
	"Brillante", "Saggio", "Energico", "Creativo", "Vivace", "Intrepido", "Curioso", "Resiliente",
	"Arguto", "Spiritoso", "Ingegnoso", "Audace", "Perspicace", "Diligente", "Versatile", "Dinamico",
	"Eclettico", "Innovativo", "Tenace", "Proattivo", "Carismatico", "Empatico", "Intuitivo", "Pragmatico",
	"Analitico", "Visionario", "Determinato", "Affidabile", "Sincero", "Ottimista",
}

var adjectivesFeminine = []string{
	"Brillante", "Saggia", "Energica", "Creativa", "Vivace", "Intrepida", "Curiosa", "Resiliente",
	"Arguta", "Spiritosa", "Ingegnosa", "Audace", "Perspicace", "Diligente", "Versatile", "Dinamica",
	"Eclettica", "Innovativa", "Tenace", "Proattiva", "Carismatica", "Empatica", "Intuitiva", "Pragmatica",
	"Analitica", "Visionaria", "Determinata", "Affidabile", "Sincera", "Ottimista",
}

var creaturesMasculine = []string{
	"Drago", "Unicorno", "Grifone", "Pegaso", "Mago", "Cavaliere", "Gigante", "Troll", "Golem",
	"Minotauro", "Cerbero", "Ciclope", "Hobbit", "Ent", "Balrog", "Orco", "Goblin", "Spiritello", "Folletto",
	"Fauno", "Centauro", "Satiro", "Mummia", "Vampiro", "Lupo Mannaro", "Yeti", "Basilisco", "Kraken", "Lich",
	"Naga", "Roc",
}

var creaturesFeminine = []string{
	"Fenice", "Sirena", "Strega", "Ninfa", "Driade", "Fata", "Chimera", "Medusa",
	"Banshee", "Arpia", "Lamia", "Harpia", "Selkie", "Bansidhe", "Succube", "Jinniya",
}

// Generator produces human-readable pseudonyms. Names are drawn with
// replacement: two distinct authors may end up with the same pseudonym,
// which is tolerated and not deduplicated.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// FantasyName returns one creature-plus-adjective pseudonym with gender
// agreement between the two words.
func (g *Generator) FantasyName() string {
	if g.rng.Intn(2) == 0 {
		return creaturesMasculine[g.rng.Intn(len(creaturesMasculine))] + " " +
			adjectivesMasculine[g.rng.Intn(len(adjectivesMasculine))]
	}
	return creaturesFeminine[g.rng.Intn(len(creaturesFeminine))] + " " +
		adjectivesFeminine[g.rng.Intn(len(adjectivesFeminine))]
}

// Mapping builds the one-shot pseudonym table over every canonical author
// appearing in polls or messages. It is built as an explicit value before
// any rewriting pass and threaded to every consumer, so one physical
// person maps to exactly one pseudonym within a run.
func (g *Generator) Mapping(polls []core.Poll, messages []core.Message) map[string]string {
	seen := make(map[string]struct{})
	for _, poll := range polls {
		seen[poll.Author] = struct{}{}
	}
	for _, msg := range messages {
		seen[msg.Author] = struct{}{}
	}

	authors := make([]string, 0, len(seen))
	for author := range seen {
		authors = append(authors, author)
	}
	sort.Strings(authors)

	mapping := make(map[string]string, len(authors))
	for _, author := range authors {
		mapping[author] = g.FantasyName()
	}
	return mapping
}

// RewritePolls replaces every poll author through the mapping, in place.
func RewritePolls(polls []core.Poll, mapping map[string]string) {
	for i := range polls {
		if anon, ok := mapping[polls[i].Author]; ok {
			polls[i].Author = anon
		}
	}
}

// RewriteMessages replaces every message author through the mapping, in place.
func RewriteMessages(messages []core.Message, mapping map[string]string) {
	for i := range messages {
		if anon, ok := mapping[messages[i].Author]; ok {
			messages[i].Author = anon
		}
	}
}
