package words

import (
	"math/rand"
	"strings"
)

// Generator produces nonsense image prompts from templates and word lists.
// The rand source is injectable so tests can pin the output.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator backed by the given source.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

var adjectives = []string{
	"purple", "fluffy", "transparent", "melodic", "curious", "ethereal", "quantum", "whimsical",
	"iridescent", "nebulous", "effervescent", "serendipitous", "gossamer", "phantasmagorical", "labyrinthine",
	"clandestine", "ephemeral", "mercurial", "quixotic", "surreptitious", "verdant", "zany", "bioluminescent",
	"chromatic", "diaphanous", "effulgent", "frenetic", "holographic", "incandescent", "juxtaposed",
	"kaleidoscopic", "luminescent", "multifaceted", "numinous", "opalescent", "prismatic", "quiescent", "rhapsodic",
}

var nouns = []string{
	"photograph", "teacup", "galaxy", "cucumber", "notebook", "elephant", "bucket", "apocalypse",
	"kaleidoscope", "zephyr", "quasar", "epiphany", "chrysalis", "nebula", "aurora",
	"anomaly", "bioluminescence", "cacophony", "doppelganger", "enigma", "fractal", "hologram",
	"illusion", "juxtaposition", "kismet", "labyrinth", "miasma", "nexus", "obelisk", "phantasm", "quagmire",
	"reverie", "synesthesia", "talisman", "umbra", "vortex", "wunderkammer", "xenolith", "yggdrasil", "zeitgeist",
}

var abstractConcepts = []string{
	"happiness", "silence", "dreams", "time", "nostalgia", "serendipity",
	"entropy", "synchronicity", "infinity", "déjà vu", "zeitgeist", "catharsis",
	"ambivalence", "cognizance", "duende", "ephemera", "frisson", "gestalt", "hiraeth", "ineffable",
	"jouissance", "kairos", "liminality", "melancholia", "numinous", "oneiric", "petrichor", "qualia",
	"saudade", "tacit", "ubuntu", "verisimilitude", "weltschmerz", "xenial", "yugen", "zanshin",
}

var verbsIng = []string{
	"dancing", "whispering", "evaporating", "shimmering", "undulating", "pirouetting",
	"oscillating", "metamorphosing", "percolating", "effervescing", "phosphorescing", "transcending",
	"amalgamating", "bifurcating", "coalescing", "dissipating", "emanating", "fluctuating", "gyrating",
	"harmonizing", "illuminating", "juxtaposing", "kaleidoscoping", "levitating", "meandering", "nebulizing",
	"pulsating", "quickening", "radiating", "syncopating", "tessellating",
}

var pluralNouns = []string{
	"rainbows", "whispers", "echoes", "melodies", "constellations", "paradoxes",
	"fractals", "epiphanies", "dimensions", "paradigms", "supernovae", "hallucinations",
	"aberrations", "bioluminescences", "cadenzas", "dichotomies", "effulgences", "glissandos",
	"harmonics", "iridescences", "juxtapositions", "kinesthesias", "luminescences", "mnemonics", "nebulae",
	"oscillations", "phantasmagorias", "quintessences", "resonances", "synapses", "tessellations", "umbrae",
}

var locations = []string{
	"ocean", "library", "cloud", "blackhole", "labyrinth", "mirage",
	"nebula", "wormhole", "quantum realm", "parallel universe", "dreamscape", "tesseract",
	"astral plane", "borealis", "catacombs", "dimension", "etherscape", "fractal forest", "geode cavern",
	"holodeck", "interdimensional nexus", "jellyfish fields", "kinetic sculpture garden", "lost city",
	"möbius strip", "neutron star", "opalescent oasis", "pocket universe", "quantum foam", "rift valley",
	"singularity", "time vortex", "umbral plane", "void", "warp zone", "xenosphere", "yggdrasil branches",
}

var animals = []string{
	"octopus", "phoenix", "unicorn", "dragon", "chimera", "kraken",
	"leviathan", "basilisk", "manticore", "ouroboros", "hydra", "thunderbird",
	"axolotl", "behemoth", "cthulhu", "djinn", "eldritch horror", "fae", "gorgon", "hippogriff",
	"ifrit", "jabberwocky", "kitsune", "mothman", "naga", "oni", "pegasus",
	"quetzalcoatl", "roc", "selkie", "typhon", "undine", "valkyrie", "wendigo", "xing tian", "yeti",
}

var verbs = []string{
	"paints", "sculpts", "weaves", "distills", "telepathically transmits", "quantum entangles",
	"transmutes", "conjures", "manifests", "harmonizes", "transcribes", "illuminates",
	"alchemizes", "bifurcates", "catalyzes", "deconstructs", "etherealizes", "fractalizes", "galvanizes",
	"juxtaposes", "kaleidoscopes", "levitates", "metamorphosizes", "nebulizes",
	"oscillates", "phantasmagorizes", "quantizes", "refracts", "synergizes", "tessellates", "unravels",
}

var templates = []string{
	"In a {adj1} {location}, {plural_noun1} of {abstract1} are {verb_ing}, creating a {noun1} of {adj2} {plural_noun2}.",

	"The {adj1} {animal} {verb} a {noun1} made of {plural_noun1}, while {adj2} {plural_noun2} {verb_ing} in the distance.",

	"A {adj1} {noun1} of {abstract1} {verb_ing} on {plural_noun1} in a {location} made of {plural_noun2}. " +
		"The {abstract1} {plural_noun3} are {adj2} and {adj3}, {verb_ing2} the {plural_noun4} of {noun2}.",

	"{Adj1} {plural_noun1} {verb} the {noun1} of {abstract1}, as {adj2} {animals} {verb_ing} through a {location} of {plural_noun2}.",

	"In the depths of a {adj1} {location}, a {noun1} of {abstract1} {verb_ing} eternally, " +
		"surrounded by {adj2} {plural_noun1} and {adj3} {plural_noun2} that {verb} the very fabric of {abstract2}.",
}

// RandomPrompt fills a random template with random words.
func (g *Generator) RandomPrompt() string {
	template := templates[g.rng.Intn(len(templates))]

	adj1 := g.pick(adjectives)
	replacements := map[string]string{
		"{adj1}":         adj1,
		"{Adj1}":         capitalize(adj1),
		"{adj2}":         g.pick(adjectives),
		"{adj3}":         g.pick(adjectives),
		"{noun1}":        g.pick(nouns),
		"{noun2}":        g.pick(nouns),
		"{abstract1}":    g.pick(abstractConcepts),
		"{abstract2}":    g.pick(abstractConcepts),
		"{verb_ing}":     g.pick(verbsIng),
		"{verb_ing2}":    g.pick(verbsIng),
		"{plural_noun1}": g.pick(pluralNouns),
		"{plural_noun2}": g.pick(pluralNouns),
		"{plural_noun3}": g.pick(pluralNouns),
		"{plural_noun4}": g.pick(pluralNouns),
		"{location}":     g.pick(locations),
		"{animal}":       g.pick(animals),
		"{animals}":      g.pick(animals),
		"{verb}":         g.pick(verbs),
	}

	out := template
	for tag, word := range replacements {
		out = strings.ReplaceAll(out, tag, word)
	}

	return out
}

func (g *Generator) pick(list []string) string {
	return list[g.rng.Intn(len(list))]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
