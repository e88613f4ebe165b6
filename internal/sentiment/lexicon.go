// Package sentiment implements the keyword-weighted feedback classifier.
// It is a tuned heuristic, not a statistical model: scoring weights,
// tie-breaks and the negation adjustment are exact behavioral contracts.
package sentiment

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/outreach-cli/internal/normalize"
)

// Lexicons holds the keyword lists the classifier scores against. Instances
// are treated as immutable after construction so concurrent classification
// needs no locking; per-deployment tuning happens via LoadLexicons, not by
// mutating these at runtime.
type Lexicons struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
	Neutral  []string `yaml:"neutral"`
	Negation []string `yaml:"negation"`
}

// DefaultLexicons returns the built-in Portuguese keyword lists.
func DefaultLexicons() Lexicons {
	return Lexicons{
		Positive: []string{
			"obrigado", "obrigada", "excelente", "otimo", "otima", "bom",
			"boa", "gostei", "adorei", "amei", "perfeito", "maravilhoso",
			"atencioso", "rapido", "recomendo", "satisfeito", "parabens",
			"agradeco", "top", "nota 10",
		},
		Negative: []string{
			"pessimo", "pessima", "ruim", "horrivel", "terrivel", "demorado",
			"lento", "problema", "reclamacao", "reclamar", "insatisfeito",
			"decepcionado", "decepcao", "absurdo", "descaso", "cancelar",
			"nunca mais", "erro", "atraso",
		},
		Neutral: []string{
			"ok", "talvez", "normal", "regular", "duvida", "informacao",
			"pergunta", "horario", "saber", "quanto custa",
		},
		Negation: []string{
			"nao", "nunca", "jamais", "nem", "nenhum", "nenhuma", "sem",
		},
	}
}

// LoadLexicons reads a YAML lexicon file. Missing sections fall back to the
// defaults so a deployment can override only one list.
func LoadLexicons(path string) (Lexicons, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicons{}, eris.Wrapf(err, "sentiment: read lexicon file %s", path)
	}

	lex := DefaultLexicons()
	var override Lexicons
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Lexicons{}, eris.Wrapf(err, "sentiment: parse lexicon file %s", path)
	}

	if len(override.Positive) > 0 {
		lex.Positive = override.Positive
	}
	if len(override.Negative) > 0 {
		lex.Negative = override.Negative
	}
	if len(override.Neutral) > 0 {
		lex.Neutral = override.Neutral
	}
	if len(override.Negation) > 0 {
		lex.Negation = override.Negation
	}
	return lex, nil
}

// fold pre-normalizes a keyword list so matching happens in the same folded
// space as the normalized message text.
func fold(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		f := normalize.FoldDiacritics(strings.ToLower(strings.TrimSpace(w)))
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
