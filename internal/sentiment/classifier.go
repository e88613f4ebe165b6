package sentiment

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/normalize"
)

const (
	// confidenceDivisor scales raw keyword tallies into [0,1].
	confidenceDivisor = 10
	// neutralConfidenceCap keeps neutral verdicts below full confidence:
	// absence of strong signal is weaker evidence than presence of one.
	neutralConfidenceCap = 0.8
	// inconclusiveConfidence is reported when no lexicon strictly dominates.
	inconclusiveConfidence = 0.5
	// negationDampening scales confidence when a negation token is present.
	negationDampening = 0.7
	// normalizedLogLimit truncates the normalized text kept in the output.
	normalizedLogLimit = 200
)

var nonWordRe = regexp.MustCompile(`[^a-z0-9]+`)

// Classifier scores free text against its keyword lexicons. Safe for
// concurrent use; lexicons are fixed at construction.
type Classifier struct {
	positive []string
	negative []string
	neutral  []string
	negation *regexp.Regexp
}

// New builds a Classifier from the given lexicons. Keywords are folded to the
// classifier's normalized space once, up front.
func New(lex Lexicons) *Classifier {
	negation := lex.Negation
	if len(negation) == 0 {
		negation = DefaultLexicons().Negation
	}
	escaped := make([]string, 0, len(negation))
	for _, tok := range fold(negation) {
		escaped = append(escaped, regexp.QuoteMeta(tok))
	}

	return &Classifier{
		positive: fold(lex.Positive),
		negative: fold(lex.Negative),
		neutral:  fold(lex.Neutral),
		negation: regexp.MustCompile(`\b(` + strings.Join(escaped, "|") + `)\b`),
	}
}

// Classify maps one message to a category, confidence and the raw per-lexicon
// scores. Empty or garbage text is a normal neutral result, never an error.
func (c *Classifier) Classify(text string) model.Sentiment {
	norm := normalizeText(text)

	out := model.Sentiment{Normalized: truncate(norm, normalizedLogLimit)}

	if norm == "" {
		out.Category = model.SentimentNeutral
		out.Reason = "empty message"
		return out
	}

	out.Scores = model.SentimentScores{
		Positive: scoreLexicon(norm, c.positive),
		Negative: scoreLexicon(norm, c.negative),
		Neutral:  scoreLexicon(norm, c.neutral),
	}

	pos, neg, neu := out.Scores.Positive, out.Scores.Negative, out.Scores.Neutral
	switch {
	case pos > neg && pos > neu:
		out.Category = model.SentimentPositive
		out.Confidence = capAt(pos/confidenceDivisor, 1)
		out.Reason = "positive keywords dominate"
	case neg > pos && neg > neu:
		out.Category = model.SentimentNegative
		out.Confidence = capAt(neg/confidenceDivisor, 1)
		out.Reason = "negative keywords dominate"
	case neu > pos && neu > neg:
		out.Category = model.SentimentNeutral
		out.Confidence = capAt(neu/confidenceDivisor, neutralConfidenceCap)
		out.Reason = "neutral keywords dominate"
	default:
		// Tied scores (including all-zero) carry no usable polarity.
		out.Category = model.SentimentNeutral
		out.Confidence = inconclusiveConfidence
		out.Reason = "inconclusive"
	}

	if c.negation.MatchString(norm) {
		out.Confidence *= negationDampening
		switch out.Category {
		case model.SentimentPositive:
			out.Category = model.SentimentNegative
			out.Reason = "positive keywords negated"
		case model.SentimentNegative:
			out.Category = model.SentimentPositive
			out.Reason = "negative keywords negated"
		}
		// Neutral is deliberately left unflipped.
	}

	zap.L().Debug("classified message",
		zap.String("category", string(out.Category)),
		zap.Float64("confidence", out.Confidence),
		zap.String("text", out.Normalized),
	)

	return out
}

// ClassifyBatch classifies each message in order. A nil batch is the one
// invalid input; empty batches and empty messages are fine.
func (c *Classifier) ClassifyBatch(messages []string) ([]model.Sentiment, error) {
	if messages == nil {
		return nil, eris.New("sentiment: messages must be a list")
	}

	out := make([]model.Sentiment, len(messages))
	for i, msg := range messages {
		out[i] = c.Classify(msg)
	}
	return out, nil
}

// normalizeText lower-cases, folds diacritics, replaces non-word characters
// with spaces and collapses runs of whitespace.
func normalizeText(text string) string {
	s := normalize.FoldDiacritics(strings.ToLower(text))
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// keywordWeight favors longer, more specific keywords.
func keywordWeight(kw string) float64 {
	switch {
	case len(kw) > 8:
		return 2
	case len(kw) > 5:
		return 1.5
	default:
		return 1
	}
}

// scoreLexicon sums occurrences*weight over all keywords. Overlapping
// occurrences are counted independently.
func scoreLexicon(text string, keywords []string) float64 {
	var total float64
	for _, kw := range keywords {
		if n := countOverlapping(text, kw); n > 0 {
			total += float64(n) * keywordWeight(kw)
		}
	}
	return total
}

func countOverlapping(s, sub string) int {
	if sub == "" {
		return 0
	}
	count := 0
	for i := 0; ; {
		j := strings.Index(s[i:], sub)
		if j < 0 {
			return count
		}
		count++
		i += j + 1
	}
}

func capAt(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
