package model

import (
	"time"
)

// SentimentCategory is the classifier's verdict for one message.
type SentimentCategory string

const (
	SentimentPositive SentimentCategory = "positive"
	SentimentNegative SentimentCategory = "negative"
	SentimentNeutral  SentimentCategory = "neutral"
)

// SentimentScores holds the raw per-lexicon tallies, kept for auditability.
type SentimentScores struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// Sentiment is the full classifier output for one message.
type Sentiment struct {
	Category   SentimentCategory `json:"category"`
	Confidence float64           `json:"confidence"`
	Reason     string            `json:"reason"`
	Scores     SentimentScores   `json:"scores"`
	// Normalized is the cleaned text, truncated for logging.
	Normalized string `json:"normalized_text"`
}

// FeedbackEntry is a persisted classification result. Category can be
// corrected by an operator afterward; IsManual marks the override.
type FeedbackEntry struct {
	ID         string            `json:"id"`
	ClientKey  string            `json:"client_key,omitempty"`
	Message    string            `json:"message"`
	Category   SentimentCategory `json:"category"`
	Confidence float64           `json:"confidence"`
	Scores     SentimentScores   `json:"scores"`
	Source     string            `json:"source,omitempty"`
	IsManual   bool              `json:"is_manual"`
	CreatedAt  time.Time         `json:"created_at"`
}
