package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/sentiment"
)

var (
	classifyClientKey string
	classifyPersist   bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [message]",
	Short: "Classify the sentiment of a feedback message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		text := strings.Join(args, " ")

		classifier, err := initClassifier()
		if err != nil {
			return err
		}

		result := classifier.Classify(text)

		if classifyPersist {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			entry := model.FeedbackEntry{
				ClientKey:  classifyClientKey,
				Message:    text,
				Category:   result.Category,
				Confidence: result.Confidence,
				Scores:     result.Scores,
				Source:     "cli",
			}
			if err := st.InsertFeedback(ctx, entry); err != nil {
				return eris.Wrap(err, "persist feedback")
			}
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal result")
		}
		fmt.Println(string(out))
		return nil
	},
}

// initClassifier builds the classifier, honoring a lexicon override file when
// configured.
func initClassifier() (*sentiment.Classifier, error) {
	if cfg.Sentiment.LexiconFile == "" {
		return sentiment.New(sentiment.DefaultLexicons()), nil
	}
	lex, err := sentiment.LoadLexicons(cfg.Sentiment.LexiconFile)
	if err != nil {
		return nil, eris.Wrap(err, "load lexicons")
	}
	return sentiment.New(lex), nil
}

func init() {
	classifyCmd.Flags().StringVar(&classifyClientKey, "client-key", "", "client key to attach the feedback to")
	classifyCmd.Flags().BoolVar(&classifyPersist, "persist", false, "store the result as a feedback entry")
	rootCmd.AddCommand(classifyCmd)
}
