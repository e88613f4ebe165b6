package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

var (
	feedbackOverrideID       string
	feedbackOverrideCategory string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Manage stored feedback entries",
}

var feedbackOverrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manually correct a feedback entry's category",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		category := model.SentimentCategory(feedbackOverrideCategory)
		switch category {
		case model.SentimentPositive, model.SentimentNegative, model.SentimentNeutral:
		default:
			return eris.Errorf("category must be positive, negative or neutral, got %q", feedbackOverrideCategory)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.OverrideFeedbackCategory(ctx, feedbackOverrideID, category); err != nil {
			return eris.Wrap(err, "override feedback")
		}

		zap.L().Info("feedback overridden",
			zap.String("id", feedbackOverrideID),
			zap.String("category", feedbackOverrideCategory),
		)
		return nil
	},
}

func init() {
	feedbackOverrideCmd.Flags().StringVar(&feedbackOverrideID, "id", "", "feedback entry id (required)")
	feedbackOverrideCmd.Flags().StringVar(&feedbackOverrideCategory, "category", "", "corrected category (required)")
	_ = feedbackOverrideCmd.MarkFlagRequired("id")
	_ = feedbackOverrideCmd.MarkFlagRequired("category")
	feedbackCmd.AddCommand(feedbackOverrideCmd)
	rootCmd.AddCommand(feedbackCmd)
}
