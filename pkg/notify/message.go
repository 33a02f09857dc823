package notify

import (
	"fmt"

	goslack "github.com/slack-go/slack"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

const maxBlockTextLength = 2900

var statusEmoji = map[types.SessionStatus]string{
	types.StatusManualReview:       ":grey_question:",
	types.StatusPendingAdminReview: ":mag:",
	types.StatusFailed:             ":x:",
}

var statusLabel = map[types.SessionStatus]string{
	types.StatusManualReview:       "Needs Manual Review",
	types.StatusPendingAdminReview: "Flagged for Admin Review",
	types.StatusFailed:             "Classification Failed",
}

func sessionURL(sessionID, dashboardURL string) string {
	if dashboardURL == "" {
		return sessionID
	}
	return fmt.Sprintf("%s/sessions/%s", dashboardURL, sessionID)
}

// buildTerminalMessage creates Block Kit blocks describing a session that
// landed in a state a human needs to look at.
func buildTerminalMessage(sess *types.Session, dashboardURL string) []goslack.Block {
	emoji := statusEmoji[sess.Status]
	if emoji == "" {
		emoji = ":question:"
	}
	label := statusLabel[sess.Status]
	if label == "" {
		label = "Session " + string(sess.Status)
	}

	headerText := fmt.Sprintf("%s *%s*", emoji, label)
	if sess.Classification != nil {
		headerText += fmt.Sprintf("\nProposed category: *%s* (confidence %.2f)",
			sess.Classification.Category, sess.Classification.Confidence)
	}
	if sess.Description != "" {
		headerText += fmt.Sprintf("\n\n*Description:*\n%s", truncateForSlack(sess.Description))
	}

	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, headerText, false, false),
			nil, nil,
		),
	}

	url := sessionURL(sess.SessionID, dashboardURL)
	btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "View Session", false, false))
	btn.URL = url
	blocks = append(blocks, goslack.NewActionBlock("", btn))

	return blocks
}

func truncateForSlack(s string) string {
	if len(s) <= maxBlockTextLength {
		return s
	}
	return s[:maxBlockTextLength-len("…")] + "…"
}
