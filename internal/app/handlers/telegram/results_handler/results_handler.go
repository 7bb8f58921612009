package results_handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"github.com/ddabattalion/examprep-bot/internal/api"
	"github.com/ddabattalion/examprep-bot/internal/auth"
)

// ResultsHandler shows the student's graded submissions and the
// leaderboard placeholder.
type ResultsHandler struct {
	client *api.Client
	auth   *auth.Manager
	log    zerolog.Logger
}

func NewResultsHandler(client *api.Client, authMgr *auth.Manager, log zerolog.Logger) *ResultsHandler {
	return &ResultsHandler{
		client: client,
		auth:   authMgr,
		log:    log.With().Str("handler", "results").Logger(),
	}
}

// HandleMyResults lists graded submissions, newest first as the backend
// returns them.
func (h *ResultsHandler) HandleMyResults(c tele.Context) error {
	chatID := c.Sender().ID
	token := h.auth.Token(context.Background(), chatID)
	if token == "" {
		return c.Send("Please log in to see your results.")
	}

	results, err := h.client.MyResults(context.Background(), token)
	if err != nil {
		h.log.Info().Int64("chat_id", chatID).Err(err).Msg("my results failed")
		return c.Send("❌ " + api.UserMessage(err))
	}
	if len(results) == 0 {
		return c.Send("📊 You have no graded tests yet. Take a test and come back!")
	}

	var b strings.Builder
	b.WriteString("📊 *Your Results*\n\n")
	for _, r := range results {
		pct := 0
		if r.TotalMarks > 0 {
			pct = r.Score * 100 / r.TotalMarks
		}
		fmt.Fprintf(&b, "• *%s*: %d/%d (%d%%)", r.TestTitle, r.Score, r.TotalMarks, pct)
		if r.SubmittedAt != "" {
			fmt.Fprintf(&b, "\n  submitted %s", r.SubmittedAt)
		}
		b.WriteString("\n")
	}
	return c.Send(b.String(), &tele.SendOptions{ParseMode: tele.ModeMarkdown})
}

// HandleLeaderboard is a placeholder until rankings ship server-side.
func (h *ResultsHandler) HandleLeaderboard(c tele.Context) error {
	return c.Send("🏆 The leaderboard is coming soon. Keep practising!")
}

func (h *ResultsHandler) GetMyResultsFunc() tele.HandlerFunc {
	return h.HandleMyResults
}

func (h *ResultsHandler) GetLeaderboardFunc() tele.HandlerFunc {
	return h.HandleLeaderboard
}
