package start_handler

import (
	"context"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"github.com/ddabattalion/examprep-bot/internal/auth"
	"github.com/ddabattalion/examprep-bot/internal/domain/session"
)

const introText = `🎯 *Welcome to DDA Battalion Exam Prep!*

Here you can:
• Browse preparation programs (NDA, SSP, Scholarship and more)
• Request enrollment and take timed mock tests
• Track your results and profile

Tests are timed: once you start, the clock keeps running until you submit.`

// StartHandler serves /start: the first-run intro, then the main menu. If a
// test is in progress, opening the menu counts as navigating away and
// discards the session (its countdown is cancelled; an in-flight submit is
// left alone).
type StartHandler struct {
	auth     *auth.Manager
	sessions *session.Registry
	log      zerolog.Logger
}

func NewStartHandler(authMgr *auth.Manager, sessions *session.Registry, log zerolog.Logger) *StartHandler {
	return &StartHandler{
		auth:     authMgr,
		sessions: sessions,
		log:      log.With().Str("handler", "start").Logger(),
	}
}

func (h *StartHandler) Handle(c tele.Context) error {
	ctx := context.Background()
	chatID := c.Sender().ID

	if _, ok := h.sessions.Get(chatID); ok {
		h.sessions.Remove(chatID)
		_ = c.Send("Your in-progress test was discarded.")
	}

	if !h.auth.HasSeenIntro(ctx, chatID) {
		if err := c.Send(introText, &tele.SendOptions{ParseMode: tele.ModeMarkdown}); err != nil {
			return err
		}
		if err := h.auth.MarkIntroSeen(ctx, chatID); err != nil {
			h.log.Warn().Int64("chat_id", chatID).Err(err).Msg("mark intro seen")
		}
	}

	return h.SendMenu(c)
}

// SendMenu renders the main menu for the chat's auth state.
func (h *StartHandler) SendMenu(c tele.Context) error {
	chatID := c.Sender().ID
	markup := &tele.ReplyMarkup{}

	if h.auth.IsAuthenticated(context.Background(), chatID) {
		student, _ := h.auth.Student(context.Background(), chatID)
		markup.InlineKeyboard = [][]tele.InlineButton{
			{{Text: "📚 Programs", Unique: "programs"}},
			{{Text: "📊 My Results", Unique: "my_results"}, {Text: "🏆 Leaderboard", Unique: "leaderboard"}},
			{{Text: "👤 Profile", Unique: "profile"}, {Text: "🎓 Education & Enquiry", Unique: "enquiry"}},
		}
		return c.Send("Hello, "+student.FirstName+"! What would you like to do?", markup)
	}

	markup.InlineKeyboard = [][]tele.InlineButton{
		{{Text: "🔑 Log in", Unique: "login"}, {Text: "✍️ Register", Unique: "register"}},
		{{Text: "📚 Browse programs", Unique: "programs"}},
		{{Text: "🎓 Education & Enquiry", Unique: "enquiry"}},
	}
	return c.Send("Welcome! Log in or register to take tests, or browse programs as a guest.", markup)
}

func (h *StartHandler) GetHandlerFunc() tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.Handle(c)
	}
}
