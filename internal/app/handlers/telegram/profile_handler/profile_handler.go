package profile_handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"github.com/ddabattalion/examprep-bot/internal/api"
	"github.com/ddabattalion/examprep-bot/internal/auth"
)

// ProfileHandler shows the student card with completed tests and offers
// logout.
type ProfileHandler struct {
	client *api.Client
	auth   *auth.Manager
	log    zerolog.Logger
}

func NewProfileHandler(client *api.Client, authMgr *auth.Manager, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		client: client,
		auth:   authMgr,
		log:    log.With().Str("handler", "profile").Logger(),
	}
}

// HandleProfile refreshes the profile from the backend, falling back to
// the cached copy when the refresh fails for anything but an expired
// token.
func (h *ProfileHandler) HandleProfile(c tele.Context) error {
	chatID := c.Sender().ID
	ctx := context.Background()
	token := h.auth.Token(ctx, chatID)
	if token == "" {
		return c.Send("Please log in to see your profile.")
	}

	student, err := h.client.Profile(ctx, token)
	switch {
	case err == nil:
		if uerr := h.auth.UpdateStudent(ctx, chatID, student); uerr != nil {
			h.log.Warn().Int64("chat_id", chatID).Err(uerr).Msg("cache profile")
		}
	case api.KindOf(err) == api.KindAuth:
		if lerr := h.auth.Logout(ctx, chatID); lerr != nil {
			h.log.Warn().Int64("chat_id", chatID).Err(lerr).Msg("logout")
		}
		return c.Send(api.UserMessage(err))
	default:
		cached, ok := h.auth.Student(ctx, chatID)
		if !ok {
			return c.Send("❌ " + api.UserMessage(err))
		}
		h.log.Info().Int64("chat_id", chatID).Err(err).Msg("profile refresh failed, using cache")
		student = cached
	}

	completed, cerr := h.client.CompletedTests(ctx, token)
	if cerr != nil {
		h.log.Info().Int64("chat_id", chatID).Err(cerr).Msg("completed tests failed")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 *%s %s*\n\n", student.FirstName, student.LastName)
	fmt.Fprintf(&b, "📱 Mobile: %s\n", student.Mobile)
	if student.AlternateMobile != "" {
		fmt.Fprintf(&b, "📱 Alternate: %s\n", student.AlternateMobile)
	}
	if student.DOB != "" {
		fmt.Fprintf(&b, "🎂 Date of birth: %s\n", student.DOB)
	}
	if student.Qualification != "" {
		fmt.Fprintf(&b, "🎓 Qualification: %s\n", student.Qualification)
	}
	if cerr == nil {
		fmt.Fprintf(&b, "\n✅ Completed tests: %d\n", len(completed))
		for _, r := range completed {
			fmt.Fprintf(&b, "  • %s: %d/%d\n", r.TestTitle, r.Score, r.TotalMarks)
		}
	}

	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		{{Text: "🚪 Log out", Unique: "logout"}},
	}}
	return c.Send(b.String(), &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
}

// HandleLogout clears the stored token and profile for this chat.
func (h *ProfileHandler) HandleLogout(c tele.Context) error {
	chatID := c.Sender().ID
	if err := h.auth.Logout(context.Background(), chatID); err != nil {
		return err
	}
	h.log.Info().Int64("chat_id", chatID).Msg("logged out")
	return c.Send("👋 You are logged out. Send /start whenever you want to continue.")
}

func (h *ProfileHandler) GetProfileFunc() tele.HandlerFunc {
	return h.HandleProfile
}

func (h *ProfileHandler) GetLogoutFunc() tele.HandlerFunc {
	return h.HandleLogout
}
