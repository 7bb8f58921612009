package timer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"github.com/ddabattalion/examprep-bot/internal/domain/session"
)

// Updater keeps one chat's countdown message current while a test is in
// progress.
type Updater struct {
	bot *tele.Bot
	log zerolog.Logger
}

func NewUpdater(bot *tele.Bot, log zerolog.Logger) *Updater {
	return &Updater{bot: bot, log: log.With().Str("component", "timer").Logger()}
}

// Run drives the session countdown: one Tick per second, the pinned timer
// message edited in place, and onExpired invoked exactly once when the
// countdown reaches zero. It returns when ctx is cancelled or the session
// leaves InProgress. Run is meant to be launched as a goroutine; exactly one
// per chat is kept alive by the session registry.
func (u *Updater) Run(ctx context.Context, chatID int64, messageID int, sess *session.Session, onExpired func()) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining, expired := sess.Tick()
			if expired {
				u.edit(chatID, messageID, "⏰ Time is up! Submitting your answers...")
				onExpired()
				return
			}
			if sess.State() != session.InProgress {
				return
			}
			u.edit(chatID, messageID, Text(sess, remaining))
		}
	}
}

// Text renders the countdown line for the given remaining seconds.
func Text(sess *session.Session, remaining int) string {
	_, idx := sess.Current()
	line := fmt.Sprintf("⏱ Time left: %s · Question %d of %d · Answered %d",
		session.FormatClock(remaining), idx+1, sess.Len(), sess.AnsweredCount())
	if remaining < session.DangerSeconds {
		line = "⚠️ " + line
	}
	return line
}

func (u *Updater) edit(chatID int64, messageID int, text string) {
	_, err := u.bot.Edit(&tele.Message{
		ID:   messageID,
		Chat: &tele.Chat{ID: chatID},
	}, text)
	if err != nil && !strings.Contains(err.Error(), "message is not modified") {
		u.log.Debug().Int64("chat_id", chatID).Err(err).Msg("edit timer message")
	}
}
