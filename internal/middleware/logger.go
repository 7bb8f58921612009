package middleware

import (
	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"
)

// Logger emits one debug event per incoming update: who did what, and
// whether the handler failed.
func Logger(log zerolog.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			ev := log.Debug().Int64("chat_id", chatID(c))
			switch {
			case c.Callback() != nil:
				ev = ev.Str("kind", "callback").Str("data", c.Callback().Data)
			case c.Message() != nil:
				ev = ev.Str("kind", "message").Str("text", c.Message().Text)
			default:
				ev = ev.Str("kind", "other")
			}
			err := next(c)
			if err != nil {
				log.Warn().Int64("chat_id", chatID(c)).Err(err).Msg("handler failed")
			}
			ev.Msg("update handled")
			return err
		}
	}
}
