package middleware

import (
	"errors"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"
)

// Recover intercepts panics raised by a handler, logs them and turns them
// into ordinary errors so the bot keeps polling.
func Recover(log zerolog.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var e error
					switch x := r.(type) {
					case error:
						e = x
					case string:
						e = errors.New(x)
					default:
						e = errors.New("unknown panic")
					}
					log.Error().Err(e).Int64("chat_id", chatID(c)).Msg("recovered from panic")
					err = e
				}
			}()
			return next(c)
		}
	}
}

func chatID(c tele.Context) int64 {
	if s := c.Sender(); s != nil {
		return s.ID
	}
	return 0
}
