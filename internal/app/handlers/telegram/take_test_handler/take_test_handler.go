package take_test_handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"github.com/ddabattalion/examprep-bot/internal/api"
	"github.com/ddabattalion/examprep-bot/internal/app/handlers/telegram/program_tests_handler"
	"github.com/ddabattalion/examprep-bot/internal/auth"
	"github.com/ddabattalion/examprep-bot/internal/domain/session"
	"github.com/ddabattalion/examprep-bot/internal/infra/timer"
)

// TakeTestHandler drives one timed attempt end to end: disclaimer, start,
// question navigation, answer selection, the confirm-submit step, the
// countdown with forced submit, and the retry/abandon protocol after a
// failed submit.
type TakeTestHandler struct {
	bot      *tele.Bot
	client   *api.Client
	auth     *auth.Manager
	sessions *session.Registry
	updater  *timer.Updater
	log      zerolog.Logger
}

func NewTakeTestHandler(
	bot *tele.Bot,
	client *api.Client,
	authMgr *auth.Manager,
	sessions *session.Registry,
	updater *timer.Updater,
	log zerolog.Logger,
) *TakeTestHandler {
	return &TakeTestHandler{
		bot:      bot,
		client:   client,
		auth:     authMgr,
		sessions: sessions,
		updater:  updater,
		log:      log.With().Str("handler", "take_test").Logger(),
	}
}

// HandleTakeTest fetches the questions, builds the session and shows the
// disclaimer. The start-test call happens only after the explicit confirm.
func (h *TakeTestHandler) HandleTakeTest(c tele.Context) error {
	chatID := c.Sender().ID
	test, err := program_tests_handler.DecodeTest(callbackData(c))
	if err != nil {
		return err
	}
	if !h.auth.IsAuthenticated(context.Background(), chatID) {
		return c.Send("Please log in first.")
	}

	questions, err := h.client.QuestionsByTest(context.Background(), test.ID)
	if err != nil {
		return c.Send("❌ " + api.UserMessage(err))
	}

	sess, err := session.New(test, questions)
	if err != nil {
		if errors.Is(err, session.ErrNoQuestions) {
			return c.Send("This test has no questions yet.")
		}
		return err
	}
	h.sessions.Put(chatID, sess, nil)
	h.log.Info().
		Int64("chat_id", chatID).
		Str("session_id", sess.ID().String()).
		Int("test_id", test.ID).
		Int("questions", sess.Len()).
		Msg("session created")

	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		{{Text: "✅ Start the test", Unique: "teststart"}, {Text: "Cancel", Unique: "testcancel"}},
	}}
	disclaimer := fmt.Sprintf(
		"📋 *%s*\n\n"+
			"• %d questions, %d marks total\n"+
			"• Time limit: %d minutes, and the timer cannot be paused\n"+
			"• You can move between questions and change answers until you submit\n"+
			"• When time runs out your answers are submitted automatically\n\n"+
			"Ready?",
		test.Title, sess.Len(), test.TotalMarks, test.Duration)
	return c.Send(disclaimer, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
}

// HandleStart confirms the disclaimer: one start-test call, then the
// countdown message and the first question.
func (h *TakeTestHandler) HandleStart(c tele.Context) error {
	chatID := c.Sender().ID
	sess, ok := h.sessions.Get(chatID)
	if !ok {
		return c.Send("No test is waiting to start. Pick a test first.")
	}

	token := h.auth.Token(context.Background(), chatID)
	if err := sess.Start(context.Background(), h.client, token); err != nil {
		switch {
		case errors.Is(err, session.ErrNotAwaitingStart), errors.Is(err, session.ErrStartInFlight):
			return nil
		default:
			h.log.Info().Int64("chat_id", chatID).Err(err).Msg("start test failed")
			return c.Send("❌ Could not start the test: " + api.UserMessage(err) + "\nTap the start button to try again.")
		}
	}

	h.log.Info().
		Int64("chat_id", chatID).
		Str("session_id", sess.ID().String()).
		Int("submission_id", sess.SubmissionID()).
		Msg("test started")

	timerMsg, err := h.bot.Send(tele.ChatID(chatID), timer.Text(sess, sess.Remaining()))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.sessions.Put(chatID, sess, cancel)
	go h.updater.Run(ctx, chatID, timerMsg.ID, sess, func() {
		h.finish(chatID, true)
	})

	text, markup := h.renderQuestion(sess)
	return c.Send(text, markup)
}

// HandleCancel dismisses the disclaimer without starting.
func (h *TakeTestHandler) HandleCancel(c tele.Context) error {
	h.sessions.Remove(c.Sender().ID)
	return c.Send("Test cancelled. Nothing was started.")
}

// HandleAnswer records the tapped option for the current question and
// refreshes the question message in place.
func (h *TakeTestHandler) HandleAnswer(c tele.Context) error {
	chatID := c.Sender().ID
	sess, ok := h.sessions.Get(chatID)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "This test is no longer active."})
	}
	if err := sess.Select(api.Option(callbackData(c))); err != nil {
		if errors.Is(err, session.ErrNotInProgress) {
			return c.Respond(&tele.CallbackResponse{Text: "This test is no longer active."})
		}
		return err
	}
	text, markup := h.renderQuestion(sess)
	return c.Edit(text, markup)
}

// HandlePrev moves to the previous question; at the first one it is a no-op.
func (h *TakeTestHandler) HandlePrev(c tele.Context) error {
	return h.navigate(c, func(s *session.Session) { s.Prev() })
}

// HandleNext moves to the next question; at the last one it is a no-op.
func (h *TakeTestHandler) HandleNext(c tele.Context) error {
	return h.navigate(c, func(s *session.Session) { s.Next() })
}

func (h *TakeTestHandler) navigate(c tele.Context, move func(*session.Session)) error {
	sess, ok := h.sessions.Get(c.Sender().ID)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "This test is no longer active."})
	}
	_, before := sess.Current()
	move(sess)
	_, after := sess.Current()
	if before == after {
		return c.Respond(&tele.CallbackResponse{})
	}
	text, markup := h.renderQuestion(sess)
	return c.Edit(text, markup)
}

// HandleSubmit is the first half of the explicit submit: a confirm step.
func (h *TakeTestHandler) HandleSubmit(c tele.Context) error {
	chatID := c.Sender().ID
	sess, ok := h.sessions.Get(chatID)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "This test is no longer active."})
	}
	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		{{Text: "✅ Yes, submit now", Unique: "testsubmityes"}, {Text: "↩️ Keep going", Unique: "testsubmitno"}},
	}}
	return c.Send(fmt.Sprintf("You have answered %d of %d questions. Submit now?",
		sess.AnsweredCount(), sess.Len()), markup)
}

// HandleSubmitYes fires the actual submission.
func (h *TakeTestHandler) HandleSubmitYes(c tele.Context) error {
	h.finish(c.Sender().ID, false)
	return c.Respond(&tele.CallbackResponse{})
}

// HandleSubmitNo backs out of the confirm step.
func (h *TakeTestHandler) HandleSubmitNo(c tele.Context) error {
	return c.Edit("Carry on, the clock is still running.")
}

// HandleRetry re-sends the current answers after a failed submit, against
// the same submission id.
func (h *TakeTestHandler) HandleRetry(c tele.Context) error {
	h.finish(c.Sender().ID, false)
	return c.Respond(&tele.CallbackResponse{})
}

// HandleAbandon gives up on a failed submission and discards the session.
func (h *TakeTestHandler) HandleAbandon(c tele.Context) error {
	chatID := c.Sender().ID
	if sess, ok := h.sessions.Get(chatID); ok {
		sess.Abandon()
	}
	h.sessions.Remove(chatID)
	return c.Send("Test abandoned. Your answers were not submitted.")
}

// finish runs one submit attempt. forced marks the countdown-expired path,
// which has no confirm step and no second chance on an empty answer map.
// It is called both from handlers and from the countdown goroutine, so it
// sends through the bot rather than a telebot context.
func (h *TakeTestHandler) finish(chatID int64, forced bool) {
	sess, ok := h.sessions.Get(chatID)
	if !ok {
		return
	}
	token := h.auth.Token(context.Background(), chatID)

	res, err := sess.Submit(context.Background(), h.client, token)
	switch {
	case err == nil:
		h.sessions.Remove(chatID)
		h.log.Info().
			Int64("chat_id", chatID).
			Str("session_id", sess.ID().String()).
			Int("correct", res.CorrectCount).
			Int("marks", res.MarksAwarded).
			Bool("forced", forced).
			Msg("test submitted")
		h.send(chatID, fmt.Sprintf(
			"🎉 *Test submitted!*\n\n"+
				"Correct answers: %d of %d\n"+
				"Marks: %d of %d\n"+
				"Questions answered: %d\n\n"+
				"Find this attempt later under 📊 My Results.",
			res.CorrectCount, res.TotalCount, res.MarksAwarded, res.TotalMarks, res.AnsweredCount))

	case errors.Is(err, session.ErrSubmitInFlight):
		// A manual submit raced the timer (or a double tap). First one wins.

	case errors.Is(err, session.ErrNoAnswers):
		if forced {
			h.sessions.Remove(chatID)
			h.send(chatID, "⏰ Time is up. No questions were answered, so nothing was submitted.")
			return
		}
		h.send(chatID, "Please answer at least one question before submitting.")

	default:
		h.log.Warn().
			Int64("chat_id", chatID).
			Str("session_id", sess.ID().String()).
			Err(err).
			Msg("submit failed")
		markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
			{{Text: "🔁 Retry submission", Unique: "testretry"}, {Text: "🚪 Abandon", Unique: "testabandon"}},
		}}
		h.sendMarkup(chatID, "❌ Submission failed: "+api.UserMessage(err)+"\nYour answers are safe, you can retry.", markup)
	}
}

func (h *TakeTestHandler) renderQuestion(sess *session.Session) (string, *tele.ReplyMarkup) {
	q, idx := sess.Current()
	answer, _ := sess.Answer(q.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "❓ Question %d of %d (%d marks)\n\n%s\n", idx+1, sess.Len(), q.Marks, q.QuestionText)
	if q.QuestionImage != "" {
		fmt.Fprintf(&b, "🖼 %s\n", q.QuestionImage)
	}
	b.WriteString("\n")
	for _, o := range api.Options {
		marker := "  "
		if answer.Answered && answer.Selected == o {
			marker = "✅"
		}
		fmt.Fprintf(&b, "%s %s) %s\n", marker, strings.ToUpper(string(o)), q.OptionText(o))
	}
	fmt.Fprintf(&b, "\nAnswered %d of %d", sess.AnsweredCount(), sess.Len())

	var optionRow []tele.InlineButton
	for _, o := range api.Options {
		label := strings.ToUpper(string(o))
		if answer.Answered && answer.Selected == o {
			label = "✅ " + label
		}
		optionRow = append(optionRow, tele.InlineButton{Text: label, Unique: "answer", Data: string(o)})
	}

	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		optionRow,
		{{Text: "⬅️ Prev", Unique: "testprev"}, {Text: "Next ➡️", Unique: "testnext"}},
		{{Text: "📤 Submit test", Unique: "testsubmit"}},
	}}
	return b.String(), markup
}

func (h *TakeTestHandler) send(chatID int64, text string) {
	_, err := h.bot.Send(tele.ChatID(chatID), text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	if err != nil {
		h.log.Warn().Int64("chat_id", chatID).Err(err).Msg("send")
	}
}

func (h *TakeTestHandler) sendMarkup(chatID int64, text string, markup *tele.ReplyMarkup) {
	_, err := h.bot.Send(tele.ChatID(chatID), text, markup)
	if err != nil {
		h.log.Warn().Int64("chat_id", chatID).Err(err).Msg("send")
	}
}

func callbackData(c tele.Context) string {
	data := strings.TrimSpace(c.Callback().Data)
	data = strings.ReplaceAll(data, "\f", "")
	return data
}
