package program_tests_handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"github.com/ddabattalion/examprep-bot/internal/api"
	"github.com/ddabattalion/examprep-bot/internal/auth"
)

const minRequestMessage = 10

type enrollFlow struct {
	testID int
}

// ProgramTestsHandler shows the tests of a program, checks per-test access
// and runs the enrollment-request flow for tests the student cannot take
// yet. A 403 from check-access means "not enrolled", not an error.
type ProgramTestsHandler struct {
	client *api.Client
	auth   *auth.Manager
	log    zerolog.Logger

	mu    sync.Mutex
	flows map[int64]*enrollFlow
}

func NewProgramTestsHandler(client *api.Client, authMgr *auth.Manager, log zerolog.Logger) *ProgramTestsHandler {
	return &ProgramTestsHandler{
		client: client,
		auth:   authMgr,
		log:    log.With().Str("handler", "program_tests").Logger(),
		flows:  make(map[int64]*enrollFlow),
	}
}

// HandleProgram reacts to a program selection: callback data is "id|name".
func (h *ProgramTestsHandler) HandleProgram(c tele.Context) error {
	parts := strings.SplitN(callbackData(c), "|", 2)
	programID, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("bad program callback %q", callbackData(c))
	}
	programName := ""
	if len(parts) == 2 {
		programName = parts[1]
	}

	tests, err := h.client.TestsByProgram(context.Background(), programID)
	if err != nil {
		return c.Send("❌ " + api.UserMessage(err))
	}
	if len(tests) == 0 {
		return c.Send("No tests in " + programName + " yet. Check back soon!")
	}

	markup := &tele.ReplyMarkup{}
	var rows [][]tele.InlineButton
	var b strings.Builder
	fmt.Fprintf(&b, "📝 Tests in %s:\n\n", programName)
	for _, t := range tests {
		fmt.Fprintf(&b, "• %s: %d min, %d marks\n", t.Title, t.Duration, t.TotalMarks)
		rows = append(rows, []tele.InlineButton{{
			Text:   t.Title,
			Unique: "test",
			Data:   encodeTest(t),
		}})
	}
	markup.InlineKeyboard = rows
	return c.Send(b.String(), markup)
}

// HandleTest reacts to a test selection: it checks enrollment access and
// offers either the start entry or the enrollment request.
func (h *ProgramTestsHandler) HandleTest(c tele.Context) error {
	chatID := c.Sender().ID
	test, err := DecodeTest(callbackData(c))
	if err != nil {
		return err
	}

	ctx := context.Background()
	token := h.auth.Token(ctx, chatID)
	if token == "" {
		return c.Send("Please log in first to take tests. Use /start and tap Log in.")
	}

	access, err := h.client.CheckTestAccess(ctx, token, test.ID)
	if err != nil {
		return c.Send("❌ " + api.UserMessage(err))
	}

	if access.HasAccess {
		markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
			{{Text: "▶️ Take this test", Unique: "taketest", Data: encodeTest(test)}},
		}}
		return c.Send(fmt.Sprintf("✅ You are enrolled in %q.\nDuration: %d minutes · Total marks: %d",
			test.Title, test.Duration, test.TotalMarks), markup)
	}

	// Not enrolled. If a request is already pending, say so instead of
	// letting the student file duplicates.
	if reqs, err := h.client.MyEnrollmentRequests(ctx, token); err == nil {
		for _, r := range reqs {
			if r.TestID == test.ID && strings.EqualFold(r.Status, "pending") {
				return c.Send(fmt.Sprintf("⏳ Your enrollment request for %q is pending approval.", test.Title))
			}
		}
	}

	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		{{Text: "📨 Request enrollment", Unique: "enroll", Data: strconv.Itoa(test.ID)}},
	}}
	return c.Send(fmt.Sprintf("🔒 You are not enrolled in %q yet. You can request enrollment and an admin will review it.", test.Title), markup)
}

// HandleEnroll opens the request-message flow.
func (h *ProgramTestsHandler) HandleEnroll(c tele.Context) error {
	testID, err := strconv.Atoi(callbackData(c))
	if err != nil {
		return fmt.Errorf("bad enroll callback %q", callbackData(c))
	}
	h.mu.Lock()
	h.flows[c.Sender().ID] = &enrollFlow{testID: testID}
	h.mu.Unlock()
	return c.Send(fmt.Sprintf("Tell the admin briefly why you want access (at least %d characters):", minRequestMessage))
}

func (h *ProgramTestsHandler) Active(chatID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.flows[chatID]
	return ok
}

func (h *ProgramTestsHandler) HandleText(c tele.Context) error {
	chatID := c.Sender().ID
	h.mu.Lock()
	f, ok := h.flows[chatID]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	message := strings.TrimSpace(c.Text())
	if len(message) < minRequestMessage {
		return c.Send(fmt.Sprintf("That message is a bit short. At least %d characters, please:", minRequestMessage))
	}

	h.mu.Lock()
	delete(h.flows, chatID)
	h.mu.Unlock()

	ctx := context.Background()
	token := h.auth.Token(ctx, chatID)
	if token == "" {
		return c.Send("Your session expired. Please log in again.")
	}
	if err := h.client.RequestEnrollment(ctx, token, f.testID, message); err != nil {
		h.log.Info().Int64("chat_id", chatID).Int("test_id", f.testID).Err(err).Msg("enrollment request failed")
		return c.Send("❌ " + api.UserMessage(err))
	}
	h.log.Info().Int64("chat_id", chatID).Int("test_id", f.testID).Msg("enrollment requested")
	return c.Send("📨 Request sent! You will get access once an admin approves it.")
}

// encodeTest packs the descriptor fields a later screen needs into callback
// data. The title goes last so it may contain separators.
func encodeTest(t api.Test) string {
	return fmt.Sprintf("%d|%d|%d|%s", t.ID, t.Duration, t.TotalMarks, t.Title)
}

// DecodeTest is the inverse of the packing done on test selection buttons.
func DecodeTest(data string) (api.Test, error) {
	parts := strings.SplitN(data, "|", 4)
	if len(parts) != 4 {
		return api.Test{}, fmt.Errorf("bad test callback %q", data)
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return api.Test{}, fmt.Errorf("bad test id in %q", data)
	}
	duration, err := strconv.Atoi(parts[1])
	if err != nil {
		return api.Test{}, fmt.Errorf("bad duration in %q", data)
	}
	marks, err := strconv.Atoi(parts[2])
	if err != nil {
		return api.Test{}, fmt.Errorf("bad marks in %q", data)
	}
	return api.Test{ID: id, Duration: duration, TotalMarks: marks, Title: parts[3]}, nil
}

func callbackData(c tele.Context) string {
	data := strings.TrimSpace(c.Callback().Data)
	data = strings.ReplaceAll(data, "\f", "")
	return data
}
