package register_handler

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"github.com/ddabattalion/examprep-bot/internal/api"
	"github.com/ddabattalion/examprep-bot/internal/auth"
	"github.com/ddabattalion/examprep-bot/internal/validate"
)

type stage int

const (
	stageFirstName stage = iota
	stageLastName
	stageDOB
	stageMobile
	stagePassword
	stageQualification
	stageAlternateMobile
)

var prompts = map[stage]string{
	stageFirstName:       "What is your first name?",
	stageLastName:        "And your last name?",
	stageDOB:             "Date of birth (YYYY-MM-DD):",
	stageMobile:          "Your 10-digit mobile number:",
	stagePassword:        "Choose a password (at least 6 characters):",
	stageQualification:   "Your qualification (e.g. 12th, Graduate):",
	stageAlternateMobile: "Alternate mobile number (or type 'skip'):",
}

type flow struct {
	stage stage
	req   api.RegisterRequest
}

// RegisterHandler walks a chat through the registration form one field at a
// time, validates the result locally and registers against the backend.
// Registration logs the student in on success.
type RegisterHandler struct {
	client *api.Client
	auth   *auth.Manager
	log    zerolog.Logger

	mu    sync.Mutex
	flows map[int64]*flow
}

func NewRegisterHandler(client *api.Client, authMgr *auth.Manager, log zerolog.Logger) *RegisterHandler {
	return &RegisterHandler{
		client: client,
		auth:   authMgr,
		log:    log.With().Str("handler", "register").Logger(),
		flows:  make(map[int64]*flow),
	}
}

func (h *RegisterHandler) Handle(c tele.Context) error {
	chatID := c.Sender().ID
	if h.auth.IsAuthenticated(context.Background(), chatID) {
		return c.Send("You already have an account and are logged in.")
	}
	h.mu.Lock()
	h.flows[chatID] = &flow{stage: stageFirstName}
	h.mu.Unlock()
	return c.Send("Let's create your account.\n\n" + prompts[stageFirstName])
}

func (h *RegisterHandler) Active(chatID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.flows[chatID]
	return ok
}

func (h *RegisterHandler) HandleText(c tele.Context) error {
	chatID := c.Sender().ID
	h.mu.Lock()
	f, ok := h.flows[chatID]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	text := strings.TrimSpace(c.Text())
	switch f.stage {
	case stageFirstName:
		f.req.FirstName = text
	case stageLastName:
		f.req.LastName = text
	case stageDOB:
		f.req.DOB = text
	case stageMobile:
		f.req.Mobile = text
	case stagePassword:
		_ = c.Delete()
		f.req.Password = text
	case stageQualification:
		f.req.Qualification = text
	case stageAlternateMobile:
		if !strings.EqualFold(text, "skip") {
			f.req.AlternateMobile = text
		}
		return h.finish(c, chatID, f)
	}

	f.stage++
	return c.Send(prompts[f.stage])
}

func (h *RegisterHandler) finish(c tele.Context, chatID int64, f *flow) error {
	h.mu.Lock()
	delete(h.flows, chatID)
	h.mu.Unlock()

	if fields := validate.Struct(f.req); fields != nil {
		return c.Send("Some fields need another look:\n" + validate.Describe(fields) + "\n\nTap Register to start over.")
	}

	data, err := h.client.Register(context.Background(), f.req)
	if err != nil {
		h.log.Info().Int64("chat_id", chatID).Err(err).Msg("registration failed")
		return c.Send("❌ " + api.UserMessage(err))
	}
	if err := h.auth.Login(context.Background(), chatID, data); err != nil {
		h.log.Error().Int64("chat_id", chatID).Err(err).Msg("persist registration")
		return c.Send("Registered, but saving your session failed. Please log in.")
	}
	h.log.Info().Int64("chat_id", chatID).Int("student_id", data.Student.ID).Msg("registered")
	return c.Send("🎉 Registration successful! Welcome, " + data.Student.FirstName + ". Use /start to open the menu.")
}

func (h *RegisterHandler) GetHandlerFunc() tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.Handle(c)
	}
}
