package login_handler

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"github.com/ddabattalion/examprep-bot/internal/api"
	"github.com/ddabattalion/examprep-bot/internal/auth"
	"github.com/ddabattalion/examprep-bot/internal/validate"
)

type stage int

const (
	stageMobile stage = iota
	stagePassword
)

type flow struct {
	stage  stage
	mobile string
}

// LoginHandler runs the two-step conversational login: mobile, then
// password. Credentials are validated locally before the network call.
type LoginHandler struct {
	client *api.Client
	auth   *auth.Manager
	log    zerolog.Logger

	mu    sync.Mutex
	flows map[int64]*flow
}

func NewLoginHandler(client *api.Client, authMgr *auth.Manager, log zerolog.Logger) *LoginHandler {
	return &LoginHandler{
		client: client,
		auth:   authMgr,
		log:    log.With().Str("handler", "login").Logger(),
		flows:  make(map[int64]*flow),
	}
}

// Handle reacts to the "Log in" button and opens the flow.
func (h *LoginHandler) Handle(c tele.Context) error {
	chatID := c.Sender().ID
	if h.auth.IsAuthenticated(context.Background(), chatID) {
		return c.Send("You are already logged in. Use /start to open the menu.")
	}
	h.mu.Lock()
	h.flows[chatID] = &flow{stage: stageMobile}
	h.mu.Unlock()
	return c.Send("Please enter your 10-digit mobile number:")
}

// Active reports whether the chat is in the middle of the login flow.
func (h *LoginHandler) Active(chatID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.flows[chatID]
	return ok
}

// HandleText consumes the next input of an active flow.
func (h *LoginHandler) HandleText(c tele.Context) error {
	chatID := c.Sender().ID
	h.mu.Lock()
	f, ok := h.flows[chatID]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	text := c.Text()
	switch f.stage {
	case stageMobile:
		if fields := validate.Struct(api.LoginRequest{Mobile: text, Password: "x"}); fields != nil {
			return c.Send("Please enter a valid 10-digit mobile number.")
		}
		f.mobile = text
		f.stage = stagePassword
		return c.Send("Now enter your password:")

	case stagePassword:
		// Remove the plain-text password from the chat history.
		_ = c.Delete()

		req := api.LoginRequest{Mobile: f.mobile, Password: text}
		if fields := validate.Struct(req); fields != nil {
			return c.Send("Password is required. Please enter your password:")
		}

		h.clear(chatID)
		data, err := h.client.Login(context.Background(), req)
		if err != nil {
			h.log.Info().Int64("chat_id", chatID).Err(err).Msg("login failed")
			return c.Send("❌ " + api.UserMessage(err))
		}
		if err := h.auth.Login(context.Background(), chatID, data); err != nil {
			h.log.Error().Int64("chat_id", chatID).Err(err).Msg("persist login")
			return c.Send("Something went wrong saving your session. Please try again.")
		}
		h.log.Info().Int64("chat_id", chatID).Int("student_id", data.Student.ID).Msg("logged in")
		return c.Send("✅ Welcome back, " + data.Student.FirstName + "! Use /start to open the menu.")
	}
	return nil
}

// GetHandlerFunc returns Handle as a telebot.HandlerFunc.
func (h *LoginHandler) GetHandlerFunc() tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.Handle(c)
	}
}

func (h *LoginHandler) clear(chatID int64) {
	h.mu.Lock()
	delete(h.flows, chatID)
	h.mu.Unlock()
}
