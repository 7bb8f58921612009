package enquiry_handler

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"github.com/ddabattalion/examprep-bot/internal/api"
	"github.com/ddabattalion/examprep-bot/internal/validate"
)

type stage int

const (
	stageFullName stage = iota
	stageMobile
	stageEmail
	stageProgram
	stageMessage
)

var prompts = map[stage]string{
	stageFullName: "Your full name:",
	stageMobile:   "Your 10-digit mobile number:",
	stageEmail:    "Email address (or type 'skip'):",
	stageProgram:  "Which program are you asking about?",
	stageMessage:  "Your message (or type 'skip'):",
}

type flow struct {
	stage stage
	enq   api.Enquiry
}

// EnquiryHandler collects a contact-form enquiry one field at a time.
// Enquiries do not require a login.
type EnquiryHandler struct {
	client *api.Client
	log    zerolog.Logger

	mu    sync.Mutex
	flows map[int64]*flow
}

func NewEnquiryHandler(client *api.Client, log zerolog.Logger) *EnquiryHandler {
	return &EnquiryHandler{
		client: client,
		log:    log.With().Str("handler", "enquiry").Logger(),
		flows:  make(map[int64]*flow),
	}
}

func (h *EnquiryHandler) Handle(c tele.Context) error {
	chatID := c.Sender().ID
	h.mu.Lock()
	h.flows[chatID] = &flow{stage: stageFullName}
	h.mu.Unlock()
	return c.Send("✉️ Send us an enquiry.\n\n" + prompts[stageFullName])
}

func (h *EnquiryHandler) Active(chatID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.flows[chatID]
	return ok
}

func (h *EnquiryHandler) HandleText(c tele.Context) error {
	chatID := c.Sender().ID
	h.mu.Lock()
	f, ok := h.flows[chatID]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	text := strings.TrimSpace(c.Text())
	switch f.stage {
	case stageFullName:
		f.enq.FullName = text
	case stageMobile:
		f.enq.MobileNumber = text
	case stageEmail:
		if !strings.EqualFold(text, "skip") {
			f.enq.EmailAddress = text
		}
	case stageProgram:
		f.enq.ProgramName = text
	case stageMessage:
		if !strings.EqualFold(text, "skip") {
			f.enq.Message = text
		}
		return h.finish(c, chatID, f)
	}

	f.stage++
	return c.Send(prompts[f.stage])
}

func (h *EnquiryHandler) finish(c tele.Context, chatID int64, f *flow) error {
	h.mu.Lock()
	delete(h.flows, chatID)
	h.mu.Unlock()

	if fields := validate.Struct(f.enq); fields != nil {
		return c.Send("Some fields need another look:\n" + validate.Describe(fields) + "\n\nTap Enquiry to start over.")
	}

	if err := h.client.SubmitEnquiry(context.Background(), f.enq); err != nil {
		h.log.Info().Int64("chat_id", chatID).Err(err).Msg("enquiry failed")
		return c.Send("❌ " + api.UserMessage(err))
	}
	h.log.Info().Int64("chat_id", chatID).Str("program", f.enq.ProgramName).Msg("enquiry submitted")
	return c.Send("✅ Thanks! Your enquiry was sent. We will get back to you soon.")
}

func (h *EnquiryHandler) GetHandlerFunc() tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.Handle(c)
	}
}
