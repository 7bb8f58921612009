package programs_handler

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"github.com/ddabattalion/examprep-bot/internal/api"
)

const pageSize = 5

// ProgramsHandler lists programs page by page with prev/next buttons.
// Selecting a program hands off to the program-tests handler via the
// "program" callback.
type ProgramsHandler struct {
	client *api.Client
	log    zerolog.Logger

	mu    sync.Mutex
	pages map[int64]int
}

func NewProgramsHandler(client *api.Client, log zerolog.Logger) *ProgramsHandler {
	return &ProgramsHandler{
		client: client,
		log:    log.With().Str("handler", "programs").Logger(),
		pages:  make(map[int64]int),
	}
}

// Handle opens the list at the first page.
func (h *ProgramsHandler) Handle(c tele.Context) error {
	h.setPage(c.Sender().ID, 0)
	return h.render(c)
}

// HandleNext advances one page.
func (h *ProgramsHandler) HandleNext(c tele.Context) error {
	h.setPage(c.Sender().ID, h.page(c.Sender().ID)+1)
	return h.render(c)
}

// HandlePrev goes back one page.
func (h *ProgramsHandler) HandlePrev(c tele.Context) error {
	if p := h.page(c.Sender().ID); p > 0 {
		h.setPage(c.Sender().ID, p-1)
	}
	return h.render(c)
}

func (h *ProgramsHandler) render(c tele.Context) error {
	chatID := c.Sender().ID
	programs, err := h.client.Programs(context.Background())
	if err != nil {
		h.log.Warn().Int64("chat_id", chatID).Err(err).Msg("list programs")
		return c.Send("❌ " + api.UserMessage(err))
	}
	if len(programs) == 0 {
		return c.Send("No programs are available right now.")
	}

	totalPages := (len(programs) + pageSize - 1) / pageSize
	page := h.page(chatID)
	if page >= totalPages {
		page = totalPages - 1
		h.setPage(chatID, page)
	}

	from := page * pageSize
	to := from + pageSize
	if to > len(programs) {
		to = len(programs)
	}

	markup := &tele.ReplyMarkup{}
	var rows [][]tele.InlineButton
	for _, p := range programs[from:to] {
		label := p.Name
		if p.TestCount > 0 {
			label = fmt.Sprintf("%s (%d tests)", p.Name, p.TestCount)
		}
		rows = append(rows, []tele.InlineButton{{
			Text:   label,
			Unique: "program",
			Data:   strconv.Itoa(p.ID) + "|" + p.Name,
		}})
	}

	var nav []tele.InlineButton
	if page > 0 {
		nav = append(nav, tele.InlineButton{Text: "⬅️ Prev", Unique: "programs_prev"})
	}
	if page < totalPages-1 {
		nav = append(nav, tele.InlineButton{Text: "Next ➡️", Unique: "programs_next"})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	markup.InlineKeyboard = rows

	text := fmt.Sprintf("📚 Programs (page %d of %d), pick one to see its tests:", page+1, totalPages)
	if c.Callback() != nil {
		if err := c.Edit(text, markup); err == nil {
			return nil
		}
		// The message may be too old to edit; fall through to a fresh send.
	}
	return c.Send(text, markup)
}

func (h *ProgramsHandler) page(chatID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pages[chatID]
}

func (h *ProgramsHandler) setPage(chatID int64, p int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pages[chatID] = p
}

func (h *ProgramsHandler) GetHandlerFunc() tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.Handle(c)
	}
}
