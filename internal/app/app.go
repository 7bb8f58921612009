package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"
	telemw "gopkg.in/telebot.v4/middleware"

	"github.com/ddabattalion/examprep-bot/internal/api"
	"github.com/ddabattalion/examprep-bot/internal/app/handlers/telegram/enquiry_handler"
	"github.com/ddabattalion/examprep-bot/internal/app/handlers/telegram/login_handler"
	"github.com/ddabattalion/examprep-bot/internal/app/handlers/telegram/profile_handler"
	"github.com/ddabattalion/examprep-bot/internal/app/handlers/telegram/program_tests_handler"
	"github.com/ddabattalion/examprep-bot/internal/app/handlers/telegram/programs_handler"
	"github.com/ddabattalion/examprep-bot/internal/app/handlers/telegram/register_handler"
	"github.com/ddabattalion/examprep-bot/internal/app/handlers/telegram/results_handler"
	"github.com/ddabattalion/examprep-bot/internal/app/handlers/telegram/start_handler"
	"github.com/ddabattalion/examprep-bot/internal/app/handlers/telegram/take_test_handler"
	"github.com/ddabattalion/examprep-bot/internal/auth"
	"github.com/ddabattalion/examprep-bot/internal/domain/session"
	"github.com/ddabattalion/examprep-bot/internal/infra/config"
	"github.com/ddabattalion/examprep-bot/internal/infra/logger"
	"github.com/ddabattalion/examprep-bot/internal/infra/timer"
	"github.com/ddabattalion/examprep-bot/internal/middleware"
	"github.com/ddabattalion/examprep-bot/internal/store"
)

// TextFlow is a screen that owns a multi-step text conversation. The OnText
// dispatcher gives the message to the first active flow.
type TextFlow interface {
	Active(chatID int64) bool
	HandleText(c tele.Context) error
}

type handlers struct {
	start        *start_handler.StartHandler
	login        *login_handler.LoginHandler
	register     *register_handler.RegisterHandler
	programs     *programs_handler.ProgramsHandler
	programTests *program_tests_handler.ProgramTestsHandler
	takeTest     *take_test_handler.TakeTestHandler
	results      *results_handler.ResultsHandler
	profile      *profile_handler.ProfileHandler
	enquiry      *enquiry_handler.EnquiryHandler
}

// App wires the config, store, API client and Telegram handlers together.
type App struct {
	config   *config.Config
	log      zerolog.Logger
	bot      *tele.Bot
	store    store.Store
	auth     *auth.Manager
	client   *api.Client
	sessions *session.Registry

	handlers handlers
	flows    []TextFlow
}

func NewApp(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config.LoadConfig: %w", err)
	}

	log := logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	st, err := store.Open(context.Background(), cfg.Storage.Type, cfg.Storage.Path, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("store.Open: %w", err)
	}

	app := &App{
		config:   cfg,
		log:      log,
		store:    st,
		auth:     auth.NewManager(st),
		client:   api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, log),
		sessions: session.NewRegistry(),
	}
	return app, nil
}

// ListenAndServeTelegram builds the bot, registers the handlers and starts
// long polling. It blocks until Stop is called.
func (app *App) ListenAndServeTelegram() error {
	bot, err := tele.NewBot(tele.Settings{
		Token:  app.config.TelegramBot.Token,
		Poller: &tele.LongPoller{Timeout: app.config.TelegramBot.PollTimeout},
	})
	if err != nil {
		return fmt.Errorf("telebot.NewBot: %w", err)
	}
	app.bot = bot

	bot.Use(telemw.AutoRespond())
	bot.Use(middleware.Recover(app.log))
	if app.config.TelegramBot.Debug {
		bot.Use(middleware.Logger(app.log))
	}

	app.initHandlers()
	app.bootstrapHandlersTelegram()

	app.log.Info().Str("base_url", app.config.API.BaseURL).Msg("bot starting")
	bot.Start()
	return nil
}

// Stop shuts the poller down.
func (app *App) Stop() {
	if app.bot != nil {
		app.bot.Stop()
	}
}

func (app *App) initHandlers() {
	updater := timer.NewUpdater(app.bot, app.log)

	app.handlers.start = start_handler.NewStartHandler(app.auth, app.sessions, app.log)
	app.handlers.login = login_handler.NewLoginHandler(app.client, app.auth, app.log)
	app.handlers.register = register_handler.NewRegisterHandler(app.client, app.auth, app.log)
	app.handlers.programs = programs_handler.NewProgramsHandler(app.client, app.log)
	app.handlers.programTests = program_tests_handler.NewProgramTestsHandler(app.client, app.auth, app.log)
	app.handlers.takeTest = take_test_handler.NewTakeTestHandler(app.bot, app.client, app.auth, app.sessions, updater, app.log)
	app.handlers.results = results_handler.NewResultsHandler(app.client, app.auth, app.log)
	app.handlers.profile = profile_handler.NewProfileHandler(app.client, app.auth, app.log)
	app.handlers.enquiry = enquiry_handler.NewEnquiryHandler(app.client, app.log)

	// Text messages go to whichever conversational flow is active for the
	// chat. Order decides when a chat somehow has two active flows.
	app.flows = []TextFlow{
		app.handlers.login,
		app.handlers.register,
		app.handlers.enquiry,
		app.handlers.programTests,
	}
}

func (app *App) bootstrapHandlersTelegram() {
	h := app.handlers

	app.bot.Handle("/start", h.start.GetHandlerFunc())

	// Auth.
	app.bot.Handle(&tele.InlineButton{Unique: "login"}, h.login.GetHandlerFunc())
	app.bot.Handle(&tele.InlineButton{Unique: "register"}, h.register.GetHandlerFunc())
	app.bot.Handle(&tele.InlineButton{Unique: "logout"}, h.profile.GetLogoutFunc())

	// Program browsing and enrollment.
	app.bot.Handle(&tele.InlineButton{Unique: "programs"}, h.programs.GetHandlerFunc())
	app.bot.Handle(&tele.InlineButton{Unique: "programs_next"}, h.programs.HandleNext)
	app.bot.Handle(&tele.InlineButton{Unique: "programs_prev"}, h.programs.HandlePrev)
	app.bot.Handle(&tele.InlineButton{Unique: "program"}, h.programTests.HandleProgram)
	app.bot.Handle(&tele.InlineButton{Unique: "test"}, h.programTests.HandleTest)
	app.bot.Handle(&tele.InlineButton{Unique: "enroll"}, h.programTests.HandleEnroll)

	// Test taking.
	app.bot.Handle(&tele.InlineButton{Unique: "taketest"}, h.takeTest.HandleTakeTest)
	app.bot.Handle(&tele.InlineButton{Unique: "teststart"}, h.takeTest.HandleStart)
	app.bot.Handle(&tele.InlineButton{Unique: "testcancel"}, h.takeTest.HandleCancel)
	app.bot.Handle(&tele.InlineButton{Unique: "answer"}, h.takeTest.HandleAnswer)
	app.bot.Handle(&tele.InlineButton{Unique: "testprev"}, h.takeTest.HandlePrev)
	app.bot.Handle(&tele.InlineButton{Unique: "testnext"}, h.takeTest.HandleNext)
	app.bot.Handle(&tele.InlineButton{Unique: "testsubmit"}, h.takeTest.HandleSubmit)
	app.bot.Handle(&tele.InlineButton{Unique: "testsubmityes"}, h.takeTest.HandleSubmitYes)
	app.bot.Handle(&tele.InlineButton{Unique: "testsubmitno"}, h.takeTest.HandleSubmitNo)
	app.bot.Handle(&tele.InlineButton{Unique: "testretry"}, h.takeTest.HandleRetry)
	app.bot.Handle(&tele.InlineButton{Unique: "testabandon"}, h.takeTest.HandleAbandon)

	// Results and profile.
	app.bot.Handle(&tele.InlineButton{Unique: "my_results"}, h.results.GetMyResultsFunc())
	app.bot.Handle(&tele.InlineButton{Unique: "leaderboard"}, h.results.GetLeaderboardFunc())
	app.bot.Handle(&tele.InlineButton{Unique: "profile"}, h.profile.GetProfileFunc())
	app.bot.Handle(&tele.InlineButton{Unique: "enquiry"}, h.enquiry.GetHandlerFunc())

	app.bot.Handle(tele.OnText, func(c tele.Context) error {
		chatID := c.Sender().ID
		for _, f := range app.flows {
			if f.Active(chatID) {
				return f.HandleText(c)
			}
		}
		return c.Send("Use /start to open the menu.")
	})
}
