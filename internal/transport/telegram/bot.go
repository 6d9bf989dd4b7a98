// Package telegram is the Bot API front end: it maps messages and
// inline button presses onto the conversation flow and the reminder
// service, and renders their results back as Russian chat UI.
package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"remindbot/internal/conversation"
	"remindbot/internal/freq"
	"remindbot/internal/reminder"
	"remindbot/pkg/logx"
	"remindbot/pkg/tgui"
)

// Service is the slice of the reminder service the transport drives.
type Service interface {
	Get(ctx context.Context, id int64) (*reminder.Reminder, error)
	List(ctx context.Context, userID int64, active *bool) ([]*reminder.Reminder, error)
	Disable(ctx context.Context, id int64) (*reminder.Reminder, error)
	Enable(ctx context.Context, id int64) (*reminder.Reminder, error)
	Delete(ctx context.Context, id int64) error
	ResetStartTime(ctx context.Context, id int64, start time.Time) (*reminder.Reminder, error)
	RefreshNextRun(ctx context.Context, id int64) (*reminder.Reminder, error)
	DisableAll(ctx context.Context, userID int64) (reminder.BulkReport, error)
	EnableAll(ctx context.Context, userID int64) (reminder.BulkReport, error)
	DeleteAll(ctx context.Context, userID int64, active *bool) (reminder.BulkReport, error)
}

// Users resolves a Telegram account to its durable db id.
type Users interface {
	UpsertUser(ctx context.Context, tgUserID int64, username string) (int64, error)
}

type Config struct {
	Token       string
	PollTimeout time.Duration
}

type Bot struct {
	bot   *tele.Bot
	svc   Service
	users Users
	flows *conversation.Manager
	loc   *time.Location
	log   logx.Logger

	// ctx is the process lifetime context, set in Start before polling
	// begins. Handlers run only while polling.
	ctx context.Context
}

// NewClient dials the Bot API once; the same client serves both the
// transport and the delivery sender.
func NewClient(cfg Config) (*tele.Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
}

func New(tb *tele.Bot, svc Service, users Users, flows *conversation.Manager, loc *time.Location, log logx.Logger) *Bot {
	if log.IsZero() {
		log = logx.Nop()
	}
	if loc == nil {
		loc = time.Local
	}
	b := &Bot{bot: tb, svc: svc, users: users, flows: flows, loc: loc, log: log, ctx: context.Background()}
	b.register()
	return b
}

// Start polls until ctx is done, then stops the poller.
func (b *Bot) Start(ctx context.Context) {
	b.ctx = ctx
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.bot.Start()
	}()
	b.log.Info("telegram transport started")
	<-ctx.Done()
	b.bot.Stop()
	<-done
	b.log.Info("telegram transport stopped")
}

func (b *Bot) register() {
	b.bot.Handle("/start", b.onStart)
	b.bot.Handle(tele.OnText, b.onText)
	b.bot.Handle(tele.OnCallback, b.onCallback)
}

func (b *Bot) onStart(c tele.Context) error {
	if _, err := b.resolveUser(c); err != nil {
		return c.Send("Не удалось запустить бота, попробуйте позже")
	}
	b.flows.Cancel(c.Chat().ID)
	return c.Send("Выберите действие", mainMenu())
}

func (b *Bot) onText(c tele.Context) error {
	chatID := c.Chat().ID
	if b.flows.StateOf(chatID) == conversation.StateIdle {
		return c.Send("Выберите действие", mainMenu())
	}
	rep := b.flows.Message(b.ctx, chatID, c.Text())
	return b.renderFlow(c, rep, false)
}

func (b *Bot) onCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	data := strings.TrimSpace(strings.TrimPrefix(cb.Data, "\f"))
	scope, action, payload := tgui.Split(data)

	var err error
	switch scope {
	case scopeMenu:
		err = b.onMenu(c, action)
	case scopeNew:
		err = b.onCreation(c, action, payload)
	case scopeList:
		err = b.onList(c, action)
	case scopeRem:
		err = b.onManage(c, action, payload)
	case scopeBulk:
		err = b.onBulk(c, action)
	default:
		b.log.Debug("unknown callback", logx.String("data", data))
	}
	if err != nil {
		b.log.Warn("callback failed",
			logx.String("data", data), logx.Int64("chat", c.Chat().ID), logx.Err(err))
		_ = c.Respond(&tele.CallbackResponse{Text: "Что-то пошло не так, попробуйте ещё раз"})
		return nil
	}
	// Best-effort: handlers that showed a toast answered the query
	// already, a second answer is rejected by the API and ignored here.
	_ = c.Respond()
	return nil
}

func (b *Bot) onMenu(c tele.Context, action string) error {
	chatID := c.Chat().ID
	switch action {
	case "main":
		b.flows.Cancel(chatID)
		return b.editOrSend(c, "Вы вернулись в главное меню.\nВыберите действие", mainMenu())
	case "create":
		userID, err := b.resolveUser(c)
		if err != nil {
			return err
		}
		rep := b.flows.Begin(chatID, userID)
		return b.renderFlow(c, rep, true)
	case "list":
		return b.editOrSend(c, "Выберите нужное действие", listMenu())
	}
	return nil
}

func (b *Bot) onCreation(c tele.Context, action, payload string) error {
	chatID := c.Chat().ID
	var signal string
	switch action {
	case "freq":
		signal = payload
	case "start":
		if payload == "now" {
			signal = conversation.ChoiceStartNow
		} else {
			signal = conversation.ChoiceStartOther
		}
	case "ok":
		signal = conversation.ChoiceConfirm
	default:
		return nil
	}
	rep := b.flows.Choice(b.ctx, chatID, signal)
	return b.renderFlow(c, rep, true)
}

// renderFlow turns a conversation reply into the next prompt. edit
// selects in-place message editing (button presses) over a new message
// (text turns).
func (b *Bot) renderFlow(c tele.Context, rep conversation.Reply, edit bool) error {
	if rep.Err != nil {
		if text, ok := flowErrorText(rep.Err); ok {
			if edit {
				return b.editOrSend(c, text, toMainMenu())
			}
			return c.Send(text, toMainMenu())
		}
		// Commit failures and unexpected input fall back to the menu.
		if rep.State == conversation.StateIdle {
			return b.editOrSend(c, "Не удалось создать напоминание, попробуйте ещё раз", mainMenu())
		}
		return nil
	}

	var (
		text   string
		markup *tele.ReplyMarkup
	)
	switch rep.State {
	case conversation.StateAwaitingText:
		text, markup = "Введите текст напоминания", toMainMenu()
	case conversation.StateAwaitingFrequency:
		text, markup = "Выберите периодичность напоминания", frequencyMenu()
	case conversation.StateAwaitingCustomInterval:
		text, markup = "Введите свой интервал в формате «1 год 2 месяца 3 дня 4 часа 5 минут»", toMainMenu()
	case conversation.StateAwaitingStartChoice:
		text, markup = "Выберите время начала напоминания", startChoiceMenu()
	case conversation.StateAwaitingStartDatetime:
		text, markup = "Введите дату начала напоминания в формате «ДД.ММ.ГГГГ ЧЧ:ММ»", toMainMenu()
	case conversation.StateAwaitingConfirm:
		d := rep.Draft
		text = formatDraft(d.Text, d.Frequency, d.Custom, d.StartAt, b.loc)
		markup = confirmMenu()
	case conversation.StateIdle:
		if rep.Created == nil {
			return nil
		}
		text, markup = "Напоминание создано", toMainMenu()
	default:
		return nil
	}
	if edit {
		return b.editOrSend(c, text, markup)
	}
	return c.Send(text, markup)
}

func flowErrorText(err error) (string, bool) {
	var perr *freq.ParseError
	switch {
	case errors.Is(err, reminder.ErrEmptyText):
		return "Текст напоминания не может быть пустым.\nВведите текст напоминания", true
	case errors.Is(err, reminder.ErrTextTooLong):
		return "Текст напоминания слишком длинный (не более 255 символов).\nВведите текст покороче", true
	case errors.Is(err, conversation.ErrEmptyInterval):
		return "Не удалось распознать интервал.\nВведите интервал в формате «1 год 2 месяца 3 дня 4 часа 5 минут»", true
	case errors.As(err, &perr):
		return "Не удалось распознать дату.\nВведите дату в формате «ДД.ММ.ГГГГ ЧЧ:ММ»", true
	}
	return "", false
}

func (b *Bot) onList(c tele.Context, action string) error {
	userID, err := b.resolveUser(c)
	if err != nil {
		return err
	}
	var (
		filter *bool
		title  string
	)
	switch action {
	case "active":
		v := true
		filter, title = &v, "Активные напоминания"
	case "disabled":
		v := false
		filter, title = &v, "Неактивные напоминания"
	default:
		return nil
	}
	rs, err := b.svc.List(b.ctx, userID, filter)
	if err != nil {
		return err
	}
	if len(rs) == 0 {
		return b.editOrSend(c, "Здесь пока пусто", listMenu())
	}
	return b.editOrSend(c, title, remindersKeyboard(rs))
}

func (b *Bot) onManage(c tele.Context, action, payload string) error {
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return err
	}
	r, err := b.ownedReminder(c, id)
	if err != nil {
		if errors.Is(err, reminder.ErrNotFound) {
			return b.editOrSend(c, "Напоминание не найдено", toMainMenu())
		}
		return err
	}

	switch action {
	case "view":
		// Fall through to the card render below.
	case "off":
		if r, err = b.svc.Disable(b.ctx, id); err != nil {
			return err
		}
		_ = c.Respond(&tele.CallbackResponse{Text: "Напоминание отключено"})
	case "on":
		if r, err = b.svc.Enable(b.ctx, id); err != nil {
			return err
		}
		_ = c.Respond(&tele.CallbackResponse{Text: "Напоминание включено"})
	case "del":
		if err := b.svc.Delete(b.ctx, id); err != nil {
			return err
		}
		return b.editOrSend(c, "Напоминание удалено", toMainMenu())
	case "reset":
		if r, err = b.svc.ResetStartTime(b.ctx, id, time.Now().In(b.loc)); err != nil {
			return err
		}
		_ = c.Respond(&tele.CallbackResponse{Text: "Время начала напоминания сброшено"})
	case "refresh":
		if r, err = b.svc.RefreshNextRun(b.ctx, id); err != nil {
			return err
		}
	default:
		return nil
	}
	return b.editOrSend(c, formatCard(r, b.loc), cardKeyboard(r))
}

func (b *Bot) onBulk(c tele.Context, action string) error {
	userID, err := b.resolveUser(c)
	if err != nil {
		return err
	}

	var rep reminder.BulkReport
	switch action {
	case "menu":
		return b.editOrSend(c, "Действие применится ко всем вашим напоминаниям", bulkMenu())
	case "on":
		rep, err = b.svc.EnableAll(b.ctx, userID)
	case "off":
		rep, err = b.svc.DisableAll(b.ctx, userID)
	case "del_all":
		rep, err = b.svc.DeleteAll(b.ctx, userID, nil)
	case "del_active":
		v := true
		rep, err = b.svc.DeleteAll(b.ctx, userID, &v)
	case "del_disabled":
		v := false
		rep, err = b.svc.DeleteAll(b.ctx, userID, &v)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	text := "Обработано напоминаний: " + strconv.Itoa(rep.Processed)
	if !rep.AllOK() {
		text += "\nНе удалось обработать: " + strconv.Itoa(len(rep.Failures))
	}
	return b.editOrSend(c, text, toMainMenu())
}

// ownedReminder loads a reminder and checks the caller owns it.
// Callback data is forgeable, the check is mandatory.
func (b *Bot) ownedReminder(c tele.Context, id int64) (*reminder.Reminder, error) {
	userID, err := b.resolveUser(c)
	if err != nil {
		return nil, err
	}
	r, err := b.svc.Get(b.ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		b.log.Warn("foreign reminder access refused",
			logx.Int64("reminder", id), logx.Int64("user", userID))
		return nil, reminder.ErrNotFound
	}
	return r, nil
}

func (b *Bot) resolveUser(c tele.Context) (int64, error) {
	sender := c.Sender()
	if sender == nil {
		return 0, errors.New("update has no sender")
	}
	return b.users.UpsertUser(b.ctx, sender.ID, sender.Username)
}

// editOrSend edits the message behind a callback and falls back to a
// fresh message when editing is impossible (old message, text turn).
func (b *Bot) editOrSend(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if c.Callback() == nil {
		return c.Send(text, markup)
	}
	if err := c.Edit(text, markup); err != nil {
		return c.Send(text, markup)
	}
	return nil
}
