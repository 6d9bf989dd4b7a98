package telegram

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"remindbot/internal/reminder"
	"remindbot/internal/trigger"
	"remindbot/pkg/tgui"
)

// Callback data is "scope:action:payload", see tgui.Data. All strings
// stay well under Telegram's 64-byte limit because payloads are
// numeric ids.
const (
	scopeMenu = "menu"
	scopeNew  = "new"
	scopeList = "list"
	scopeRem  = "rem"
	scopeBulk = "bulk"
)

var btnToMain = tgui.Btn("В главное меню", tgui.Data(scopeMenu, "main", ""))

func mainMenu() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn("Создать напоминание", tgui.Data(scopeMenu, "create", ""))).
		Row(tgui.Btn("Мои напоминания", tgui.Data(scopeMenu, "list", ""))).
		Markup()
}

func listMenu() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(
			tgui.Btn("Активные", tgui.Data(scopeList, "active", "")),
			tgui.Btn("Неактивные", tgui.Data(scopeList, "disabled", "")),
		).
		Row(tgui.Btn("Управление всеми", tgui.Data(scopeBulk, "menu", ""))).
		Row(btnToMain).
		Markup()
}

func frequencyMenu() *tele.ReplyMarkup {
	freqBtn := func(label string, f trigger.Frequency) tele.Btn {
		return tgui.Btn(label, tgui.Data(scopeNew, "freq", string(f)))
	}
	return tgui.NewInline().
		Row(freqBtn("Ежедневно", trigger.Daily), freqBtn("Еженедельно", trigger.Weekly)).
		Row(freqBtn("Ежемесячно", trigger.Monthly), freqBtn("Ежегодно", trigger.Yearly)).
		Row(freqBtn("Другое", trigger.Custom)).
		Row(btnToMain).
		Markup()
}

func startChoiceMenu() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn("Запустить напоминание сейчас", tgui.Data(scopeNew, "start", "now"))).
		Row(tgui.Btn("Запустить напоминание в другое время", tgui.Data(scopeNew, "start", "other"))).
		Row(btnToMain).
		Markup()
}

func confirmMenu() *tele.ReplyMarkup {
	return tgui.ConfirmInline(
		tgui.Btn("Подтвердить создание напоминания", tgui.Data(scopeNew, "ok", "")),
		btnToMain,
	).Markup()
}

func toMainMenu() *tele.ReplyMarkup {
	return tgui.NewInline().Row(btnToMain).Markup()
}

// remindersKeyboard lists reminders one per row, the text truncated to
// fit a button label.
func remindersKeyboard(rs []*reminder.Reminder) *tele.ReplyMarkup {
	kb := tgui.NewInline()
	for _, r := range rs {
		mark := "🔔 "
		if !r.IsActive {
			mark = "🔕 "
		}
		label := mark + tgui.TruncRunes(r.Text, 32)
		kb.Row(tgui.Btn(label, tgui.Data(scopeRem, "view", strconv.FormatInt(r.ID, 10))))
	}
	kb.Row(btnToMain)
	return kb.Markup()
}

func cardKeyboard(r *reminder.Reminder) *tele.ReplyMarkup {
	id := strconv.FormatInt(r.ID, 10)
	toggle := tgui.Btn("Отключить", tgui.Data(scopeRem, "off", id))
	if !r.IsActive {
		toggle = tgui.Btn("Включить", tgui.Data(scopeRem, "on", id))
	}
	return tgui.NewInline().
		Row(tgui.Btn("Сбросить время запуска", tgui.Data(scopeRem, "reset", id))).
		Row(tgui.Btn("Обновить", tgui.Data(scopeRem, "refresh", id))).
		Row(toggle, tgui.Btn("Удалить", tgui.Data(scopeRem, "del", id))).
		Row(btnToMain).
		Markup()
}

func bulkMenu() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(
			tgui.Btn("Включить все", tgui.Data(scopeBulk, "on", "")),
			tgui.Btn("Отключить все", tgui.Data(scopeBulk, "off", "")),
		).
		Row(tgui.Btn("Удалить все", tgui.Data(scopeBulk, "del_all", ""))).
		Row(
			tgui.Btn("Удалить активные", tgui.Data(scopeBulk, "del_active", "")),
			tgui.Btn("Удалить неактивные", tgui.Data(scopeBulk, "del_disabled", "")),
		).
		Row(btnToMain).
		Markup()
}
