// Package bot adapts the Telegram transport to the workflow core: inbound
// updates become workflow inputs, prompts become messages with inline
// keyboards. No conversation logic lives here.
package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"finbot/internal/storage"
	"finbot/internal/workflow"
)

// Callback tokens for menu actions and workflow inputs.
const (
	cbAddExpense  = "add_expense"
	cbBalanceInit = "balance_init"
	cbBalanceSet  = "balance_set"
	cbBalanceAdd  = "balance_add"
	cbBalanceSub  = "balance_sub"
	cbBalances    = "balances"
	cbDeleteLast  = "delete_last"
	cbMenu        = "menu"
	cbCustom      = "custom"
	cbSkip        = "skip"
	cbCancel      = "cancel"
	pickPrefix    = "pick:"
)

// Bot routes Telegram updates between the transport and the workflow core.
type Bot struct {
	api        *tgbotapi.BotAPI
	dispatcher *workflow.Dispatcher
	db         *storage.DB
}

// New creates a Bot on top of the given transport and collaborators.
func New(api *tgbotapi.BotAPI, dispatcher *workflow.Dispatcher, db *storage.DB) *Bot {
	return &Bot{api: api, dispatcher: dispatcher, db: db}
}

// Run polls for updates until the update channel closes.
func (b *Bot) Run() {
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Show the menu"},
		{Command: "cancel", Description: "Cancel the current entry"},
	}
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		log.Printf("setting commands: %v", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	for update := range b.api.GetUpdatesChan(u) {
		b.HandleUpdate(update)
	}
}

// HandleUpdate processes one inbound update.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	userID := msg.From.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.sendMenu(msg.Chat.ID)
		case "cancel":
			b.dispatch(msg.Chat.ID, userID, workflow.Input{Kind: workflow.KindCancel})
		default:
			b.send(msg.Chat.ID, "Unknown command. Use /start.")
		}
		return
	}

	if !b.dispatcher.Active(userID) {
		b.send(msg.Chat.ID, "Use /start to open the menu.")
		return
	}
	b.dispatch(msg.Chat.ID, userID, workflow.Input{Kind: workflow.KindText, Payload: msg.Text})
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("answering callback: %v", err)
	}

	chatID := cb.Message.Chat.ID
	userID := cb.From.ID
	data := cb.Data

	switch data {
	case cbMenu:
		b.sendMenu(chatID)
	case cbAddExpense:
		p, err := b.dispatcher.StartExpense(userID)
		b.sendStart(chatID, userID, p, err)
	case cbBalanceInit:
		p, err := b.dispatcher.StartBalance(userID, workflow.BalanceInitialize)
		b.sendStart(chatID, userID, p, err)
	case cbBalanceSet:
		p, err := b.dispatcher.StartBalance(userID, workflow.BalanceReassign)
		b.sendStart(chatID, userID, p, err)
	case cbBalanceAdd:
		p, err := b.dispatcher.StartBalance(userID, workflow.BalanceAddMoney)
		b.sendStart(chatID, userID, p, err)
	case cbBalanceSub:
		p, err := b.dispatcher.StartBalance(userID, workflow.BalanceSubtractMoney)
		b.sendStart(chatID, userID, p, err)
	case cbBalances:
		b.sendBalances(chatID, userID)
	case cbDeleteLast:
		b.sendDeleteLast(chatID, userID)
	case cbCustom:
		b.dispatch(chatID, userID, workflow.Input{Kind: workflow.KindCustom})
	case cbSkip:
		b.dispatch(chatID, userID, workflow.Input{Kind: workflow.KindSkip})
	case cbCancel:
		b.dispatch(chatID, userID, workflow.Input{Kind: workflow.KindCancel})
	default:
		if choice, ok := strings.CutPrefix(data, pickPrefix); ok {
			b.dispatch(chatID, userID, workflow.Input{Kind: workflow.KindSelect, Payload: choice})
			return
		}
		log.Printf("unknown callback data %q", data)
	}
}

func (b *Bot) sendStart(chatID, userID int64, p workflow.Prompt, err error) {
	if err != nil {
		log.Printf("starting conversation for user %d: %v", userID, err)
		b.send(chatID, "Something went wrong. Please try again.")
		return
	}
	b.sendPrompt(chatID, p)
}

func (b *Bot) dispatch(chatID, userID int64, in workflow.Input) {
	p, err := b.dispatcher.Handle(userID, in)
	if err != nil {
		if errors.Is(err, workflow.ErrNoConversation) {
			b.send(chatID, "Nothing in progress. Use /start to open the menu.")
			return
		}
		log.Printf("handling input for user %d: %v", userID, err)
		b.send(chatID, "Something went wrong. Your entry is preserved, please try again.")
		return
	}
	b.sendPrompt(chatID, p)
}

func (b *Bot) sendPrompt(chatID int64, p workflow.Prompt) {
	if p.Done {
		if p.Result != nil {
			b.send(chatID, summaryText(p.Result))
		} else {
			b.send(chatID, p.Text)
		}
		return
	}

	msg := tgbotapi.NewMessage(chatID, p.Text)
	if kb := promptKeyboard(p); len(kb.InlineKeyboard) > 0 {
		msg.ReplyMarkup = kb
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("sending prompt: %v", err)
	}
}

func promptKeyboard(p workflow.Prompt) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	// Choices two per row, the way the menus lay out.
	for i := 0; i < len(p.Choices); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(p.Choices[i], pickPrefix+p.Choices[i]),
		}
		if i+1 < len(p.Choices) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(p.Choices[i+1], pickPrefix+p.Choices[i+1]))
		}
		rows = append(rows, row)
	}

	var extras []tgbotapi.InlineKeyboardButton
	if p.AllowCustom {
		extras = append(extras, tgbotapi.NewInlineKeyboardButtonData("✍️ Custom", cbCustom))
	}
	if p.AllowSkip {
		extras = append(extras, tgbotapi.NewInlineKeyboardButtonData("⏭️ Skip", cbSkip))
	}
	extras = append(extras, tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel))
	rows = append(rows, extras)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func summaryText(s *workflow.Summary) string {
	var sb strings.Builder
	if s.Record != nil {
		rec := s.Record
		sb.WriteString("✅ Expense saved!\n")
		sb.WriteString("Category: " + rec.Category + "\n")
		if rec.Subcategory != nil {
			sb.WriteString("Subcategory: " + *rec.Subcategory + "\n")
		}
		sb.WriteString("Amount: " + rec.Amount.StringFixed(2) + "\n")
		sb.WriteString("Description: " + rec.Description + "\n")
		if rec.Account != nil {
			sb.WriteString("Account: " + *rec.Account + "\n")
		}
		sb.WriteString("Date: " + rec.Date.Format("02 Jan 2006, 3:04 PM"))
	}
	if s.BalanceAdjusted && s.Balance != nil {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("💰 %s balance: %s",
			s.Balance.Account, s.Balance.Current.StringFixed(2)))
	}
	return sb.String()
}

func (b *Bot) sendDeleteLast(chatID, userID int64) {
	s, err := b.dispatcher.DeleteLast(userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.send(chatID, "No expenses to delete.")
			return
		}
		log.Printf("deleting last expense for user %d: %v", userID, err)
		b.send(chatID, "Something went wrong. Please try again.")
		return
	}

	rec := s.Record
	text := fmt.Sprintf("🗑️ Deleted %s (%s)", rec.Amount.StringFixed(2), rec.Category)
	switch {
	case s.BalanceAdjusted:
		text += fmt.Sprintf("\n💰 Refunded to %s, balance: %s",
			s.Balance.Account, s.Balance.Current.StringFixed(2))
	case rec.Account != nil:
		text += fmt.Sprintf("\n⚠️ %s has no tracked balance, nothing was refunded.", *rec.Account)
	}
	b.send(chatID, text)
}

func (b *Bot) sendBalances(chatID, userID int64) {
	balances, err := b.db.ListBalances(userID)
	if err != nil {
		log.Printf("listing balances for user %d: %v", userID, err)
		b.send(chatID, "Something went wrong. Please try again.")
		return
	}
	if len(balances) == 0 {
		b.send(chatID, "No accounts tracked yet. Add one from the menu.")
		return
	}

	var sb strings.Builder
	sb.WriteString("💳 Account balances\n")
	for _, bal := range balances {
		sb.WriteString(fmt.Sprintf("\n%s\n  Current: %s\n  Spent: %s\n  Initial: %s\n",
			bal.Account, bal.Current.StringFixed(2),
			bal.Spent().StringFixed(2), bal.Initial.StringFixed(2)))
	}
	b.send(chatID, sb.String())
}

func (b *Bot) sendMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "💰 Expense Tracker\n\nChoose an option:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add Expense", cbAddExpense)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Balances", cbBalances),
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Delete Last", cbDeleteLast)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🆕 Track Account", cbBalanceInit),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Set Balance", cbBalanceSet)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Add Money", cbBalanceAdd),
			tgbotapi.NewInlineKeyboardButtonData("💸 Subtract Money", cbBalanceSub)),
	)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("sending menu: %v", err)
	}
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("sending message: %v", err)
	}
}
