package workflow

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"finbot/internal/models"
	"finbot/internal/storage"

	"github.com/shopspring/decimal"
)

// BalanceOperation selects what a balance-edit conversation does.
type BalanceOperation int

const (
	// BalanceInitialize starts tracking a new account at a given balance.
	BalanceInitialize BalanceOperation = iota
	// BalanceReassign corrects an existing balance to a given value.
	BalanceReassign
	// BalanceAddMoney tops an account up.
	BalanceAddMoney
	// BalanceSubtractMoney draws an account down. Driving a balance
	// negative is allowed.
	BalanceSubtractMoney
)

func (op BalanceOperation) accountPrompt() string {
	switch op {
	case BalanceInitialize:
		return "Select an account to start tracking:"
	case BalanceReassign:
		return "Select the account to update:"
	case BalanceAddMoney:
		return "Select the account to add money to:"
	default:
		return "Select the account to subtract money from:"
	}
}

func (op BalanceOperation) amountPrompt() string {
	switch op {
	case BalanceInitialize:
		return "Enter the initial balance:"
	case BalanceReassign:
		return "Enter the new balance:"
	case BalanceAddMoney:
		return "Enter the amount to add:"
	default:
		return "Enter the amount to subtract:"
	}
}

func (op BalanceOperation) adjustOp() models.AdjustOp {
	switch op {
	case BalanceAddMoney:
		return models.AdjustAdd
	case BalanceSubtractMoney:
		return models.AdjustSubtract
	default:
		return models.AdjustSet
	}
}

type balanceStep int

const (
	balStepAccount balanceStep = iota
	balStepAccountCustom
	balStepAmount
)

// balanceConversation walks one user through account selection and amount
// entry for a single balance operation.
type balanceConversation struct {
	d      *Dispatcher
	userID int64
	op     BalanceOperation

	mu      sync.Mutex
	step    balanceStep
	choices []string
	account string
}

func (c *balanceConversation) handle(in Input) (Prompt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if in.Kind == KindCancel {
		return Prompt{Done: true, Text: "Cancelled."}, nil
	}

	switch c.step {
	case balStepAccount:
		return c.onAccount(in)
	case balStepAccountCustom:
		return c.onAccountCustom(in)
	case balStepAmount:
		return c.onAmount(in)
	}
	return Prompt{}, fmt.Errorf("workflow: unknown balance step %d", c.step)
}

func (c *balanceConversation) onAccount(in Input) (Prompt, error) {
	switch in.Kind {
	case KindSelect:
		if !contains(c.choices, in.Payload) {
			break
		}
		return c.accountChosen(in.Payload)
	case KindCustom:
		if c.op != BalanceInitialize {
			break
		}
		c.step = balStepAccountCustom
		return Prompt{Text: "Type the new account name:"}, nil
	}
	return c.accountPrompt(c.op.accountPrompt()), nil
}

// accountChosen validates existence requirements before the amount step:
// Initialize must not find a balance, Reassign must.
func (c *balanceConversation) accountChosen(account string) (Prompt, error) {
	_, err := c.d.store.GetBalance(c.userID, account)
	exists := err == nil
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Prompt{}, fmt.Errorf("checking balance for %s: %w", account, err)
	}

	switch {
	case c.op == BalanceInitialize && exists:
		return c.accountPrompt(fmt.Sprintf("%s is already tracked. Pick a different account:", account)), nil
	case c.op == BalanceReassign && !exists:
		return c.accountPrompt(fmt.Sprintf("No balance exists for %s yet. Pick a tracked account:", account)), nil
	}

	c.account = account
	c.step = balStepAmount
	return Prompt{Text: c.op.amountPrompt()}, nil
}

func (c *balanceConversation) onAccountCustom(in Input) (Prompt, error) {
	name := strings.TrimSpace(in.Payload)
	if in.Kind != KindText || !validName(name) {
		return Prompt{Text: "Invalid account name. Enter a name up to 50 characters:"}, nil
	}
	return c.accountChosen(name)
}

func (c *balanceConversation) onAmount(in Input) (Prompt, error) {
	reject := Prompt{Text: "Invalid amount. Enter a non-negative number:"}
	if in.Kind != KindText {
		return reject, nil
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Payload))
	if err != nil || amount.Sign() < 0 {
		return reject, nil
	}

	bal, err := c.d.store.AdjustBalance(c.userID, c.account, amount, c.op.adjustOp())
	if err != nil {
		return Prompt{}, fmt.Errorf("adjusting balance for %s: %w", c.account, err)
	}

	return Prompt{
		Done:   true,
		Result: &Summary{Balance: bal, BalanceAdjusted: true},
	}, nil
}

func (c *balanceConversation) accountPrompt(text string) Prompt {
	return Prompt{
		Text:        text,
		Choices:     c.choices,
		AllowCustom: c.op == BalanceInitialize,
	}
}
