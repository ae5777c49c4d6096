package workflow

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"finbot/internal/dateparse"
	"finbot/internal/models"

	"github.com/shopspring/decimal"
)

type expenseStep int

const (
	stepCategory expenseStep = iota
	stepCategoryCustom
	stepSubcategory
	stepSubcategoryCustom
	stepAmount
	stepDescription
	stepDescriptionCustom
	stepAccount
	stepAccountCustom
	stepDate
	stepDateCustom
)

// expenseConversation walks one user through
// category → subcategory → amount → description → account → date,
// accumulating the draft record, then commits it.
type expenseConversation struct {
	d      *Dispatcher
	userID int64

	mu          sync.Mutex
	step        expenseStep
	choices     []string
	draft       models.ExpenseRecord
	newCategory bool
}

func (c *expenseConversation) handle(in Input) (Prompt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if in.Kind == KindCancel {
		return Prompt{Done: true, Text: "Cancelled."}, nil
	}

	switch c.step {
	case stepCategory:
		return c.onCategory(in)
	case stepCategoryCustom:
		return c.onCategoryCustom(in)
	case stepSubcategory:
		return c.onSubcategory(in)
	case stepSubcategoryCustom:
		return c.onSubcategoryCustom(in)
	case stepAmount:
		return c.onAmount(in)
	case stepDescription:
		return c.onDescription(in)
	case stepDescriptionCustom:
		return c.onDescriptionCustom(in)
	case stepAccount:
		return c.onAccount(in)
	case stepAccountCustom:
		return c.onAccountCustom(in)
	case stepDate:
		return c.onDate(in)
	case stepDateCustom:
		return c.onDateText(in)
	}
	return Prompt{}, fmt.Errorf("workflow: unknown expense step %d", c.step)
}

func (c *expenseConversation) onCategory(in Input) (Prompt, error) {
	switch in.Kind {
	case KindSelect:
		if !contains(c.choices, in.Payload) {
			return c.categoryPrompt("Pick one of the offered categories:"), nil
		}
		c.draft.Category = in.Payload
		return c.toSubcategory()
	case KindCustom:
		c.step = stepCategoryCustom
		return Prompt{Text: "Type the new category name:"}, nil
	}
	return c.categoryPrompt("Select a category:"), nil
}

func (c *expenseConversation) onCategoryCustom(in Input) (Prompt, error) {
	name := strings.TrimSpace(in.Payload)
	if in.Kind != KindText || !validName(name) {
		return Prompt{Text: "Invalid category name. Enter a name up to 50 characters:"}, nil
	}
	c.draft.Category = name
	c.newCategory = true
	return c.toSubcategory()
}

func (c *expenseConversation) toSubcategory() (Prompt, error) {
	subcategories, err := c.d.sugg.Subcategories(c.userID, c.draft.Category)
	if err != nil {
		return Prompt{}, fmt.Errorf("loading subcategories: %w", err)
	}
	c.step = stepSubcategory
	c.choices = subcategories
	return Prompt{
		Text:        "Select a subcategory:",
		Choices:     subcategories,
		AllowCustom: true,
		AllowSkip:   true,
	}, nil
}

func (c *expenseConversation) onSubcategory(in Input) (Prompt, error) {
	switch in.Kind {
	case KindSelect:
		if !contains(c.choices, in.Payload) {
			break
		}
		v := in.Payload
		c.draft.Subcategory = &v
		return c.toAmount(), nil
	case KindCustom:
		c.step = stepSubcategoryCustom
		return Prompt{Text: "Type the subcategory name:"}, nil
	case KindSkip:
		c.draft.Subcategory = nil
		return c.toAmount(), nil
	}
	return Prompt{
		Text:        "Pick a subcategory, enter a custom one, or skip:",
		Choices:     c.choices,
		AllowCustom: true,
		AllowSkip:   true,
	}, nil
}

func (c *expenseConversation) onSubcategoryCustom(in Input) (Prompt, error) {
	name := strings.TrimSpace(in.Payload)
	if in.Kind != KindText || !validName(name) {
		return Prompt{Text: "Invalid subcategory name. Enter a name up to 50 characters:"}, nil
	}
	c.draft.Subcategory = &name
	return c.toAmount(), nil
}

func (c *expenseConversation) toAmount() Prompt {
	c.step = stepAmount
	c.choices = nil
	return Prompt{Text: "Enter the amount:"}
}

func (c *expenseConversation) onAmount(in Input) (Prompt, error) {
	reject := Prompt{Text: "Invalid amount. Enter a positive number:"}
	if in.Kind != KindText {
		return reject, nil
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Payload))
	if err != nil || amount.Sign() <= 0 {
		return reject, nil
	}
	c.draft.Amount = amount
	return c.toDescription()
}

func (c *expenseConversation) toDescription() (Prompt, error) {
	suggestions, err := c.d.sugg.Descriptions(c.userID, c.draft.Category, c.draft.Subcategory)
	if err != nil {
		return Prompt{}, fmt.Errorf("loading description suggestions: %w", err)
	}
	c.step = stepDescription
	c.choices = suggestions
	return Prompt{
		Text:        "Enter a description:",
		Choices:     suggestions,
		AllowCustom: true,
		AllowSkip:   true,
	}, nil
}

func (c *expenseConversation) onDescription(in Input) (Prompt, error) {
	switch in.Kind {
	case KindSelect:
		if !contains(c.choices, in.Payload) {
			break
		}
		c.draft.Description = in.Payload
		return c.toAccount()
	case KindText:
		// Typed text at this step is accepted directly as the description.
		if text := strings.TrimSpace(in.Payload); text != "" {
			c.draft.Description = text
			return c.toAccount()
		}
	case KindCustom:
		c.step = stepDescriptionCustom
		return Prompt{Text: "Type your description:"}, nil
	case KindSkip:
		c.draft.Description = models.NoDescription
		return c.toAccount()
	}
	return Prompt{
		Text:        "Pick a suggestion, type a description, or skip:",
		Choices:     c.choices,
		AllowCustom: true,
		AllowSkip:   true,
	}, nil
}

func (c *expenseConversation) onDescriptionCustom(in Input) (Prompt, error) {
	text := strings.TrimSpace(in.Payload)
	if in.Kind != KindText || text == "" {
		return Prompt{Text: "Type your description:"}, nil
	}
	c.draft.Description = text
	return c.toAccount()
}

func (c *expenseConversation) toAccount() (Prompt, error) {
	accounts, err := c.d.sugg.Accounts(c.userID)
	if err != nil {
		return Prompt{}, fmt.Errorf("loading accounts: %w", err)
	}
	c.step = stepAccount
	c.choices = accounts
	return Prompt{
		Text:        "Select a payment account:",
		Choices:     accounts,
		AllowCustom: true,
		AllowSkip:   true,
	}, nil
}

func (c *expenseConversation) onAccount(in Input) (Prompt, error) {
	switch in.Kind {
	case KindSelect:
		if !contains(c.choices, in.Payload) {
			break
		}
		v := in.Payload
		c.draft.Account = &v
		return c.toDate(), nil
	case KindCustom:
		c.step = stepAccountCustom
		return Prompt{Text: "Type the account name:"}, nil
	case KindSkip:
		// No account: the expense will never touch any ledger balance.
		c.draft.Account = nil
		return c.toDate(), nil
	}
	return Prompt{
		Text:        "Pick an account, enter a custom one, or skip:",
		Choices:     c.choices,
		AllowCustom: true,
		AllowSkip:   true,
	}, nil
}

func (c *expenseConversation) onAccountCustom(in Input) (Prompt, error) {
	name := strings.TrimSpace(in.Payload)
	if in.Kind != KindText || !validName(name) {
		return Prompt{Text: "Invalid account name. Enter a name up to 50 characters:"}, nil
	}
	c.draft.Account = &name
	return c.toDate(), nil
}

func (c *expenseConversation) toDate() Prompt {
	c.step = stepDate
	c.choices = []string{UseNow}
	return Prompt{
		Text:        "Choose the date and time:",
		Choices:     []string{UseNow},
		AllowCustom: true,
	}
}

func (c *expenseConversation) onDate(in Input) (Prompt, error) {
	switch in.Kind {
	case KindSelect:
		if in.Payload == UseNow {
			return c.commit(c.d.now())
		}
	case KindCustom:
		c.step = stepDateCustom
		return Prompt{
			Text: "Enter a date/time, e.g. 2025-10-28 14:35, 28/10/2025, yesterday 18:00, 2 days ago:",
		}, nil
	case KindText:
		return c.onDateText(in)
	}
	return c.toDate(), nil
}

func (c *expenseConversation) onDateText(in Input) (Prompt, error) {
	if in.Kind != KindText {
		return Prompt{Text: "Type a date/time:"}, nil
	}
	when, err := dateparse.Parse(in.Payload, c.d.now())
	if err != nil {
		return Prompt{
			Text: "Couldn't understand that date/time. Try 2025-10-28 14:35, 28/10/2025, yesterday 18:00 or 2 days ago:",
		}, nil
	}
	return c.commit(when)
}

// commit persists the draft and applies the ledger side effect. On storage
// failure the step and draft are left untouched so the same commit can be
// retried.
func (c *expenseConversation) commit(when time.Time) (Prompt, error) {
	rec := c.draft
	rec.Date = when
	if rec.Description == "" {
		rec.Description = models.NoDescription
	}

	bal, err := c.d.store.CommitExpense(&rec)
	if err != nil {
		return Prompt{}, fmt.Errorf("saving expense: %w", err)
	}

	if c.newCategory {
		if err := c.d.store.AddCategory(c.userID, rec.Category); err != nil {
			log.Printf("registering category %q: %v", rec.Category, err)
		}
	}

	return Prompt{
		Done: true,
		Result: &Summary{
			Record:          &rec,
			Balance:         bal,
			BalanceAdjusted: bal != nil,
		},
	}, nil
}

func (c *expenseConversation) categoryPrompt(text string) Prompt {
	return Prompt{Text: text, Choices: c.choices, AllowCustom: true}
}
