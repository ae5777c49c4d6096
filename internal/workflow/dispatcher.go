package workflow

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"finbot/internal/models"
	"finbot/internal/storage"

	"github.com/shopspring/decimal"
)

// ErrNoConversation is returned by Handle when the user has no active
// conversation; the caller should treat the input as a menu command instead.
var ErrNoConversation = errors.New("workflow: no active conversation")

// maxNameLen bounds custom category, subcategory and account names.
const maxNameLen = 50

// Store is the persistence surface the workflows depend on.
type Store interface {
	CommitExpense(rec *models.ExpenseRecord) (*models.AccountBalance, error)
	DeleteMostRecentExpense(userID int64) (*models.ExpenseRecord, error)
	GetBalance(userID int64, account string) (*models.AccountBalance, error)
	AdjustBalance(userID int64, account string, amount decimal.Decimal, op models.AdjustOp) (*models.AccountBalance, error)
	EnsureDefaultCategories(userID int64) error
	AddCategory(userID int64, name string) error
	Categories(userID int64) ([]string, error)
}

// Suggester shapes the option lists offered at each step.
type Suggester interface {
	Subcategories(userID int64, category string) ([]string, error)
	Accounts(userID int64) ([]string, error)
	Descriptions(userID int64, category string, subcategory *string) ([]string, error)
}

type conversation interface {
	handle(in Input) (Prompt, error)
}

// Dispatcher owns the per-user conversation state. At most one conversation
// is active per user; starting a new one silently replaces the old draft.
// Distinct users are handled concurrently, each conversation serializing its
// own inputs.
type Dispatcher struct {
	store Store
	sugg  Suggester
	now   func() time.Time

	mu     sync.Mutex
	active map[int64]conversation
}

// NewDispatcher creates a Dispatcher on top of the given collaborators.
func NewDispatcher(store Store, sugg Suggester) *Dispatcher {
	return &Dispatcher{
		store:  store,
		sugg:   sugg,
		now:    time.Now,
		active: make(map[int64]conversation),
	}
}

// Active reports whether userID has a conversation in progress.
func (d *Dispatcher) Active(userID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.active[userID]
	return ok
}

// StartExpense begins the expense entry conversation for userID, replacing
// any conversation already in progress.
func (d *Dispatcher) StartExpense(userID int64) (Prompt, error) {
	if err := d.store.EnsureDefaultCategories(userID); err != nil {
		return Prompt{}, fmt.Errorf("seeding categories: %w", err)
	}
	categories, err := d.store.Categories(userID)
	if err != nil {
		return Prompt{}, fmt.Errorf("loading categories: %w", err)
	}

	c := &expenseConversation{
		d:       d,
		userID:  userID,
		step:    stepCategory,
		choices: categories,
		draft:   models.ExpenseRecord{UserID: userID},
	}
	d.register(userID, c)

	return Prompt{
		Text:        "Select a category:",
		Choices:     categories,
		AllowCustom: true,
	}, nil
}

// StartBalance begins a balance-edit conversation for userID, replacing any
// conversation already in progress.
func (d *Dispatcher) StartBalance(userID int64, op BalanceOperation) (Prompt, error) {
	accounts, err := d.sugg.Accounts(userID)
	if err != nil {
		return Prompt{}, fmt.Errorf("loading accounts: %w", err)
	}

	c := &balanceConversation{
		d:       d,
		userID:  userID,
		op:      op,
		step:    balStepAccount,
		choices: accounts,
	}
	d.register(userID, c)

	return Prompt{
		Text:        op.accountPrompt(),
		Choices:     accounts,
		AllowCustom: op == BalanceInitialize,
	}, nil
}

// Handle delivers one input to the user's active conversation. Validation
// failures re-prompt without advancing; storage failures return an error with
// the conversation state preserved so the same step can be retried.
func (d *Dispatcher) Handle(userID int64, in Input) (Prompt, error) {
	d.mu.Lock()
	c, ok := d.active[userID]
	d.mu.Unlock()
	if !ok {
		return Prompt{}, ErrNoConversation
	}

	p, err := c.handle(in)
	if err == nil && p.Done {
		d.mu.Lock()
		// The conversation may have been replaced while it was handling.
		if d.active[userID] == c {
			delete(d.active, userID)
		}
		d.mu.Unlock()
	}
	return p, err
}

// DeleteLast removes the user's most recent expense and, when the record was
// tied to an account whose balance still exists, refunds the amount. The
// returned summary reports whether the refund happened; callers must surface
// a missing refund rather than pretend symmetry held. Returns
// storage.ErrNotFound when there is nothing to delete.
func (d *Dispatcher) DeleteLast(userID int64) (*Summary, error) {
	rec, err := d.store.DeleteMostRecentExpense(userID)
	if err != nil {
		return nil, err
	}

	s := &Summary{Record: rec}
	if rec.Account == nil {
		return s, nil
	}

	if _, err := d.store.GetBalance(userID, *rec.Account); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Balance never existed or was never initialized: the expense
			// did not touch the ledger on the way in, so nothing to refund.
			return s, nil
		}
		return s, err
	}

	bal, err := d.store.AdjustBalance(userID, *rec.Account, rec.Amount, models.AdjustAdd)
	if err != nil {
		return s, fmt.Errorf("refunding %s: %w", *rec.Account, err)
	}
	s.Balance = bal
	s.BalanceAdjusted = true
	return s, nil
}

func (d *Dispatcher) register(userID int64, c conversation) {
	d.mu.Lock()
	d.active[userID] = c
	d.mu.Unlock()
}

func validName(name string) bool {
	return name != "" && len([]rune(name)) <= maxNameLen
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
