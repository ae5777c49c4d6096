// Package workflow implements the multi-step entry conversations: the
// expense entry state machine, the balance-edit state machine, and the
// per-user dispatcher that owns conversation state. The package consumes
// abstract chat inputs and produces render instructions; it knows nothing
// about any particular chat transport.
package workflow

import (
	"finbot/internal/models"
)

// Kind discriminates the inputs a conversation can receive. The transport
// adaptation layer maps its own envelopes (callback tokens, messages) onto
// these; the workflows never parse transport syntax.
type Kind int

const (
	// KindSelect picks one of the offered choices; Payload is the choice.
	KindSelect Kind = iota
	// KindCustom asks to enter a custom value for the current step.
	KindCustom
	// KindSkip skips the current step; valid only on optional steps.
	KindSkip
	// KindCancel abandons the conversation.
	KindCancel
	// KindText is free-form text; Payload is the message text.
	KindText
)

// Input is one user action delivered to an active conversation.
type Input struct {
	Kind    Kind
	Payload string
}

// UseNow is the date-step choice that commits with the current time.
const UseNow = "Use current time"

// Prompt is the render instruction emitted after each transition: either the
// next step's question with its offered choices, or a terminal result.
// Formatting is entirely the renderer's responsibility.
type Prompt struct {
	Text        string
	Choices     []string
	AllowCustom bool
	AllowSkip   bool

	// Done marks a terminal transition; the conversation no longer exists.
	Done bool
	// Result is set on successful completion.
	Result *Summary
}

// Summary reports what a completed operation did.
type Summary struct {
	// Record is the expense that was saved or deleted, when one was.
	Record *models.ExpenseRecord
	// Balance is the resulting account balance when the ledger was touched.
	Balance *models.AccountBalance
	// BalanceAdjusted distinguishes a real ledger adjustment from a commit
	// or undo that left every balance alone (unknown or skipped account).
	BalanceAdjusted bool
}
