package storage

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"finbot/internal/models"
)

// Validation failures for expense inserts.
var (
	ErrNonPositiveAmount = errors.New("storage: amount must be positive")
	ErrEmptyCategory     = errors.New("storage: category must not be empty")
)

func validateExpense(rec *models.ExpenseRecord) error {
	if rec.Amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	if strings.TrimSpace(rec.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// InsertExpense stores a new expense record and returns its assigned id.
// A zero Date is replaced with the current time, an empty Description with
// the no-description sentinel.
func (db *DB) InsertExpense(rec *models.ExpenseRecord) (int64, error) {
	if err := validateExpense(rec); err != nil {
		return 0, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	id, err := insertExpenseTx(tx, rec)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	rec.ID = id
	return id, nil
}

func insertExpenseTx(tx *sql.Tx, rec *models.ExpenseRecord) (int64, error) {
	date := rec.Date
	if date.IsZero() {
		date = time.Now()
	}
	description := rec.Description
	if description == "" {
		description = models.NoDescription
	}

	res, err := tx.Exec(
		`INSERT INTO expenses (user_id, category, subcategory, amount, description, account, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.Category, nullString(rec.Subcategory), rec.Amount,
		description, nullString(rec.Account), date,
	)
	if err != nil {
		return 0, err
	}

	rec.Date = date
	rec.Description = description
	return res.LastInsertId()
}

// CommitExpense inserts rec and, when the record names an account the user
// has explicitly initialized, subtracts the amount from that balance. Both
// writes happen in a single transaction so the caller never observes a
// partial commit. The returned balance is nil when no adjustment applied:
// expenses against unknown account labels are recorded with no ledger side
// effect.
func (db *DB) CommitExpense(rec *models.ExpenseRecord) (*models.AccountBalance, error) {
	if err := validateExpense(rec); err != nil {
		return nil, err
	}

	db.balanceMu.Lock()
	defer db.balanceMu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id, err := insertExpenseTx(tx, rec)
	if err != nil {
		return nil, err
	}

	var bal *models.AccountBalance
	if rec.Account != nil {
		exists, err := balanceExistsTx(tx, rec.UserID, *rec.Account)
		if err != nil {
			return nil, err
		}
		if exists {
			bal, err = adjustBalanceTx(tx, rec.UserID, *rec.Account, rec.Amount, models.AdjustSubtract, time.Now())
			if err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	rec.ID = id
	return bal, nil
}

// DeleteMostRecentExpense removes and returns the highest-id expense owned by
// userID. This is the only delete operation; there is no delete-by-id.
func (db *DB) DeleteMostRecentExpense(userID int64) (*models.ExpenseRecord, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		`SELECT id, user_id, category, subcategory, amount, description, account, date
		 FROM expenses WHERE user_id = ? ORDER BY id DESC LIMIT 1`,
		userID,
	)
	rec, err := scanExpense(row)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`DELETE FROM expenses WHERE id = ?`, rec.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListExpenses retrieves expenses for userID matching the filter, ordered by
// date descending. This is the read-only surface the reporting layer
// consumes.
func (db *DB) ListExpenses(userID int64, f models.ExpenseFilter) ([]models.ExpenseRecord, error) {
	query := `SELECT id, user_id, category, subcategory, amount, description, account, date
		FROM expenses WHERE user_id = ?`
	args := []any{userID}

	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Account != "" {
		query += ` AND account = ?`
		args = append(args, f.Account)
	}
	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		query += ` AND date < ?`
		args = append(args, f.To)
	}
	query += ` ORDER BY date DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.ExpenseRecord
	for rows.Next() {
		var (
			rec                  models.ExpenseRecord
			subcategory, account sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Category, &subcategory,
			&rec.Amount, &rec.Description, &account, &rec.Date); err != nil {
			return nil, err
		}
		rec.Subcategory = strPtr(subcategory)
		rec.Account = strPtr(account)
		expenses = append(expenses, rec)
	}

	return expenses, rows.Err()
}

func scanExpense(row *sql.Row) (*models.ExpenseRecord, error) {
	var (
		rec                  models.ExpenseRecord
		subcategory, account sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Category, &subcategory,
		&rec.Amount, &rec.Description, &account, &rec.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Subcategory = strPtr(subcategory)
	rec.Account = strPtr(account)
	return &rec, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
