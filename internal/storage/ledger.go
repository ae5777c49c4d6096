package storage

import (
	"database/sql"
	"errors"
	"time"

	"finbot/internal/models"

	"github.com/shopspring/decimal"
)

// GetBalance returns the balance record for (userID, account), or ErrNotFound
// when the account has never been initialized.
func (db *DB) GetBalance(userID int64, account string) (*models.AccountBalance, error) {
	row := db.conn.QueryRow(
		`SELECT user_id, account_name, initial_balance, current_balance, last_updated
		 FROM account_balances WHERE user_id = ? AND account_name = ?`,
		userID, account,
	)

	var b models.AccountBalance
	err := row.Scan(&b.UserID, &b.Account, &b.Initial, &b.Current, &b.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// AdjustBalance applies one signed adjustment to (userID, account) and
// returns the resulting balance. Set overwrites the current balance. When no
// balance exists yet, any op creates one with initial = current = amount;
// callers that must not create a balance (expense-triggered adjustments)
// check existence first. The read-modify-write runs in a single transaction
// serialized per database.
func (db *DB) AdjustBalance(userID int64, account string, amount decimal.Decimal, op models.AdjustOp) (*models.AccountBalance, error) {
	db.balanceMu.Lock()
	defer db.balanceMu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	bal, err := adjustBalanceTx(tx, userID, account, amount, op, time.Now())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return bal, nil
}

func balanceExistsTx(tx *sql.Tx, userID int64, account string) (bool, error) {
	var exists bool
	err := tx.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM account_balances WHERE user_id = ? AND account_name = ?)`,
		userID, account,
	).Scan(&exists)
	return exists, err
}

func adjustBalanceTx(tx *sql.Tx, userID int64, account string, amount decimal.Decimal, op models.AdjustOp, now time.Time) (*models.AccountBalance, error) {
	var initial, current decimal.Decimal
	err := tx.QueryRow(
		`SELECT initial_balance, current_balance FROM account_balances
		 WHERE user_id = ? AND account_name = ?`,
		userID, account,
	).Scan(&initial, &current)

	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.Exec(
			`INSERT INTO account_balances (user_id, account_name, initial_balance, current_balance, last_updated)
			 VALUES (?, ?, ?, ?, ?)`,
			userID, account, amount, amount, now,
		); err != nil {
			return nil, err
		}
		return &models.AccountBalance{
			UserID:      userID,
			Account:     account,
			Initial:     amount,
			Current:     amount,
			LastUpdated: now,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	switch op {
	case models.AdjustAdd:
		current = current.Add(amount)
	case models.AdjustSubtract:
		current = current.Sub(amount)
	default:
		current = amount
	}

	if _, err := tx.Exec(
		`UPDATE account_balances SET current_balance = ?, last_updated = ?
		 WHERE user_id = ? AND account_name = ?`,
		current, now, userID, account,
	); err != nil {
		return nil, err
	}

	return &models.AccountBalance{
		UserID:      userID,
		Account:     account,
		Initial:     initial,
		Current:     current,
		LastUpdated: now,
	}, nil
}

// ListBalances returns every initialized account balance for userID, ordered
// by account name.
func (db *DB) ListBalances(userID int64) ([]models.AccountBalance, error) {
	rows, err := db.conn.Query(
		`SELECT user_id, account_name, initial_balance, current_balance, last_updated
		 FROM account_balances WHERE user_id = ? ORDER BY account_name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []models.AccountBalance
	for rows.Next() {
		var b models.AccountBalance
		if err := rows.Scan(&b.UserID, &b.Account, &b.Initial, &b.Current, &b.LastUpdated); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}

	return balances, rows.Err()
}
