package storage

import "finbot/internal/models"

// History queries backing the suggestion engine.

// DistinctSubcategories returns the subcategories the user has already used
// under category, alphabetically.
func (db *DB) DistinctSubcategories(userID int64, category string) ([]string, error) {
	return db.queryStrings(
		`SELECT DISTINCT subcategory FROM expenses
		 WHERE user_id = ? AND category = ? AND subcategory IS NOT NULL
		 ORDER BY subcategory`,
		userID, category,
	)
}

// DistinctAccounts returns the account labels the user has already recorded
// expenses against, alphabetically.
func (db *DB) DistinctAccounts(userID int64) ([]string, error) {
	return db.queryStrings(
		`SELECT DISTINCT account FROM expenses
		 WHERE user_id = ? AND account IS NOT NULL
		 ORDER BY account`,
		userID,
	)
}

// TopDescriptions ranks the user's past descriptions for (category,
// subcategory) by frequency with a most-recent-use tiebreak. The system
// sentinel descriptions are never suggested. A nil subcategory ranks across
// the whole category.
func (db *DB) TopDescriptions(userID int64, category string, subcategory *string, limit int) ([]string, error) {
	query := `SELECT description FROM expenses
		WHERE user_id = ? AND category = ?`
	args := []any{userID, category}

	if subcategory != nil {
		query += ` AND subcategory = ?`
		args = append(args, *subcategory)
	}
	query += ` AND description != ? AND description != ?
		GROUP BY description
		ORDER BY COUNT(*) DESC, MAX(date) DESC
		LIMIT ?`
	args = append(args, models.NoDescription, models.ImportedDescription, limit)

	return db.queryStrings(query, args...)
}

func (db *DB) queryStrings(query string, args ...any) ([]string, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
