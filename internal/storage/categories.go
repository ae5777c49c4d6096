package storage

// DefaultCategories seeds a user's category set on first use.
var DefaultCategories = []string{
	"🍔 Food", "🚗 Transport", "🏠 Rent", "⚡ Utilities",
	"🎬 Entertainment", "🛒 Shopping", "💊 Health", "📚 Education", "💰 Other",
}

// EnsureDefaultCategories seeds the default category set for userID.
// Already-present names are left untouched, so the call is idempotent.
func (db *DB) EnsureDefaultCategories(userID int64) error {
	for _, name := range DefaultCategories {
		if err := db.AddCategory(userID, name); err != nil {
			return err
		}
	}
	return nil
}

// AddCategory registers a category name for userID. Adding an existing name
// is a no-op.
func (db *DB) AddCategory(userID int64, name string) error {
	_, err := db.conn.Exec(
		`INSERT OR IGNORE INTO categories (user_id, name) VALUES (?, ?)`,
		userID, name,
	)
	return err
}

// Categories returns the user's registered category names in insertion
// order, falling back to the default set when none are registered.
func (db *DB) Categories(userID int64) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT name FROM categories WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		categories = append(categories, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(categories) == 0 {
		return append([]string(nil), DefaultCategories...), nil
	}
	return categories, nil
}
