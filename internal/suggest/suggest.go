// Package suggest derives the ranked default and learned choices the entry
// conversation offers at each step.
package suggest

// DescriptionLimit caps how many description suggestions are offered.
const DescriptionLimit = 6

// DefaultAccounts is always offered alongside the accounts a user has
// already recorded expenses against.
var DefaultAccounts = []string{
	"Cash", "Online", "Credit Card", "Debit Card", "UPI", "Mobile Wallet",
}

// DefaultSubcategories maps a category to its fixed starter subcategories.
var DefaultSubcategories = map[string][]string{
	"🍔 Food":          {"Breakfast", "Lunch", "Dinner", "Snacks", "Tea/Coffee"},
	"🍜 Food":          {"Breakfast", "Lunch", "Dinner", "Snacks", "Tea/Coffee"},
	"🚗 Transport":     {"Bus", "Train", "Auto", "Taxi", "Fuel", "Metro"},
	"🚖 Transport":     {"Bus", "Train", "Auto", "Taxi", "Fuel", "Metro"},
	"🏠 Rent":          {"House Rent", "Maintenance", "Deposit"},
	"⚡ Utilities":      {"Electricity", "Water", "Gas", "Internet", "Phone"},
	"🎬 Entertainment": {"Movies", "Games", "Concerts", "Sports"},
	"🛒 Shopping":      {"Groceries", "Clothing", "Electronics", "Home Items"},
	"💊 Health":        {"Medicine", "Doctor", "Tests", "Gym"},
	"📚 Education":     {"Books", "Courses", "Tuition", "Stationery"},
	"📱Mobile Recharge": {"Data Pack", "Recharge", "Bill Payment"},
	"🪑 Household":     {"Furniture", "Appliances", "Repairs", "Cleaning"},
}

// History is the storage surface the engine reads from.
type History interface {
	DistinctSubcategories(userID int64, category string) ([]string, error)
	DistinctAccounts(userID int64) ([]string, error)
	TopDescriptions(userID int64, category string, subcategory *string, limit int) ([]string, error)
}

// Engine ranks choices from a user's expense history.
type Engine struct {
	history History
}

// NewEngine creates an Engine reading from history.
func NewEngine(history History) *Engine {
	return &Engine{history: history}
}

// Subcategories returns the user's historical subcategories for category,
// followed by the category's fixed defaults, deduplicated. When both are
// empty a single generic option is offered.
func (e *Engine) Subcategories(userID int64, category string) ([]string, error) {
	used, err := e.history.DistinctSubcategories(userID, category)
	if err != nil {
		return nil, err
	}

	merged := dedupe(used, DefaultSubcategories[category])
	if len(merged) == 0 {
		return []string{"General"}, nil
	}
	return merged, nil
}

// Accounts returns the user's historical account labels followed by the
// fixed defaults, deduplicated.
func (e *Engine) Accounts(userID int64) ([]string, error) {
	used, err := e.history.DistinctAccounts(userID)
	if err != nil {
		return nil, err
	}
	return dedupe(used, DefaultAccounts), nil
}

// Descriptions returns up to DescriptionLimit past descriptions for
// (category, subcategory), most frequently used first, excluding the system
// sentinel strings.
func (e *Engine) Descriptions(userID int64, category string, subcategory *string) ([]string, error) {
	return e.history.TopDescriptions(userID, category, subcategory, DescriptionLimit)
}

func dedupe(lists ...[]string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, list := range lists {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				merged = append(merged, v)
			}
		}
	}
	return merged
}
