package domain

// CategoryType restricts which transactions a category applies to.
type CategoryType string

const (
	CategoryTypeExpense CategoryType = "EXPENSE"
	CategoryTypeIncome  CategoryType = "INCOME"
	CategoryTypeBoth    CategoryType = "BOTH"
)

// Valid reports whether c is a known category type.
func (c CategoryType) Valid() bool {
	switch c {
	case CategoryTypeExpense, CategoryTypeIncome, CategoryTypeBoth:
		return true
	}
	return false
}

// Matches reports whether a category of type c should be returned for a
// query filtered by want. BOTH matches either side; an empty want matches all.
func (c CategoryType) Matches(want CategoryType) bool {
	if want == "" || c == want || c == CategoryTypeBoth {
		return true
	}
	return false
}

// Category is a user-defined label for transactions.
type Category struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Type   CategoryType `json:"type"`
	UserID string       `json:"userId"`
}

// PolarityOf returns the category side an amount belongs to.
// Negative amounts are expenses; zero and positive amounts are income.
func PolarityOf(amount float64) CategoryType {
	if amount < 0 {
		return CategoryTypeExpense
	}
	return CategoryTypeIncome
}
