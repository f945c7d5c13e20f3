package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a running balance that must always equal the effect of every
// paid transaction referencing it.
type Account struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	UserID    string          `json:"userId"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
