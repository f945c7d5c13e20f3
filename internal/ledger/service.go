package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

// NewTransaction is the input of Create.
type NewTransaction struct {
	Amount               decimal.Decimal        `json:"amount"`
	Type                 domain.TransactionType `json:"type"`
	Description          string                 `json:"description"`
	Date                 time.Time              `json:"date"`
	IsPaid               bool                   `json:"isPaid"`
	AccountID            string                 `json:"accountId"`
	DestinationAccountID string                 `json:"destinationAccountId"`
	CategoryID           string                 `json:"categoryId"`
}

// Service creates, updates and deletes ledger entries while keeping account
// balances equal to the effect of all paid transactions. Every operation runs
// in a single storage transaction; a failed balance update aborts it.
type Service struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// NewService creates a ledger service over store.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Create validates and persists a transaction, posting its balance effect when paid.
func (s *Service) Create(ctx context.Context, userID string, in NewTransaction) (domain.Transaction, error) {
	if !in.Type.Valid() {
		return domain.Transaction{}, domain.Invalid("unknown transaction type %q", in.Type)
	}
	if in.AccountID == "" {
		return domain.Transaction{}, domain.Invalid("accountId is required")
	}
	if err := checkDestination(in.Type, in.AccountID, in.DestinationAccountID); err != nil {
		return domain.Transaction{}, err
	}

	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	t := domain.Transaction{
		ID:                   s.newID(),
		Amount:               domain.SignedAmount(in.Type, in.Amount),
		Type:                 in.Type,
		Description:          in.Description,
		Date:                 domain.Day(date),
		IsPaid:               in.IsPaid,
		AccountID:            in.AccountID,
		DestinationAccountID: in.DestinationAccountID,
		CategoryID:           in.CategoryID,
		UserID:               userID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		if err := checkReferences(ctx, tx, userID, t.AccountID, t.DestinationAccountID, t.CategoryID); err != nil {
			return err
		}
		if err := tx.Transactions().Insert(ctx, t); err != nil {
			return fmt.Errorf("Create: insert transaction: %w", err)
		}
		if t.IsPaid {
			return NewMutator(tx.Accounts()).Apply(ctx, t)
		}
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.log.Debug().Str("transaction_id", t.ID).Str("user_id", userID).Bool("paid", t.IsPaid).Msg("transaction created")
	return t, nil
}

// Update revises a transaction. The balance effect of the stored snapshot is
// reversed if it was paid, and the effect of the new state applied if it is paid.
func (s *Service) Update(ctx context.Context, userID, id string, patch domain.TransactionPatch) (domain.Transaction, error) {
	var updated domain.Transaction
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		old, err := tx.Transactions().FindOne(ctx, id, userID)
		if err != nil {
			return err
		}

		next, err := applyPatch(old, patch)
		if err != nil {
			return err
		}
		next.UpdatedAt = s.now()

		if err := checkReferences(ctx, tx, userID,
			changed(old.AccountID, next.AccountID),
			changed(old.DestinationAccountID, next.DestinationAccountID),
			changed(old.CategoryID, next.CategoryID),
		); err != nil {
			return err
		}

		mutator := NewMutator(tx.Accounts())
		if old.IsPaid {
			if err := mutator.Reverse(ctx, old); err != nil {
				return err
			}
		}
		if err := tx.Transactions().Update(ctx, next); err != nil {
			return fmt.Errorf("Update: persist transaction: %w", err)
		}
		if next.IsPaid {
			if err := mutator.Apply(ctx, next); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.log.Debug().Str("transaction_id", id).Str("user_id", userID).Msg("transaction updated")
	return updated, nil
}

// Delete removes a transaction, reversing its balance effect when it was paid.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		old, err := tx.Transactions().FindOne(ctx, id, userID)
		if err != nil {
			return err
		}
		if old.IsPaid {
			if err := NewMutator(tx.Accounts()).Reverse(ctx, old); err != nil {
				return err
			}
		}
		if err := tx.Transactions().Delete(ctx, id, userID); err != nil {
			return fmt.Errorf("Delete: remove transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Debug().Str("transaction_id", id).Str("user_id", userID).Msg("transaction deleted")
	return nil
}

// applyPatch merges patch into old. A type change re-signs the amount for the
// new type, carrying the old magnitude when no amount is given.
func applyPatch(old domain.Transaction, p domain.TransactionPatch) (domain.Transaction, error) {
	next := old

	if p.Type != nil {
		if !p.Type.Valid() {
			return next, domain.Invalid("unknown transaction type %q", *p.Type)
		}
		next.Type = *p.Type
	}
	switch {
	case p.Amount != nil:
		next.Amount = domain.SignedAmount(next.Type, *p.Amount)
	case next.Type != old.Type:
		next.Amount = domain.SignedAmount(next.Type, old.Amount)
	}

	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Date != nil {
		next.Date = domain.Day(*p.Date)
	}
	if p.IsPaid != nil {
		next.IsPaid = *p.IsPaid
	}
	if p.AccountID != nil {
		next.AccountID = *p.AccountID
	}
	if p.CategoryID != nil {
		next.CategoryID = *p.CategoryID
	}
	if p.DestinationAccountID != nil {
		next.DestinationAccountID = *p.DestinationAccountID
	} else if next.Type != domain.TransactionTypeTransfer {
		// leaving TRANSFER drops the destination leg
		next.DestinationAccountID = ""
	}

	if next.AccountID == "" {
		return next, domain.Invalid("accountId is required")
	}
	if err := checkDestination(next.Type, next.AccountID, next.DestinationAccountID); err != nil {
		return next, err
	}
	return next, nil
}

func checkDestination(typ domain.TransactionType, accountID, destinationID string) error {
	if destinationID == "" {
		return nil
	}
	if typ != domain.TransactionTypeTransfer {
		return domain.Invalid("destinationAccountId is only allowed for transfers")
	}
	if destinationID == accountID {
		return domain.Invalid("source and destination accounts must differ")
	}
	return nil
}

// checkReferences verifies that every non-empty id belongs to userID.
func checkReferences(ctx context.Context, tx Tx, userID, accountID, destinationID, categoryID string) error {
	for _, id := range []string{accountID, destinationID} {
		if id == "" {
			continue
		}
		if _, err := tx.Accounts().FindOne(ctx, id, userID); err != nil {
			return err
		}
	}
	if categoryID != "" {
		if _, err := tx.Categories().FindOne(ctx, categoryID, userID); err != nil {
			return err
		}
	}
	return nil
}

// changed returns next when it differs from old, otherwise "".
func changed(old, next string) string {
	if old == next {
		return ""
	}
	return next
}
