package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/kosthorys-api/internal/domain"
	"gorm.io/gorm"
)

// Drift is a difference between a stored balance and the balance derived
// from the posted documents
type Drift struct {
	Kind     string // "remaining" or "used_amount"
	ID       uuid.UUID
	Stored   decimal.Decimal
	Expected decimal.Decimal
}

// ReconcileResult summarizes a reconciliation run
type ReconcileResult struct {
	SpecificationsChecked int
	ContractsChecked      int
	Drifts                []Drift
	Repaired              bool
}

// Reconcile recomputes every stored balance from the posted documents:
//
//	remaining   = quantity - sum(posted act item qty) - sum(usage qty)
//	used_amount = sum(posted act totals) + sum(usage amounts)
//
// When repair is true the drifted rows are overwritten in one transaction.
func Reconcile(ctx context.Context, db *gorm.DB, repair bool) (*ReconcileResult, error) {
	result := &ReconcileResult{Repaired: repair}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posted := []domain.ActStatus{domain.ActStatusActive, domain.ActStatusPaid}

		var specs []domain.Specification
		if err := tx.Find(&specs).Error; err != nil {
			return fmt.Errorf("failed to load specifications: %w", err)
		}

		var actItems []domain.ActItem
		if err := tx.Joins("JOIN acts ON acts.id = act_items.act_id").
			Where("acts.status IN ?", posted).
			Find(&actItems).Error; err != nil {
			return fmt.Errorf("failed to load act items: %w", err)
		}

		var usages []domain.SpecificationUsage
		if err := tx.Find(&usages).Error; err != nil {
			return fmt.Errorf("failed to load usages: %w", err)
		}

		consumed := make(map[uuid.UUID]decimal.Decimal)
		for _, item := range actItems {
			consumed[item.SpecificationID] = consumed[item.SpecificationID].Add(item.Quantity)
		}
		for _, u := range usages {
			consumed[u.SpecificationID] = consumed[u.SpecificationID].Add(u.QuantityUsed)
		}

		specContract := make(map[uuid.UUID]uuid.UUID, len(specs))
		for _, s := range specs {
			specContract[s.ID] = s.ContractID
			expected := decimal.Max(s.Quantity.Sub(consumed[s.ID]), decimal.Zero)
			result.SpecificationsChecked++
			if expected.Equal(s.Remaining) {
				continue
			}
			result.Drifts = append(result.Drifts, Drift{Kind: "remaining", ID: s.ID, Stored: s.Remaining, Expected: expected})
			if repair {
				if err := tx.Model(&domain.Specification{}).Where("id = ?", s.ID).
					Update("remaining", expected).Error; err != nil {
					return fmt.Errorf("failed to repair remaining: %w", err)
				}
			}
		}

		var acts []domain.Act
		if err := tx.Where("status IN ?", posted).Find(&acts).Error; err != nil {
			return fmt.Errorf("failed to load acts: %w", err)
		}
		used := make(map[uuid.UUID]decimal.Decimal)
		for _, a := range acts {
			used[a.ContractID] = used[a.ContractID].Add(a.TotalAmount)
		}
		for _, u := range usages {
			if contractID, ok := specContract[u.SpecificationID]; ok {
				used[contractID] = used[contractID].Add(u.Amount)
			}
		}

		var contracts []domain.Contract
		if err := tx.Select("id", "used_amount").Find(&contracts).Error; err != nil {
			return fmt.Errorf("failed to load contracts: %w", err)
		}
		for _, c := range contracts {
			result.ContractsChecked++
			expected := used[c.ID]
			if expected.Equal(c.UsedAmount) {
				continue
			}
			result.Drifts = append(result.Drifts, Drift{Kind: "used_amount", ID: c.ID, Stored: c.UsedAmount, Expected: expected})
			if repair {
				if err := tx.Model(&domain.Contract{}).Where("id = ?", c.ID).
					Update("used_amount", expected).Error; err != nil {
					return fmt.Errorf("failed to repair used amount: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
