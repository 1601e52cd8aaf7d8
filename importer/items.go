package importer

import (
	"github.com/google/uuid"
	"github.com/mmdatafocus/books_importer/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// amountTolerance is the rounding slack allowed between a line's declared
// amount and quantity x unit price (two decimal places).
var amountTolerance = decimal.NewFromFloat(0.01)

// LineItemResult counts what reconciliation did to an order's line item set.
type LineItemResult struct {
	Updated  int `json:"updated"`
	Inserted int `json:"inserted"`
	Deleted  int `json:"deleted"`
}

type lineItemUpdate struct {
	Existing models.OrderItem
	Incoming LineItemInput
}

// lineItemDiff partitions an order's reconciliation into the three write
// sets, plus the product codes that appeared more than once among existing
// rows (reported as warnings, matched first-wins).
type lineItemDiff struct {
	updates        []lineItemUpdate
	inserts        []LineItemInput
	deletes        []models.OrderItem
	duplicateCodes []string
}

// diffLineItems computes the full-replace diff between the persisted line
// items of an order and the incoming set, matched by product code. Pure; the
// apply step is separate so this stays testable without storage.
func diffLineItems(existing []models.OrderItem, incoming []LineItemInput) lineItemDiff {
	var diff lineItemDiff

	// Unmatched existing row indexes per code, in stored order.
	byCode := make(map[string][]int, len(existing))
	seen := map[string]bool{}
	for i, item := range existing {
		code := NormalizeProductCode(item.ProductCode)
		if seen[code] {
			diff.duplicateCodes = append(diff.duplicateCodes, code)
		}
		seen[code] = true
		byCode[code] = append(byCode[code], i)
	}

	for _, in := range incoming {
		code := NormalizeProductCode(in.ProductCode)

		queue := byCode[code]
		if len(queue) == 0 {
			diff.inserts = append(diff.inserts, in)
			continue
		}
		diff.updates = append(diff.updates, lineItemUpdate{
			Existing: existing[queue[0]],
			Incoming: in,
		})
		byCode[code] = queue[1:]
	}

	// Every stored row left unmatched goes away: full-replace semantics,
	// not append-only. Iterate existing to keep delete order stable.
	remaining := map[int]bool{}
	for _, queue := range byCode {
		for _, i := range queue {
			remaining[i] = true
		}
	}
	for i := range existing {
		if remaining[i] {
			diff.deletes = append(diff.deletes, existing[i])
		}
	}
	return diff
}

// amountMismatch reports whether a line's declared amount deviates from
// quantity x unit price by more than the rounding tolerance. A price derived
// from the amount itself can disagree with it by qty times the rounding
// error, so the check is skipped for derived prices.
func amountMismatch(in LineItemInput) bool {
	if in.PriceDerived {
		return false
	}
	computed := in.Quantity.Mul(in.UnitPrice)
	return in.Amount.Sub(computed).Abs().GreaterThan(amountTolerance)
}

// ReconcileLineItems replaces an order's line item set with the incoming one:
// existing items matched by product code are overwritten in place, unmatched
// incoming items are inserted (auto-vivifying their product), and stale items
// are deleted. Amount mismatches are recorded as validation warnings; the
// declared amount is stored as-is, never silently substituted.
func ReconcileLineItems(tx *gorm.DB, order *models.Order, incoming []LineItemInput, tracker *ErrorTracker, stats *RunStats) (*LineItemResult, error) {
	existing, err := models.GetOrderItems(tx, order.ID)
	if err != nil {
		return nil, err
	}

	diff := diffLineItems(existing, incoming)
	result := &LineItemResult{}

	for _, code := range diff.duplicateCodes {
		tracker.Add(ErrCategoryValidation, "duplicate line items for product code", map[string]interface{}{
			"order_number": order.OrderNumber,
			"product_code": code,
		})
		stats.ValidationErrors++
	}

	apply := func(in LineItemInput) error {
		if _, err := EnsureProduct(tx, in.ProductCode, in.Description); err != nil {
			return err
		}
		if amountMismatch(in) {
			tracker.Add(ErrCategoryValidation, "line amount does not match quantity x unit price", map[string]interface{}{
				"order_number": order.OrderNumber,
				"product_code": in.ProductCode,
				"quantity":     in.Quantity.String(),
				"unit_price":   in.UnitPrice.String(),
				"amount":       in.Amount.String(),
			})
			stats.ValidationErrors++
		}
		if _, err := updateProductDescription(tx, NormalizeProductCode(in.ProductCode), in.Description); err != nil {
			return err
		}
		return nil
	}

	for _, up := range diff.updates {
		if err := apply(up.Incoming); err != nil {
			return nil, err
		}
		err := tx.Model(&models.OrderItem{}).
			Where("id = ?", up.Existing.ID).
			Updates(map[string]interface{}{
				"description": up.Incoming.Description,
				"quantity":    up.Incoming.Quantity,
				"unit_price":  up.Incoming.UnitPrice,
				"amount":      up.Incoming.Amount,
			}).Error
		if err != nil {
			return nil, err
		}
		result.Updated++
	}

	for _, in := range diff.inserts {
		if err := apply(in); err != nil {
			return nil, err
		}
		item := models.OrderItem{
			ID:          uuid.NewString(),
			OrderId:     order.ID,
			ProductCode: NormalizeProductCode(in.ProductCode),
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Amount:      in.Amount,
		}
		if err := tx.Create(&item).Error; err != nil {
			return nil, err
		}
		result.Inserted++
	}

	for _, stale := range diff.deletes {
		if err := tx.Delete(&models.OrderItem{}, "id = ?", stale.ID).Error; err != nil {
			return nil, err
		}
		result.Deleted++
	}

	return result, nil
}
