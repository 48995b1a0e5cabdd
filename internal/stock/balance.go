package stock

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-stock/internal/catalog"
	"github.com/odyssey-erp/odyssey-stock/internal/linediff"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// MoneyScale is the number of decimal places stored for unit values and totals.
const MoneyScale = 2

// MergeLines validates caller lines and folds entries sharing the same
// (product, unit value) pair into one line with the summed count. The same
// product at two different unit values is rejected since lines are keyed by
// product. Output keeps first-occurrence order.
func MergeLines(inputs []LineInput) ([]Line, error) {
	type pair struct {
		productID int64
		unit      string
	}
	index := make(map[pair]int, len(inputs))
	byProduct := make(map[int64]string, len(inputs))
	lines := make([]Line, 0, len(inputs))
	for i, in := range inputs {
		switch {
		case in.ProductID <= 0:
			return nil, shared.ValidationErrorf("line %d: productId must be > 0", i)
		case in.Count <= 0:
			return nil, shared.ValidationErrorf("line %d: count must be > 0", i)
		case in.UnitValue.IsNegative():
			return nil, shared.ValidationErrorf("line %d: unit value must be >= 0", i)
		case !in.UnitValue.Equal(in.UnitValue.Round(MoneyScale)):
			return nil, shared.ValidationErrorf("line %d: unit value %s has more than %d decimal places", i, in.UnitValue, MoneyScale)
		}
		key := pair{productID: in.ProductID, unit: in.UnitValue.String()}
		if at, ok := index[key]; ok {
			if lines[at].Count > math.MaxInt64-in.Count {
				return nil, shared.ValidationErrorf("line %d: merged count for product %d overflows", i, in.ProductID)
			}
			lines[at].Count += in.Count
			continue
		}
		if unit, ok := byProduct[in.ProductID]; ok && unit != key.unit {
			return nil, shared.ValidationErrorf("product %d appears with unit values %s and %s", in.ProductID, unit, key.unit)
		}
		byProduct[in.ProductID] = key.unit
		index[key] = len(lines)
		lines = append(lines, Line{ProductID: in.ProductID, Count: in.Count, UnitValue: in.UnitValue, VendorID: in.VendorID})
	}
	return lines, nil
}

// TotalAmount sums count × unit value over lines.
func TotalAmount(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount())
	}
	return total
}

// DiffLines classifies next against stored lines by product id. Row id and
// document id are ignored; count, unit value and vendor are compared.
func DiffLines(stored, next []Line) linediff.Result[Line] {
	return linediff.Diff(stored, next, lineKey, sameLine)
}

func lineKey(l Line) (int64, bool) {
	return l.ProductID, l.ProductID != 0
}

func sameLine(a, b Line) bool {
	if a.Count != b.Count || !a.UnitValue.Equal(b.UnitValue) {
		return false
	}
	switch {
	case a.VendorID == nil && b.VendorID == nil:
		return true
	case a.VendorID == nil || b.VendorID == nil:
		return false
	default:
		return *a.VendorID == *b.VendorID
	}
}

// ProductChange is one product's aggregated delta.
type ProductChange struct {
	ProductID int64
	Delta     catalog.ProductDelta
}

// Plan accumulates product deltas for one operation so each product is
// touched once, in ascending id order.
type Plan struct {
	deltas map[int64]catalog.ProductDelta
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{deltas: map[int64]catalog.ProductDelta{}}
}

// Add merges delta into the product's pending change.
func (p *Plan) Add(productID int64, delta catalog.ProductDelta) {
	p.deltas[productID] = p.deltas[productID].Merge(delta)
}

// Changes returns the non-empty changes sorted by product id.
func (p *Plan) Changes() []ProductChange {
	out := make([]ProductChange, 0, len(p.deltas))
	for id, d := range p.deltas {
		if d.IsZero() {
			continue
		}
		out = append(out, ProductChange{ProductID: id, Delta: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// createEffect reserves a new line: incoming quantity becomes pending-in,
// outgoing quantity leaves the balance and becomes pending-out.
func createEffect(kind Kind, l Line) catalog.ProductDelta {
	if kind == KindOut {
		return catalog.ProductDelta{BalanceDelta: -l.Count, PendingOutDelta: l.Count, RequireAvailable: true}
	}
	cost := l.UnitValue
	return catalog.ProductDelta{PendingInDelta: l.Count, LatestCost: &cost}
}

// modifyEffect applies only the count difference between stored and next.
func modifyEffect(kind Kind, stored, next Line) catalog.ProductDelta {
	diff := next.Count - stored.Count
	if kind == KindOut {
		return catalog.ProductDelta{BalanceDelta: -diff, PendingOutDelta: diff, RequireAvailable: diff > 0}
	}
	cost := next.UnitValue
	return catalog.ProductDelta{PendingInDelta: diff, LatestCost: &cost}
}

// reverseEffect undoes createEffect entirely.
func reverseEffect(kind Kind, l Line) catalog.ProductDelta {
	if kind == KindOut {
		return catalog.ProductDelta{BalanceDelta: l.Count, PendingOutDelta: -l.Count}
	}
	return catalog.ProductDelta{PendingInDelta: -l.Count}
}

// confirmEffect settles a line. code is only used for stock-in.
func confirmEffect(kind Kind, l Line, code string) catalog.ProductDelta {
	value := l.UnitValue
	if kind == KindOut {
		return catalog.ProductDelta{PendingOutDelta: -l.Count, LatestPrice: &value}
	}
	return catalog.ProductDelta{BalanceDelta: l.Count, PendingInDelta: -l.Count, LatestCost: &value, ProductCode: &code}
}

// PlanCreate builds the deltas of a newly created document.
func PlanCreate(kind Kind, lines []Line) *Plan {
	plan := NewPlan()
	for _, l := range lines {
		plan.Add(l.ProductID, createEffect(kind, l))
	}
	return plan
}

// PlanUpdate builds the deltas of a line replacement. stored maps product id
// to the line currently persisted for it.
func PlanUpdate(kind Kind, diff linediff.Result[Line], stored map[int64]Line) *Plan {
	plan := NewPlan()
	for _, l := range diff.Added {
		plan.Add(l.ProductID, createEffect(kind, l))
	}
	for _, l := range diff.Modified {
		plan.Add(l.ProductID, modifyEffect(kind, stored[l.ProductID], l))
	}
	for _, l := range diff.Deleted {
		plan.Add(l.ProductID, reverseEffect(kind, l))
	}
	return plan
}

// PlanReverse builds the deltas undoing every line.
func PlanReverse(kind Kind, lines []Line) *Plan {
	plan := NewPlan()
	for _, l := range lines {
		plan.Add(l.ProductID, reverseEffect(kind, l))
	}
	return plan
}

// PlanConfirm builds the settlement deltas. codes maps product id to its new
// product code for stock-in documents.
func PlanConfirm(kind Kind, lines []Line, codes map[int64]string) *Plan {
	plan := NewPlan()
	for _, l := range lines {
		plan.Add(l.ProductID, confirmEffect(kind, l, codes[l.ProductID]))
	}
	return plan
}
