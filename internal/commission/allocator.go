package commission

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/anyulbade/commission-ledger/internal/model"
)

type Group struct {
	Key      CategoryKey          `json:"category_key"`
	Items    []model.SaleLineItem `json:"items"`
	Subtotal decimal.Decimal      `json:"subtotal"`
}

func (g Group) ItemCount() int {
	return len(g.Items)
}

// Allocation is the partition of a sale's line items by category. Every item
// appears in exactly one group and the group subtotals sum to Total. Total is
// not necessarily the sale's recorded total.
type Allocation struct {
	Groups []Group
	Total  decimal.Decimal
}

// Allocate groups line items by their product category. Categorized groups
// are ordered by category id with the uncategorized group last.
func Allocate(items []model.SaleLineItem) Allocation {
	byKey := make(map[CategoryKey]*Group)
	total := decimal.Zero

	for _, item := range items {
		key := KeyOf(item.CategoryID)
		g, ok := byKey[key]
		if !ok {
			g = &Group{Key: key, Subtotal: decimal.Zero}
			byKey[key] = g
		}
		g.Items = append(g.Items, item)
		g.Subtotal = g.Subtotal.Add(item.Subtotal)
		total = total.Add(item.Subtotal)
	}

	keys := make([]CategoryKey, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == Uncategorized {
			return false
		}
		if keys[j] == Uncategorized {
			return true
		}
		return keys[i] < keys[j]
	})

	groups := make([]Group, len(keys))
	for i, k := range keys {
		groups[i] = *byKey[k]
	}

	return Allocation{Groups: groups, Total: total}
}

func (a Allocation) Group(key CategoryKey) (Group, bool) {
	for _, g := range a.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{Key: key, Subtotal: decimal.Zero}, false
}

// Scope names the items a commission pays on.
type Scope string

const (
	ScopeCategory      Scope = "category"
	ScopeUncategorized Scope = "uncategorized_items"
	ScopeWholeSale     Scope = "whole_sale"
	ScopeNone          Scope = "none"
)

// NullCategoryScope picks the items a commission recorded without a category
// pays on. When the sale has uncategorized items that is their group, which
// is what backfill writes. Otherwise the record predates per-category
// bookkeeping: alone it spans the whole sale, and next to categorized
// siblings it owns no items. Categories without a rate of their own never
// fall into the uncategorized group.
func (a Allocation) NullCategoryScope(hasSiblings bool) (Group, Scope) {
	if g, ok := a.Group(Uncategorized); ok {
		return g, ScopeUncategorized
	}
	if hasSiblings {
		return Group{Key: Uncategorized, Subtotal: decimal.Zero}, ScopeNone
	}

	whole := Group{Key: Uncategorized, Subtotal: a.Total}
	for _, g := range a.Groups {
		whole.Items = append(whole.Items, g.Items...)
	}
	return whole, ScopeWholeSale
}
