package composer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/listini-pricing/internal/pricing"
)

const totalPlaces int32 = 2

// LineView is a read-only snapshot of a list line.
type LineView struct {
	ID        uuid.UUID               `json:"id"`
	ArticleID uuid.UUID               `json:"article_id"`
	Quantity  decimal.Decimal         `json:"quantity"`
	Selection *pricing.PriceSelection `json:"selection,omitempty"`
	Choice    *pricing.TierChoice     `json:"choice,omitempty"`
	LineTotal decimal.Decimal         `json:"line_total"`
}

// ListView is a read-only snapshot of a list being composed.
type ListView struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
	Lines      []LineView      `json:"lines"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (l *line) view() LineView {
	v := LineView{
		ID:        l.id,
		ArticleID: l.articleID,
		Quantity:  l.quantity,
		LineTotal: decimal.Zero,
	}
	if l.selection != nil {
		sel := *l.selection
		v.Selection = &sel
		v.LineTotal = l.quantity.Mul(sel.CessionPrice).Round(totalPlaces)
	}
	if l.choice != nil {
		choice := *l.choice
		choice.Options = append([]pricing.TierOption(nil), l.choice.Options...)
		v.Choice = &choice
	}
	return v
}

func (l *list) view() ListView {
	v := ListView{
		ID:        l.id,
		Lines:     make([]LineView, 0, len(l.order)),
		Total:     decimal.Zero,
		CreatedAt: l.createdAt,
		UpdatedAt: l.updatedAt,
	}
	if l.customerID != nil {
		id := *l.customerID
		v.CustomerID = &id
	}
	for _, id := range l.order {
		lv := l.lines[id].view()
		v.Total = v.Total.Add(lv.LineTotal)
		v.Lines = append(v.Lines, lv)
	}
	return v
}
