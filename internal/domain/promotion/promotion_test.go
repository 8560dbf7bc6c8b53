package promotion_test

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/promotion"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTotalDiscountIsExact(t *testing.T) {
	q := promotion.Quote{Lines: []promotion.QuotedLine{
		{DiscountAmount: decimal.RequireFromString("0.1")},
		{DiscountAmount: decimal.RequireFromString("0.2")},
		{DiscountAmount: decimal.RequireFromString("4.7")},
	}}

	assert.True(t, decimal.RequireFromString("5.0").Equal(q.TotalDiscount()))
	assert.True(t, promotion.Quote{}.TotalDiscount().IsZero())
}
