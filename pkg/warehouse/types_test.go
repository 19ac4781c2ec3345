package warehouse

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLocationCode(t *testing.T) {
	// 形式: W<倉庫コード>-C<コリドー番号2桁>-H<セル番号3桁>
	assert.Equal(t, "WMAIN1-C01-H001", LocationCode("MAIN1", 1, 1))
	assert.Equal(t, "WA-C12-H345", LocationCode("A", 12, 345))
	assert.Equal(t, "WX-C100-H1000", LocationCode("X", 100, 1000))
}

func TestMovementKindIsValid(t *testing.T) {
	for _, kind := range []MovementKind{MovementInbound, MovementOutbound, MovementAdjustment, MovementReturn, MovementDamage} {
		assert.True(t, kind.IsValid(), string(kind))
	}
	assert.False(t, MovementKind("").IsValid())
	assert.False(t, MovementKind("transfer").IsValid())
}

func TestProductLocationLoad(t *testing.T) {
	weight := decimal.NewFromFloat(0.5)
	volume := decimal.NewFromInt(100)
	p := &ProductLocation{
		Quantity:   10,
		UnitWeight: &weight,
		UnitVolume: &volume,
	}

	w, v := p.Load()
	assert.True(t, w.Equal(decimal.NewFromInt(5)), "総重量 = 0.5kg × 10")
	assert.True(t, v.Equal(decimal.NewFromInt(1000)), "総容積 = 100cm³ × 10")

	// 単位不明の配置は負荷0
	empty := &ProductLocation{Quantity: 10}
	w, v = empty.Load()
	assert.True(t, w.IsZero())
	assert.True(t, v.IsZero())
}

func TestProductLocationExpiry(t *testing.T) {
	// 期限未設定
	p := &ProductLocation{}
	assert.False(t, p.IsExpired())
	assert.Nil(t, p.DaysToExpiry())

	// 期限切れ
	past := time.Now().Add(-48 * time.Hour)
	p.ExpiryDate = &past
	assert.True(t, p.IsExpired())

	// 期限内
	future := time.Now().Add(72 * time.Hour)
	p.ExpiryDate = &future
	assert.False(t, p.IsExpired())
	days := p.DaysToExpiry()
	assert.NotNil(t, days)
	assert.InDelta(t, 3, *days, 1)
}
