package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"walletservice/internal/model"
	"walletservice/internal/repository"
	"walletservice/pkg/idgen"
	"walletservice/pkg/walleterr"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func futureMillis(d time.Duration) *int64 {
	v := time.Now().Add(d).UnixMilli()
	return &v
}

// newLot 登记一条收入额度，返回它所属的交易ID
func newLot(t *testing.T, db *gorm.DB, svc *OutlayService, uid int64, amount int64, expiredAt *int64) int64 {
	t.Helper()

	trans := &model.WalletTransaction{
		ID:        idgen.NextID(),
		CreatedAt: time.Now().UnixMilli(),
		CreatedBy: "test",
		UID:       uid,
		Currency:  "COIN",
		Amount:    amount,
		ExpiredAt: expiredAt,
	}
	require.NoError(t, svc.NewIncome(context.Background(), db, trans))
	return trans.ID
}

func spendTrans(uid int64, amount int64) *model.WalletTransaction {
	return &model.WalletTransaction{
		ID:        idgen.NextID(),
		CreatedAt: time.Now().UnixMilli(),
		CreatedBy: "test",
		UID:       uid,
		Currency:  "COIN",
		Amount:    amount,
		Outlay:    true,
	}
}

func lotBalance(t *testing.T, db *gorm.DB, transactionID int64) int64 {
	t.Helper()

	var lot model.Outlay
	err := db.Where("transaction_id = ? AND income > 0", transactionID).First(&lot).Error
	require.NoError(t, err)
	return lot.Balance
}

func TestOutlayConsumesEarliestFirst(t *testing.T) {
	db := newTestDB(t)
	svc := NewOutlayService(db)
	ctx := context.Background()

	late := newLot(t, db, svc, 100, 100, futureMillis(30*24*time.Hour))
	mid := newLot(t, db, svc, 100, 10, futureMillis(15*24*time.Hour))
	early := newLot(t, db, svc, 100, 15, futureMillis(5*24*time.Hour))

	spend := spendTrans(100, 10)
	require.NoError(t, svc.Outlay(ctx, db, spend))

	// 只消耗最早过期的额度
	require.Equal(t, int64(5), lotBalance(t, db, early))
	require.Equal(t, int64(10), lotBalance(t, db, mid))
	require.Equal(t, int64(100), lotBalance(t, db, late))

	rows, err := svc.LotsBySpend(ctx, spend.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, early, rows[0].TransactionID)
	require.Equal(t, int64(10), rows[0].UseAmount)
	require.Equal(t, int64(0), rows[0].Margin)
	require.Equal(t, int64(10), rows[0].Amount)
}

func TestOutlaySplitsAcrossLots(t *testing.T) {
	db := newTestDB(t)
	svc := NewOutlayService(db)
	ctx := context.Background()

	first := newLot(t, db, svc, 100, 5, futureMillis(24*time.Hour))
	second := newLot(t, db, svc, 100, 10, futureMillis(48*time.Hour))
	third := newLot(t, db, svc, 100, 20, futureMillis(72*time.Hour))

	spend := spendTrans(100, 35)
	require.NoError(t, svc.Outlay(ctx, db, spend))

	require.Equal(t, int64(0), lotBalance(t, db, first))
	require.Equal(t, int64(0), lotBalance(t, db, second))
	require.Equal(t, int64(0), lotBalance(t, db, third))

	rows, err := svc.LotsBySpend(ctx, spend.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// 按过期时间从早到晚逐条占用，差额滚动递减
	require.Equal(t, []int64{5, 10, 20}, []int64{rows[0].UseAmount, rows[1].UseAmount, rows[2].UseAmount})
	require.Equal(t, []int64{30, 20, 0}, []int64{rows[0].Margin, rows[1].Margin, rows[2].Margin})
}

func TestOutlayInsufficient(t *testing.T) {
	db := newTestDB(t)
	svc := NewOutlayService(db)

	lot := newLot(t, db, svc, 100, 10, futureMillis(24*time.Hour))

	err := svc.Outlay(context.Background(), db, spendTrans(100, 20))
	require.True(t, errors.Is(err, walleterr.ErrInsufficientBalance))

	// 失败时不应留下半消耗的额度（外层事务会回滚，这里验证判定先于写入）
	require.Equal(t, int64(10), lotBalance(t, db, lot))
}

func TestOutlayIgnoresExpiredLots(t *testing.T) {
	db := newTestDB(t)
	svc := NewOutlayService(db)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour).UnixMilli()
	expired := newLot(t, db, svc, 100, 50, &past)
	fresh := newLot(t, db, svc, 100, 10, futureMillis(24*time.Hour))

	// 过期额度不参与分摊
	err := svc.Outlay(ctx, db, spendTrans(100, 20))
	require.True(t, errors.Is(err, walleterr.ErrInsufficientBalance))

	spend := spendTrans(100, 10)
	require.NoError(t, svc.Outlay(ctx, db, spend))
	require.Equal(t, int64(50), lotBalance(t, db, expired))
	require.Equal(t, int64(0), lotBalance(t, db, fresh))
}

func TestOutlayAcrossPages(t *testing.T) {
	db := newTestDB(t)
	svc := NewOutlayService(db)
	ctx := context.Background()

	// 额度条数超过单轮分页大小，走多轮分摊
	count := repository.AvailableLotsPageSize + 2
	for i := 0; i < count; i++ {
		newLot(t, db, svc, 100, 1, futureMillis(time.Duration(i+1)*time.Hour))
	}

	spend := spendTrans(100, int64(count))
	require.NoError(t, svc.Outlay(ctx, db, spend))

	rows, err := svc.LotsBySpend(ctx, spend.ID)
	require.NoError(t, err)
	require.Len(t, rows, count)
}

func TestConsumeExpired(t *testing.T) {
	db := newTestDB(t)
	svc := NewOutlayService(db)
	ctx := context.Background()

	older := time.Now().Add(-2 * time.Hour).UnixMilli()
	newer := time.Now().Add(-time.Hour).UnixMilli()
	first := newLot(t, db, svc, 100, 10, &older)
	second := newLot(t, db, svc, 100, 15, &newer)

	outlayRepo := repository.NewOutlayRepository(db)
	lots, err := outlayRepo.ExpiredLots(ctx, db, 100, "COIN", time.Now().UnixMilli(), 100)
	require.NoError(t, err)
	require.Len(t, lots, 2)

	spend := spendTrans(100, 25)
	total, err := svc.ConsumeExpired(ctx, db, spend, lots)
	require.NoError(t, err)
	require.Equal(t, int64(25), total)

	require.Equal(t, int64(0), lotBalance(t, db, first))
	require.Equal(t, int64(0), lotBalance(t, db, second))

	rows, err := svc.LotsBySpend(ctx, spend.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int64(25), rows[0].Amount)
	require.Equal(t, int64(15), rows[0].Margin)
	require.Equal(t, int64(0), rows[1].Margin)

	// 清理后无过期额度可查
	keys, err := outlayRepo.ExpiredWalletKeys(ctx, time.Now().UnixMilli(), 100)
	require.NoError(t, err)
	require.Empty(t, keys)
}
