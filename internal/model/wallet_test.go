package model

import (
	"errors"
	"testing"

	"walletservice/internal/config"
	"walletservice/pkg/walleterr"

	"github.com/stretchr/testify/require"
)

func TestToFixedPoint(t *testing.T) {
	// 浮点经过 decimal 转换不丢精度
	require.Equal(t, int64(1025000100), ToFixedPoint(10.250001, 8))
	// 超出精度的小数位向零截断
	require.Equal(t, int64(199), ToFixedPoint(1.999, 2))
	require.Equal(t, int64(5), ToFixedPoint(5.7, 0))
	require.Equal(t, int64(0), ToFixedPoint(0.009, 2))
}

func TestFromFixedPoint(t *testing.T) {
	require.Equal(t, 10.250001, FromFixedPoint(1025000100, 8))
	require.Equal(t, 1.99, FromFixedPoint(199, 2))
	require.Equal(t, 5.0, FromFixedPoint(5, 0))
}

func testWallet() *Wallet {
	return &Wallet{
		ID:       42,
		UID:      100,
		Currency: "CNY",
		Block:    GenesisBlock,
	}
}

func testDTO(amount float64) *TradeDTO {
	return &TradeDTO{
		UID:        100,
		Currency:   "CNY",
		Biz:        "mall",
		BizSubject: "recharge",
		BizID:      "order-1",
		Amount:     amount,
		IP:         "10.0.0.1",
	}
}

func TestNewTransactionFlagsFromSubject(t *testing.T) {
	wallet := testWallet()

	trans, err := wallet.NewTransaction(testDTO(10.5), &config.BizSubject{Outlay: true, NeedFrozen: true, WithdrawAble: false}, 2)
	require.NoError(t, err)
	require.Equal(t, int64(1050), trans.Amount)
	require.True(t, trans.Outlay)
	require.True(t, trans.NeedFrozen)
	require.False(t, trans.WithdrawAble)

	// 收入交易忽略 needFrozen
	trans, err = wallet.NewTransaction(testDTO(1), &config.BizSubject{Outlay: false, NeedFrozen: true, WithdrawAble: true}, 2)
	require.NoError(t, err)
	require.False(t, trans.Outlay)
	require.False(t, trans.NeedFrozen)
	require.True(t, trans.WithdrawAble)
}

func TestNewTransactionRejects(t *testing.T) {
	wallet := testWallet()

	dto := testDTO(10)
	dto.UID = 101
	_, err := wallet.NewTransaction(dto, &config.BizSubject{}, 2)
	require.True(t, errors.Is(err, walleterr.ErrTradeNotAllowed))

	// 精度截断后为 0 的金额不允许交易
	dto = testDTO(0.001)
	_, err = wallet.NewTransaction(dto, &config.BizSubject{}, 2)
	require.True(t, errors.Is(err, walleterr.ErrTradeNotAllowed))
}

func genesisLog(t *testing.T, wallet *Wallet) *ChangeLog {
	t.Helper()
	changeLog, err := InitChangeLog(wallet)
	require.NoError(t, err)
	changeLog.ID = 1
	wallet.Block = changeLog.Block
	return changeLog
}

func TestNewChangeLogIncome(t *testing.T) {
	wallet := testWallet()
	lastLog := genesisLog(t, wallet)

	trans := &WalletTransaction{ID: 7, UID: 100, Currency: "CNY", Amount: 500, WithdrawAble: true}
	changeLog, err := wallet.NewChangeLog(trans, lastLog)
	require.NoError(t, err)

	require.Equal(t, int64(0), changeLog.PreBalance)
	require.Equal(t, int64(500), changeLog.Balance)
	require.Equal(t, int64(0), changeLog.Frozen)
	require.Equal(t, lastLog.ID, changeLog.ParentID)
	require.Equal(t, GenBlock(changeLog, lastLog.Block), changeLog.Block)

	require.Equal(t, int64(500), wallet.Balance)
	require.Equal(t, int64(500), wallet.Withdrawal)
	require.Equal(t, wallet.Balance+wallet.Frozen, wallet.Amount)
	require.Equal(t, changeLog.Block, wallet.Block)
}

func TestNewChangeLogOutlay(t *testing.T) {
	wallet := testWallet()
	lastLog := genesisLog(t, wallet)
	lastLog.Balance = 500
	wallet.Balance = 500
	wallet.Amount = 500

	trans := &WalletTransaction{ID: 8, UID: 100, Currency: "CNY", Amount: 200, Outlay: true}
	changeLog, err := wallet.NewChangeLog(trans, lastLog)
	require.NoError(t, err)

	require.Equal(t, int64(500), changeLog.PreBalance)
	require.Equal(t, int64(300), changeLog.Balance)
	require.Equal(t, int64(0), changeLog.Frozen)
	require.Equal(t, int64(300), wallet.Balance)
	require.Equal(t, int64(200), wallet.Outlay)
	require.Equal(t, wallet.Balance+wallet.Frozen, wallet.Amount)
}

func TestNewChangeLogOutlayFrozen(t *testing.T) {
	wallet := testWallet()
	lastLog := genesisLog(t, wallet)
	lastLog.Balance = 500
	wallet.Balance = 500
	wallet.Amount = 500

	trans := &WalletTransaction{ID: 9, UID: 100, Currency: "CNY", Amount: 200, Outlay: true, NeedFrozen: true}
	changeLog, err := wallet.NewChangeLog(trans, lastLog)
	require.NoError(t, err)

	// 冻结：金额离开可用余额但还在钱包里
	require.Equal(t, int64(300), changeLog.Balance)
	require.Equal(t, int64(200), changeLog.Frozen)
	require.Equal(t, int64(300), wallet.Balance)
	require.Equal(t, int64(200), wallet.Frozen)
	require.Equal(t, int64(500), wallet.Amount)
}

func TestNewChangeLogInsufficientBalance(t *testing.T) {
	wallet := testWallet()
	lastLog := genesisLog(t, wallet)
	lastLog.Balance = 100
	wallet.Balance = 100

	trans := &WalletTransaction{ID: 10, UID: 100, Currency: "CNY", Amount: 200, Outlay: true}
	_, err := wallet.NewChangeLog(trans, lastLog)
	require.True(t, errors.Is(err, walleterr.ErrInsufficientBalance))
}

func TestNewChangeLogInsufficientWithdrawable(t *testing.T) {
	wallet := testWallet()
	lastLog := genesisLog(t, wallet)
	lastLog.Balance = 500
	wallet.Balance = 500
	wallet.Withdrawal = 100

	// 提现类支出要求可提现额度足额
	trans := &WalletTransaction{ID: 11, UID: 100, Currency: "CNY", Amount: 200, Outlay: true, WithdrawAble: true}
	_, err := wallet.NewChangeLog(trans, lastLog)
	require.True(t, errors.Is(err, walleterr.ErrInsufficientWithdrawable))
}

func TestNewChangeLogOutlayDrainsWithdrawal(t *testing.T) {
	wallet := testWallet()
	lastLog := genesisLog(t, wallet)
	lastLog.Balance = 500
	wallet.Balance = 500
	wallet.Withdrawal = 50

	// 普通支出也扣减可提现额度，扣到 0 为止
	trans := &WalletTransaction{ID: 12, UID: 100, Currency: "CNY", Amount: 200, Outlay: true}
	_, err := wallet.NewChangeLog(trans, lastLog)
	require.NoError(t, err)
	require.Equal(t, int64(0), wallet.Withdrawal)
}
