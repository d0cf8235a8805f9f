package model

import (
	"strconv"
	"time"

	"walletservice/internal/config"
	"walletservice/pkg/walleterr"

	"github.com/shopspring/decimal"
)

// Wallet 钱包表
// 每个 (uid, currency) 唯一一条，是余额的当前快照。
// 快照必须与最新一条 wallet_change_log 完全一致（完整性校验）。
type Wallet struct {
	ID         int64  `gorm:"primaryKey" json:"id"` // 雪花ID，创建时分配
	CreatedAt  int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	CreatedBy  string `gorm:"type:varchar(64)" json:"created_by"`
	UpdatedAt  int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
	UpdatedBy  string `gorm:"type:varchar(64)" json:"updated_by"`
	UID        int64  `gorm:"column:uid;uniqueIndex:uk_wallet_uid_currency;not null" json:"uid"`
	Currency   string `gorm:"type:varchar(32);uniqueIndex:uk_wallet_uid_currency;not null" json:"currency"`
	Amount     int64  `gorm:"not null;default:0" json:"amount"`     // 总额 = balance + frozen（缓存值）
	Balance    int64  `gorm:"not null;default:0" json:"balance"`    // 可用余额
	Withdrawal int64  `gorm:"not null;default:0" json:"withdrawal"` // 累计可提现额度
	Frozen     int64  `gorm:"not null;default:0" json:"frozen"`     // 当前冻结金额
	Outlay     int64  `gorm:"not null;default:0" json:"outlay"`     // 累计支出
	Locked     bool   `gorm:"not null;default:false" json:"locked"` // 锁定后禁止一切交易
	Block      string `gorm:"type:varchar(32);not null" json:"block"` // 最新一条变更日志的区块哈希
}

func (Wallet) TableName() string {
	return "wallet"
}

// TradeDTO 交易请求（仅校验后的参数，方向等标志由业务配置决定）
type TradeDTO struct {
	UID        int64
	Currency   string
	Biz        string
	BizSubject string
	BizID      string
	Amount     float64 // 十进制金额，落库前转为定点整数
	ExpiredAt  *int64  // 毫秒时间戳，仅启用过期机制的币种有效
	Remark     string
	IP         string
}

// NewTransaction 根据交易请求构造交易记录
//
// outlay / needFrozen / withdrawAble 只从业务活动配置取值，
// 调用方无法指定一笔交易是收入还是支出。
func (w *Wallet) NewTransaction(dto *TradeDTO, subject *config.BizSubject, precision int32) (*WalletTransaction, error) {
	if w.UID != dto.UID || w.Currency != dto.Currency {
		return nil, walleterr.New(walleterr.ErrTradeNotAllowed, dto.UID, dto.Currency)
	}

	amount := ToFixedPoint(dto.Amount, precision)
	if amount <= 0 {
		return nil, walleterr.New(walleterr.ErrTradeNotAllowed, dto.UID, dto.Currency)
	}

	now := time.Now().UnixMilli()
	trans := &WalletTransaction{
		CreatedAt:  now,
		CreatedBy:  strconv.FormatInt(w.UID, 10),
		UpdatedAt:  now,
		UpdatedBy:  strconv.FormatInt(w.UID, 10),
		UID:        w.UID,
		Currency:   w.Currency,
		Biz:        dto.Biz,
		BizSubject: dto.BizSubject,
		BizID:      dto.BizID,
		Amount:     amount,
		Outlay:     subject.Outlay,
		IP:         dto.IP,
		Remark:     dto.Remark,
	}

	// 仅支出交易才有冻结语义
	if subject.Outlay {
		trans.NeedFrozen = subject.NeedFrozen
	}
	// 注意：提现类支出的 withdrawAble 也为 true
	trans.WithdrawAble = subject.WithdrawAble

	if dto.ExpiredAt != nil {
		expiredAt := *dto.ExpiredAt
		trans.ExpiredAt = &expiredAt
	}
	return trans, nil
}

// NewChangeLog 应用一笔交易：计算下一条变更日志并同步更新钱包快照
//
// 纯余额运算，不访问存储。调用方负责先做完整性校验。
func (w *Wallet) NewChangeLog(trans *WalletTransaction, lastLog *ChangeLog) (*ChangeLog, error) {
	amount := trans.Amount
	now := time.Now().UnixMilli()

	changeLog := &ChangeLog{
		CreatedAt:     now,
		CreatedBy:     trans.CreatedBy,
		UpdatedAt:     now,
		UpdatedBy:     trans.UpdatedBy,
		TransactionID: trans.ID,
		UID:           trans.UID,
		Currency:      trans.Currency,
		Biz:           trans.Biz,
		BizSubject:    trans.BizSubject,
		BizID:         trans.BizID,
		Amount:        amount,         // 交易金额
		PreBalance:    lastLog.Balance, // 交易前余额
		PreFrozen:     lastLog.Frozen,  // 交易前冻结金额
		Outlay:        trans.Outlay,
		NeedFrozen:    trans.NeedFrozen,
		WithdrawAble:  trans.WithdrawAble,
		ExpiredAt:     trans.ExpiredAt,
		ParentID:      lastLog.ID,
		IP:            trans.IP,
		Remark:        trans.Remark,
	}

	if trans.Outlay {
		// 支出
		changeLog.Balance = lastLog.Balance - amount
		if changeLog.Balance < 0 {
			return nil, walleterr.New(walleterr.ErrInsufficientBalance, w.UID, w.Currency)
		}

		if trans.WithdrawAble && w.Withdrawal-amount < 0 {
			return nil, walleterr.New(walleterr.ErrInsufficientWithdrawable, w.UID, w.Currency)
		}
		w.Withdrawal = max64(0, w.Withdrawal-amount)

		if trans.NeedFrozen {
			// 冻结：金额从可用余额转入冻结额
			changeLog.Frozen = lastLog.Frozen + amount
		} else {
			changeLog.Frozen = lastLog.Frozen
		}

		w.Outlay = w.Outlay + amount
	} else {
		// 收入
		changeLog.Balance = lastLog.Balance + amount
		if trans.WithdrawAble { // 可提现
			w.Withdrawal = w.Withdrawal + amount
		}
		changeLog.Frozen = lastLog.Frozen
	}

	changeLog.GenBlock(lastLog.Block)
	w.Balance = changeLog.Balance
	w.Frozen = changeLog.Frozen
	w.Amount = w.Balance + w.Frozen
	w.Block = changeLog.Block
	return changeLog, nil
}

// ToFixedPoint 十进制金额 × 10^precision，向零截断
func ToFixedPoint(amount float64, precision int32) int64 {
	return decimal.NewFromFloat(amount).Shift(precision).Truncate(0).IntPart()
}

// FromFixedPoint 定点整数还原为十进制金额
func FromFixedPoint(amount int64, precision int32) float64 {
	v, _ := decimal.New(amount, -precision).Float64()
	return v
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
