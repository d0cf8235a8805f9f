package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// GenesisBlock 创世父区块哨兵值（32 个 0）
const GenesisBlock = "00000000000000000000000000000000"

// ============================================================================
// 变更日志（账本）实体
// ============================================================================
//
// 【重要】账本表设计原则：
// 1. 只追加，不修改，不删除 —— 仓储层不暴露任何删除/更新入口
// 2. 每条日志通过 parentId 指向上一条，形成单链
// 3. block = 哈希(父区块 + 本条全部语义字段)，任一历史记录被篡改
//    或快照与链脱节都会导致校验失败
//
// 哈希串字段顺序是跨实现对账格式的一部分，不可调整。
// ============================================================================

// ChangeLog 钱包变更日志表，哈希链的基本单元
type ChangeLog struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt     int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	CreatedBy     string `gorm:"type:varchar(64)" json:"created_by"`
	UpdatedAt     int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
	UpdatedBy     string `gorm:"type:varchar(64)" json:"updated_by"`
	TransactionID int64  `gorm:"index;not null" json:"transaction_id"`
	UID           int64  `gorm:"column:uid;index:idx_change_log_wallet;not null" json:"uid"`
	Currency      string `gorm:"type:varchar(32);index:idx_change_log_wallet;not null" json:"currency"`
	Biz           string `gorm:"type:varchar(32);not null" json:"biz"`
	BizSubject    string `gorm:"type:varchar(32);not null" json:"biz_subject"`
	BizID         string `gorm:"type:varchar(64);not null" json:"biz_id"`
	Amount        int64  `gorm:"not null" json:"amount"`
	PreBalance    int64  `gorm:"not null" json:"pre_balance"`
	Balance       int64  `gorm:"not null" json:"balance"`
	PreFrozen     int64  `gorm:"not null" json:"pre_frozen"`
	Frozen        int64  `gorm:"not null" json:"frozen"`
	Outlay        bool   `gorm:"not null;default:false" json:"outlay"`
	NeedFrozen    bool   `gorm:"not null;default:false" json:"need_frozen"`
	WithdrawAble  bool   `gorm:"not null;default:false" json:"withdraw_able"`
	ExpiredAt     *int64 `json:"expired_at"`
	ParentID      int64  `gorm:"not null;default:0" json:"parent_id"`
	IP            string `gorm:"column:ip;type:varchar(64);not null" json:"ip"`
	Block         string `gorm:"type:varchar(32);not null" json:"block"`
	Remark        string `gorm:"type:varchar(256)" json:"remark"`
}

func (ChangeLog) TableName() string {
	return "wallet_change_log"
}

// GenBlock 计算并填充本条日志的区块哈希
func (c *ChangeLog) GenBlock(preBlock string) {
	c.Block = GenBlock(c, preBlock)
}

// GenBlock 对账用的确定性哈希
//
// 逗号连接固定顺序的字段后取 MD5 小写十六进制。
// 布尔渲染为 true/false，空的过期时间渲染为 null，
// 与存量对账方的实现保持逐字节一致。
func GenBlock(c *ChangeLog, preBlock string) string {
	expiredAt := "null"
	if c.ExpiredAt != nil {
		expiredAt = strconv.FormatInt(*c.ExpiredAt, 10)
	}

	blockStr := strings.Join([]string{
		preBlock,
		strconv.FormatInt(c.CreatedAt, 10),
		c.CreatedBy,
		strconv.FormatInt(c.UpdatedAt, 10),
		c.UpdatedBy,
		strconv.FormatInt(c.UID, 10),
		c.Currency,
		strconv.FormatInt(c.TransactionID, 10),
		strconv.FormatBool(c.Outlay),
		strconv.FormatBool(c.NeedFrozen),
		strconv.FormatBool(c.WithdrawAble),
		c.Biz,
		c.BizSubject,
		c.BizID,
		strconv.FormatInt(c.Amount, 10),
		strconv.FormatInt(c.PreBalance, 10),
		strconv.FormatInt(c.Balance, 10),
		strconv.FormatInt(c.PreFrozen, 10),
		strconv.FormatInt(c.Frozen, 10),
		expiredAt,
		strconv.FormatInt(c.ParentID, 10),
		c.IP,
	}, ",")

	sum := md5.Sum([]byte(blockStr))
	return hex.EncodeToString(sum[:])
}

// InitChangeLog 构造钱包的创世日志
//
// 只能在钱包区块还是创世哨兵值时调用一次；
// 创世日志的金额字段全部为 0，父区块为哨兵值。
func InitChangeLog(wallet *Wallet) (*ChangeLog, error) {
	if wallet.Block != GenesisBlock {
		return nil, fmt.Errorf("钱包(uid: %d, currency: %s)已初始化，不能重复初始化", wallet.UID, wallet.Currency)
	}

	changeLog := &ChangeLog{
		CreatedAt:     wallet.CreatedAt,
		CreatedBy:     wallet.CreatedBy,
		UpdatedAt:     wallet.CreatedAt,
		UpdatedBy:     wallet.CreatedBy,
		TransactionID: 0,
		UID:           wallet.UID,
		Currency:      wallet.Currency,
		Biz:           "init",
		BizSubject:    "init",
		BizID:         strconv.FormatInt(wallet.ID, 10),
		Amount:        0,
		PreBalance:    0,
		Balance:       0,
		PreFrozen:     0,
		Frozen:        0,
		Outlay:        false,
		NeedFrozen:    false,
		ParentID:      0,
		IP:            "127.0.0.1",
		Remark:        "Initialize",
	}
	changeLog.GenBlock(wallet.Block)
	return changeLog, nil
}
