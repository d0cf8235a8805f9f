package model

// Outlay 支出分摊表
// 仅启用过期机制的币种使用：记录每笔收入额度（lot）被哪些支出
// 按先过期先消耗的顺序占用。
//
// 两类行：
//   - 收入行：outlayTransactionId=0，income=balance=收入金额，balance 随消耗递减
//   - 消耗行：outlayTransactionId=支出交易ID，useAmount=本行占用额，
//     margin=本行之后仍未满足的差额（0 表示已凑齐）
type Outlay struct {
	ID        int64  `gorm:"primaryKey" json:"id"` // 雪花ID，创建时分配
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	CreatedBy string `gorm:"type:varchar(64)" json:"created_by"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
	UpdatedBy string `gorm:"type:varchar(64)" json:"updated_by"`
	Deleted   bool   `gorm:"not null;default:false" json:"-"`
	UID       int64  `gorm:"column:uid;index:idx_outlay_wallet;not null" json:"uid"`
	Currency  string `gorm:"type:varchar(32);index:idx_outlay_wallet;not null" json:"currency"`
	// 支出交易ID，收入行为 0
	OutlayTransactionID int64 `gorm:"index;not null;default:0" json:"outlay_transaction_id"`
	// 被消耗的收入交易ID
	TransactionID int64 `gorm:"index;not null" json:"transaction_id"`
	// 支出交易总额（同一笔支出的每条消耗行重复记录）
	Amount int64 `gorm:"not null;default:0" json:"amount"`
	// 本行占用的额度
	UseAmount int64 `gorm:"not null;default:0" json:"use_amount"`
	// 收入金额，消耗行为 0
	Income int64 `gorm:"not null;default:0" json:"income"`
	// 收入额度的剩余未消耗金额，消耗行为 0
	Balance int64 `gorm:"not null;default:0" json:"balance"`
	// 本行之后仍未满足的差额
	Margin int64 `gorm:"not null;default:0" json:"margin"`
	// 额度过期时间，毫秒时间戳
	ExpiredAt *int64 `json:"expired_at"`
}

func (Outlay) TableName() string {
	return "wallet_outlay_log"
}
