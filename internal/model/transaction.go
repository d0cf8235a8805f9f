package model

// WalletTransaction 钱包交易表
// 每次 trade 调用产生一条，入库后逻辑上不可变；
// 只允许软删除（deleted 置位），不影响账本。
type WalletTransaction struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	CreatedBy string `gorm:"type:varchar(64)" json:"created_by"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
	UpdatedBy string `gorm:"type:varchar(64)" json:"updated_by"`
	Deleted   bool   `gorm:"not null;default:false" json:"-"`
	UID       int64  `gorm:"column:uid;index:idx_transaction_wallet;not null" json:"uid"`
	// 币种
	Currency string `gorm:"type:varchar(32);index:idx_transaction_wallet;not null" json:"currency"`
	// 业务线
	Biz string `gorm:"type:varchar(32);not null" json:"biz"`
	// 业务活动
	BizSubject string `gorm:"type:varchar(32);not null" json:"biz_subject"`
	// 业务订单ID
	BizID string `gorm:"type:varchar(64);not null" json:"biz_id"`
	// 交易额（定点整数，恒为正）
	Amount int64 `gorm:"not null" json:"amount"`
	// 是否是支出交易
	Outlay bool `gorm:"not null;default:false" json:"outlay"`
	// 是否冻结金额，仅当 outlay=true 时有效
	NeedFrozen bool `gorm:"not null;default:false" json:"need_frozen"`
	// 是否计入可提现额度
	WithdrawAble bool `gorm:"not null;default:false" json:"withdraw_able"`
	// 交易额过期时间（针对有时效性的收入交易），毫秒时间戳
	ExpiredAt *int64 `json:"expired_at"`
	// 交易发生时的IP
	IP string `gorm:"column:ip;type:varchar(64);not null" json:"ip"`
	// 备注
	Remark string `gorm:"type:varchar(256)" json:"remark"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transaction"
}
