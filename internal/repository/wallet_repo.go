package repository

import (
	"context"
	"errors"
	"time"

	"walletservice/internal/model"
	"walletservice/pkg/walleterr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletRepository 钱包快照仓储
//
// 只暴露领域用到的操作：查询、带唯一约束的创建、CAS 快照更新、锁定。
// 不提供删除入口。
type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Get 按 (uid, currency) 查询钱包，不存在时返回 (nil, nil)
func (r *WalletRepository) Get(ctx context.Context, tx *gorm.DB, uid int64, currency string) (*model.Wallet, error) {
	if tx == nil {
		tx = r.db
	}
	var wallet model.Wallet
	err := tx.WithContext(ctx).Where("uid = ? AND currency = ?", uid, currency).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// Create 在 (uid, currency) 唯一约束下插入钱包
//
// 并发创建同一个钱包时只有一个调用方会成功，
// 其余调用方得到 created=false，应重读胜出的记录。
func (r *WalletRepository) Create(ctx context.Context, tx *gorm.DB, wallet *model.Wallet) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}, {Name: "currency"}},
			DoNothing: true,
		}).
		Create(wallet)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateSnapshot 以上一个区块哈希为条件更新钱包快照
//
// WHERE block = prevBlock 相当于以哈希链为版本号的乐观锁：
// 任何未串行化的并发写都会在这里丢失更新并报错。
func (r *WalletRepository) UpdateSnapshot(ctx context.Context, tx *gorm.DB, wallet *model.Wallet, prevBlock string) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ? AND block = ?", wallet.ID, prevBlock).
		Updates(map[string]interface{}{
			"amount":     wallet.Amount,
			"balance":    wallet.Balance,
			"withdrawal": wallet.Withdrawal,
			"frozen":     wallet.Frozen,
			"outlay":     wallet.Outlay,
			"block":      wallet.Block,
			"updated_at": time.Now().UnixMilli(),
			"updated_by": wallet.UpdatedBy,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return walleterr.New(walleterr.ErrWalletCannotUpdate, wallet.UID, wallet.Currency)
	}
	return nil
}

// SetLocked 管理操作：锁定/解锁钱包
func (r *WalletRepository) SetLocked(ctx context.Context, uid int64, currency string, locked bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("uid = ? AND currency = ?", uid, currency).
		Updates(map[string]interface{}{
			"locked":     locked,
			"updated_at": time.Now().UnixMilli(),
			"updated_by": "admin",
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return walleterr.New(walleterr.ErrWalletNotFound, uid, currency)
	}
	return nil
}
