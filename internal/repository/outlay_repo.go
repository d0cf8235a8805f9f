package repository

import (
	"context"
	"time"

	"walletservice/internal/model"

	"gorm.io/gorm"
)

// AvailableLotsPageSize 一次分摊查询最多取的额度条数
const AvailableLotsPageSize = 10

// OutlayRepository 支出分摊仓储
type OutlayRepository struct {
	db *gorm.DB
}

func NewOutlayRepository(db *gorm.DB) *OutlayRepository {
	return &OutlayRepository{db: db}
}

func (r *OutlayRepository) Create(ctx context.Context, tx *gorm.DB, outlay *model.Outlay) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(outlay).Error
}

func (r *OutlayRepository) CreateBatch(ctx context.Context, tx *gorm.DB, outlays []*model.Outlay) error {
	if tx == nil {
		tx = r.db
	}
	if len(outlays) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(outlays).Error
}

// UpdateBalances 回写被消耗额度的剩余金额
func (r *OutlayRepository) UpdateBalances(ctx context.Context, tx *gorm.DB, lots []*model.Outlay) error {
	if tx == nil {
		tx = r.db
	}
	now := time.Now().UnixMilli()
	for _, lot := range lots {
		err := tx.WithContext(ctx).
			Model(&model.Outlay{}).
			Where("id = ?", lot.ID).
			Updates(map[string]interface{}{
				"balance":    lot.Balance,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// AvailableLots 查询钱包可用的收入额度
//
// 条件：还有剩余、未过期；按过期时间升序（先过期先消耗），
// 每次最多取 AvailableLotsPageSize 条，调用方按需循环。
func (r *OutlayRepository) AvailableLots(ctx context.Context, tx *gorm.DB, uid int64, currency string, now int64) ([]*model.Outlay, error) {
	if tx == nil {
		tx = r.db
	}
	var lots []*model.Outlay
	err := tx.WithContext(ctx).
		Where("uid = ? AND currency = ? AND balance > 0 AND expired_at >= ? AND deleted = ?", uid, currency, now, false).
		Order("expired_at ASC").
		Limit(AvailableLotsPageSize).
		Find(&lots).Error
	return lots, err
}

// ExpiredLots 查询钱包已过期但仍有剩余的额度（过期清理用）
func (r *OutlayRepository) ExpiredLots(ctx context.Context, tx *gorm.DB, uid int64, currency string, now int64, limit int) ([]*model.Outlay, error) {
	if tx == nil {
		tx = r.db
	}
	var lots []*model.Outlay
	err := tx.WithContext(ctx).
		Where("uid = ? AND currency = ? AND balance > 0 AND expired_at < ? AND deleted = ?", uid, currency, now, false).
		Order("expired_at ASC").
		Limit(limit).
		Find(&lots).Error
	return lots, err
}

// WalletKey 过期清理任务的扫描结果：存在过期额度的钱包
type WalletKey struct {
	UID      int64  `gorm:"column:uid"`
	Currency string `gorm:"column:currency"`
}

// ExpiredWalletKeys 扫描存在过期未清理额度的钱包
func (r *OutlayRepository) ExpiredWalletKeys(ctx context.Context, now int64, limit int) ([]WalletKey, error) {
	var keys []WalletKey
	err := r.db.WithContext(ctx).
		Model(&model.Outlay{}).
		Distinct("uid", "currency").
		Where("balance > 0 AND expired_at < ? AND deleted = ?", now, false).
		Limit(limit).
		Find(&keys).Error
	return keys, err
}

// ListByOutlayTransactionID 查询一笔支出占用了哪些收入额度，先过期的在前
func (r *OutlayRepository) ListByOutlayTransactionID(ctx context.Context, transactionID int64) ([]*model.Outlay, error) {
	var outlays []*model.Outlay
	err := r.db.WithContext(ctx).
		Where("outlay_transaction_id = ? AND deleted = ?", transactionID, false).
		Order("expired_at ASC").
		Find(&outlays).Error
	return outlays, err
}

// ListByTransactionID 查询一笔收入额度的完整消耗历史
func (r *OutlayRepository) ListByTransactionID(ctx context.Context, transactionID int64) ([]*model.Outlay, error) {
	var outlays []*model.Outlay
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND deleted = ?", transactionID, false).
		Find(&outlays).Error
	return outlays, err
}
