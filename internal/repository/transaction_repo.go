package repository

import (
	"context"
	"errors"
	"time"

	"walletservice/internal/model"

	"gorm.io/gorm"
)

// TransactionRepository 交易记录仓储
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.WalletTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

// GetByID 按主键查询交易，不存在或已软删除时返回 (nil, nil)
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.WalletTransaction, error) {
	var trans model.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

// SoftDelete 软删除交易记录，不影响账本
func (r *TransactionRepository) SoftDelete(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.WalletTransaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted":    true,
			"updated_at": time.Now().UnixMilli(),
		}).Error
}

// ListByWallet 按钱包分页查询交易记录，新交易在前
func (r *TransactionRepository) ListByWallet(ctx context.Context, uid int64, currency string, page, pageSize int) ([]*model.WalletTransaction, int64, error) {
	var transactions []*model.WalletTransaction
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.WalletTransaction{}).
		Where("uid = ? AND currency = ? AND deleted = ?", uid, currency, false)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}
