package repository

import (
	"context"
	"errors"

	"walletservice/internal/model"

	"gorm.io/gorm"
)

// ChangeLogRepository 变更日志仓储
//
// 账本只追加：接口上只有插入和查询，没有更新和删除。
type ChangeLogRepository struct {
	db *gorm.DB
}

func NewChangeLogRepository(db *gorm.DB) *ChangeLogRepository {
	return &ChangeLogRepository{db: db}
}

func (r *ChangeLogRepository) Create(ctx context.Context, tx *gorm.DB, changeLog *model.ChangeLog) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(changeLog).Error
}

// GetLastLog 查询钱包最新一条变更日志，链上无记录时返回 (nil, nil)
func (r *ChangeLogRepository) GetLastLog(ctx context.Context, tx *gorm.DB, uid int64, currency string) (*model.ChangeLog, error) {
	if tx == nil {
		tx = r.db
	}
	var changeLog model.ChangeLog
	err := tx.WithContext(ctx).
		Where("uid = ? AND currency = ?", uid, currency).
		Order("id DESC").
		First(&changeLog).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &changeLog, nil
}

// ListByWallet 按钱包分页查询变更日志，新日志在前
func (r *ChangeLogRepository) ListByWallet(ctx context.Context, uid int64, currency string, page, pageSize int) ([]*model.ChangeLog, int64, error) {
	var logs []*model.ChangeLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.ChangeLog{}).Where("uid = ? AND currency = ?", uid, currency)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error

	return logs, total, err
}

// CountByWallet 钱包的日志条数（创世日志计入）
func (r *ChangeLogRepository) CountByWallet(ctx context.Context, uid int64, currency string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.ChangeLog{}).
		Where("uid = ? AND currency = ?", uid, currency).
		Count(&total).Error
	return total, err
}
