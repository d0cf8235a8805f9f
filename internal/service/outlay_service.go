package service

import (
	"context"
	"log"
	"time"

	"walletservice/internal/model"
	"walletservice/internal/repository"
	"walletservice/pkg/idgen"
	"walletservice/pkg/walleterr"

	"gorm.io/gorm"
)

// OutlayService 支出分摊（FIFO）
//
// 仅启用过期机制的币种使用：收入登记为一条额度（lot），
// 支出按过期时间从早到晚依次占用额度，让余额"先到期先消耗"。
// 所有方法都要求在外层交易的数据库事务内调用。
type OutlayService struct {
	outlayRepo *repository.OutlayRepository
}

func NewOutlayService(db *gorm.DB) *OutlayService {
	return &OutlayService{
		outlayRepo: repository.NewOutlayRepository(db),
	}
}

// NewIncome 登记一笔收入额度
func (s *OutlayService) NewIncome(ctx context.Context, tx *gorm.DB, trans *model.WalletTransaction) error {
	outlay := &model.Outlay{
		ID:                  idgen.NextID(),
		CreatedAt:           trans.CreatedAt,
		CreatedBy:           trans.CreatedBy,
		UpdatedAt:           trans.CreatedAt,
		UpdatedBy:           trans.CreatedBy,
		UID:                 trans.UID,
		Currency:            trans.Currency,
		OutlayTransactionID: 0,
		TransactionID:       trans.ID,
		Amount:              0,
		UseAmount:           0,
		Income:              trans.Amount,
		Balance:             trans.Amount,
		Margin:              0,
		ExpiredAt:           trans.ExpiredAt,
	}

	if err := s.outlayRepo.Create(ctx, tx, outlay); err != nil {
		return walleterr.New(walleterr.ErrOutlayCannotSave, trans.UID, trans.Currency)
	}
	return nil
}

// Outlay 为一笔支出分摊收入额度
//
// 每轮取最多 10 条未过期且有剩余的额度（过期时间升序），
// 逐条占用并滚动记录差额（margin）；一轮取不满 10 条仍有差额时，
// 说明确实没有额度可用，判定余额不足。
func (s *OutlayService) Outlay(ctx context.Context, tx *gorm.DB, trans *model.WalletTransaction) error {
	amount := trans.Amount
	uid := trans.UID
	currency := trans.Currency
	now := time.Now().UnixMilli()
	newOutlays := make([]*model.Outlay, 0, repository.AvailableLotsPageSize)

	for amount > 0 {
		lots, err := s.outlayRepo.AvailableLots(ctx, tx, uid, currency, now)
		if err != nil {
			return err
		}

		if len(lots) == 0 {
			log.Printf("[OutlayService] 支出: %d, 余额不足, 差额: %d", trans.ID, amount)
			return walleterr.New(walleterr.ErrInsufficientBalance, uid, currency)
		}

		consumed := make([]*model.Outlay, 0, len(lots))
		for _, lot := range lots {
			balance := lot.Balance

			out := &model.Outlay{
				ID:                  idgen.NextID(),
				CreatedAt:           trans.CreatedAt,
				CreatedBy:           trans.CreatedBy,
				UpdatedAt:           trans.CreatedAt,
				UpdatedBy:           trans.CreatedBy,
				UID:                 uid,
				Currency:            currency,
				TransactionID:       lot.TransactionID,
				OutlayTransactionID: trans.ID,
				Income:              0,
				Balance:             0,
				Amount:              trans.Amount,
				ExpiredAt:           lot.ExpiredAt,
			}

			consumed = append(consumed, lot)
			newOutlays = append(newOutlays, out)

			if balance >= amount {
				lot.Balance = lot.Balance - amount
				out.UseAmount = amount
				out.Margin = 0
				amount = 0
				break
			}
			// 额度不够：整条耗尽，差额带到下一条
			out.UseAmount = lot.Balance
			amount = amount - lot.Balance
			out.Margin = amount
			lot.Balance = 0
		}

		if amount > 0 && len(lots) < repository.AvailableLotsPageSize {
			log.Printf("[OutlayService] 支出: %d, 余额不足, 差额: %d", trans.ID, amount)
			return walleterr.New(walleterr.ErrInsufficientBalance, uid, currency)
		}

		if err := s.outlayRepo.UpdateBalances(ctx, tx, consumed); err != nil {
			return walleterr.New(walleterr.ErrLogCannotSave, uid, currency)
		}
	}

	log.Printf("[OutlayService] 支出: %d, 一共使用 %d 条收入", trans.ID, len(newOutlays))

	if err := s.outlayRepo.CreateBatch(ctx, tx, newOutlays); err != nil {
		return walleterr.New(walleterr.ErrLogCannotSave, uid, currency)
	}
	return nil
}

// ConsumeExpired 过期清理专用：把给定的过期额度全部耗尽
//
// 正常分摊只看未过期额度，过期额度由 system/expire 支出交易经这里回收。
// 返回消耗的总额。
func (s *OutlayService) ConsumeExpired(ctx context.Context, tx *gorm.DB, trans *model.WalletTransaction, lots []*model.Outlay) (int64, error) {
	var total int64
	for _, lot := range lots {
		total += lot.Balance
	}

	remaining := total
	newOutlays := make([]*model.Outlay, 0, len(lots))
	for _, lot := range lots {
		remaining -= lot.Balance
		out := &model.Outlay{
			ID:                  idgen.NextID(),
			CreatedAt:           trans.CreatedAt,
			CreatedBy:           trans.CreatedBy,
			UpdatedAt:           trans.CreatedAt,
			UpdatedBy:           trans.CreatedBy,
			UID:                 trans.UID,
			Currency:            trans.Currency,
			TransactionID:       lot.TransactionID,
			OutlayTransactionID: trans.ID,
			Income:              0,
			Balance:             0,
			Amount:              total,
			UseAmount:           lot.Balance,
			Margin:              remaining,
			ExpiredAt:           lot.ExpiredAt,
		}
		newOutlays = append(newOutlays, out)
		lot.Balance = 0
	}

	if err := s.outlayRepo.UpdateBalances(ctx, tx, lots); err != nil {
		return 0, walleterr.New(walleterr.ErrLogCannotSave, trans.UID, trans.Currency)
	}
	if err := s.outlayRepo.CreateBatch(ctx, tx, newOutlays); err != nil {
		return 0, walleterr.New(walleterr.ErrLogCannotSave, trans.UID, trans.Currency)
	}

	log.Printf("[OutlayService] 过期清理: 钱包(uid: %d, currency: %s) 回收 %d 条额度, 共 %d",
		trans.UID, trans.Currency, len(lots), total)
	return total, nil
}

// LotsBySpend 查询一笔支出占用的额度明细
func (s *OutlayService) LotsBySpend(ctx context.Context, outlayTransactionID int64) ([]*model.Outlay, error) {
	return s.outlayRepo.ListByOutlayTransactionID(ctx, outlayTransactionID)
}

// LotHistory 查询一条收入额度的消耗历史
func (s *OutlayService) LotHistory(ctx context.Context, transactionID int64) ([]*model.Outlay, error) {
	return s.outlayRepo.ListByTransactionID(ctx, transactionID)
}
