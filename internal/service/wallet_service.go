package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"walletservice/internal/config"
	"walletservice/internal/infrastructure/lock"
	"walletservice/internal/infrastructure/mq"
	"walletservice/internal/model"
	"walletservice/internal/repository"
	"walletservice/pkg/idgen"
	"walletservice/pkg/walleterr"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// WalletService 钱包编排服务
//
// 对外暴露开钱包、交易、确认冻结、解冻、过期清理等操作。
// 每个操作是一个数据库事务：交易记录、变更日志、分摊记录、
// 钱包快照要么全部落库，要么全部回滚。
//
// 同一个钱包的账变通过 Redis 锁串行（见 infrastructure/lock）；
// 钱包创建是唯一允许并发竞争的操作，靠唯一约束+重读解决。
type WalletService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	provider        config.CurrencyProvider
	walletRepo      *repository.WalletRepository
	transactionRepo *repository.TransactionRepository
	changeLogRepo   *repository.ChangeLogRepository
	outlayRepo      *repository.OutlayRepository
	outboxRepo      *repository.OutboxRepository
	outlayService   *OutlayService
}

func NewWalletService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *WalletService {
	return &WalletService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		provider:        &cfg.Wallet,
		walletRepo:      repository.NewWalletRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		changeLogRepo:   repository.NewChangeLogRepository(db),
		outlayRepo:      repository.NewOutlayRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		outlayService:   NewOutlayService(db),
	}
}

// OpenWallet 幂等地打开（或创建）钱包
func (s *WalletService) OpenWallet(ctx context.Context, uid int64, currency string) (*model.Wallet, error) {
	var wallet *model.Wallet
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		wallet, err = s.openWallet(ctx, tx, uid, currency)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// openWallet 事务内打开钱包，不存在时创建钱包和创世日志
//
// 并发创建同一个钱包时，落败方的插入不生效（唯一约束 + DO NOTHING），
// 重读胜出方的记录继续；这是唯一自动恢复的竞争条件。
func (s *WalletService) openWallet(ctx context.Context, tx *gorm.DB, uid int64, currency string) (*model.Wallet, error) {
	if _, err := s.provider.CurrencyConfig(currency); err != nil {
		return nil, err
	}

	wallet, err := s.walletRepo.Get(ctx, tx, uid, currency)
	if err != nil {
		return nil, fmt.Errorf("查询钱包失败: %w", err)
	}

	if wallet == nil {
		now := time.Now().UnixMilli()
		creator := strconv.FormatInt(uid, 10)
		wallet = &model.Wallet{
			ID:        idgen.NextID(),
			CreatedAt: now,
			CreatedBy: creator,
			UpdatedAt: now,
			UpdatedBy: creator,
			UID:       uid,
			Currency:  currency,
			Block:     model.GenesisBlock,
		}

		created, err := s.walletRepo.Create(ctx, tx, wallet)
		if err != nil {
			return nil, fmt.Errorf("创建钱包失败: %w", err)
		}

		if created {
			// 创世日志编码钱包自身的标识，必须在钱包行存在后生成
			changeLog, err := model.InitChangeLog(wallet)
			if err != nil {
				return nil, err
			}
			wallet.Block = changeLog.Block
			if err := s.walletRepo.UpdateSnapshot(ctx, tx, wallet, model.GenesisBlock); err != nil {
				return nil, err
			}
			if err := s.changeLogRepo.Create(ctx, tx, changeLog); err != nil {
				return nil, fmt.Errorf("保存创世日志失败: %w", err)
			}
			log.Printf("[WalletService] 钱包已创建: uid=%d, currency=%s, block=%s", uid, currency, wallet.Block)
		} else {
			// 并发开钱包被抢先，重读胜出的记录
			log.Printf("[WalletService] 并发开钱包: uid=%d, currency=%s, 重读已有记录", uid, currency)
			wallet, err = s.walletRepo.Get(ctx, tx, uid, currency)
			if err != nil {
				return nil, fmt.Errorf("查询钱包失败: %w", err)
			}
			if wallet == nil {
				return nil, walleterr.New(walleterr.ErrWalletNotFound, uid, currency)
			}
		}
	}

	if wallet.Locked {
		log.Printf("[WalletService] 钱包已被锁定: uid=%d, currency=%s", uid, currency)
		return nil, walleterr.New(walleterr.ErrWalletLocked, uid, currency)
	}
	return wallet, nil
}

// Trade 执行一笔交易
//
// 流程：开钱包 -> 构造交易 -> 完整性校验 -> 过期时间校验 ->
// 保存交易 -> （启用过期机制时）分摊额度 -> 追加变更日志 -> 更新快照。
func (s *WalletService) Trade(ctx context.Context, dto *model.TradeDTO) (*model.WalletTransaction, error) {
	walletLock, err := s.lockWallet(ctx, dto.UID, dto.Currency)
	if err != nil {
		return nil, err
	}
	defer s.unlockWallet(ctx, walletLock, dto.UID, dto.Currency)

	var trans *model.WalletTransaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		wallet, err := s.openWallet(ctx, tx, dto.UID, dto.Currency)
		if err != nil {
			return err
		}

		currencyCfg, err := s.provider.CurrencyConfig(wallet.Currency)
		if err != nil {
			return err
		}
		subject, err := s.provider.BizSubject(wallet.Currency, dto.Biz, dto.BizSubject)
		if err != nil {
			return err
		}

		trans, err = wallet.NewTransaction(dto, subject, currencyCfg.Precision)
		if err != nil {
			return err
		}

		lastLog, err := s.changeLogRepo.GetLastLog(ctx, tx, wallet.UID, wallet.Currency)
		if err != nil {
			return fmt.Errorf("查询最新日志失败: %w", err)
		}
		if err := checkIntegrity(lastLog, wallet); err != nil {
			return err
		}

		// 未启用过期机制的币种清空过期时间；
		// 启用时过期时间必填且必须在未来（支出交易也一样，
		// 过期时间会进入哈希串，是对账格式的一部分）
		if !currencyCfg.EnabledExpire {
			trans.ExpiredAt = nil
		} else if trans.ExpiredAt == nil || *trans.ExpiredAt <= time.Now().UnixMilli() {
			return walleterr.New(walleterr.ErrExpiredTimeInvalid, wallet.UID, wallet.Currency)
		}

		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("保存交易记录失败: %w", err)
		}

		if currencyCfg.EnabledExpire {
			if trans.Outlay {
				err = s.outlayService.Outlay(ctx, tx, trans)
			} else {
				err = s.outlayService.NewIncome(ctx, tx, trans)
			}
			if err != nil {
				return err
			}
		}

		prevBlock := wallet.Block
		changeLog, err := wallet.NewChangeLog(trans, lastLog)
		if err != nil {
			return err
		}
		if err := s.changeLogRepo.Create(ctx, tx, changeLog); err != nil {
			return fmt.Errorf("保存交易日志失败: %w", err)
		}
		if err := s.walletRepo.UpdateSnapshot(ctx, tx, wallet, prevBlock); err != nil {
			return err
		}

		return s.enqueueTradeEvent(ctx, tx, "trade", trans, changeLog)
	})

	if err != nil {
		s.alertIntegrity(err, dto.UID, dto.Currency)
		return nil, err
	}

	log.Printf("[WalletService] 交易成功: transactionID=%d, uid=%d, currency=%s, amount=%d, outlay=%v",
		trans.ID, trans.UID, trans.Currency, trans.Amount, trans.Outlay)
	return trans, nil
}

// Confirm 确认冻结金额
//
// 金额在交易时已从可用余额扣除并转入冻结额，确认即最终支出：
// 只扣减冻结额，可用余额不变。交易不是需冻结的支出时返回 false（非错误）。
func (s *WalletService) Confirm(ctx context.Context, transactionID int64, ip string) (bool, error) {
	trans, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return false, fmt.Errorf("查询交易记录失败: %w", err)
	}
	if trans == nil || !trans.Outlay || !trans.NeedFrozen {
		return false, nil
	}

	walletLock, err := s.lockWallet(ctx, trans.UID, trans.Currency)
	if err != nil {
		return false, err
	}
	defer s.unlockWallet(ctx, walletLock, trans.UID, trans.Currency)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		wallet, err := s.openWallet(ctx, tx, trans.UID, trans.Currency)
		if err != nil {
			return err
		}

		lastLog, err := s.changeLogRepo.GetLastLog(ctx, tx, wallet.UID, wallet.Currency)
		if err != nil {
			return fmt.Errorf("查询最新日志失败: %w", err)
		}
		if err := checkIntegrity(lastLog, wallet); err != nil {
			return err
		}

		amount := trans.Amount
		frozen := wallet.Frozen
		if amount > frozen || frozen != lastLog.Frozen {
			return walleterr.New(walleterr.ErrFrozenAmountInvalid, wallet.UID, wallet.Currency)
		}

		now := time.Now().UnixMilli()
		changeLog := &model.ChangeLog{
			CreatedAt:     now,
			CreatedBy:     "system",
			UpdatedAt:     now,
			UpdatedBy:     "system",
			TransactionID: transactionID,
			UID:           wallet.UID,
			Currency:      wallet.Currency,
			Biz:           "system",
			BizSubject:    "confirm",
			BizID:         strconv.FormatInt(transactionID, 10),
			Amount:        amount,
			PreBalance:    wallet.Balance,
			Balance:       wallet.Balance,
			PreFrozen:     frozen,
			Frozen:        frozen - amount,
			ParentID:      lastLog.ID,
			IP:            ip,
		}
		changeLog.GenBlock(wallet.Block)

		prevBlock := wallet.Block
		// 扣减冻结金额，重新计算总额，推进区块
		wallet.Frozen = changeLog.Frozen
		wallet.Amount = wallet.Balance + wallet.Frozen
		wallet.Block = changeLog.Block

		if err := s.walletRepo.UpdateSnapshot(ctx, tx, wallet, prevBlock); err != nil {
			return err
		}
		if err := s.changeLogRepo.Create(ctx, tx, changeLog); err != nil {
			return fmt.Errorf("保存交易日志失败: %w", err)
		}

		return s.enqueueTradeEvent(ctx, tx, "confirm", trans, changeLog)
	})

	if err != nil {
		s.alertIntegrity(err, trans.UID, trans.Currency)
		return false, err
	}

	log.Printf("[WalletService] 冻结金额已确认: transactionID=%d, uid=%d, currency=%s, amount=%d",
		transactionID, trans.UID, trans.Currency, trans.Amount)
	return true, nil
}

// Unfreeze 解冻，返还冻结金额
//
// 创建一笔系统收入交易把金额还回可用余额，同时回退
// 可提现额度和累计支出计数。交易不是需冻结的支出时返回 false（非错误）。
func (s *WalletService) Unfreeze(ctx context.Context, transactionID int64, ip string) (bool, error) {
	trans, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return false, fmt.Errorf("查询交易记录失败: %w", err)
	}
	if trans == nil || !trans.Outlay || !trans.NeedFrozen {
		return false, nil
	}

	walletLock, err := s.lockWallet(ctx, trans.UID, trans.Currency)
	if err != nil {
		return false, err
	}
	defer s.unlockWallet(ctx, walletLock, trans.UID, trans.Currency)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		wallet, err := s.openWallet(ctx, tx, trans.UID, trans.Currency)
		if err != nil {
			return err
		}

		lastLog, err := s.changeLogRepo.GetLastLog(ctx, tx, wallet.UID, wallet.Currency)
		if err != nil {
			return fmt.Errorf("查询最新日志失败: %w", err)
		}
		if err := checkIntegrity(lastLog, wallet); err != nil {
			return err
		}

		amount := trans.Amount
		frozen := wallet.Frozen
		if amount > frozen || frozen != lastLog.Frozen {
			return walleterr.New(walleterr.ErrFrozenAmountInvalid, wallet.UID, wallet.Currency)
		}

		// 补偿性的系统收入交易
		now := time.Now().UnixMilli()
		sysTrans := &model.WalletTransaction{
			CreatedAt:    now,
			CreatedBy:    "system",
			UpdatedAt:    now,
			UpdatedBy:    "system",
			UID:          wallet.UID,
			Currency:     wallet.Currency,
			Biz:          "system",
			BizSubject:   "unfreeze",
			BizID:        strconv.FormatInt(transactionID, 10),
			Amount:       amount,
			Outlay:       false,
			WithdrawAble: trans.WithdrawAble,
			IP:           ip,
		}
		if err := s.transactionRepo.Create(ctx, tx, sysTrans); err != nil {
			return fmt.Errorf("保存交易记录失败: %w", err)
		}

		changeLog := &model.ChangeLog{
			CreatedAt:     now,
			CreatedBy:     "system",
			UpdatedAt:     now,
			UpdatedBy:     "system",
			TransactionID: sysTrans.ID,
			UID:           wallet.UID,
			Currency:      wallet.Currency,
			Biz:           "system",
			BizSubject:    "unfreeze",
			BizID:         strconv.FormatInt(transactionID, 10),
			Amount:        amount,
			PreBalance:    lastLog.Balance,
			Balance:       lastLog.Balance + amount,
			PreFrozen:     frozen,
			Frozen:        frozen - amount,
			ParentID:      lastLog.ID,
			IP:            ip,
		}
		changeLog.GenBlock(wallet.Block)
		if err := s.changeLogRepo.Create(ctx, tx, changeLog); err != nil {
			return fmt.Errorf("保存交易日志失败: %w", err)
		}

		prevBlock := wallet.Block
		wallet.Block = changeLog.Block
		wallet.Balance = changeLog.Balance
		wallet.Frozen = changeLog.Frozen
		wallet.Amount = changeLog.Balance + changeLog.Frozen
		if trans.WithdrawAble {
			wallet.Withdrawal = wallet.Withdrawal + amount
		}
		wallet.Outlay = wallet.Outlay - amount
		if err := s.walletRepo.UpdateSnapshot(ctx, tx, wallet, prevBlock); err != nil {
			return err
		}

		return s.enqueueTradeEvent(ctx, tx, "unfreeze", sysTrans, changeLog)
	})

	if err != nil {
		s.alertIntegrity(err, trans.UID, trans.Currency)
		return false, err
	}

	log.Printf("[WalletService] 冻结金额已解冻: transactionID=%d, uid=%d, currency=%s, amount=%d",
		transactionID, trans.UID, trans.Currency, trans.Amount)
	return true, nil
}

// ExpireLots 回收钱包的过期额度
//
// 启用过期机制的币种，把已过期但仍有剩余的收入额度通过
// system/expire 支出交易清零。返回回收的总额（0 表示无事可做）。
func (s *WalletService) ExpireLots(ctx context.Context, uid int64, currency string) (int64, error) {
	currencyCfg, err := s.provider.CurrencyConfig(currency)
	if err != nil {
		return 0, err
	}
	if !currencyCfg.EnabledExpire {
		return 0, nil
	}

	walletLock, err := s.lockWallet(ctx, uid, currency)
	if err != nil {
		return 0, err
	}
	defer s.unlockWallet(ctx, walletLock, uid, currency)

	var total int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		wallet, err := s.openWallet(ctx, tx, uid, currency)
		if err != nil {
			return err
		}

		lastLog, err := s.changeLogRepo.GetLastLog(ctx, tx, uid, currency)
		if err != nil {
			return fmt.Errorf("查询最新日志失败: %w", err)
		}
		if err := checkIntegrity(lastLog, wallet); err != nil {
			return err
		}

		now := time.Now().UnixMilli()
		lots, err := s.outlayRepo.ExpiredLots(ctx, tx, uid, currency, now, s.cfg.Wallet.ExpireSweepBatch)
		if err != nil {
			return fmt.Errorf("查询过期额度失败: %w", err)
		}
		if len(lots) == 0 {
			return nil
		}

		var sum int64
		for _, lot := range lots {
			sum += lot.Balance
		}

		subject, err := s.provider.BizSubject(currency, "system", "expire")
		if err != nil {
			return err
		}

		trans := &model.WalletTransaction{
			CreatedAt:    now,
			CreatedBy:    "system",
			UpdatedAt:    now,
			UpdatedBy:    "system",
			UID:          uid,
			Currency:     currency,
			Biz:          "system",
			BizSubject:   "expire",
			BizID:        strconv.FormatInt(idgen.NextID(), 10),
			Amount:       sum,
			Outlay:       subject.Outlay,
			NeedFrozen:   false,
			WithdrawAble: subject.WithdrawAble,
			IP:           "127.0.0.1",
			Remark:       "Expired",
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("保存交易记录失败: %w", err)
		}

		total, err = s.outlayService.ConsumeExpired(ctx, tx, trans, lots)
		if err != nil {
			return err
		}

		prevBlock := wallet.Block
		changeLog, err := wallet.NewChangeLog(trans, lastLog)
		if err != nil {
			return err
		}
		if err := s.changeLogRepo.Create(ctx, tx, changeLog); err != nil {
			return fmt.Errorf("保存交易日志失败: %w", err)
		}
		if err := s.walletRepo.UpdateSnapshot(ctx, tx, wallet, prevBlock); err != nil {
			return err
		}

		return s.enqueueTradeEvent(ctx, tx, "expire", trans, changeLog)
	})

	if err != nil {
		s.alertIntegrity(err, uid, currency)
		return 0, err
	}
	return total, nil
}

// Wallet 查询钱包视图（不存在时创建）
func (s *WalletService) Wallet(ctx context.Context, uid int64, currency string) (*model.Wallet, error) {
	return s.OpenWallet(ctx, uid, currency)
}

// SetLocked 管理操作：锁定/解锁钱包
func (s *WalletService) SetLocked(ctx context.Context, uid int64, currency string, locked bool) error {
	return s.walletRepo.SetLocked(ctx, uid, currency, locked)
}

// VoidTransaction 管理操作：作废一条交易记录（软删除）
//
// 只是把交易从对外查询中移除，变更日志和钱包快照都不回滚，
// 哈希链保持完整。返回本次是否实际作废了记录。
func (s *WalletService) VoidTransaction(ctx context.Context, transactionID int64) (bool, error) {
	trans, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return false, fmt.Errorf("查询交易记录失败: %w", err)
	}
	if trans == nil {
		// 不存在或已作废，保持幂等
		return false, nil
	}
	if err := s.transactionRepo.SoftDelete(ctx, nil, transactionID); err != nil {
		return false, fmt.Errorf("作废交易记录失败: %w", err)
	}
	log.Printf("[WalletService] 交易已作废: transactionId=%d, uid=%d, currency=%s", transactionID, trans.UID, trans.Currency)
	return true, nil
}

// ChangeLogs 分页查询钱包变更日志
func (s *WalletService) ChangeLogs(ctx context.Context, uid int64, currency string, page, pageSize int) ([]*model.ChangeLog, int64, error) {
	return s.changeLogRepo.ListByWallet(ctx, uid, currency, page, pageSize)
}

// Transactions 分页查询钱包交易记录
func (s *WalletService) Transactions(ctx context.Context, uid int64, currency string, page, pageSize int) ([]*model.WalletTransaction, int64, error) {
	return s.transactionRepo.ListByWallet(ctx, uid, currency, page, pageSize)
}

// OutlayLogsBySpend 查询一笔支出占用的额度明细
func (s *WalletService) OutlayLogsBySpend(ctx context.Context, outlayTransactionID int64) ([]*model.Outlay, error) {
	return s.outlayService.LotsBySpend(ctx, outlayTransactionID)
}

// OutlayLogsByLot 查询一条收入额度的消耗历史
func (s *WalletService) OutlayLogsByLot(ctx context.Context, transactionID int64) ([]*model.Outlay, error) {
	return s.outlayService.LotHistory(ctx, transactionID)
}

// lockWallet 获取钱包级分布式锁
func (s *WalletService) lockWallet(ctx context.Context, uid int64, currency string) (*lock.DistributedLock, error) {
	holder := strconv.FormatInt(idgen.NextID(), 10)
	walletLock := lock.NewWalletLock(s.redisClient, uid, currency, holder)
	if err := walletLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	return walletLock, nil
}

// unlockWallet 释放钱包锁
//
// ErrLockExpired 说明临界区执行时间超过了锁的有效期，账变本身由
// 区块哈希 CAS 兜底，这里只记录日志便于排查慢操作。
func (s *WalletService) unlockWallet(ctx context.Context, walletLock *lock.DistributedLock, uid int64, currency string) {
	if err := walletLock.Unlock(ctx); err != nil {
		log.Printf("[WalletService] 释放钱包锁异常: uid=%d, currency=%s, err=%v", uid, currency, err)
	}
}

// enqueueTradeEvent 在当前事务内写入交易事件（事务外发模式）
func (s *WalletService) enqueueTradeEvent(ctx context.Context, tx *gorm.DB, event string, trans *model.WalletTransaction, changeLog *model.ChangeLog) error {
	payload := map[string]interface{}{
		"event":          event,
		"uid":            trans.UID,
		"currency":       trans.Currency,
		"transaction_id": trans.ID,
		"biz":            trans.Biz,
		"biz_subject":    trans.BizSubject,
		"biz_id":         trans.BizID,
		"amount":         trans.Amount,
		"outlay":         trans.Outlay,
		"balance":        changeLog.Balance,
		"frozen":         changeLog.Frozen,
		"block":          changeLog.Block,
		"occurred_at":    time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	outboxMsg := &model.OutboxMessage{
		MessageKey: fmt.Sprintf("%d:%s", trans.UID, trans.Currency),
		Topic:      s.cfg.Kafka.Topic.TradeResult,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
		return fmt.Errorf("写入消息失败: %w", err)
	}
	return nil
}

// checkIntegrity 完整性校验：快照必须与最新日志一致
//
// 任一不一致都说明快照和哈希链已经脱节（写丢失、数据被改、
// 或并发写没有串行化），该钱包必须停止处理，人工介入。
func checkIntegrity(lastLog *model.ChangeLog, wallet *model.Wallet) error {
	uid := wallet.UID
	currency := wallet.Currency

	if lastLog == nil {
		log.Printf("[WalletService] 钱包(uid: %d, currency: %s)变更日志不存在!", uid, currency)
		return walleterr.New(walleterr.ErrIntegrityFailed, uid, currency)
	}

	if lastLog.Block != wallet.Block {
		log.Printf("[WalletService] 钱包(uid: %d, currency: %s)完整性校验失败: log block(%s) != wallet block(%s)",
			uid, currency, lastLog.Block, wallet.Block)
		return walleterr.New(walleterr.ErrIntegrityFailed, uid, currency)
	}

	if lastLog.Balance != wallet.Balance {
		log.Printf("[WalletService] 钱包(uid: %d, currency: %s)完整性校验失败: log balance(%d) != wallet balance(%d)",
			uid, currency, lastLog.Balance, wallet.Balance)
		return walleterr.New(walleterr.ErrIntegrityFailed, uid, currency)
	}

	if lastLog.Frozen != wallet.Frozen {
		log.Printf("[WalletService] 钱包(uid: %d, currency: %s)完整性校验失败: log frozen(%d) != wallet frozen(%d)",
			uid, currency, lastLog.Frozen, wallet.Frozen)
		return walleterr.New(walleterr.ErrIntegrityFailed, uid, currency)
	}

	if wallet.Amount != wallet.Balance+wallet.Frozen {
		log.Printf("[WalletService] 钱包(uid: %d, currency: %s)完整性校验失败: amount(%d) != balance(%d)+frozen(%d)",
			uid, currency, wallet.Amount, wallet.Balance, wallet.Frozen)
	}

	return nil
}

// alertIntegrity 完整性失败时向告警通道推送消息
//
// 事务已回滚，告警不能走事务外发表，直接发 Kafka 并记录日志。
func (s *WalletService) alertIntegrity(err error, uid int64, currency string) {
	if !errors.Is(err, walleterr.ErrIntegrityFailed) {
		return
	}

	log.Printf("[WalletService] 钱包完整性校验失败，需要人工介入: uid=%d, currency=%s", uid, currency)

	payload, _ := json.Marshal(map[string]interface{}{
		"uid":        uid,
		"currency":   currency,
		"error":      err.Error(),
		"alerted_at": time.Now().Format(time.RFC3339),
	})
	key := fmt.Sprintf("%d:%s", uid, currency)
	if sendErr := mq.SendMessage(s.cfg.Kafka.Topic.IntegrityAlert, key, string(payload)); sendErr != nil {
		log.Printf("[WalletService] 完整性告警发送失败: %v", sendErr)
	}
}
