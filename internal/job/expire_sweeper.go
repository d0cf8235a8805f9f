package job

import (
	"context"
	"log"
	"time"

	"walletservice/internal/config"
	"walletservice/internal/repository"
	"walletservice/internal/service"

	"gorm.io/gorm"
)

// ExpireSweeper 过期额度清理任务
//
// 定期扫描存在过期额度的钱包，逐个钱包调用 ExpireLots 回收。
// 回收走正常的交易路径（锁 + 事务 + 哈希链），任务本身只做调度，
// 单个钱包失败不影响其它钱包。
type ExpireSweeper struct {
	db            *gorm.DB
	outlayRepo    *repository.OutlayRepository
	walletService *service.WalletService
	cfg           *config.Config
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
}

func NewExpireSweeper(db *gorm.DB, walletService *service.WalletService, cfg *config.Config) *ExpireSweeper {
	return &ExpireSweeper{
		db:            db,
		outlayRepo:    repository.NewOutlayRepository(db),
		walletService: walletService,
		cfg:           cfg,
		stopCh:        make(chan struct{}),
		interval:      time.Duration(cfg.Wallet.ExpireSweepSeconds) * time.Second,
		batchSize:     cfg.Wallet.ExpireSweepBatch,
	}
}

func (j *ExpireSweeper) Start(ctx context.Context) {
	log.Println("[ExpireSweeper] 过期额度清理任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ExpireSweeper] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[ExpireSweeper] 任务停止")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *ExpireSweeper) Stop() {
	close(j.stopCh)
}

func (j *ExpireSweeper) sweep(ctx context.Context) {
	now := time.Now().UnixMilli()
	keys, err := j.outlayRepo.ExpiredWalletKeys(ctx, now, j.batchSize)
	if err != nil {
		log.Printf("[ExpireSweeper] 查询过期钱包失败: %v", err)
		return
	}

	if len(keys) == 0 {
		return
	}

	log.Printf("[ExpireSweeper] 发现 %d 个存在过期额度的钱包", len(keys))

	for _, key := range keys {
		total, err := j.walletService.ExpireLots(ctx, key.UID, key.Currency)
		if err != nil {
			log.Printf("[ExpireSweeper] 清理失败: uid=%d, currency=%s, err=%v", key.UID, key.Currency, err)
			continue
		}
		if total > 0 {
			log.Printf("[ExpireSweeper] 已回收过期额度: uid=%d, currency=%s, amount=%d", key.UID, key.Currency, total)
		}
	}
}
