package service

import (
	"fmt"
	"sync/atomic"
	"testing"

	"walletservice/internal/config"
	"walletservice/internal/infrastructure/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

// newTestDB 每个用例独立的内存 SQLite
//
// cache=shared 让 gorm 连接池的多个连接看到同一个库，
// 序号保证用例之间互不串库。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:wallettest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存 SQLite 不支持真正的并发写，单连接把落库串行化，
	// 并发用例只竞争上层逻辑
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestConfig() *config.Config {
	cfg := &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				TradeResult:    "wallet-trade-result",
				IntegrityAlert: "wallet-integrity-alert",
			},
			MaxRetryCount: 3,
		},
		Wallet: config.WalletConfig{
			Currency: map[string]*config.CurrencyConfig{
				"CNY": {
					Name:         "人民币",
					Precision:    2,
					WithdrawAble: true,
					Biz: map[string]*config.BizConfig{
						"mall": {
							Name: "商城",
							Subjects: map[string]*config.BizSubject{
								"recharge": {Name: "充值"},
								"purchase": {Name: "下单", Outlay: true, NeedFrozen: true},
							},
						},
						"income": {
							Name: "收益",
							Subjects: map[string]*config.BizSubject{
								"commission": {Name: "分佣", WithdrawAble: true},
								"withdraw":   {Name: "提现", Outlay: true, NeedFrozen: true, WithdrawAble: true},
							},
						},
					},
				},
				"COIN": {
					Name:          "金币",
					Precision:     0,
					EnabledExpire: true,
					Biz: map[string]*config.BizConfig{
						"activity": {
							Name: "活动",
							Subjects: map[string]*config.BizSubject{
								"signin":   {Name: "签到奖励"},
								"exchange": {Name: "兑换", Outlay: true},
							},
						},
					},
				},
			},
		},
	}
	cfg.Wallet.Normalize()
	return cfg
}

func newTestService(t *testing.T) (*WalletService, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewWalletService(db, client, newTestConfig()), db
}
