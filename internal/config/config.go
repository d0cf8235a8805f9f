package config

import (
	"log"

	"walletservice/pkg/walleterr"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Wallet WalletConfig `mapstructure:"wallet"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
	// 事务外发消息投递的最大重试次数
	MaxRetryCount int `mapstructure:"max_retry_count"`
}

type KafkaTopicConfig struct {
	TradeResult    string `mapstructure:"trade_result"`
	IntegrityAlert string `mapstructure:"integrity_alert"`
}

// WalletConfig 钱包业务配置：币种规则 + 过期清理任务参数
type WalletConfig struct {
	Currency           map[string]*CurrencyConfig `mapstructure:"currency"`
	ExpireSweepSeconds int                        `mapstructure:"expire_sweep_seconds"`
	ExpireSweepBatch   int                        `mapstructure:"expire_sweep_batch"`
}

// CurrencyConfig 币种配置
type CurrencyConfig struct {
	// 名称
	Name string `mapstructure:"name"`
	// 与法币的汇率
	Rate float64 `mapstructure:"rate"`
	// 小数位
	Scale int `mapstructure:"scale"`
	// 精度：定点整数 = 十进制金额 × 10^precision
	Precision int32 `mapstructure:"precision"`
	// 启用余额过期机制
	EnabledExpire bool `mapstructure:"enabled_expire"`
	// 是否可提现
	WithdrawAble bool `mapstructure:"withdraw_able"`
	// 货币符号
	Symbol string `mapstructure:"symbol"`
	// 输出格式化
	Format string `mapstructure:"format"`
	// 业务线
	Biz map[string]*BizConfig `mapstructure:"biz"`
}

// BizConfig 业务线配置
type BizConfig struct {
	Name     string                 `mapstructure:"name"`
	Subjects map[string]*BizSubject `mapstructure:"subjects"`
}

// BizSubject 业务活动配置
//
// 交易方向（支出/收入）、是否冻结、是否计入可提现额度
// 全部由配置决定，调用方不可覆盖。
type BizSubject struct {
	Name string `mapstructure:"name"`
	// 该业务支出用户的余额
	Outlay bool `mapstructure:"outlay"`
	// 支出时冻结金额，等待 confirm/unfreeze
	NeedFrozen bool `mapstructure:"need_frozen"`
	// 收入计入可提现额度；提现类支出也为 true
	WithdrawAble bool `mapstructure:"withdraw_able"`
}

// CurrencyProvider 币种/业务规则查询接口
//
// 显式注入到需要币种规则的组件，便于测试时使用固定配置。
type CurrencyProvider interface {
	CurrencyConfig(currency string) (*CurrencyConfig, error)
	BizSubject(currency, biz, bizSubject string) (*BizSubject, error)
}

// CurrencyConfig 查询币种配置，未配置的币种视为钱包不存在
func (w *WalletConfig) CurrencyConfig(currency string) (*CurrencyConfig, error) {
	cfg, ok := w.Currency[currency]
	if !ok {
		return nil, walleterr.New(walleterr.ErrWalletNotFound, 0, currency)
	}
	return cfg, nil
}

// BizSubject 查询业务活动配置
func (w *WalletConfig) BizSubject(currency, biz, bizSubject string) (*BizSubject, error) {
	cfg, err := w.CurrencyConfig(currency)
	if err != nil {
		return nil, err
	}
	bizCfg, ok := cfg.Biz[biz]
	if !ok {
		return nil, walleterr.NewBiz(walleterr.ErrBizSubjectNotFound, currency, biz, bizSubject)
	}
	subject, ok := bizCfg.Subjects[bizSubject]
	if !ok {
		return nil, walleterr.NewBiz(walleterr.ErrBizSubjectNotFound, currency, biz, bizSubject)
	}
	return subject, nil
}

// Normalize 补全配置缺省值
//
// 启用过期机制的币种必须存在 system/expire 活动（过期清理任务使用），
// 未配置时自动补充，其三个标志强制为 outlay=true、needFrozen=false、
// withdrawAble=false。
func (w *WalletConfig) Normalize() {
	for _, cfg := range w.Currency {
		if !cfg.EnabledExpire {
			continue
		}
		if cfg.Biz == nil {
			cfg.Biz = make(map[string]*BizConfig)
		}
		bizCfg, ok := cfg.Biz["system"]
		if !ok {
			bizCfg = &BizConfig{Name: "system"}
		}
		if bizCfg.Subjects == nil {
			bizCfg.Subjects = make(map[string]*BizSubject)
		}
		expire, ok := bizCfg.Subjects["expire"]
		if !ok {
			expire = &BizSubject{Name: "expire"}
		}
		expire.Outlay = true
		expire.NeedFrozen = false
		expire.WithdrawAble = false
		bizCfg.Subjects["expire"] = expire
		cfg.Biz["system"] = bizCfg
	}
	if w.ExpireSweepSeconds <= 0 {
		w.ExpireSweepSeconds = 60
	}
	if w.ExpireSweepBatch <= 0 {
		w.ExpireSweepBatch = 100
	}
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	if config.Kafka.MaxRetryCount <= 0 {
		config.Kafka.MaxRetryCount = 5
	}
	config.Wallet.Normalize()
	return config
}
