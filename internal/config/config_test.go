package config

import (
	"errors"
	"testing"

	"walletservice/pkg/walleterr"

	"github.com/stretchr/testify/require"
)

func testWalletConfig() *WalletConfig {
	return &WalletConfig{
		Currency: map[string]*CurrencyConfig{
			"CNY": {
				Name:      "人民币",
				Precision: 2,
				Biz: map[string]*BizConfig{
					"mall": {
						Name: "商城",
						Subjects: map[string]*BizSubject{
							"recharge": {Name: "充值", Outlay: false},
						},
					},
				},
			},
			"COIN": {
				Name:          "金币",
				EnabledExpire: true,
			},
		},
	}
}

func TestCurrencyProvider(t *testing.T) {
	cfg := testWalletConfig()

	currency, err := cfg.CurrencyConfig("CNY")
	require.NoError(t, err)
	require.Equal(t, int32(2), currency.Precision)

	_, err = cfg.CurrencyConfig("USD")
	require.True(t, errors.Is(err, walleterr.ErrWalletNotFound))

	subject, err := cfg.BizSubject("CNY", "mall", "recharge")
	require.NoError(t, err)
	require.False(t, subject.Outlay)

	_, err = cfg.BizSubject("CNY", "mall", "refund")
	require.True(t, errors.Is(err, walleterr.ErrBizSubjectNotFound))

	_, err = cfg.BizSubject("CNY", "game", "recharge")
	require.True(t, errors.Is(err, walleterr.ErrBizSubjectNotFound))
}

func TestNormalizeSynthesizesExpireSubject(t *testing.T) {
	cfg := testWalletConfig()
	cfg.Normalize()

	// 启用过期机制的币种自动补充 system/expire
	subject, err := cfg.BizSubject("COIN", "system", "expire")
	require.NoError(t, err)
	require.True(t, subject.Outlay)
	require.False(t, subject.NeedFrozen)
	require.False(t, subject.WithdrawAble)

	// 未启用的币种不补充
	_, err = cfg.BizSubject("CNY", "system", "expire")
	require.True(t, errors.Is(err, walleterr.ErrBizSubjectNotFound))

	require.Equal(t, 60, cfg.ExpireSweepSeconds)
	require.Equal(t, 100, cfg.ExpireSweepBatch)
}

func TestNormalizeForcesExpireFlags(t *testing.T) {
	cfg := testWalletConfig()
	cfg.Currency["COIN"].Biz = map[string]*BizConfig{
		"system": {
			Name: "system",
			Subjects: map[string]*BizSubject{
				// 配置里写错了方向，Normalize 必须纠正
				"expire": {Name: "expire", Outlay: false, NeedFrozen: true, WithdrawAble: true},
			},
		},
	}
	cfg.Normalize()

	subject, err := cfg.BizSubject("COIN", "system", "expire")
	require.NoError(t, err)
	require.True(t, subject.Outlay)
	require.False(t, subject.NeedFrozen)
	require.False(t, subject.WithdrawAble)
}
