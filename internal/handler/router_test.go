package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"walletservice/internal/config"
	"walletservice/internal/infrastructure/database"
	"walletservice/internal/service"
	"walletservice/pkg/response"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var handlerDBSeq int64

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	dsn := fmt.Sprintf("file:wallethandler%d?mode=memory&cache=shared", atomic.AddInt64(&handlerDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

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
							},
						},
					},
				},
			},
		},
	}
	cfg.Wallet.Normalize()

	walletService := service.NewWalletService(db, client, cfg)
	return SetupRouter(walletService, cfg)
}

// envelope 响应外壳，data 延迟解码避免雪花ID落入 float64 丢精度
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *envelope {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

func decodeData(t *testing.T, resp *envelope, out interface{}) {
	t.Helper()
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ok")
}

func TestWalletEndpoints(t *testing.T) {
	router := newTestRouter(t)

	var wallet struct {
		UID            int64   `json:"uid"`
		Currency       string  `json:"currency"`
		Balance        int64   `json:"balance"`
		BalanceDecimal float64 `json:"balance_decimal"`
	}

	// 开钱包
	resp := doJSON(t, router, http.MethodPost, "/api/v1/wallet/open", `{"uid":100,"currency":"CNY"}`)
	decodeData(t, resp, &wallet)
	require.Equal(t, int64(100), wallet.UID)
	require.Equal(t, int64(0), wallet.Balance)

	// 充值
	var traded struct {
		TransactionID int64 `json:"transaction_id"`
	}
	resp = doJSON(t, router, http.MethodPost, "/api/v1/trade",
		`{"uid":100,"currency":"CNY","biz":"mall","biz_subject":"recharge","biz_id":"order-1","amount":10.5}`)
	decodeData(t, resp, &traded)
	require.NotZero(t, traded.TransactionID)

	// 余额按币种精度换算成定点数
	resp = doJSON(t, router, http.MethodGet, "/api/v1/wallet?uid=100&currency=CNY", "")
	decodeData(t, resp, &wallet)
	require.Equal(t, int64(1050), wallet.Balance)
	require.Equal(t, 10.5, wallet.BalanceDecimal)

	// 作废后交易从列表里消失
	var voided struct {
		Voided bool `json:"voided"`
	}
	resp = doJSON(t, router, http.MethodPost, "/api/v1/trade/void",
		fmt.Sprintf(`{"transaction_id":%d}`, traded.TransactionID))
	decodeData(t, resp, &voided)
	require.True(t, voided.Voided)

	var listed struct {
		Total int64 `json:"total"`
	}
	resp = doJSON(t, router, http.MethodGet, "/api/v1/wallet/transactions?uid=100&currency=CNY", "")
	decodeData(t, resp, &listed)
	require.Equal(t, int64(0), listed.Total)
}

func TestTradeParamError(t *testing.T) {
	router := newTestRouter(t)

	// 缺少必填字段
	resp := doJSON(t, router, http.MethodPost, "/api/v1/trade", `{"uid":100}`)
	require.Equal(t, response.CodeParamError, resp.Code)

	// 未配置的币种
	resp = doJSON(t, router, http.MethodPost, "/api/v1/wallet/open", `{"uid":100,"currency":"USD"}`)
	require.NotEqual(t, response.CodeSuccess, resp.Code)
}
