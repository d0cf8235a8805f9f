package walleterr

import (
	"errors"
	"fmt"
)

// ============================================================================
// 钱包错误分类
// ============================================================================
//
// 每类错误带一个业务错误码，HTTP 层直接透传给调用方。
// 通过 errors.Is(err, walleterr.ErrXxx) 判断错误类别，
// 通过 walleterr.New / walleterr.NewBiz 附加上下文（uid、币种、业务线）。
//
// ============================================================================

// Kind 错误类别（错误码 + 默认消息）
type Kind struct {
	Code    int
	Message string
}

func (k *Kind) Error() string {
	return k.Message
}

var (
	ErrWalletNotFound           = &Kind{Code: 90300, Message: "钱包不存在"}
	ErrWalletLocked             = &Kind{Code: 90301, Message: "钱包已被锁定"}
	ErrIntegrityFailed          = &Kind{Code: 90302, Message: "钱包完整性校验失败"}
	ErrBizSubjectNotFound       = &Kind{Code: 90303, Message: "业务活动未配置"}
	ErrInsufficientBalance      = &Kind{Code: 90304, Message: "余额不足"}
	ErrInsufficientWithdrawable = &Kind{Code: 90305, Message: "可提现余额不足"}
	ErrFrozenAmountInvalid      = &Kind{Code: 90306, Message: "冻结金额不合法"}
	ErrExpiredTimeInvalid       = &Kind{Code: 90307, Message: "过期时间缺失或早于当前时间"}
	ErrTradeCannotSave          = &Kind{Code: 90308, Message: "交易记录保存失败"}
	ErrLogCannotSave            = &Kind{Code: 90309, Message: "交易日志保存失败"}
	ErrWalletCannotUpdate       = &Kind{Code: 90310, Message: "钱包更新失败"}
	ErrOutlayCannotSave         = &Kind{Code: 90311, Message: "支出分摊记录保存失败"}
	ErrTradeNotAllowed          = &Kind{Code: 90399, Message: "交易不被允许"}
)

// WalletError 带上下文的钱包错误
type WalletError struct {
	Kind       *Kind
	UID        int64
	Currency   string
	Biz        string
	BizSubject string
}

func (e *WalletError) Error() string {
	if e.Biz != "" {
		return fmt.Sprintf("%s (currency: %s, biz: %s, bizSubject: %s)",
			e.Kind.Message, e.Currency, e.Biz, e.BizSubject)
	}
	return fmt.Sprintf("%s (uid: %d, currency: %s)", e.Kind.Message, e.UID, e.Currency)
}

// Unwrap 支持 errors.Is(err, walleterr.ErrXxx)
func (e *WalletError) Unwrap() error {
	return e.Kind
}

// New 创建带 (uid, currency) 上下文的钱包错误
func New(kind *Kind, uid int64, currency string) error {
	return &WalletError{Kind: kind, UID: uid, Currency: currency}
}

// NewBiz 创建带 (currency, biz, bizSubject) 上下文的业务配置错误
func NewBiz(kind *Kind, currency, biz, bizSubject string) error {
	return &WalletError{Kind: kind, Currency: currency, Biz: biz, BizSubject: bizSubject}
}

// CodeOf 返回错误对应的业务错误码，非钱包错误返回 500
func CodeOf(err error) int {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Kind.Code
	}
	var k *Kind
	if errors.As(err, &k) {
		return k.Code
	}
	return 500
}
