package handler

import (
	"strconv"

	"walletservice/internal/config"
	"walletservice/internal/model"
	"walletservice/internal/service"
	"walletservice/pkg/response"
	"walletservice/pkg/walleterr"

	"github.com/gin-gonic/gin"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	walletService *service.WalletService
	cfg           *config.Config
}

// NewHandler 创建处理器实例
//
// 钱包服务由调用方构造并注入，和后台任务共享同一个实例。
func NewHandler(walletService *service.WalletService, cfg *config.Config) *Handler {
	return &Handler{
		walletService: walletService,
		cfg:           cfg,
	}
}

// walletView 钱包快照的对外视图，附带按币种精度换算的十进制金额
func (h *Handler) walletView(wallet *model.Wallet) gin.H {
	precision := int32(0)
	if cfg, err := h.cfg.Wallet.CurrencyConfig(wallet.Currency); err == nil {
		precision = cfg.Precision
	}
	return gin.H{
		"uid":        wallet.UID,
		"currency":   wallet.Currency,
		"amount":     wallet.Amount,
		"balance":    wallet.Balance,
		"withdrawal": wallet.Withdrawal,
		"frozen":     wallet.Frozen,
		"outlay":     wallet.Outlay,
		"locked":     wallet.Locked,
		"block":      wallet.Block,
		"balance_decimal": model.FromFixedPoint(wallet.Balance, precision),
	}
}

func (h *Handler) walletError(c *gin.Context, err error) {
	code := walleterr.CodeOf(err)
	if code == response.CodeServerError {
		response.ServerError(c, err.Error())
		return
	}
	response.BusinessError(c, code, err.Error())
}

func walletQuery(c *gin.Context) (int64, string, bool) {
	uid, err := strconv.ParseInt(c.Query("uid"), 10, 64)
	if err != nil {
		response.ParamError(c, "uid 参数错误")
		return 0, "", false
	}
	currency := c.Query("currency")
	if currency == "" {
		response.ParamError(c, "currency 参数不能为空")
		return 0, "", false
	}
	return uid, currency, true
}

// ============================================================
// 钱包相关接口
// ============================================================

// GetWallet 查询钱包（不存在时创建）
// GET /api/v1/wallet?uid=xxx&currency=xxx
func (h *Handler) GetWallet(c *gin.Context) {
	uid, currency, ok := walletQuery(c)
	if !ok {
		return
	}

	wallet, err := h.walletService.Wallet(c.Request.Context(), uid, currency)
	if err != nil {
		h.walletError(c, err)
		return
	}

	response.Success(c, h.walletView(wallet))
}

// OpenWalletRequest 开钱包请求
type OpenWalletRequest struct {
	UID      int64  `json:"uid" binding:"required"`
	Currency string `json:"currency" binding:"required"`
}

// OpenWallet 开钱包（幂等）
// POST /api/v1/wallet/open
func (h *Handler) OpenWallet(c *gin.Context) {
	var req OpenWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	wallet, err := h.walletService.OpenWallet(c.Request.Context(), req.UID, req.Currency)
	if err != nil {
		h.walletError(c, err)
		return
	}

	response.Success(c, h.walletView(wallet))
}

// LockWalletRequest 锁定/解锁钱包请求
type LockWalletRequest struct {
	UID      int64  `json:"uid" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	Locked   *bool  `json:"locked" binding:"required"`
}

// LockWallet 管理接口：锁定或解锁钱包
// POST /api/v1/wallet/lock
func (h *Handler) LockWallet(c *gin.Context) {
	var req LockWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.walletService.SetLocked(c.Request.Context(), req.UID, req.Currency, *req.Locked); err != nil {
		h.walletError(c, err)
		return
	}

	response.Success(c, gin.H{
		"uid":      req.UID,
		"currency": req.Currency,
		"locked":   *req.Locked,
	})
}

// ListChangeLogs 分页查询钱包变更日志
// GET /api/v1/wallet/logs?uid=xxx&currency=xxx&page=1&page_size=10
func (h *Handler) ListChangeLogs(c *gin.Context) {
	uid, currency, ok := walletQuery(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	logs, total, err := h.walletService.ChangeLogs(c.Request.Context(), uid, currency, page, pageSize)
	if err != nil {
		h.walletError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListTransactions 分页查询钱包交易记录
// GET /api/v1/wallet/transactions?uid=xxx&currency=xxx&page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	uid, currency, ok := walletQuery(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	transactions, total, err := h.walletService.Transactions(c.Request.Context(), uid, currency, page, pageSize)
	if err != nil {
		h.walletError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 交易相关接口
// ============================================================

// TradeRequest 交易请求
//
// 交易方向（收入/支出）、是否冻结等标志由 biz/biz_subject
// 对应的配置决定，请求方无法指定。
type TradeRequest struct {
	UID        int64   `json:"uid" binding:"required"`
	Currency   string  `json:"currency" binding:"required"`
	Biz        string  `json:"biz" binding:"required"`
	BizSubject string  `json:"biz_subject" binding:"required"`
	BizID      string  `json:"biz_id" binding:"required"`
	Amount     float64 `json:"amount" binding:"required,gt=0"` // 十进制金额
	ExpiredAt  *int64  `json:"expired_at"`                     // 毫秒时间戳
	Remark     string  `json:"remark"`
}

// Trade 执行交易
// POST /api/v1/trade
//
// 【关键点】交易是整个系统最核心的操作，需要保证：
// 1. 原子性：交易记录、变更日志、额度分摊、快照更新同一事务
// 2. 并发安全：Redis 锁串行同一钱包的账变，快照按区块哈希 CAS 更新
// 3. 可审计：每笔账变追加哈希链日志，篡改可被完整性校验发现
func (h *Handler) Trade(c *gin.Context) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	dto := &model.TradeDTO{
		UID:        req.UID,
		Currency:   req.Currency,
		Biz:        req.Biz,
		BizSubject: req.BizSubject,
		BizID:      req.BizID,
		Amount:     req.Amount,
		ExpiredAt:  req.ExpiredAt,
		Remark:     req.Remark,
		IP:         c.ClientIP(),
	}

	trans, err := h.walletService.Trade(c.Request.Context(), dto)
	if err != nil {
		h.walletError(c, err)
		return
	}

	response.Success(c, gin.H{
		"transaction_id": trans.ID,
		"uid":            trans.UID,
		"currency":       trans.Currency,
		"amount":         trans.Amount,
		"outlay":         trans.Outlay,
		"need_frozen":    trans.NeedFrozen,
	})
}

// TransactionRequest 确认/解冻请求
type TransactionRequest struct {
	TransactionID int64 `json:"transaction_id" binding:"required"`
}

// ConfirmTrade 确认冻结金额
// POST /api/v1/trade/confirm
func (h *Handler) ConfirmTrade(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	confirmed, err := h.walletService.Confirm(c.Request.Context(), req.TransactionID, c.ClientIP())
	if err != nil {
		h.walletError(c, err)
		return
	}

	response.Success(c, gin.H{
		"transaction_id": req.TransactionID,
		"confirmed":      confirmed,
	})
}

// UnfreezeTrade 解冻、返还冻结金额
// POST /api/v1/trade/unfreeze
func (h *Handler) UnfreezeTrade(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	unfrozen, err := h.walletService.Unfreeze(c.Request.Context(), req.TransactionID, c.ClientIP())
	if err != nil {
		h.walletError(c, err)
		return
	}

	response.Success(c, gin.H{
		"transaction_id": req.TransactionID,
		"unfrozen":       unfrozen,
	})
}

// VoidTrade 管理接口：作废一条交易记录（软删除，账本不回滚）
// POST /api/v1/trade/void
func (h *Handler) VoidTrade(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	voided, err := h.walletService.VoidTransaction(c.Request.Context(), req.TransactionID)
	if err != nil {
		h.walletError(c, err)
		return
	}

	response.Success(c, gin.H{
		"transaction_id": req.TransactionID,
		"voided":         voided,
	})
}

// ============================================================
// 额度分摊查询接口
// ============================================================

// ListOutlayBySpend 查询一笔支出占用了哪些收入额度
// GET /api/v1/outlay/by-spend?transaction_id=xxx
func (h *Handler) ListOutlayBySpend(c *gin.Context) {
	transactionID, err := strconv.ParseInt(c.Query("transaction_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "transaction_id 参数错误")
		return
	}

	lots, err := h.walletService.OutlayLogsBySpend(c.Request.Context(), transactionID)
	if err != nil {
		h.walletError(c, err)
		return
	}

	response.Success(c, gin.H{"list": lots})
}

// ListOutlayByLot 查询一条收入额度被哪些支出消耗
// GET /api/v1/outlay/by-lot?transaction_id=xxx
func (h *Handler) ListOutlayByLot(c *gin.Context) {
	transactionID, err := strconv.ParseInt(c.Query("transaction_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "transaction_id 参数错误")
		return
	}

	lots, err := h.walletService.OutlayLogsByLot(c.Request.Context(), transactionID)
	if err != nil {
		h.walletError(c, err)
		return
	}

	response.Success(c, gin.H{"list": lots})
}
