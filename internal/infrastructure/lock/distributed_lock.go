package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 【为什么需要分布式锁？】
//
// 同一个钱包的账变必须严格串行：账变 = 读最新日志 -> 算新区块 -> 写快照，
// 两个并发交易交错执行读-改-写会让快照和哈希链脱节。
//
// 没有锁：
//   goroutine1: 读余额=100 -> 支出100 -> 余额=0   OK
//   goroutine2: 读余额=100 -> 支出100 -> 余额=-100 超扣，链也断了
//
// 加锁后：
//   goroutine1: 获取锁 -> 读余额=100 -> 支出100 -> 余额=0 -> 释放锁
//   goroutine2: 等待... -> 获取锁 -> 读余额=0 -> 余额不足，拒绝
//
// 锁是第一道防线；即使锁失效，钱包快照更新以上一个区块哈希做 CAS，
// 未串行化的写会丢失更新并在下次完整性校验时暴露。
//
// 【Redis 分布式锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：使用 Lua 脚本保证原子性
//
// ============================================================================

var (
	ErrLockFailed  = errors.New("获取分布式锁失败")
	ErrLockExpired = errors.New("锁已过期")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
//
// 【关键点】使用 SetNX 命令，只有当 key 不存在时才能设置成功
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		// 等待一段时间后重试
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
//
// 【关键点】使用 Lua 脚本保证"检查+删除"操作的原子性，
// 先验证 value 是自己的再删除，避免误删后来者持有的锁。
//
// 脚本返回 0 说明锁已经不在自己手里（过期被释放，或已被别人持有），
// 返回 ErrLockExpired 提示调用方：临界区可能超出了锁的有效期。
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	result, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	if err != nil {
		return err
	}
	if deleted, ok := result.(int64); ok && deleted == 0 {
		return ErrLockExpired
	}
	return nil
}

// ============================================================================
// 便捷函数：按钱包维度加锁
// ============================================================================

// NewWalletLock 创建钱包锁（按 uid+currency 维度）
//
// 不同钱包互不影响，可并发账变；同一个钱包的 trade/confirm/unfreeze
// 在锁内串行执行。钱包创建的并发由唯一约束解决，不走这把锁。
func NewWalletLock(client *redis.Client, uid int64, currency string, holder string) *DistributedLock {
	key := fmt.Sprintf("wallet:lock:%d:%s", uid, currency)
	// value 使用持有者标识，便于追踪是哪个请求持有锁
	return NewDistributedLock(client, key, holder, 30*time.Second)
}
