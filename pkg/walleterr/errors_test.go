package walleterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorsIs(t *testing.T) {
	err := New(ErrInsufficientBalance, 100, "CNY")
	require.True(t, errors.Is(err, ErrInsufficientBalance))
	require.False(t, errors.Is(err, ErrWalletLocked))

	// fmt.Errorf 包装后类别仍可判断
	wrapped := fmt.Errorf("交易失败: %w", err)
	require.True(t, errors.Is(wrapped, ErrInsufficientBalance))
}

func TestErrorMessage(t *testing.T) {
	err := New(ErrWalletLocked, 100, "CNY")
	require.Contains(t, err.Error(), "uid: 100")
	require.Contains(t, err.Error(), "currency: CNY")

	err = NewBiz(ErrBizSubjectNotFound, "CNY", "mall", "recharge")
	require.Contains(t, err.Error(), "biz: mall")
	require.Contains(t, err.Error(), "bizSubject: recharge")
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, 90304, CodeOf(New(ErrInsufficientBalance, 100, "CNY")))
	require.Equal(t, 90302, CodeOf(fmt.Errorf("wrap: %w", New(ErrIntegrityFailed, 100, "CNY"))))
	require.Equal(t, 90300, CodeOf(ErrWalletNotFound))
	require.Equal(t, 500, CodeOf(errors.New("boom")))
}
