package errorx_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"meetup_hub_server/pkg/errorx"
)

func TestNewAndError(t *testing.T) {
	err := errorx.New(errorx.CodeInvalidParam, "参数错误")
	assert.Equal(t, errorx.CodeInvalidParam, err.Code)
	assert.Equal(t, "参数错误", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := errorx.Wrap(cause, errorx.CodeDBError, "查询失败")

	assert.True(t, errorx.IsCode(err, errorx.CodeDBError))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsCodeThroughWrapping(t *testing.T) {
	inner := errorx.New(errorx.CodeConflict, "序号冲突")
	outer := fmt.Errorf("create message: %w", inner)

	assert.True(t, errorx.IsCode(outer, errorx.CodeConflict))
	assert.False(t, errorx.IsCode(outer, errorx.CodeNotFound))
	assert.False(t, errorx.IsCode(nil, errorx.CodeConflict))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, errorx.IsNotFound(errorx.New(errorx.CodeNotFound, "不存在")))
	assert.False(t, errorx.IsNotFound(errorx.ErrServerBusy))
	assert.False(t, errorx.IsNotFound(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, errorx.IsRetryable(errorx.ErrConflict))
	assert.True(t, errorx.IsRetryable(errorx.Wrap(errors.New("Duplicate entry"), errorx.CodeConflict, "冲突")))
	assert.False(t, errorx.IsRetryable(errorx.ErrServerBusy))
}
