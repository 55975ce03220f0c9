package errorx

import (
	"errors"
	"fmt"
)

// CodeError 带业务错误码的自定义错误
// 实现了 error 接口，支持 %w 包装底层错误，且能被 errors.Is/errors.As 识别
type CodeError struct {
	Code  int    // 业务错误码
	Msg   string // 错误消息
	cause error  // 被包装的底层错误
}

// Error 实现 Go 标准 error 接口
// 当存在底层错误时，返回格式为 "消息: 底层错误"；否则仅返回消息
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap 实现 errors.Unwrap 接口，支持 errors.Is/errors.As 向下追溯
func (e *CodeError) Unwrap() error {
	return e.cause
}

// New 创建一个新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

// Newf 创建一个带格式化消息的 CodeError
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap 包装底层错误，添加业务错误码和消息
// 用法: errorx.Wrap(err, CodeNotFound, "聚会不存在")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   msg,
		cause: err,
	}
}

// Wrapf 包装底层错误，支持格式化消息
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

// GetCode 从错误中提取业务错误码，如果不是 CodeError 则返回默认码
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// 业务状态码常量定义
const (
	CodeSuccess          = 1000 // 成功
	CodeInvalidParam     = 1001 // 请求参数错误
	CodeServerBusy       = 1005 // 服务繁忙
	CodeUnauthorized     = 1006 // 未授权/认证失败
	CodePermissionDenied = 1007 // 无操作权限（非发起人/管理员/本人）
	CodeNotFound         = 1008 // 资源不存在
	CodeDBError          = 1010 // 数据库错误
	CodeCacheError       = 1011 // 缓存错误

	// 聚会领域错误码
	CodeInvalidState     = 1020 // 当前聚会状态下不允许该操作
	CodeCapacity         = 1021 // 聚会人数已满
	CodeAlreadyJoined    = 1022 // 已经报名过该聚会
	CodeNotAParticipant  = 1023 // 不是该聚会的有效参与者
	CodeNotYetEnded      = 1024 // 聚会尚未结束，不能执行该操作
	CodeConflict         = 1025 // 并发冲突，可重试
	CodeDeliveryDegraded = 1026 // 实时推送通道不可用（非致命，仅降级）
)

// 预定义常用错误实例
// 这些实例既可直接返回，也可用于 errors.Is 比较
var (
	ErrInvalidParam     = New(CodeInvalidParam, "请求参数错误")
	ErrServerBusy       = New(CodeServerBusy, "服务繁忙")
	ErrPermissionDenied = New(CodePermissionDenied, "无操作权限")
	ErrCapacity         = New(CodeCapacity, "聚会人数已满")
	ErrAlreadyJoined    = New(CodeAlreadyJoined, "已报名该聚会")
	ErrNotAParticipant  = New(CodeNotAParticipant, "不是该聚会的参与者")
	ErrNotYetEnded      = New(CodeNotYetEnded, "聚会尚未结束")
	ErrConflict         = New(CodeConflict, "操作冲突，请重试")
)

// IsCode 检查错误是否携带指定业务错误码
func IsCode(err error, code int) bool {
	var codeErr *CodeError
	return errors.As(err, &codeErr) && codeErr.Code == code
}

// IsNotFound 检查错误是否为"未找到"类型（包括 gorm.ErrRecordNotFound）
func IsNotFound(err error) bool {
	if IsCode(err, CodeNotFound) {
		return true
	}
	return err != nil && err.Error() == "record not found"
}

// IsRetryable 检查错误是否为可重试的并发冲突
// 只有 Conflict 一类错误允许调用方做有界重试
func IsRetryable(err error) bool {
	return IsCode(err, CodeConflict)
}
