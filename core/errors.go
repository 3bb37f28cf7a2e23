package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）、消息（Message）和所属模块（Module）
//   - 可选包装底层错误（Err），支持 errors.Is / errors.As / errors.Unwrap
//
// 使用场景：
//   - 推荐：USER_NOT_FOUND（用户没有任何交互记录）
//   - 存储：UNAVAILABLE（底层存储读写失败，即 StorageUnavailable）
//   - 写入：INVALID_INPUT（缺少 userId / productId 等）
type DomainError struct {
	Code    string // 错误代码（如 "USER_NOT_FOUND", "UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "recommend"）
	Err     error  // 底层错误，可为 nil
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is 按 Module + Code 比较，便于 errors.Is(err, ErrUserNotFound) 这类哨兵判断。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeUserNotFound  = "USER_NOT_FOUND" // 用户没有任何交互记录
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 存储不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore     = "store"     // 存储模块
	ModuleRecommend = "recommend" // 推荐模块
	ModuleIngest    = "ingest"    // 行为写入模块
)

var (
	// ErrUserNotFound 表示用户在任何租户下都没有交互记录。
	ErrUserNotFound = NewDomainError(ModuleRecommend, ErrorCodeUserNotFound, "User not found")

	// ErrStoreNotFound 表示存储中不存在对应记录
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStorageUnavailable 是 StorageUnavailable 的哨兵，仅用于 errors.Is 比较。
	ErrStorageUnavailable = NewDomainError(ModuleStore, ErrorCodeUnavailable, "store: unavailable")
)

// NewStorageUnavailable 包装底层 I/O 错误为 StorageUnavailable。
// op 是失败的操作名，例如 "interactions.append"。
func NewStorageUnavailable(op string, err error) *DomainError {
	return &DomainError{
		Module:  ModuleStore,
		Code:    ErrorCodeUnavailable,
		Message: fmt.Sprintf("store: %s unavailable", op),
		Err:     err,
	}
}

// NewInvalidInput 创建输入校验错误
func NewInvalidInput(module, message string) *DomainError {
	return NewDomainError(module, ErrorCodeInvalidInput, message)
}

// IsUserNotFound 检查错误是否为 USER_NOT_FOUND
func IsUserNotFound(err error) bool {
	return hasCode(err, ErrorCodeUserNotFound)
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE（StorageUnavailable）
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}
