package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 参数不合法，状态未改变
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState 当前阶段不允许该操作
	ErrInvalidState = errors.New("invalid state")
	// ErrConfirmationRequired 破坏性操作需要调用方确认
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrNotFound 创作不存在
	ErrNotFound = errors.New("generation not found")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func invalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
