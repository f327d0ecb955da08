package errorx

import (
	"fmt"

	"linmod/infra/errorx/errCode"

	"github.com/cockroachdb/errors"
)

// 带错误码的error, 底层用cockroachdb/errors捕获调用栈
type codedError struct {
	code errCode.Code
	err  error
}

func (e *codedError) Error() string {
	return fmt.Sprintf("[%s] %s", e.code, e.err.Error())
}

func (e *codedError) Unwrap() error { return e.err }

// New 构造带码错误, msg为面向调用方的描述
func New(code errCode.Code, msg string) error {
	return &codedError{code: code, err: errors.NewWithDepth(1, msg)}
}

// Wrap 保留底层错误(如gonum返回的mat.Condition), 附加错误码
func Wrap(code errCode.Code, cause error, msg string) error {
	return &codedError{code: code, err: errors.WrapWithDepth(1, cause, msg)}
}

// GetCode 取错误码, 非codedError返回0
func GetCode(err error) errCode.Code {
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 0
}

// IsCode 判断错误链上是否存在指定错误码
func IsCode(err error, code errCode.Code) bool {
	return GetCode(err) == code
}
