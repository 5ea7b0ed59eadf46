package ai

import (
	"errors"
	"fmt"
)

// ProviderError 外部模型调用失败
// 覆盖三类情况：传输错误/超时、非 2xx 响应、返回文本无法解析为约定的 JSON 形状。
// 调用方捕获后必须走降级路径，不允许把它暴露给最终用户。
type ProviderError struct {
	Op  string // 操作名: sentiment / themes / prompt / weekly_insight
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("模型调用失败 [%s]: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError 判断错误链上是否有 ProviderError
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
