package service

import "errors"

// 错误分类（对应 HTTP 层的状态码映射）：
//   - ErrValidation: 调用方输入不合法，立即拒绝，不走降级
//   - ErrNotFound: 记录不存在或不属于当前用户
//   - ai.ProviderError: 永远在服务内部消化并降级，不会出现在返回值里
//
// 存储错误不在此分类内，直接向上传播，当次请求按失败处理。
var (
	ErrValidation = errors.New("输入不合法")
	ErrNotFound   = errors.New("记录不存在")
)

// IsValidation 判断是否输入错误
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound 判断是否未找到
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
