package service

import "unicode"

// countWords 统计字数
// 中日韩文字按单字计数，其余文字按空白分词、丢弃空 token。
func countWords(s string) int {
	count := 0
	inToken := false
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r):
			count++
			inToken = false
		case unicode.IsSpace(r):
			inToken = false
		default:
			if !inToken {
				count++
				inToken = true
			}
		}
	}
	return count
}

// truncateRunes 按 rune 数量截断字符串
// 正确处理 Unicode 字符，超过 max 长度时添加省略号
func truncateRunes(s string, max int) string {
	if max <= 0 || s == "" {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
