package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// EntryAnalyzer 日记条目分析器
// 四个操作共用同一套流程：构造要求纯 JSON 输出的指令 → 调用模型 →
// cleanJSONResponse 做一次格式归一化 → 反序列化 → 校验/裁剪字段。
// 任何一步失败都返回 *ProviderError，由调用方决定降级。
type EntryAnalyzer struct {
	client *DeepSeekClient
}

// NewEntryAnalyzer 创建分析器
func NewEntryAnalyzer(client *DeepSeekClient) *EntryAnalyzer {
	return &EntryAnalyzer{client: client}
}

// SentimentLabels 情感极性标签
var SentimentLabels = []string{"positive", "negative", "neutral"}

// MoodTags 情绪标签词表
var MoodTags = []string{"happy", "sad", "anxious", "calm", "content", "stressed", "excited", "neutral"}

// PromptTypes 引导问题类型
var PromptTypes = []string{"reflection", "gratitude", "goal-setting", "emotional-check"}

// SentimentResult 情感分析结果
type SentimentResult struct {
	Score      float64 `json:"score"`      // [-1, 1]
	Confidence float64 `json:"confidence"` // [0, 1]
	Label      string  `json:"label"`      // positive | negative | neutral
	Mood       string  `json:"mood"`       // 见 MoodTags
	Degraded   bool    `json:"-"`          // true 表示结果来自降级路径
}

// PromptRequest 引导问题生成请求
type PromptRequest struct {
	RecentSnippets []string // 最近条目的摘录
	Themes         []string // 近期主题
	CurrentMood    string   // 最近一条的情绪
	Memories       []string // 来自长期记忆的相关片段（可为空）
}

// PromptResult 引导问题生成结果
type PromptResult struct {
	Prompt   string `json:"prompt"`  // 简短的对话式问题
	Context  string `json:"context"` // 一句话来源说明
	Type     string `json:"type"`    // 见 PromptTypes
	Degraded bool   `json:"-"`
}

// WeekEntry 周洞察的条目摘要输入
type WeekEntry struct {
	Date      string // YYYY-MM-DD
	Mood      string
	WordCount int
	Excerpt   string
}

// WeeklyInsightRequest 周洞察生成请求
type WeeklyInsightRequest struct {
	WeekStart string
	WeekEnd   string
	Entries   []WeekEntry
	Themes    []string
}

// WeeklyInsightResult 周洞察生成结果
type WeeklyInsightResult struct {
	Summary         string   `json:"summary"`
	KeyThemes       []string `json:"key_themes"`
	Patterns        string   `json:"patterns"`
	Recommendations string   `json:"recommendations"`
	Degraded        bool     `json:"-"`
}

// AnalyzeSentiment 分析单条内容的情感
// 数值越界时裁剪进范围而不是判为失败；枚举字段越界视为形状不符。
func (a *EntryAnalyzer) AnalyzeSentiment(ctx context.Context, text string) (*SentimentResult, error) {
	const op = "sentiment"

	if !a.client.IsConfigured() {
		return nil, &ProviderError{Op: op, Err: fmt.Errorf("DeepSeek API 未配置")}
	}

	// 限制输入长度，控制 token 消耗
	text = truncateForPrompt(text, 3000)

	prompt := fmt.Sprintf(`分析以下日记内容的情感倾向。

日记内容:
%s

请用 JSON 格式返回（不要 markdown 代码块）:
{
  "score": 0.3,
  "confidence": 0.8,
  "label": "positive",
  "mood": "content"
}

字段规则：
1. score 取值 [-1, 1]，负面为负、正面为正
2. confidence 取值 [0, 1]
3. label 只能是: positive/negative/neutral
4. mood 只能是: %s`, text, strings.Join(MoodTags, "/"))

	messages := []Message{
		{Role: "system", Content: "你是一个情绪日记分析助手，擅长从文字中识别情感和情绪。回复必须是纯 JSON，不要 markdown。"},
		{Role: "user", Content: prompt},
	}

	response, err := a.client.ChatWithOptions(ctx, messages, 0.2, 200)
	if err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}

	var result SentimentResult
	if err := decodeModelJSON(response, &result); err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}

	result.Score = clamp(result.Score, -1, 1)
	result.Confidence = clamp(result.Confidence, 0, 1)
	result.Label = strings.ToLower(strings.TrimSpace(result.Label))
	result.Mood = strings.ToLower(strings.TrimSpace(result.Mood))

	if !contains(SentimentLabels, result.Label) {
		return nil, &ProviderError{Op: op, Err: fmt.Errorf("非法 label: %q", result.Label)}
	}
	if !contains(MoodTags, result.Mood) {
		return nil, &ProviderError{Op: op, Err: fmt.Errorf("非法 mood: %q", result.Mood)}
	}

	return &result, nil
}

// ExtractThemes 从最近条目中提取 3-5 个主题
// 输入为空时直接返回空列表，不调用模型。
func (a *EntryAnalyzer) ExtractThemes(ctx context.Context, contents []string) ([]string, error) {
	const op = "themes"

	if len(contents) == 0 {
		return []string{}, nil
	}
	if !a.client.IsConfigured() {
		return nil, &ProviderError{Op: op, Err: fmt.Errorf("DeepSeek API 未配置")}
	}

	// 最多取 10 条最近内容
	if len(contents) > 10 {
		contents = contents[:10]
	}

	var b strings.Builder
	for i, c := range contents {
		b.WriteString(fmt.Sprintf("【%d】%s\n", i+1, truncateForPrompt(c, 500)))
	}

	prompt := fmt.Sprintf(`从以下日记内容中归纳反复出现的主题。

日记内容:
%s

请用 JSON 格式返回（不要 markdown 代码块）:
{
  "themes": ["工作", "人际关系", "睡眠"]
}

主题规则：
1. 3-5 个主题，按出现频率排序
2. 必须是宽泛的类别词（如 工作/家庭/健康），不要摘抄原文
3. 每个主题不超过 6 个字`, b.String())

	messages := []Message{
		{Role: "system", Content: "你是一个情绪日记分析助手，擅长归纳文字中的主题。回复必须是纯 JSON。"},
		{Role: "user", Content: prompt},
	}

	response, err := a.client.ChatWithOptions(ctx, messages, 0.3, 200)
	if err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}

	var result struct {
		Themes []string `json:"themes"`
	}
	if err := decodeModelJSON(response, &result); err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}

	themes := make([]string, 0, 5)
	for _, t := range result.Themes {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		themes = append(themes, t)
		if len(themes) == 5 {
			break
		}
	}
	// 约定输出 3-5 个主题，少于 3 个视为形状不符
	if len(themes) < 3 {
		return nil, &ProviderError{Op: op, Err: fmt.Errorf("主题数量不足: %d", len(themes))}
	}

	return themes, nil
}

// GeneratePrompt 生成写作引导问题
func (a *EntryAnalyzer) GeneratePrompt(ctx context.Context, req *PromptRequest) (*PromptResult, error) {
	const op = "prompt"

	if !a.client.IsConfigured() {
		return nil, &ProviderError{Op: op, Err: fmt.Errorf("DeepSeek API 未配置")}
	}

	var b strings.Builder
	b.WriteString("请为用户生成一个今天的写作引导问题。\n\n")

	if req.CurrentMood != "" {
		b.WriteString(fmt.Sprintf("用户最近的情绪: %s\n", req.CurrentMood))
	}
	if len(req.Themes) > 0 {
		b.WriteString(fmt.Sprintf("近期主题: %s\n", strings.Join(req.Themes, "、")))
	}
	if len(req.RecentSnippets) > 0 {
		b.WriteString("\n最近写过的内容摘录:\n")
		for _, s := range req.RecentSnippets {
			b.WriteString("- " + truncateForPrompt(s, 120) + "\n")
		}
	}
	if len(req.Memories) > 0 {
		b.WriteString("\n相关历史记忆（可参考，不要编造）:\n")
		for _, m := range req.Memories {
			b.WriteString("- " + truncateForPrompt(m, 120) + "\n")
		}
	}

	b.WriteString(`
请用 JSON 格式返回（不要 markdown 代码块）:
{
  "prompt": "一个简短的、对话式的问题（不超过 50 字）",
  "context": "一句话说明为什么问这个问题",
  "type": "reflection"
}
type 只能是: reflection/gratitude/goal-setting/emotional-check`)

	instruction := b.String()

	messages := []Message{
		{Role: "system", Content: "你是一个温和的日记写作引导者。问题要具体、开放、不评判。回复必须是纯 JSON。"},
		{Role: "user", Content: instruction},
	}

	response, err := a.client.ChatWithOptions(ctx, messages, 0.7, 300)
	if err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}

	var result PromptResult
	if err := decodeModelJSON(response, &result); err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}

	result.Prompt = strings.TrimSpace(result.Prompt)
	result.Context = strings.TrimSpace(result.Context)
	result.Type = strings.ToLower(strings.TrimSpace(result.Type))

	if result.Prompt == "" {
		return nil, &ProviderError{Op: op, Err: fmt.Errorf("prompt 为空")}
	}
	// 防止模型把指令原样吐回来
	if strings.Contains(result.Prompt, "JSON") || strings.Contains(instruction, result.Prompt) {
		return nil, &ProviderError{Op: op, Err: fmt.Errorf("prompt 疑似回显指令")}
	}
	if !contains(PromptTypes, result.Type) {
		return nil, &ProviderError{Op: op, Err: fmt.Errorf("非法 type: %q", result.Type)}
	}

	return &result, nil
}

// GenerateWeeklyInsight 生成周洞察叙述
// 空条目列表直接返回固定结果，不调用模型。
func (a *EntryAnalyzer) GenerateWeeklyInsight(ctx context.Context, req *WeeklyInsightRequest) (*WeeklyInsightResult, error) {
	const op = "weekly_insight"

	if len(req.Entries) == 0 {
		return &WeeklyInsightResult{
			Summary:         "本周还没有完成的日记。",
			KeyThemes:       []string{},
			Patterns:        "暂无足够数据。",
			Recommendations: "写下第一篇，先从今天的一件小事开始。",
		}, nil
	}
	if !a.client.IsConfigured() {
		return nil, &ProviderError{Op: op, Err: fmt.Errorf("DeepSeek API 未配置")}
	}

	var entriesSummary strings.Builder
	entries := req.Entries
	// 控制 prompt 规模：最多展开 20 条
	if len(entries) > 20 {
		entries = entries[:20]
	}
	for _, e := range entries {
		mood := e.Mood
		if mood == "" {
			mood = "未标注"
		}
		entriesSummary.WriteString(fmt.Sprintf("【%s】情绪: %s，%d 字。摘录: %s\n",
			e.Date, mood, e.WordCount, truncateForPrompt(e.Excerpt, 150)))
	}

	prompt := fmt.Sprintf(`请分析以下一周的日记记录，生成本周情绪洞察。

时间范围: %s 至 %s
近期主题: %s

每日记录:
%s

请用 JSON 格式返回（不要 markdown 代码块）:
{
  "summary": "本周整体概述（3-6 句，引用具体的日子和情绪变化，避免套话）",
  "key_themes": ["本周主要主题（2-5 个）"],
  "patterns": "情绪模式分析（哪些事反复影响情绪、什么时段状态更好）",
  "recommendations": "下周建议（2-4 条可执行的小动作，用换行分隔）"
}`, req.WeekStart, req.WeekEnd, strings.Join(req.Themes, "、"), entriesSummary.String())

	messages := []Message{
		{Role: "system", Content: "你是一个情绪日记分析助手，帮助用户回顾一周的情绪和生活，提供温和且有建设性的反馈。回复必须是纯 JSON。"},
		{Role: "user", Content: prompt},
	}

	response, err := a.client.ChatWithRetry(ctx, messages, 2)
	if err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}

	var result WeeklyInsightResult
	if err := decodeModelJSON(response, &result); err != nil {
		return nil, &ProviderError{Op: op, Err: err}
	}
	if strings.TrimSpace(result.Summary) == "" {
		return nil, &ProviderError{Op: op, Err: fmt.Errorf("summary 为空")}
	}
	if len(result.KeyThemes) > 5 {
		result.KeyThemes = result.KeyThemes[:5]
	}

	return &result, nil
}

// decodeModelJSON 从模型原始输出中提取结构化负载
// 只做一次归一化（剥掉代码块标记和前后缀文字），仍不合形状则显式失败。
func decodeModelJSON(response string, v any) error {
	cleaned := cleanJSONResponse(response)
	if cleaned == "" {
		return fmt.Errorf("响应为空")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("解析 JSON 失败: %w", err)
	}
	return nil
}

// cleanJSONResponse 清理 JSON 响应（移除 markdown 代码块和额外文本）
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	// 移除 ```json ... ``` 或 ``` ... ```
	if strings.Contains(response, "```") {
		jsonStart := strings.Index(response, "```json")
		if jsonStart == -1 {
			jsonStart = strings.Index(response, "```")
		}
		if jsonStart != -1 {
			startIdx := strings.Index(response[jsonStart:], "\n")
			if startIdx != -1 {
				response = response[jsonStart+startIdx+1:]
			}
		}
		if endIdx := strings.LastIndex(response, "```"); endIdx != -1 {
			response = response[:endIdx]
		}
	}

	response = strings.TrimSpace(response)

	// 提取 JSON 对象（处理模型添加的前缀/后缀文字）
	if !strings.HasPrefix(response, "{") {
		if idx := strings.Index(response, "{"); idx != -1 {
			response = response[idx:]
		}
	}
	if !strings.HasSuffix(response, "}") {
		if idx := strings.LastIndex(response, "}"); idx != -1 {
			response = response[:idx+1]
		}
	}

	return strings.TrimSpace(response)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// truncateForPrompt 按字节截断（与模型 token 预算对齐即可，不求精确）
func truncateForPrompt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// 避免截断半个多字节字符
	runes := []rune(s)
	for len(string(runes)) > max && len(runes) > 0 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
