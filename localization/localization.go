// Package localization holds the static text tables the workflow
// engine renders user-facing strings from: progress messages, chitchat
// greetings, source-citation headers, and the error fallback message.
// Every table is keyed by the lowercased language name reflection
// detects; a missing entry falls back to English (§9 "Locale text").
package localization

import "strings"

// Lang normalizes a detected_language value to the table's key space.
func Lang(detectedLanguage string) string {
	l := strings.ToLower(strings.TrimSpace(detectedLanguage))
	if _, ok := errorFallback[l]; ok {
		return l
	}
	return "english"
}

type errorMessage struct {
	Base        string
	Suggestions []string
}

var errorFallback = map[string]errorMessage{
	"vietnamese": {
		Base: "Xin lỗi, tôi đang gặp một chút khó khăn kỹ thuật và không thể xử lý yêu cầu của bạn lúc này.",
		Suggestions: []string{
			"Vui lòng thử lại sau vài phút.",
			"Bạn có thể thử diễn đạt câu hỏi theo cách khác.",
			"Nếu vấn đề vẫn tiếp tục, vui lòng liên hệ bộ phận hỗ trợ.",
		},
	},
	"english": {
		Base: "I'm sorry, I'm experiencing some technical difficulties and cannot process your request at the moment.",
		Suggestions: []string{
			"Please try again in a few minutes.",
			"You might try rephrasing your question.",
			"If the problem persists, please contact support.",
		},
	},
	"japanese": {
		Base: "申し訳ございませんが、技術的な問題が発生しており、現在お客様のリクエストを処理できません。",
		Suggestions: []string{
			"数分後に再度お試しください。",
			"質問を別の方法で表現してみてください。",
			"問題が続く場合は、サポートにお問い合わせください。",
		},
	},
	"korean": {
		Base: "죄송합니다. 기술적인 문제가 발생하여 현재 요청을 처리할 수 없습니다.",
		Suggestions: []string{
			"몇 분 후에 다시 시도해 주세요.",
			"질문을 다르게 표현해 보세요.",
			"문제가 지속되면 지원팀에 문의해 주세요.",
		},
	},
	"chinese": {
		Base: "抱歉，我遇到了一些技术问题，目前无法处理您的请求。",
		Suggestions: []string{
			"请几分钟后再试。",
			"您可以尝试换个方式表达您的问题。",
			"如果问题持续存在，请联系支持团队。",
		},
	},
}

// ErrorFallback renders the base-apology-plus-three-suggestions
// message for detectedLanguage, joined the way the error node emits it.
func ErrorFallback(detectedLanguage string) string {
	msg := errorFallback[Lang(detectedLanguage)]
	parts := append([]string{msg.Base}, msg.Suggestions...)
	return strings.Join(parts, "\n\n")
}

var chitchatGreeting = map[string]string{
	"vietnamese": "Xin chào! Tôi có thể giúp gì cho bạn hôm nay?",
	"english":    "Hello! How can I help you today?",
	"japanese":   "こんにちは！今日はどのようにお手伝いできますか？",
	"korean":     "안녕하세요! 오늘 무엇을 도와드릴까요?",
	"chinese":    "你好！今天我能为您做些什么？",
}

// ChitchatGreeting renders the no-LLM-call greeting for detectedLanguage.
func ChitchatGreeting(detectedLanguage string) string {
	return chitchatGreeting[Lang(detectedLanguage)]
}

var sourcesHeader = map[string]string{
	"vietnamese": "Nguồn tham khảo:",
	"english":    "Sources:",
	"japanese":   "出典:",
	"korean":     "출처:",
	"chinese":    "来源:",
}

// SourcesHeader renders the citation-list header for detectedLanguage.
func SourcesHeader(detectedLanguage string) string {
	return sourcesHeader[Lang(detectedLanguage)]
}

var partialResultsFooter = map[string]string{
	"vietnamese": "(Kết quả có thể chưa đầy đủ do một số tác vụ không thành công.)",
	"english":    "(Results may be incomplete due to one or more failed tasks.)",
	"japanese":   "（一部のタスクが失敗したため、結果が不完全な可能性があります。）",
	"korean":     "(일부 작업이 실패하여 결과가 불완전할 수 있습니다.)",
	"chinese":    "（由于部分任务失败，结果可能不完整。）",
}

// PartialResultsFooter renders the error node's fallback footer when
// the partial-results LLM call itself fails.
func PartialResultsFooter(detectedLanguage string) string {
	return partialResultsFooter[Lang(detectedLanguage)]
}

var progressMessages = map[string]map[string]string{
	"reflection_started": {
		"english":    "Analyzing your request...",
		"vietnamese": "Đang phân tích yêu cầu của bạn...",
		"japanese":   "リクエストを分析しています...",
		"korean":     "요청을 분석하는 중입니다...",
		"chinese":    "正在分析您的请求...",
	},
	"chitchat_detected": {
		"english":    "Got it — just chatting.",
		"vietnamese": "Đã hiểu — chỉ là trò chuyện thông thường.",
		"japanese":   "了解しました — 雑談ですね。",
		"korean":     "알겠습니다 — 가벼운 대화네요.",
		"chinese":    "明白了——只是闲聊。",
	},
	"plan_ready": {
		"english":    "Plan ready, starting work...",
		"vietnamese": "Kế hoạch đã sẵn sàng, bắt đầu thực hiện...",
		"japanese":   "計画の準備ができました。作業を開始します...",
		"korean":     "계획이 준비되었습니다. 작업을 시작합니다...",
		"chinese":    "计划已就绪，开始执行...",
	},
	"executing_agents": {
		"english":    "Running agents...",
		"vietnamese": "Đang chạy các tác nhân...",
		"japanese":   "エージェントを実行しています...",
		"korean":     "에이전트를 실행 중입니다...",
		"chinese":    "正在运行代理...",
	},
	"conflict_resolution_needed": {
		"english":    "Reconciling multiple answers...",
		"vietnamese": "Đang tổng hợp nhiều câu trả lời...",
		"japanese":   "複数の回答を調整しています...",
		"korean":     "여러 답변을 조정하는 중입니다...",
		"chinese":    "正在协调多个答案...",
	},
	"completed": {
		"english":    "Done.",
		"vietnamese": "Hoàn tất.",
		"japanese":   "完了しました。",
		"korean":     "완료되었습니다.",
		"chinese":    "已完成。",
	},
	"task_recovered": {
		"english":    "Recovered after a retry.",
		"vietnamese": "Đã khôi phục sau khi thử lại.",
		"japanese":   "リトライ後に回復しました。",
		"korean":     "재시도 후 복구되었습니다.",
		"chinese":    "重试后已恢复。",
	},
	"error_completion": {
		"english":    "Something went wrong while processing your request.",
		"vietnamese": "Đã xảy ra lỗi khi xử lý yêu cầu của bạn.",
		"japanese":   "リクエストの処理中に問題が発生しました。",
		"korean":     "요청을 처리하는 중 문제가 발생했습니다.",
		"chinese":    "处理您的请求时出现问题。",
	},
}

// ProgressMessage renders the localized progress text for a named
// workflow stage; an unknown stage name returns an empty string.
func ProgressMessage(stage, detectedLanguage string) string {
	table, ok := progressMessages[stage]
	if !ok {
		return ""
	}
	if msg, ok := table[Lang(detectedLanguage)]; ok {
		return msg
	}
	return table["english"]
}
