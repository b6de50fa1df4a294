package domain

// Localized strings shared by every renderer and by the controller.
const (
	// FallbackAnswer replaces an answer the endpoint omitted.
	FallbackAnswer = "抱歉，目前無法產生回應。"

	// FailureMessage is the only failure text shown to the user.
	FailureMessage = "呼叫後端失敗，請稍後再試或確認 API 網址設定。"

	LabelUser      = "面試官"
	LabelAssistant = "許皓翔"

	TypingIndicator  = "正在思考回應中…"
	EmptyHint        = "可以先問一些與工作經驗、專案或技能相關的問題。"
	InputPlaceholder = "請輸入面試問題，例如：請介紹一個你最有成就感的專案？"
	SendLabel        = "送出"
	SendingLabel     = "送出中…"

	Title    = "履歷 RAG 聊天機器人"
	Subtitle = "以你的履歷為基礎，模擬面試對話。"
)
