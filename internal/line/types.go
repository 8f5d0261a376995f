package line

// TextMessage is a plain text reply/push payload, optionally carrying quick
// reply shortcuts.
type TextMessage struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	QuickReply *QuickReply `json:"quickReply,omitempty"`
}

func NewTextMessage(text string) TextMessage {
	return TextMessage{Type: "text", Text: text}
}

// ImageMessage delivers an image by URL.
type ImageMessage struct {
	Type               string `json:"type"`
	OriginalContentURL string `json:"originalContentUrl"`
	PreviewImageURL    string `json:"previewImageUrl"`
}

func NewImageMessage(url string) ImageMessage {
	return ImageMessage{Type: "image", OriginalContentURL: url, PreviewImageURL: url}
}

type QuickReply struct {
	Items []QuickReplyItem `json:"items"`
}

type QuickReplyItem struct {
	Type   string        `json:"type"`
	Action MessageAction `json:"action"`
}

type MessageAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

func NewQuickReplyItem(label, text string) QuickReplyItem {
	return QuickReplyItem{
		Type:   "action",
		Action: MessageAction{Type: "message", Label: label, Text: text},
	}
}
