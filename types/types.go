package types

const (
	TypeWebsocketPing       = "ping"
	TypeWebsocketPong       = "pong"
	TypeWebsocketAsk        = "ask"
	TypeWebsocketAnswer     = "answer"
	TypeWebsocketSave       = "save"
	TypeWebsocketSaved      = "saved"
	TypeWebsocketReset      = "reset"
	TypeWebsocketLevel      = "level"
	TypeWebsocketProcessing = "processing"
	TypeWebsocketError      = "error"
)

type WebsocketRequest struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketAskPayload struct {
	Question string `json:"question"`
}

type WebSocketSavePayload struct {
	Name string `json:"name"`
}

type WebSocketLevelPayload struct {
	Level string `json:"level"`
}

type WebSocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketAnswerResponse struct {
	Answer         string         `json:"answer"`
	State          string         `json:"state"`
	Level          ExpertiseLevel `json:"expertise_level"`
	TotalTokens    int            `json:"total_tokens"`
	HistoryTrimmed bool           `json:"history_trimmed"`
	Sources        []QueryMatch   `json:"sources,omitempty"`
}

type WebSocketProcessingResponse struct {
	Message string `json:"message"`
}
