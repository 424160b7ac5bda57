package request

type OpenSessionRequest struct {
	URL string `json:"url"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}
