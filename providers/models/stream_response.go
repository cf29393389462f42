package models

// StreamResponse is one chunk of a streamed completion. Exactly one of
// Content, Err or Done is meaningful per chunk.
type StreamResponse struct {
	Content string
	Err     error
	Done    bool
}

// AIError is the error envelope returned by OpenAI-compatible APIs.
type AIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
