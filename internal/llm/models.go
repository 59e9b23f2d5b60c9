package llm

import "time"

// Request is a single chat completion with one system and one user message.
// Zero fields are filled from the client Config.
type Request struct {
	SystemPrompt string
	Prompt       string
	Model        string
	Temperature  *float64
	MaxTokens    int
	Timeout      time.Duration
}

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type Response struct {
	Text     string
	Model    string
	Attempts int
	Usage    Usage
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 {
	return &v
}
