package ollama

import "time"

// ChatMessage is a single entry of the conversation history sent to /api/chat.
// Images carries base64-encoded attachments and is only set on user messages.
type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

func UserMessage(content string, images []string) ChatMessage {
	return ChatMessage{Role: "user", Content: content, Images: images}
}

func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// ChatRequest is the request body for the /api/chat endpoint.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ChatStreamEvent is one newline-delimited record of a streaming chat response.
// Message.Content is a delta to append, not a replacement. Done marks the
// terminal record of the turn.
type ChatStreamEvent struct {
	Model     string      `json:"model"`
	CreatedAt time.Time   `json:"created_at"`
	Message   ChatMessage `json:"message"`
	Done      bool        `json:"done"`
	Error     string      `json:"error,omitempty"`
}

// PullRequest is the request body for the /api/pull endpoint.
type PullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// PullProgressEvent is one record of a streaming model pull. Total and
// Completed are byte counts and are only meaningful when Total > 0.
type PullProgressEvent struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ModelSummary describes one locally available model as reported by /api/tags.
type ModelSummary struct {
	Name       string       `json:"name"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails is the nested details object shared by /api/tags and /api/show.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

type listModelsResponse struct {
	Models []ModelSummary `json:"models"`
}

type showModelRequest struct {
	Name string `json:"name"`
}

// ModelDetail is the response of /api/show for a single model.
type ModelDetail struct {
	License    string       `json:"license"`
	Modelfile  string       `json:"modelfile"`
	Parameters string       `json:"parameters"`
	Template   string       `json:"template"`
	Details    ModelDetails `json:"details"`
}

type serverError struct {
	Error string `json:"error"`
}
