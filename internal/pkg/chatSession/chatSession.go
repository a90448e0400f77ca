package chatSession

import (
	"context"

	"ollama-webchat/internal/pkg/ollama"
)

// ChatBlock is one user turn and its assistant reply. The assistant message of
// the newest block grows append-only while a response streams; once Completed
// or Failed the block is never touched again.
type ChatBlock struct {
	UserMessage      string
	UserImages       []string
	AssistantMessage string
	Completed        bool
	Failed           bool
}

type ChatBlockResponse struct {
	ChatBlock ChatBlock
	New       bool
}

type ChatBlockResponseFunc func(response ChatBlockResponse)

// ChatStreamer is the transport dependency of a chat session.
type ChatStreamer interface {
	ChatStream(ctx context.Context, model string, messages []ollama.ChatMessage, fn ollama.ChatStreamFunc) error
}

type ChatSession interface {
	EnqueueMessage(message string, images []string) error
	SelectModel(name string)
	SelectedModel() string
	ChatBlocks() []ChatBlock
	Shutdown()
}
