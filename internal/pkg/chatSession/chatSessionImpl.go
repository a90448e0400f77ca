package chatSession

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"ollama-webchat/internal/pkg/ollama"
)

const questionQueueBufferSize = 16

const noModelSelectedMessage = "No model is selected. Choose a model before sending a message."
const serverUnreachableMessage = "Unable to reach the inference server. Check that it is running and retry."
const streamTruncatedMessage = "the response stream ended before completion"

type question struct {
	message string
	images  []string
}

type chatSessionImpl struct {
	blocks        []*ChatBlock
	model         string
	streamer      ChatStreamer
	questions     chan question
	exitRequested chan struct{}
	responseFunc  ChatBlockResponseFunc
	blocksMutex   sync.RWMutex
}

// New creates a chat session that streams replies through the given transport
// and reports every history change via responseFunc.
func New(streamer ChatStreamer, selectedModel string, responseFunc ChatBlockResponseFunc) ChatSession {
	session := &chatSessionImpl{
		blocks:        []*ChatBlock{},
		model:         selectedModel,
		streamer:      streamer,
		questions:     make(chan question, questionQueueBufferSize),
		exitRequested: make(chan struct{}, 1),
		responseFunc:  responseFunc,
	}

	go session.questionsProcessingHandler()

	return session
}

func (instance *chatSessionImpl) ChatBlocks() []ChatBlock {
	instance.blocksMutex.RLock()
	defer instance.blocksMutex.RUnlock()

	blocks := make([]ChatBlock, len(instance.blocks))
	for index := range instance.blocks {
		blocks[index] = *instance.blocks[index]
	}
	return blocks
}

func (instance *chatSessionImpl) EnqueueMessage(message string, images []string) error {
	select {
	case instance.questions <- question{message: message, images: images}:
		return nil
	default:
		return errors.New("question queue is full")
	}
}

func (instance *chatSessionImpl) SelectModel(name string) {
	instance.blocksMutex.Lock()
	instance.model = name
	instance.blocksMutex.Unlock()
}

func (instance *chatSessionImpl) SelectedModel() string {
	instance.blocksMutex.RLock()
	defer instance.blocksMutex.RUnlock()

	return instance.model
}

// toApiMessages flattens the completed history into the wire format. Failed
// blocks and the still-empty assistant placeholder are skipped.
func toApiMessages(blocks []*ChatBlock) []ollama.ChatMessage {
	messages := make([]ollama.ChatMessage, 0, len(blocks)*2)
	for _, block := range blocks {
		if block.Failed {
			continue
		}

		if block.UserMessage != "" {
			messages = append(messages, ollama.UserMessage(block.UserMessage, block.UserImages))
		}

		if block.AssistantMessage != "" {
			messages = append(messages, ollama.AssistantMessage(block.AssistantMessage))
		}
	}
	return messages
}

func (instance *chatSessionImpl) askQuestion(ctx context.Context, request question) {
	model := instance.SelectedModel()
	if model == "" {
		instance.appendRejectedBlock(request)
		return
	}

	block := &ChatBlock{
		UserMessage: request.message,
		UserImages:  request.images,
	}

	instance.blocksMutex.Lock()
	instance.blocks = append(instance.blocks, block)
	history := toApiMessages(instance.blocks)
	instance.blocksMutex.Unlock()

	instance.responseFunc(ChatBlockResponse{ChatBlock: *block, New: true})

	err := instance.streamer.ChatStream(ctx, model, history, func(event ollama.ChatStreamEvent) {
		instance.blocksMutex.Lock()
		block.AssistantMessage += event.Message.Content
		if event.Done {
			block.Completed = true
		}
		snapshot := *block
		instance.blocksMutex.Unlock()

		instance.responseFunc(ChatBlockResponse{ChatBlock: snapshot, New: false})
	})

	if err != nil {
		log.Error().Err(err).Str("model", model).Msg("ollama.Client.ChatStream() failed")
		instance.failBlock(block, err)
		return
	}

	// A stream can end cleanly without ever delivering a done event. The turn
	// must still terminate so the block never lingers half-open.
	instance.blocksMutex.RLock()
	completed := block.Completed
	instance.blocksMutex.RUnlock()

	if !completed {
		log.Error().Str("model", model).Msg("chat stream ended without a terminal event")
		instance.failBlock(block, errors.New(streamTruncatedMessage))
	}
}

// appendRejectedBlock surfaces a submission that never reached the network as
// a single failed history entry.
func (instance *chatSessionImpl) appendRejectedBlock(request question) {
	block := &ChatBlock{
		UserMessage:      request.message,
		UserImages:       request.images,
		AssistantMessage: noModelSelectedMessage,
		Failed:           true,
	}

	instance.blocksMutex.Lock()
	instance.blocks = append(instance.blocks, block)
	instance.blocksMutex.Unlock()

	instance.responseFunc(ChatBlockResponse{ChatBlock: *block, New: true})
}

// failBlock records a stream failure. Text already streamed is kept; the
// error is appended as a suffix. An empty placeholder is replaced outright.
func (instance *chatSessionImpl) failBlock(block *ChatBlock, err error) {
	message := "The chat request failed: " + err.Error()
	if ollama.IsConnectionError(err) {
		message = serverUnreachableMessage
	}

	instance.blocksMutex.Lock()
	if block.AssistantMessage == "" {
		block.AssistantMessage = message
	} else {
		block.AssistantMessage += "\n\n" + message
	}
	block.Failed = true
	snapshot := *block
	instance.blocksMutex.Unlock()

	instance.responseFunc(ChatBlockResponse{ChatBlock: snapshot, New: false})
}

// questionsProcessingHandler serializes turns so at most one assistant
// placeholder is ever open.
func (instance *chatSessionImpl) questionsProcessingHandler() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		select {
		case request := <-instance.questions:
			instance.askQuestion(ctx, request)
		case <-instance.exitRequested:
			log.Info().Msg("questions processing cancelled")
			return
		}
	}
}

func (instance *chatSessionImpl) Shutdown() {
	select {
	case instance.exitRequested <- struct{}{}:
		log.Info().Msg("chatSessionImpl shutdown requested")
	default:
		log.Info().Msg("chatSessionImpl shutdown already requested")
	}
}
