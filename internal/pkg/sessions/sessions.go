package sessions

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"ollama-webchat/internal/pkg/chatSession"
)

// ChatSessionFactory creates the chat session for a newly seen browser session.
type ChatSessionFactory func(responseFunc chatSession.ChatBlockResponseFunc) chatSession.ChatSession

// SessionManager owns one chat session per browser session id.
type SessionManager struct {
	mutex        sync.RWMutex
	chatSessions map[uuid.UUID]chatSession.ChatSession
	newSession   ChatSessionFactory
}

func New(factory ChatSessionFactory) *SessionManager {
	return &SessionManager{
		chatSessions: make(map[uuid.UUID]chatSession.ChatSession),
		newSession:   factory,
	}
}

func (instance *SessionManager) AddSession(id uuid.UUID, responseFunc chatSession.ChatBlockResponseFunc) error {
	instance.mutex.Lock()
	defer instance.mutex.Unlock()

	if _, ok := instance.chatSessions[id]; ok {
		return errors.New("session with such id already exists")
	}

	instance.chatSessions[id] = instance.newSession(responseFunc)

	return nil
}

func (instance *SessionManager) GetSession(id uuid.UUID) chatSession.ChatSession {
	instance.mutex.RLock()
	defer instance.mutex.RUnlock()

	return instance.chatSessions[id]
}

// SelectModel propagates a model selection change to every open session.
func (instance *SessionManager) SelectModel(name string) {
	instance.mutex.RLock()
	defer instance.mutex.RUnlock()

	for _, session := range instance.chatSessions {
		session.SelectModel(name)
	}
}

func (instance *SessionManager) Shutdown() {
	instance.mutex.RLock()
	defer instance.mutex.RUnlock()

	for _, session := range instance.chatSessions {
		session.Shutdown()
	}
}
