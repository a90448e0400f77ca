package websocketServer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ollama-webchat/internal/pkg/cookies"
)

const subscriberMessageBufferSize = 16
const writeTimeoutDuration = 5 * time.Second

type websocketServerImpl struct {
	mutex sync.Mutex
	// Subscribers are keyed by the owning browser session so a publish only
	// touches connections of that session.
	subscribers map[uuid.UUID]map[*serverSubscriber]struct{}
}

func New() WebsocketServer {
	return &websocketServerImpl{
		subscribers: make(map[uuid.UUID]map[*serverSubscriber]struct{}),
	}
}

type serverSubscriber struct {
	messageChannel chan []byte
	closeSlow      func()
}

func (instance *websocketServerImpl) Handler(responseWriter http.ResponseWriter, request *http.Request) {
	id := cookies.GetIdFromCookie(request)
	if id == uuid.Nil {
		http.Error(responseWriter, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := instance.subscribe(responseWriter, request, id)
	if errors.Is(err, context.Canceled) {
		return
	}

	if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return
	}

	if err != nil {
		log.Error().Err(err).Msg("subscribe() failed")
	}
}

func (instance *websocketServerImpl) subscribe(responseWriter http.ResponseWriter, request *http.Request, id uuid.UUID) error {
	websocketConnection, err := websocket.Accept(responseWriter, request, nil)
	if err != nil {
		// Accept will write a response to responseWriter on all errors
		log.Error().Err(err).Msg("websocket.Accept() failed")
		return err
	}

	defer func() {
		if err := websocketConnection.CloseNow(); err != nil {
			log.Error().Err(err).Msg("websocket.Conn.CloseNow() failed")
		}
	}()

	subscriber := &serverSubscriber{
		messageChannel: make(chan []byte, subscriberMessageBufferSize),
		closeSlow: func() {
			err := websocketConnection.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with messages")
			if err != nil {
				log.Error().Err(err).Msg("websocket.Conn.Close() failed")
			}
		},
	}

	instance.addSubscriber(id, subscriber)
	defer instance.deleteSubscriber(id, subscriber)

	ctx := websocketConnection.CloseRead(context.Background())

	for {
		select {
		case message := <-subscriber.messageChannel:
			if err := writeTimeout(ctx, writeTimeoutDuration, websocketConnection, message); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (instance *websocketServerImpl) Publish(id uuid.UUID, message []byte) {
	instance.mutex.Lock()
	defer instance.mutex.Unlock()

	for subscriber := range instance.subscribers[id] {
		select {
		case subscriber.messageChannel <- message:
		default:
			go subscriber.closeSlow()
		}
	}
}

func (instance *websocketServerImpl) addSubscriber(id uuid.UUID, subscriber *serverSubscriber) {
	instance.mutex.Lock()
	defer instance.mutex.Unlock()

	if instance.subscribers[id] == nil {
		instance.subscribers[id] = make(map[*serverSubscriber]struct{})
	}
	instance.subscribers[id][subscriber] = struct{}{}
}

func (instance *websocketServerImpl) deleteSubscriber(id uuid.UUID, subscriber *serverSubscriber) {
	instance.mutex.Lock()
	defer instance.mutex.Unlock()

	delete(instance.subscribers[id], subscriber)
	if len(instance.subscribers[id]) == 0 {
		delete(instance.subscribers, id)
	}
}

func writeTimeout(ctx context.Context, timeout time.Duration, websocketConnection *websocket.Conn, message []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := websocketConnection.Write(writeCtx, websocket.MessageText, message)
	if err != nil {
		log.Error().Err(err).Msg("websocket.Conn.Write() failed")
		return err
	}

	return nil
}
