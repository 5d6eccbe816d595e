package sessions

import (
	"fmt"
	"log"
	"os"

	"github.com/gorilla/websocket"

	"github.com/seblake/convo/stores"
	"github.com/seblake/convo/tools"
)

// NewSession creates a session bound to one conversation.
func NewSession(conversationID string, client StreamClient, registry *tools.Registry, store stores.MessageStore) *Session {
	logger := log.New(os.Stdout, fmt.Sprintf("[SESSION %s] ", conversationID), log.LstdFlags)

	return &Session{
		ConversationID: conversationID,
		Client:         client,
		Registry:       registry,
		Store:          store,
		Logger:         logger,
	}
}

// NewWebSocketSession creates a session whose turn events are forwarded over
// the given WebSocket connection.
func NewWebSocketSession(conversationID string, conn *websocket.Conn, client StreamClient, registry *tools.Registry, store stores.MessageStore) *WebSocketSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", conversationID), log.LstdFlags)
	writer := &WebSocketWriter{
		Conn:   conn,
		Logger: logger,
	}

	session := NewSession(conversationID, client, registry, store)
	session.Logger = logger

	return &WebSocketSession{
		Session: session,
		Writer:  writer,
		Logger:  logger,
	}
}

// NewHTTPSession creates a session whose turns are consumed over HTTP (SSE or
// request/response).
func NewHTTPSession(conversationID string, client StreamClient, registry *tools.Registry, store stores.MessageStore) *HTTPSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[HTTP %s] ", conversationID), log.LstdFlags)

	session := NewSession(conversationID, client, registry, store)
	session.Logger = logger

	return &HTTPSession{
		Session: session,
		Logger:  logger,
	}
}
