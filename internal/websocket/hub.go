package websocket

import (
	"time"

	"codeberg.org/restage/server/internal/logger"
)

func NewHub() *Hub {
	return &Hub{
		users:         make(map[string]map[string]*Client),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		Inbound:       make(chan *Message, 256),
		shutdown:      make(chan struct{}),
		ipConnections: make(map[string]int),
		userSequences: make(map[string]uint64),
	}
}

// starts the hub's main loop
func (h *Hub) Run() {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
	}()

	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case message := <-h.Inbound:
			h.handleMessage(message)

		case <-h.shutdown:
			h.closeAllConnections()
			return
		}
	}
}

// adds a client to the hub and greets it
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[client.UserID] == nil {
		h.users[client.UserID] = make(map[string]*Client)
	}

	h.users[client.UserID][client.ID] = client

	if client.IPAddress != "" {
		h.ipConnections[client.IPAddress]++
	}

	logger.Info("client registered",
		"client_id", client.ID,
		"user_id", client.UserID,
	)

	connectedMsg, err := NewMessage(TypeConnected, client.UserID, ConnectedPayload{ClientID: client.ID})
	if err == nil {
		if sendErr := client.Send(connectedMsg); sendErr != nil {
			logger.ErrorErr(sendErr, "failed to send connected message", "client_id", client.ID)
		}
	}
}

// removes a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, exists := h.users[client.UserID]
	if !exists {
		return
	}

	if _, exists := userClients[client.ID]; !exists {
		return
	}

	delete(userClients, client.ID)
	client.Close()

	if client.IPAddress != "" {
		h.ipConnections[client.IPAddress]--

		if h.ipConnections[client.IPAddress] <= 0 {
			delete(h.ipConnections, client.IPAddress)
		}
	}

	if len(userClients) == 0 {
		delete(h.users, client.UserID)
		delete(h.userSequences, client.UserID)
	}

	logger.Info("client unregistered",
		"client_id", client.ID,
		"user_id", client.UserID,
	)
}

// answers client messages; clients only ever send pings
func (h *Hub) handleMessage(msg *Message) {
	h.mu.RLock()
	sender, exists := h.users[msg.UserID][msg.ClientID]
	h.mu.RUnlock()

	if !exists {
		logger.Warn("sender client not found for message",
			"client_id", msg.ClientID,
			"message_type", msg.Type,
		)
		return
	}

	switch msg.Type {
	case TypePing:
		pong, err := NewMessage(TypePong, msg.UserID, nil)
		if err == nil {
			sender.Send(pong) //nolint:errcheck,gosec // best effort
		}

	default:
		logger.Warn("unhandled message type received",
			"message_type", msg.Type,
			"client_id", sender.ID,
		)

		sender.SendError("bad_request", "unsupported message type", "message type not recognized")
	}
}

// delivers a message to every connection of a user; users without connections are skipped
func (h *Hub) SendToUser(userID, messageType string, payload any) {
	msg, err := NewMessage(messageType, userID, payload)
	if err != nil {
		logger.ErrorErr(err, "failed to create message", "message_type", messageType, "user_id", userID)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, exists := h.users[userID]
	if !exists {
		return
	}

	// assign sequence number to message
	h.userSequences[userID]++
	msg.Sequence = h.userSequences[userID]

	for clientID, client := range userClients {
		if err := client.Send(msg); err != nil {
			logger.ErrorErr(err, "failed to send message to client",
				"client_id", clientID,
				"user_id", userID,
			)
		}
	}
}

// returns the number of live connections of a user
func (h *Hub) GetClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.users[userID])
}

// checks if a new connection should be allowed based on limits
func (h *Hub) CanAcceptConnection(userID, ipAddress string) (bool, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.users[userID]) >= maxConnectionsPerUser {
		return false, "maximum connections per user exceeded"
	}

	if h.ipConnections[ipAddress] >= maxConnectionsPerIP {
		return false, "maximum connections per IP address exceeded"
	}

	return true, ""
}

func (h *Hub) Shutdown() {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()

	if running {
		close(h.shutdown)
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()

	logger.Info("notifying clients of server shutdown")

	for userID, userClients := range h.users {
		shutdownMsg, err := NewMessage(TypeServerShutdown, userID, ServerShutdownPayload{
			Reason: "server is shutting down for maintenance",
		})
		if err != nil {
			logger.ErrorErr(err, "failed to create shutdown message")
			continue
		}

		for _, client := range userClients {
			if err := client.Send(shutdownMsg); err != nil {
				logger.ErrorErr(err, "failed to send shutdown notification",
					"client_id", client.ID,
					"user_id", userID,
				)
			}
		}
	}

	h.mu.Unlock()

	// give clients time to receive the shutdown message
	time.Sleep(500 * time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("closing all websocket connections")

	for _, userClients := range h.users {
		for _, client := range userClients {
			client.Close()
		}
	}

	h.users = make(map[string]map[string]*Client)
	h.ipConnections = make(map[string]int)
	h.userSequences = make(map[string]uint64)
}
