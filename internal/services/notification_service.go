package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Client represents a websocket client connection
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// ID returns the connection id assigned on registration
func (c *Client) ID() string {
	return c.id
}

// NotificationService pushes outage lifecycle events to websocket clients
type NotificationService struct {
	logger     *utils.Logger
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	count      int
	mutex      sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once
}

// NewNotificationService creates a notification hub and starts its loop
func NewNotificationService(logger *utils.Logger) *NotificationService {
	service := &NotificationService{
		logger:     logger.Named("notification_service"),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}

	go service.run()
	return service
}

// RegisterClient adds a websocket connection to the hub and starts its pumps
func (s *NotificationService) RegisterClient(conn *websocket.Conn) *Client {
	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return client
	}

	go s.readPump(client)
	go s.writePump(client)

	return client
}

// PublishOutageEvent implements EventPublisher by broadcasting the event to every client
func (s *NotificationService) PublishOutageEvent(_ context.Context, event OutageEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal outage event",
			zap.Error(err),
			zap.String("type", string(event.Type)))
		return
	}

	select {
	case s.broadcast <- message:
	case <-s.done:
	default:
		s.logger.Warn("Notification queue full, event dropped",
			zap.String("type", string(event.Type)),
			zap.String("outage_id", event.Outage.ID))
	}
}

// ClientCount returns the number of connected clients
func (s *NotificationService) ClientCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.count
}

// Stop disconnects every client and stops the hub
func (s *NotificationService) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// run owns the client set; only this goroutine touches it
func (s *NotificationService) run() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = true
			s.setCount()
			s.logger.Debug("Client registered", zap.String("client_id", client.id))

		case client := <-s.unregister:
			s.remove(client)

		case message := <-s.broadcast:
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					s.logger.Warn("Client buffer full, connection closed", zap.String("client_id", client.id))
					s.remove(client)
				}
			}

		case <-s.done:
			for client := range s.clients {
				s.remove(client)
			}
			return
		}
	}
}

func (s *NotificationService) remove(client *Client) {
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.send)
	s.setCount()
	s.logger.Debug("Client unregistered", zap.String("client_id", client.id))
}

func (s *NotificationService) setCount() {
	s.mutex.Lock()
	s.count = len(s.clients)
	s.mutex.Unlock()
}

// readPump drains client frames so control messages are processed; the stream is push-only
func (s *NotificationService) readPump(client *Client) {
	defer func() {
		select {
		case s.unregister <- client:
		case <-s.done:
		}
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("Unexpected websocket close",
					zap.Error(err),
					zap.String("client_id", client.id))
			}
			return
		}
	}
}

// writePump writes queued events and keepalive pings to the client
func (s *NotificationService) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
