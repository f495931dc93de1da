// Package realtime рассылает новые сообщения доски подключенным
// WebSocket-клиентам.
package realtime

import (
	// Стандартные библиотеки
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	// Внутренние пакеты
	"fileboard/internal/logging"
	"fileboard/internal/models"

	// Сторонние библиотеки
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// sendBuffer - сколько сообщений ждут записи у одного клиента.
	// Клиент с переполненной очередью отключается.
	sendBuffer = 16
)

// client - одно соединение ленты. Пишет в conn только writeLoop.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Hub хранит подключенных клиентов и рассылает им сообщения.
// Реализует services.Publisher.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      logging.Logger
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// Clients возвращает число подключенных клиентов.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve переводит запрос в WebSocket и держит соединение до отключения клиента.
// Клиент ничего не присылает; входящие кадры читаются только ради close/ping.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже записал ответ с ошибкой.
		h.log.Warn(r.Context(), "не удалось установить WebSocket-соединение", "error", err)
		return
	}

	c := h.add(conn)
	h.log.Debug(r.Context(), "клиент ленты подключен", "remote", r.RemoteAddr)
	go h.writeLoop(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *Hub) add(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// writeLoop пишет очередь клиента в соединение до его удаления.
func (h *Hub) writeLoop(c *client) {
	ctx := context.Background()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				h.log.Debug(ctx, "не удалось задать таймаут записи", "error", err)
				h.remove(c)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug(ctx, "клиент ленты отключен после ошибки записи", "error", err)
				h.remove(c)
				return
			}
		}
	}
}

// Publish ставит сообщение в очередь каждого клиента и не ждет записи.
// Клиенты с переполненной очередью отключаются.
func (h *Hub) Publish(msg models.Message) {
	ctx := context.Background()
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error(ctx, "не удалось сериализовать сообщение для ленты", "error", err)
		return
	}

	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn(ctx, "клиент ленты не успевает читать, отключаем")
		h.remove(c)
	}
}

// Close закрывает все соединения (при остановке сервера).
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.done)
		// WriteControl допускает вызов параллельно с writeLoop.
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second))
		c.conn.Close()
	}
}

// remove удаляет клиента один раз: повторные вызовы ничего не делают.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		close(c.done)
		c.conn.Close()
	}
}
