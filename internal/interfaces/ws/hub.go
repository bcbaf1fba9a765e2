// Package ws difunde los eventos del PDV a los clientes websocket de cada negocio
// (tablero de caja, alertas de stock bajo, estado de NFC-e).
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/pdv-nfce/internal/application/events"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer eventos pendientes por conexión; un cliente que no drena su cola se desconecta.
	sendBuffer = 32
)

var _ events.Publisher = (*Hub)(nil)

type message struct {
	businessID string
	data       []byte
}

// client conexión registrada. send lo cierra solo el hub, al dar de baja al cliente.
type client struct {
	businessID string
	send       chan []byte
}

type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan message
	done       chan struct{}
	mutex      sync.Mutex
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run atiende altas, bajas y difusión hasta que ctx se cancela; luego da de baja a todos
// los clientes. La difusión nunca escribe en el socket: solo encola en cada cliente.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for cl := range h.clients {
				h.drop(cl)
			}
			h.mutex.Unlock()
			return

		case cl := <-h.register:
			h.mutex.Lock()
			h.clients[cl] = struct{}{}
			h.mutex.Unlock()
			h.log.Debug().Str("business_id", cl.businessID).Msg("ws: cliente conectado")

		case cl := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[cl]; ok {
				h.drop(cl)
			}
			h.mutex.Unlock()

		case m := <-h.broadcast:
			h.mutex.Lock()
			for cl := range h.clients {
				if cl.businessID != m.businessID {
					continue
				}
				select {
				case cl.send <- m.data:
				default:
					h.log.Warn().Str("business_id", cl.businessID).Msg("ws: cliente lento, desconectado")
					h.drop(cl)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// drop requiere h.mutex.
func (h *Hub) drop(cl *client) {
	delete(h.clients, cl)
	close(cl.send)
}

// Publish encola el evento para los clientes del negocio del sobre. No bloquea: con la cola
// del hub llena el evento se descarta, la venta o la NFC-e ya están confirmadas.
func (h *Hub) Publish(ctx context.Context, env events.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- message{businessID: env.BusinessID, data: data}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		h.log.Warn().Str("event_type", env.EventType).Str("business_id", env.BusinessID).Msg("ws: cola llena, evento descartado")
		return nil
	}
}

// Clients cantidad de conexiones abiertas del negocio.
func (h *Hub) Clients(businessID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	n := 0
	for cl := range h.clients {
		if cl.businessID == businessID {
			n++
		}
	}
	return n
}

// Upgrade rechaza con 426 las peticiones que no piden websocket.
func Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Handler registra la conexión bajo el negocio guardado en c.Locals(localKey) por el middleware de auth.
// La goroutine del handler escribe la cola del cliente; los mensajes entrantes se descartan y la
// lectura solo detecta el cierre.
func (h *Hub) Handler(localKey string) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		biz, _ := c.Locals(localKey).(string)
		if biz == "" {
			_ = c.Close()
			return
		}
		cl := &client{businessID: biz, send: make(chan []byte, sendBuffer)}
		select {
		case h.register <- cl:
		case <-h.done:
			return
		}

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		defer func() {
			select {
			case h.unregister <- cl:
			case <-h.done:
			}
			_ = c.Close()
			<-closed
		}()
		for {
			select {
			case data, ok := <-cl.send:
				if !ok {
					return
				}
				_ = c.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	})
}
