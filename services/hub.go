package services

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Dispatcher turns inbound chat traffic into outbound replies. Resolving
// "is this a command, a turn submission, or noise" lives behind this
// interface, not in the transport.
type Dispatcher interface {
	HandleMessage(addr, name string, chat Chat, text string) []Reply
	HandleMemberRemoved(chatID int64, addr string, remaining int, botRemoved bool) []Reply
}

// Hub owns the websocket side of the gateway: connected clients keyed by
// address and the chats they are members of.
type Hub struct {
	clients    map[*Client]bool
	byAddr     map[string]*Client
	chats      map[int64]*chatRoom
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	dispatcher Dispatcher
	directory  *Directory
}

type chatRoom struct {
	group   bool
	members map[string]bool
}

type Client struct {
	hub    *Hub
	socket *websocket.Conn
	send   chan []byte
	addr   string
	name   string
}

// InboundMessage is one frame from a gateway client.
type InboundMessage struct {
	Type   string `json:"type"`
	ChatID int64  `json:"chat_id,omitempty"`
	Group  bool   `json:"group,omitempty"`
	Text   string `json:"text,omitempty"`
}

// OutboundMessage is one frame to a gateway client.
type OutboundMessage struct {
	Type   string `json:"type"`
	ChatID int64  `json:"chat_id,omitempty"`
	Text   string `json:"text"`
	Quote  string `json:"quote,omitempty"`
}

func NewHub(dispatcher Dispatcher, directory *Directory) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byAddr:     make(map[string]*Client),
		chats:      make(map[int64]*chatRoom),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		dispatcher: dispatcher,
		directory:  directory,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.byAddr[client.addr] = client
			h.mutex.Unlock()
			log.Printf("Client registered: %s (%s) - Total clients: %d", client.addr, client.name, len(h.clients))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if h.byAddr[client.addr] == client {
					delete(h.byAddr, client.addr)
				}
				close(client.send)
				log.Printf("Client unregistered: %s (%s) - Total clients: %d", client.addr, client.name, len(h.clients))
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, addr, name string) *Client {
	client := &Client{
		hub:    h,
		socket: conn,
		send:   make(chan []byte, 256),
		addr:   addr,
		name:   name,
	}

	h.directory.Remember(addr, name)
	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// JoinChat records transport-level chat membership. The first member to
// declare a chat fixes whether it is a group.
func (h *Hub) JoinChat(addr string, chatID int64, group bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	room, ok := h.chats[chatID]
	if !ok {
		room = &chatRoom{group: group, members: make(map[string]bool)}
		h.chats[chatID] = room
	}
	room.members[addr] = true
}

// LeaveChat drops a member and reports the remaining member count.
// Returns false when the chat or membership was unknown.
func (h *Hub) LeaveChat(addr string, chatID int64) (remaining int, ok bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	room, found := h.chats[chatID]
	if !found || !room.members[addr] {
		return 0, false
	}
	delete(room.members, addr)
	remaining = len(room.members)
	if remaining == 0 {
		delete(h.chats, chatID)
	}
	return remaining, true
}

func (h *Hub) chatInfo(chatID int64) (group bool, ok bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	room, found := h.chats[chatID]
	if !found {
		return false, false
	}
	return room.group, true
}

// Deliver routes engine replies: address-targeted replies go to that
// client's socket, chat-targeted replies go to every connected member.
func (h *Hub) Deliver(replies []Reply) {
	for _, reply := range replies {
		if reply.Addr != "" {
			h.sendTo(reply.Addr, OutboundMessage{Type: "message", Text: reply.Text, Quote: reply.Quote})
			continue
		}

		h.mutex.RLock()
		room := h.chats[reply.ChatID]
		var members []string
		if room != nil {
			for addr := range room.members {
				members = append(members, addr)
			}
		}
		h.mutex.RUnlock()

		for _, addr := range members {
			h.sendTo(addr, OutboundMessage{Type: "message", ChatID: reply.ChatID, Text: reply.Text, Quote: reply.Quote})
		}
	}
}

func (h *Hub) sendTo(addr string, msg OutboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mutex.RLock()
	client := h.byAddr[addr]
	h.mutex.RUnlock()
	if client == nil {
		return
	}

	select {
	case client.send <- data:
	default:
		log.Printf("Client %s send buffer full, dropping message", addr)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg InboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message from %s: %v", c.addr, err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.socket.Close()
	}()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg InboundMessage) {
	switch msg.Type {
	case "ping":
		data, _ := json.Marshal(OutboundMessage{Type: "pong", Text: "pong"})
		c.send <- data

	case "join_chat":
		c.hub.JoinChat(c.addr, msg.ChatID, msg.Group)

	case "leave_chat":
		remaining, ok := c.hub.LeaveChat(c.addr, msg.ChatID)
		if !ok {
			return
		}
		replies := c.hub.dispatcher.HandleMemberRemoved(msg.ChatID, c.addr, remaining, false)
		c.hub.Deliver(replies)

	case "remove_bot":
		// The bot account itself was kicked from the chat.
		replies := c.hub.dispatcher.HandleMemberRemoved(msg.ChatID, "", 0, true)
		c.hub.Deliver(replies)

	case "message":
		chat := Chat{ID: msg.ChatID, Group: msg.Group}
		if group, ok := c.hub.chatInfo(msg.ChatID); ok {
			chat.Group = group
		}
		replies := c.hub.dispatcher.HandleMessage(c.addr, c.name, chat, msg.Text)
		c.hub.Deliver(replies)

	default:
		log.Printf("Unknown message type: %s from %s", msg.Type, c.addr)
	}
}
