package handlers

import (
	"strconv"
	"strings"

	"github.com/simplebot-org/simplebot-corpse/services"
)

const (
	defaultRounds   = 3
	defaultMinWords = 10
)

// BotHandler routes inbound chat traffic to the game engine. Slash
// commands are parsed here; free text in a direct chat is treated as a
// turn submission, free text in a group is ignored.
type BotHandler struct {
	game *services.GameService
}

func NewBotHandler(game *services.GameService) *BotHandler {
	return &BotHandler{game: game}
}

func (h *BotHandler) HandleMessage(addr, name string, chat services.Chat, text string) []services.Reply {
	h.game.Directory().Remember(addr, name)

	fields := strings.Fields(text)
	var cmd string
	if len(fields) > 0 {
		cmd = fields[0]
	}

	switch cmd {
	case "/corpse_new":
		if !chat.Group {
			return h.rejection(addr, chat, text, services.ErrNotAGroup)
		}
		rounds, minWords, ok := parseSetup(fields[1:])
		if !ok {
			return h.rejection(addr, chat, text, services.ErrInvalidSetup)
		}
		return h.run(addr, chat, text, func() ([]services.Reply, error) {
			return h.game.CreateSession(addr, chat, rounds, minWords)
		})

	case "/corpse_join":
		return h.run(addr, chat, text, func() ([]services.Reply, error) {
			return h.game.JoinSession(addr, chat)
		})

	case "/corpse_start":
		return h.run(addr, chat, text, func() ([]services.Reply, error) {
			return h.game.StartSession(addr, chat)
		})

	case "/corpse_end":
		return h.run(addr, chat, text, func() ([]services.Reply, error) {
			return h.game.EndSession(addr, chat)
		})

	case "/corpse_leave":
		return h.run(addr, chat, text, func() ([]services.Reply, error) {
			return h.game.LeaveSession(addr)
		})

	case "/corpse_status":
		return h.run(addr, chat, text, func() ([]services.Reply, error) {
			return h.game.Status(chat)
		})

	default:
		if chat.Group || strings.HasPrefix(cmd, "/") {
			return nil
		}
		return h.run(addr, chat, text, func() ([]services.Reply, error) {
			return h.game.SubmitTurn(addr, text)
		})
	}
}

func (h *BotHandler) HandleMemberRemoved(chatID int64, addr string, remaining int, botRemoved bool) []services.Reply {
	replies, err := h.game.MemberRemoved(chatID, addr, remaining, botRemoved)
	if err != nil {
		return nil
	}
	return replies
}

func (h *BotHandler) run(addr string, chat services.Chat, text string, op func() ([]services.Reply, error)) []services.Reply {
	replies, err := op()
	if err != nil {
		return h.rejection(addr, chat, text, err)
	}
	return replies
}

// rejection answers a failed action in the chat it came from, quoting the
// offending message.
func (h *BotHandler) rejection(addr string, chat services.Chat, text string, err error) []services.Reply {
	if chat.Group {
		return []services.Reply{{ChatID: chat.ID, Text: err.Error(), Quote: text}}
	}
	return []services.Reply{{Addr: addr, Text: err.Error(), Quote: text}}
}

// parseSetup reads the optional "rounds [minWords]" arguments of
// /corpse_new. Extra arguments are ignored.
func parseSetup(args []string) (rounds, minWords int, ok bool) {
	rounds, minWords = defaultRounds, defaultMinWords
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, 0, false
		}
		rounds = n
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return 0, 0, false
		}
		minWords = n
	}
	return rounds, minWords, true
}
