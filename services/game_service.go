package services

import (
	"errors"
	"sync"

	"github.com/simplebot-org/simplebot-corpse/models"

	"gorm.io/gorm"
)

// Chat identifies the context an inbound action arrived from.
type Chat struct {
	ID    int64
	Group bool
}

// Reply is one outbound message. Addr set means a private message to that
// participant, otherwise the reply goes to the chat. Quote carries the
// text of the message being answered, when the transport supports quoting.
type Reply struct {
	ChatID int64  `json:"chat_id,omitempty"`
	Addr   string `json:"addr,omitempty"`
	Text   string `json:"text"`
	Quote  string `json:"quote,omitempty"`
}

// GameService is the session lifecycle engine. Every mutating operation
// runs under one process-wide mutex and inside one database transaction,
// so two submissions, or a join racing a start, can never interleave.
type GameService struct {
	db        *gorm.DB
	directory *Directory
	mu        sync.Mutex
}

func NewGameService(db *gorm.DB, directory *Directory) *GameService {
	return &GameService{
		db:        db,
		directory: directory,
	}
}

func (s *GameService) Directory() *Directory {
	return s.directory
}

// CreateSession creates a new game in the given group chat with the actor
// as its first player. Setup is rejected only when rounds and minWords are
// both below one; this matches the original product behavior, which the
// test suite pins.
func (s *GameService) CreateSession(addr string, chat Chat, rounds, minWords int) ([]Reply, error) {
	if !chat.Group {
		return nil, ErrNotAGroup
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var replies []Reply
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var player models.Player
		if err := tx.First(&player, "addr = ?", addr).Error; err == nil {
			return ErrAlreadyPlaying
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var existing models.Session
		if err := tx.First(&existing, "chat_id = ?", chat.ID).Error; err == nil {
			return ErrSessionExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if rounds < 1 && minWords < 1 {
			return ErrInvalidSetup
		}

		session := models.Session{
			ChatID:   chat.ID,
			Rounds:   rounds,
			MinWords: minWords,
		}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		first := models.Player{Addr: addr, ChatID: chat.ID, Round: 1, Position: 1}
		if err := tx.Create(&first).Error; err != nil {
			return err
		}

		session.Players = []models.Player{first}
		replies = []Reply{{ChatID: chat.ID, Text: s.showStatus(&session)}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// JoinSession appends the actor to the roster. Joining never changes whose
// turn it is. Once the current turn holder is past their first round the
// join window is closed, so late joiners cannot skew the round count.
func (s *GameService) JoinSession(addr string, chat Chat) ([]Reply, error) {
	if !chat.Group {
		return nil, ErrNotAGroup
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var replies []Reply
	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := loadSession(tx, chat.ID)
		if err != nil {
			return err
		}

		var player models.Player
		if err := tx.First(&player, "addr = ?", addr).Error; err == nil {
			if player.ChatID == session.ChatID {
				return ErrAlreadyJoined
			}
			return ErrPlayingElsewhere
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if session.Turn != "" {
			if holder := findPlayer(session.Players, session.Turn); holder != nil && holder.Round > 1 {
				return ErrJoinWindowClosed
			}
		}

		joined := models.Player{
			Addr:     addr,
			ChatID:   session.ChatID,
			Round:    1,
			Position: nextPosition(session.Players),
		}
		if err := tx.Create(&joined).Error; err != nil {
			return err
		}

		session.Players = append(session.Players, joined)
		replies = []Reply{{ChatID: chat.ID, Text: s.showStatus(session)}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// StartSession sets the first turn and prompts the chosen player.
func (s *GameService) StartSession(addr string, chat Chat) ([]Reply, error) {
	if !chat.Group {
		return nil, ErrNotAGroup
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var replies []Reply
	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := loadSession(tx, chat.ID)
		if err != nil {
			return err
		}
		if session.Turn != "" {
			return ErrAlreadyStarted
		}
		if len(session.Players) <= 1 {
			return ErrInsufficientPlayers
		}

		player := nextPlayer(session.Players)
		session.Turn = player.Addr
		if err := tx.Model(&models.Session{}).Where("chat_id = ?", session.ChatID).
			Update("turn", session.Turn).Error; err != nil {
			return err
		}

		replies = s.turnReplies(session, player)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// SubmitTurn processes free text from a direct chat. Messages from
// non-players, or from players whose turn it is not, are silently dropped
// so bystanders learn nothing about game state. An accepted submission is
// appended to the story, the sender's round advances (or the sender
// retires after the final round), and the turn moves on or the game ends.
func (s *GameService) SubmitTurn(addr, text string) ([]Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var replies []Reply
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var player models.Player
		if err := tx.First(&player, "addr = ?", addr).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		session, err := loadSession(tx, player.ChatID)
		if err != nil {
			return err
		}
		if session.Turn != addr {
			return nil
		}

		if wordCount(text) < session.MinWords {
			return &TextTooShortError{MinWords: session.MinWords}
		}

		if session.Text == "" {
			session.Text = text
		} else {
			session.Text += " " + text
		}
		if err := tx.Model(&models.Session{}).Where("chat_id = ?", session.ChatID).
			Update("text", session.Text).Error; err != nil {
			return err
		}

		if player.Round == session.Rounds {
			// Final round done, the player retires from the roster.
			if err := tx.Delete(&models.Player{}, "addr = ?", player.Addr).Error; err != nil {
				return err
			}
			session.Players = withoutPlayer(session.Players, player.Addr)
		} else {
			player.Round++
			if err := tx.Model(&models.Player{}).Where("addr = ?", player.Addr).
				Update("round", player.Round).Error; err != nil {
				return err
			}
			setRound(session.Players, player.Addr, player.Round)
		}

		next := nextPlayer(session.Players)
		if next == nil || next.Addr == addr {
			// Nobody left, or the sender is the sole remaining player.
			result := endGameText(session)
			if err := deleteSession(tx, session.ChatID); err != nil {
				return err
			}
			replies = []Reply{{ChatID: session.ChatID, Text: result}}
			return nil
		}

		session.Turn = next.Addr
		if err := tx.Model(&models.Session{}).Where("chat_id = ?", session.ChatID).
			Update("turn", session.Turn).Error; err != nil {
			return err
		}
		replies = s.turnReplies(session, next)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// EndSession aborts the game in the given group, rendering the story so
// far (or the aborted banner) and destroying the session regardless of
// progress.
func (s *GameService) EndSession(addr string, chat Chat) ([]Reply, error) {
	if !chat.Group {
		return nil, ErrNotAGroup
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var replies []Reply
	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := loadSession(tx, chat.ID)
		if err != nil {
			return err
		}
		text := endGameText(session)
		if err := deleteSession(tx, session.ChatID); err != nil {
			return err
		}
		replies = []Reply{{ChatID: chat.ID, Text: text}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// LeaveSession removes the actor from whatever game they are in and
// confirms privately. Departure of the turn holder re-selects the turn or
// ends the game (see removeFromGame).
func (s *GameService) LeaveSession(addr string) ([]Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var replies []Reply
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var player models.Player
		if err := tx.First(&player, "addr = ?", addr).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotPlaying
			}
			return err
		}

		session, err := loadSession(tx, player.ChatID)
		if err != nil {
			return err
		}

		removed, err := s.removeFromGame(tx, session, player)
		if err != nil {
			return err
		}
		replies = append(removed, Reply{Addr: addr, Text: "You abandoned the game."})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// Status renders the current roster, settings and turn holder.
func (s *GameService) Status(chat Chat) ([]Reply, error) {
	if !chat.Group {
		return nil, ErrNotAGroup
	}

	var replies []Reply
	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := loadSession(tx, chat.ID)
		if err != nil {
			return err
		}
		replies = []Reply{{ChatID: chat.ID, Text: s.showStatus(session)}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// MemberRemoved handles a transport-level membership change. When the bot
// itself was removed, or the group is down to one member, the session is
// destroyed without a result. Otherwise the removed member, if playing
// here, departs with full reconciliation.
func (s *GameService) MemberRemoved(chatID int64, addr string, remaining int, botRemoved bool) ([]Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var replies []Reply
	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := loadSession(tx, chatID)
		if err != nil {
			if errors.Is(err, ErrNoSession) {
				return nil
			}
			return err
		}

		if botRemoved || remaining <= 1 {
			return deleteSession(tx, session.ChatID)
		}

		player := findPlayer(session.Players, addr)
		if player == nil {
			return nil
		}
		replies, err = s.removeFromGame(tx, session, *player)
		return err
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// removeFromGame takes a player off the roster and reconciles the turn.
// If the departing player did not hold the turn nothing else changes.
// Otherwise the next player is selected; the game ends when nobody is
// left, or when a single player remains and either no text has been
// written yet or that survivor is already past the departing player's
// round (continuing would loop turns to one person or hand out an
// uncontested win). The player is taken by value: withoutPlayer compacts
// the roster's backing array in place, so a pointer into it would read
// the wrong element afterwards.
func (s *GameService) removeFromGame(tx *gorm.DB, session *models.Session, player models.Player) ([]Reply, error) {
	playerRound := player.Round
	if err := tx.Delete(&models.Player{}, "addr = ?", player.Addr).Error; err != nil {
		return nil, err
	}
	session.Players = withoutPlayer(session.Players, player.Addr)

	if player.Addr != session.Turn {
		if len(session.Players) == 0 {
			// Roster emptied before the game ever started.
			if err := deleteSession(tx, session.ChatID); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	next := nextPlayer(session.Players)
	if next == nil || (len(session.Players) == 1 && (session.Text == "" || next.Round > playerRound)) {
		text := endGameText(session)
		if err := deleteSession(tx, session.ChatID); err != nil {
			return nil, err
		}
		return []Reply{{ChatID: session.ChatID, Text: text}}, nil
	}

	session.Turn = next.Addr
	if err := tx.Model(&models.Session{}).Where("chat_id = ?", session.ChatID).
		Update("turn", session.Turn).Error; err != nil {
		return nil, err
	}
	return s.turnReplies(session, next), nil
}

// loadSession fetches a session with its roster in insertion order.
func loadSession(tx *gorm.DB, chatID int64) (*models.Session, error) {
	var session models.Session
	err := tx.Preload("Players", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).First(&session, "chat_id = ?", chatID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	return &session, nil
}

// deleteSession removes a session and all its players. The FK cascade
// covers this on postgres, but the players are deleted explicitly so
// sqlite deployments behave the same.
func deleteSession(tx *gorm.DB, chatID int64) error {
	if err := tx.Delete(&models.Player{}, "chat_id = ?", chatID).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Session{}, "chat_id = ?", chatID).Error
}

// nextPosition keeps roster positions monotonic: a departure must not
// free a position for a later joiner, or ORDER BY position would stop
// reproducing insertion order.
func nextPosition(players []models.Player) int {
	position := 1
	for _, p := range players {
		if p.Position >= position {
			position = p.Position + 1
		}
	}
	return position
}

func findPlayer(players []models.Player, addr string) *models.Player {
	for i := range players {
		if players[i].Addr == addr {
			return &players[i]
		}
	}
	return nil
}

func withoutPlayer(players []models.Player, addr string) []models.Player {
	out := players[:0]
	for _, p := range players {
		if p.Addr != addr {
			out = append(out, p)
		}
	}
	return out
}

func setRound(players []models.Player, addr string, round int) {
	for i := range players {
		if players[i].Addr == addr {
			players[i].Round = round
			return
		}
	}
}
