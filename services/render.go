package services

import (
	"fmt"
	"strings"

	"github.com/simplebot-org/simplebot-corpse/models"
)

const gameBanner = "💀 Exquisite Corpse\n\n"

// showStatus renders the settings block, the roster and the current turn
// holder. Before the game starts the roster lines omit the round counter
// and the footer advertises the join/start commands instead of a turn.
func (s *GameService) showStatus(session *models.Session) string {
	var b strings.Builder
	b.WriteString(gameBanner)
	fmt.Fprintf(&b, "⚙️ Settings: ⏳%d - 📝%d\n", session.Rounds, session.MinWords)
	fmt.Fprintf(&b, "👤 Players(%d):\n", len(session.Players))

	for _, player := range session.Players {
		name := s.directory.Resolve(player.Addr)
		if session.Turn != "" {
			fmt.Fprintf(&b, "• %s (%d)\n", name, player.Round)
		} else {
			fmt.Fprintf(&b, "• %s\n", name)
		}
	}

	b.WriteString("\n")
	if session.Turn != "" {
		fmt.Fprintf(&b, "Turn: %s", s.directory.Resolve(session.Turn))
	} else {
		b.WriteString("Waiting for players...\n\n/corpse_join  /corpse_start")
	}

	return b.String()
}

// turnReplies emits the two turn-prompt messages for the chosen player: a
// group announcement and a private prompt. The private prompt carries the
// last five words of the accumulated text as a hint, or the opening-line
// instruction when the story is still empty.
func (s *GameService) turnReplies(session *models.Session, player *models.Player) []Reply {
	name := s.directory.Resolve(player.Addr)
	announce := Reply{
		ChatID: session.ChatID,
		Text:   fmt.Sprintf("%s⏳ Round %d/%d\n\n%s, it's your turn...", gameBanner, player.Round, session.Rounds, name),
	}

	var prompt string
	if session.Text != "" {
		hint := lastWords(session.Text, 5)
		prompt = fmt.Sprintf("%s📝 Complete the phrase:\n...%s\n\n", gameBanner, hint)
	} else {
		prompt = fmt.Sprintf("%s📝 You are the first!\nSend a message with at least %d words.", gameBanner, session.MinWords)
	}

	return []Reply{announce, {Addr: player.Addr, Text: prompt}}
}

// endGameText renders the finished story, or the aborted banner when no
// text was ever accumulated.
func endGameText(session *models.Session) string {
	text := gameBanner
	if session.Text != "" {
		text += "⌛ Game finished!\n📜 The result is:\n" + session.Text
	} else {
		text += "❌ Game aborted"
	}
	return text + "\n\n▶️ Play again? /corpse_new"
}

// lastWords returns the last n whitespace-delimited words of text, space
// joined. Shorter texts are returned whole.
func lastWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
