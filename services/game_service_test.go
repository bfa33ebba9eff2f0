package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "test0@example.org"
	addrB = "test1@example.org"
	addrC = "test2@example.org"
	addrD = "test3@example.org"
)

var groupChat = Chat{ID: 100, Group: true}

func TestCreateSession(t *testing.T) {
	svc := newTestService(t)

	replies, err := svc.CreateSession(addrA, groupChat, 3, 10)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, groupChat.ID, replies[0].ChatID)
	assert.Contains(t, replies[0].Text, "⏳3 - 📝10")
	assert.Contains(t, replies[0].Text, "Waiting for players...")

	_, err = svc.CreateSession(addrB, Chat{ID: 1, Group: false}, 3, 10)
	assert.ErrorIs(t, err, ErrNotAGroup)

	_, err = svc.CreateSession(addrB, groupChat, 3, 10)
	assert.ErrorIs(t, err, ErrSessionExists)

	// The creator already plays in chat 100.
	_, err = svc.CreateSession(addrA, Chat{ID: 200, Group: true}, 3, 10)
	assert.ErrorIs(t, err, ErrAlreadyPlaying)
}

func TestCreateSessionSetupValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateSession(addrA, groupChat, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidSetup)

	// Only the combination of both values below one is rejected; a
	// zero-round game is accepted as-is.
	replies, err := svc.CreateSession(addrA, groupChat, 0, 5)
	require.NoError(t, err)
	assert.Contains(t, replies[0].Text, "⏳0 - 📝5")
}

func TestGameplay(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateSession(addrA, groupChat, 1, 2)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)

	replies, err := svc.StartSession(addrA, groupChat)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, groupChat.ID, replies[0].ChatID)
	assert.Contains(t, replies[0].Text, "⏳ Round 1/1")
	assert.Contains(t, replies[0].Text, "test0, it's your turn...")
	assert.Equal(t, addrA, replies[1].Addr)
	assert.Contains(t, replies[1].Text, "You are the first!")
	assert.Contains(t, replies[1].Text, "at least 2 words")

	// Too short: turn retained, nothing applied.
	_, err = svc.SubmitTurn(addrA, "hello")
	var tooShort *TextTooShortError
	require.ErrorAs(t, err, &tooShort)
	assert.Equal(t, 2, tooShort.MinWords)

	session := currentSession(t, svc, groupChat.ID)
	assert.Equal(t, addrA, session.Turn)
	assert.Empty(t, session.Text)

	// Off-turn submission from another player: silently ignored.
	replies, err = svc.SubmitTurn(addrB, "hello world")
	require.NoError(t, err)
	assert.Empty(t, replies)

	// Submission from a bystander: silently ignored.
	replies, err = svc.SubmitTurn(addrD, "hello world")
	require.NoError(t, err)
	assert.Empty(t, replies)

	replies, err = svc.SubmitTurn(addrA, "hello world")
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, addrB, replies[1].Addr)
	assert.Contains(t, replies[1].Text, "Complete the phrase")
	assert.Contains(t, replies[1].Text, "...hello world")

	session = currentSession(t, svc, groupChat.ID)
	assert.Equal(t, addrB, session.Turn)
	require.Len(t, session.Players, 1)

	replies, err = svc.SubmitTurn(addrB, "from the test land")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, groupChat.ID, replies[0].ChatID)
	assert.Contains(t, replies[0].Text, "Game finished")
	assert.Contains(t, replies[0].Text, "hello world from the test land")

	_, err = svc.Status(groupChat)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestJoinSession(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.JoinSession(addrA, Chat{ID: 1, Group: false})
	assert.ErrorIs(t, err, ErrNotAGroup)

	_, err = svc.JoinSession(addrA, groupChat)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = svc.CreateSession(addrA, groupChat, 2, 1)
	require.NoError(t, err)

	_, err = svc.JoinSession(addrA, groupChat)
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	other := Chat{ID: 200, Group: true}
	_, err = svc.CreateSession(addrB, other, 2, 1)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrA, other)
	assert.ErrorIs(t, err, ErrPlayingElsewhere)
}

func TestJoinWindow(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateSession(addrA, groupChat, 2, 1)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)
	_, err = svc.StartSession(addrA, groupChat)
	require.NoError(t, err)

	// The turn holder is still in the first round: joining is allowed
	// and never changes whose turn it is.
	_, err = svc.JoinSession(addrC, groupChat)
	require.NoError(t, err)
	assert.Equal(t, addrA, currentSession(t, svc, groupChat.ID).Turn)

	// Cycle a full round so the holder's round goes above one.
	for _, addr := range []string{addrA, addrB, addrC} {
		_, err = svc.SubmitTurn(addr, "word")
		require.NoError(t, err)
	}
	require.Equal(t, 2, nextPlayer(currentSession(t, svc, groupChat.ID).Players).Round)

	_, err = svc.JoinSession(addrD, groupChat)
	assert.ErrorIs(t, err, ErrJoinWindowClosed)
}

func TestJoinPositionsStayUnique(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateSession(addrA, groupChat, 2, 1)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrC, groupChat)
	require.NoError(t, err)
	_, err = svc.LeaveSession(addrA)
	require.NoError(t, err)

	// A departure must not free a position for the next joiner.
	_, err = svc.JoinSession(addrD, groupChat)
	require.NoError(t, err)

	session := currentSession(t, svc, groupChat.ID)
	require.Len(t, session.Players, 3)
	seen := make(map[int]string)
	for _, p := range session.Players {
		other, dup := seen[p.Position]
		assert.False(t, dup, "position %d shared by %s and %s", p.Position, other, p.Addr)
		seen[p.Position] = p.Addr
	}

	// Insertion order survives: B joined before C, C before D.
	assert.Equal(t, []string{addrB, addrC, addrD},
		[]string{session.Players[0].Addr, session.Players[1].Addr, session.Players[2].Addr})
}

func TestStartSession(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.StartSession(addrA, groupChat)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = svc.CreateSession(addrA, groupChat, 1, 2)
	require.NoError(t, err)

	_, err = svc.StartSession(addrA, groupChat)
	assert.ErrorIs(t, err, ErrInsufficientPlayers)

	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)
	_, err = svc.StartSession(addrA, groupChat)
	require.NoError(t, err)

	_, err = svc.StartSession(addrA, groupChat)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestEndSession(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateSession(addrA, groupChat, 1, 2)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)

	// End before any text: aborted.
	replies, err := svc.EndSession(addrA, groupChat)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Game aborted")

	_, err = svc.Status(groupChat)
	assert.ErrorIs(t, err, ErrNoSession)

	// End mid-game: the story so far is rendered as the result.
	_, err = svc.CreateSession(addrA, groupChat, 1, 2)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)
	_, err = svc.StartSession(addrA, groupChat)
	require.NoError(t, err)
	_, err = svc.SubmitTurn(addrA, "hello world")
	require.NoError(t, err)

	replies, err = svc.EndSession(addrA, groupChat)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "hello world")
}

func TestLeaveSession(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.LeaveSession(addrA)
	assert.ErrorIs(t, err, ErrNotPlaying)

	_, err = svc.CreateSession(addrA, groupChat, 1, 2)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrC, groupChat)
	require.NoError(t, err)
	_, err = svc.StartSession(addrA, groupChat)
	require.NoError(t, err)
	require.Equal(t, addrA, currentSession(t, svc, groupChat.ID).Turn)

	// A non-holder leaving does not touch the turn.
	replies, err := svc.LeaveSession(addrB)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, addrB, replies[0].Addr)
	assert.Equal(t, "You abandoned the game.", replies[0].Text)
	assert.Equal(t, addrA, currentSession(t, svc, groupChat.ID).Turn)

	replies, err = svc.LeaveSession(addrC)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, addrA, currentSession(t, svc, groupChat.ID).Turn)

	// The holder leaving as sole remaining player with no text aborts.
	replies, err = svc.LeaveSession(addrA)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, groupChat.ID, replies[0].ChatID)
	assert.Contains(t, replies[0].Text, "Game aborted")
	assert.Equal(t, addrA, replies[1].Addr)

	_, err = svc.Status(groupChat)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLeaveSessionLastPlayerUnstarted(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateSession(addrA, groupChat, 1, 2)
	require.NoError(t, err)

	// The sole player leaving an unstarted game must not leave an
	// empty session behind.
	replies, err := svc.LeaveSession(addrA)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, addrA, replies[0].Addr)

	_, err = svc.Status(groupChat)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLeaveSessionTurnHolder(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateSession(addrA, groupChat, 2, 1)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrC, groupChat)
	require.NoError(t, err)
	_, err = svc.StartSession(addrA, groupChat)
	require.NoError(t, err)

	// Holder departs with two players left: the turn moves on.
	replies, err := svc.LeaveSession(addrA)
	require.NoError(t, err)
	require.Len(t, replies, 3)
	session := currentSession(t, svc, groupChat.ID)
	assert.Equal(t, addrB, session.Turn)
}

func TestLeaveSessionSurvivorAhead(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateSession(addrA, groupChat, 3, 1)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)
	_, err = svc.StartSession(addrA, groupChat)
	require.NoError(t, err)
	_, err = svc.SubmitTurn(addrA, "opening words")
	require.NoError(t, err)

	// B holds the turn at round 1; the only survivor A is at round 2.
	// Continuing would loop turns to one player, so the game ends with
	// the story so far.
	replies, err := svc.LeaveSession(addrB)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Contains(t, replies[0].Text, "Game finished")
	assert.Contains(t, replies[0].Text, "opening words")

	_, err = svc.Status(groupChat)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemberRemoved(t *testing.T) {
	svc := newTestService(t)

	// Unknown chat: nothing to do.
	replies, err := svc.MemberRemoved(groupChat.ID, addrA, 5, false)
	require.NoError(t, err)
	assert.Empty(t, replies)

	_, err = svc.CreateSession(addrA, groupChat, 1, 2)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)

	// A non-player leaving the chat does not touch the game.
	replies, err = svc.MemberRemoved(groupChat.ID, addrD, 5, false)
	require.NoError(t, err)
	assert.Empty(t, replies)
	_, err = svc.Status(groupChat)
	require.NoError(t, err)

	// A player removed at the transport level departs the game.
	replies, err = svc.MemberRemoved(groupChat.ID, addrB, 5, false)
	require.NoError(t, err)
	assert.Empty(t, replies)
	session := currentSession(t, svc, groupChat.ID)
	require.Len(t, session.Players, 1)
}

func TestMemberRemovedStartedGame(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateSession(addrA, groupChat, 2, 1)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrC, groupChat)
	require.NoError(t, err)
	_, err = svc.StartSession(addrA, groupChat)
	require.NoError(t, err)
	require.Equal(t, addrA, currentSession(t, svc, groupChat.ID).Turn)

	// The turn holder is removed at the transport level: the turn must
	// move to the next player, never keep pointing at the removed one.
	replies, err := svc.MemberRemoved(groupChat.ID, addrA, 5, false)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Contains(t, replies[0].Text, "it's your turn...")
	assert.Equal(t, addrB, replies[1].Addr)

	session := currentSession(t, svc, groupChat.ID)
	assert.Equal(t, addrB, session.Turn)
	require.Len(t, session.Players, 2)
	assert.Nil(t, findPlayer(session.Players, addrA))

	// A non-holder removed from mid-roster: the turn is untouched and
	// no turn prompt goes out.
	_, err = svc.JoinSession(addrD, groupChat)
	require.NoError(t, err)
	replies, err = svc.MemberRemoved(groupChat.ID, addrC, 5, false)
	require.NoError(t, err)
	assert.Empty(t, replies)

	session = currentSession(t, svc, groupChat.ID)
	assert.Equal(t, addrB, session.Turn)
	require.Len(t, session.Players, 2)
}

func TestMemberRemovedNonHolderBeforeHolder(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateSession(addrA, groupChat, 2, 1)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrC, groupChat)
	require.NoError(t, err)
	_, err = svc.StartSession(addrA, groupChat)
	require.NoError(t, err)
	_, err = svc.SubmitTurn(addrA, "opening")
	require.NoError(t, err)
	require.Equal(t, addrB, currentSession(t, svc, groupChat.ID).Turn)

	// A sits immediately before the holder B in the roster. Removing A
	// must not re-run turn selection or re-prompt anyone.
	replies, err := svc.MemberRemoved(groupChat.ID, addrA, 5, false)
	require.NoError(t, err)
	assert.Empty(t, replies)
	assert.Equal(t, addrB, currentSession(t, svc, groupChat.ID).Turn)
}

func TestMemberRemovedDestroysSession(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateSession(addrA, groupChat, 1, 2)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)

	// Bot kicked: silent destruction, no result rendered.
	replies, err := svc.MemberRemoved(groupChat.ID, "", 5, true)
	require.NoError(t, err)
	assert.Empty(t, replies)
	_, err = svc.Status(groupChat)
	assert.ErrorIs(t, err, ErrNoSession)

	// Group reduced to one member: same.
	_, err = svc.CreateSession(addrA, groupChat, 1, 2)
	require.NoError(t, err)
	replies, err = svc.MemberRemoved(groupChat.ID, addrB, 1, false)
	require.NoError(t, err)
	assert.Empty(t, replies)
	_, err = svc.Status(groupChat)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFullCycleTerminates(t *testing.T) {
	svc := newTestService(t)

	const rounds = 2
	players := []string{addrA, addrB, addrC}

	_, err := svc.CreateSession(players[0], groupChat, rounds, 1)
	require.NoError(t, err)
	for _, addr := range players[1:] {
		_, err = svc.JoinSession(addr, groupChat)
		require.NoError(t, err)
	}
	_, err = svc.StartSession(players[0], groupChat)
	require.NoError(t, err)

	accepted := 0
	for accepted < 50 {
		session := currentSession(t, svc, groupChat.ID)
		replies, err := svc.SubmitTurn(session.Turn, fmt.Sprintf("word%d", accepted))
		require.NoError(t, err)
		accepted++
		if len(replies) == 1 {
			assert.Contains(t, replies[0].Text, "Game finished")
			break
		}
	}

	assert.Equal(t, rounds*len(players), accepted)
	_, err = svc.Status(groupChat)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStatus(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Status(Chat{ID: 1, Group: false})
	assert.ErrorIs(t, err, ErrNotAGroup)

	_, err = svc.CreateSession(addrA, groupChat, 2, 3)
	require.NoError(t, err)
	_, err = svc.JoinSession(addrB, groupChat)
	require.NoError(t, err)

	replies, err := svc.Status(groupChat)
	require.NoError(t, err)
	assert.Contains(t, replies[0].Text, "👤 Players(2):")
	assert.Contains(t, replies[0].Text, "• test0\n")
	assert.Contains(t, replies[0].Text, "/corpse_join  /corpse_start")

	_, err = svc.StartSession(addrA, groupChat)
	require.NoError(t, err)

	replies, err = svc.Status(groupChat)
	require.NoError(t, err)
	assert.Contains(t, replies[0].Text, "• test0 (1)\n")
	assert.Contains(t, replies[0].Text, "Turn: test0")
}
