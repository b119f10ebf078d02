package room

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Fangzx-code/TCP-IP/internal/protocol"
)

func TestAutoRoundDrawsForEveryoneEachTick(t *testing.T) {
	r, b, clock := newTestRoom(Config{MaxPlayers: 2, GameDuration: 3})
	a, bid := joinTwo(t, r)
	readyBoth(t, r, a, bid)
	if err := r.Vote(a, protocol.ModeAuto); err != nil {
		t.Fatalf("Vote(a): %v", err)
	}
	if err := r.Vote(bid, protocol.ModeAuto); err != nil {
		t.Fatalf("Vote(b): %v", err)
	}

	// Three ticks, two draws per tick.
	for i := 0; i < 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)
	}
	waitForPhase(t, r, PhaseFinished)

	if got := r.PrizesRemaining(); got != 194 {
		t.Errorf("Remaining() = %d after 3 auto ticks for 2 players, want 194", got)
	}

	updates := 0
	for _, msg := range b.messages() {
		if msg.Status == protocol.StatusAutoUpdate {
			updates++
			if !strings.Contains(msg.Message, "A:") || !strings.Contains(msg.Message, "B:") {
				t.Errorf("auto update %q should aggregate both players' draws", msg.Message)
			}
		}
	}
	if updates != 3 {
		t.Errorf("got %d auto updates, want one per tick (3)", updates)
	}
}

func TestManualRoundStatusCadence(t *testing.T) {
	r, b, clock := newTestRoom(Config{MaxPlayers: 2, GameDuration: 12})
	a, bid := joinTwo(t, r)
	startManualRound(t, r, clock, a, bid)

	for i := 0; i < 12; i++ {
		clock.Advance(time.Second)
		if i < 11 {
			clock.BlockUntil(1)
		}
	}
	waitForPhase(t, r, PhaseFinished)

	// Ticks run at 12..1 seconds remaining; status lines go out every 10
	// seconds and during each of the final 5.
	if got := b.countWithPrefix(protocol.StatusInfo, "time left:"); got != 6 {
		t.Errorf("got %d status lines, want 6 (at 10s and 5..1s remaining)", got)
	}
	if b.countWithPrefix(protocol.StatusAutoUpdate, "") != 0 {
		t.Error("manual mode must not broadcast auto updates")
	}
}

func TestRoundEndsEarlyWhenPoolExhausted(t *testing.T) {
	r, b, clock := newTestRoom(DefaultConfig())
	a, bid := joinTwo(t, r)
	startManualRound(t, r, clock, a, bid)

	for {
		if _, err := r.TriggerDraw(a); err != nil {
			break
		}
	}

	clock.Advance(time.Second)
	waitForPhase(t, r, PhaseFinished)

	if !b.containsInfo("ending early") {
		t.Error("missing early-end broadcast after pool exhaustion")
	}
}

func TestShutdownCancelsRunningRound(t *testing.T) {
	r, _, clock := newTestRoom(DefaultConfig())
	a, bid := joinTwo(t, r)
	startManualRound(t, r, clock, a, bid)

	r.Shutdown()
	clock.Advance(time.Second)
	waitForPhase(t, r, PhaseFinished)
}

func TestFinalRankingSortsByScoreWithStableTies(t *testing.T) {
	r, _, _ := newTestRoom(Config{MaxPlayers: 4, GameDuration: 60})
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	for i, name := range []string{"A", "B", "C", "D"} {
		r.Join(ids[i], name)
	}

	r.mu.Lock()
	r.participants[ids[0]].Score = 10
	r.participants[ids[1]].Score = 50
	r.participants[ids[2]].Score = 10
	r.participants[ids[3]].Score = 0
	ranking := r.rankingLocked()
	r.mu.Unlock()

	wantOrder := []string{"B", "A", "C", "D"}
	for i, want := range wantOrder {
		if ranking[i].Name != want {
			t.Fatalf("rank %d = %s, want %s (ties keep join order)", i+1, ranking[i].Name, want)
		}
		if ranking[i].Rank != i+1 {
			t.Errorf("rank field = %d, want %d", ranking[i].Rank, i+1)
		}
	}

	msg := rankingMessage(ranking)
	if !strings.Contains(msg, "No.1 B: 50 pts") {
		t.Errorf("ranking message missing winner line: %q", msg)
	}
	if !strings.Contains(msg, "replay") {
		t.Errorf("ranking message should invite a replay: %q", msg)
	}
}

func TestRoundFinishBroadcastsRanking(t *testing.T) {
	r, b, clock := newTestRoom(Config{MaxPlayers: 2, GameDuration: 1})
	a, bid := joinTwo(t, r)
	startManualRound(t, r, clock, a, bid)

	clock.Advance(time.Second)
	waitForPhase(t, r, PhaseFinished)

	if !b.containsInfo("final ranking") {
		t.Error("missing final ranking broadcast")
	}
}
