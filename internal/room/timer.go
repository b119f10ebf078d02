package room

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Fangzx-code/TCP-IP/internal/events"
	"github.com/Fangzx-code/TCP-IP/internal/protocol"
)

// runRound drives one playing-phase round in its own goroutine. Each tick it
// checks the cooperative stop flag and pool exhaustion, performs the per-tick
// work for the resolved mode, then sleeps one tick. Cancellation is observed
// between ticks only; there is no preemption mid-tick.
func (r *Room) runRound() {
	remaining := r.cfg.GameDuration

	for remaining > 0 {
		r.mu.Lock()
		if r.roundStop {
			r.mu.Unlock()
			break
		}

		var out []protocol.ServerMessage
		if r.pool.Remaining() == 0 {
			r.mu.Unlock()
			r.flush([]protocol.ServerMessage{protocol.Info("all prizes are gone! the round is ending early")})
			break
		}

		if r.mode == protocol.ModeAuto {
			results := make([]string, 0, len(r.order))
			for _, id := range r.order {
				item, ok := r.pool.DrawOne()
				if !ok {
					// Pool emptied partway through the tick; the remaining
					// participants miss this tick and the next tick's
					// exhaustion check ends the round.
					break
				}
				p := r.participants[id]
				p.Score += item.Points
				results = append(results, fmt.Sprintf("%s:%s", p.Name, item.Label))
				log.Debug().Str("player", p.Name).Str("prize", item.Label).Msg("auto draw")
			}
			if len(results) > 0 {
				out = append(out, protocol.AutoUpdate(fmt.Sprintf(
					"%ds | %s", remaining, strings.Join(results, " | "))))
			}
		} else if remaining%10 == 0 || remaining <= 5 {
			out = append(out, protocol.Info(fmt.Sprintf(
				"time left: %ds (prizes left: %d)", remaining, r.pool.Remaining())))
		}
		r.mu.Unlock()

		r.flush(out)
		r.clock.Sleep(time.Second)
		remaining--
	}

	r.finishRound()
}

// finishRound moves the room to the finished phase and broadcasts the final
// ranking: scores descending, ties kept in join order.
func (r *Room) finishRound() {
	r.mu.Lock()
	r.setPhaseLocked(PhaseFinished)
	ranking := r.rankingLocked()
	leftOver := r.pool.Remaining()
	r.mu.Unlock()

	r.flush([]protocol.ServerMessage{protocol.Info(rankingMessage(ranking))})
	r.publish(events.EventTypeGameFinished, events.GameFinishedPayload{
		Ranking:    ranking,
		LeftOver:   leftOver,
		FinishedAt: time.Now().UTC(),
	})
	log.Info().Int("left_over", leftOver).Msg("round finished")
}

func (r *Room) rankingLocked() []events.RankEntry {
	entries := make([]events.RankEntry, 0, len(r.order))
	for _, id := range r.order {
		p := r.participants[id]
		entries = append(entries, events.RankEntry{Name: p.Name, Score: p.Score})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func rankingMessage(ranking []events.RankEntry) string {
	var b strings.Builder
	b.WriteString("=== final ranking ===\n")
	for _, entry := range ranking {
		fmt.Fprintf(&b, "No.%d %s: %d pts\n", entry.Rank, entry.Name, entry.Score)
	}
	b.WriteString("=====================\nsend replay to play again")
	return b.String()
}
