package room

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Fangzx-code/TCP-IP/internal/events"
	"github.com/Fangzx-code/TCP-IP/internal/prize"
	"github.com/Fangzx-code/TCP-IP/internal/protocol"
)

// Config holds the tunable room parameters.
type Config struct {
	MaxPlayers   int // room capacity required to leave the waiting phase
	GameDuration int // round length in seconds
}

// DefaultConfig returns the default room configuration.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:   2,
		GameDuration: 60,
	}
}

// Broadcaster fans a message out to every registered connection. Delivery is
// best-effort; failures to individual peers are swallowed by the implementation.
type Broadcaster interface {
	Broadcast(msg protocol.ServerMessage)
}

// Participant is one registered player. Identity is the unique display name;
// the session ID links it back to the connection that owns it.
type Participant struct {
	ID    uuid.UUID
	Name  string
	Score int
}

// Room is the single game session aggregate. All mutable shared state (roster,
// ready set, vote tally, prize pool, phase) is guarded by one mutex; connection
// goroutines and the round timer goroutine all go through it. Broadcasts are
// built under the lock and sent after it is released.
type Room struct {
	cfg         Config
	clock       clockwork.Clock
	broadcaster Broadcaster
	publisher   events.Publisher
	pool        *prize.Pool

	mu           sync.Mutex
	phase        Phase
	participants map[uuid.UUID]*Participant
	order        []uuid.UUID // insertion order, ranking tie-break
	ready        map[string]bool
	votes        map[string]protocol.Mode
	mode         protocol.Mode
	roundStop    bool
}

// NewRoom creates a room in the waiting phase.
func NewRoom(cfg Config, broadcaster Broadcaster, publisher events.Publisher) *Room {
	return &Room{
		cfg:          cfg,
		clock:        clockwork.NewRealClock(),
		broadcaster:  broadcaster,
		publisher:    publisher,
		pool:         prize.NewPool(),
		phase:        PhaseWaiting,
		participants: make(map[uuid.UUID]*Participant),
		ready:        make(map[string]bool),
		votes:        make(map[string]protocol.Mode),
	}
}

// Join admits a participant under a unique display name, suffixing a random
// disambiguator when the requested name is taken. It never fails; the returned
// name is the one the roster will use for this session.
func (r *Room) Join(id uuid.UUID, requestedName string) string {
	r.mu.Lock()
	name := requestedName
	for r.nameTakenLocked(name) {
		name = fmt.Sprintf("%s_%d", requestedName, rand.Intn(99)+1)
	}
	r.participants[id] = &Participant{ID: id, Name: name}
	r.order = append(r.order, id)
	count := len(r.participants)

	out := []protocol.ServerMessage{protocol.Info(fmt.Sprintf("%s joined the room!", name))}
	r.checkRoomStatusLocked(&out)
	r.mu.Unlock()

	r.flush(out)
	r.publish(events.EventTypePlayerJoined, events.PlayerJoinedPayload{
		Name:     name,
		Players:  count,
		JoinedAt: time.Now().UTC(),
	})
	log.Info().Str("player", name).Int("players", count).Msg("player joined")
	return name
}

// Leave removes a participant and purges their ready flag and vote. Safe to
// call for sessions that never registered or that already left.
func (r *Room) Leave(id uuid.UUID) {
	r.mu.Lock()
	p, ok := r.participants[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.participants, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	delete(r.ready, p.Name)
	delete(r.votes, p.Name)
	count := len(r.participants)

	out := []protocol.ServerMessage{protocol.Info(fmt.Sprintf("%s left the room", p.Name))}
	r.checkRoomStatusLocked(&out)
	r.mu.Unlock()

	r.flush(out)
	r.publish(events.EventTypePlayerLeft, events.PlayerLeftPayload{
		Name:    p.Name,
		Players: count,
		LeftAt:  time.Now().UTC(),
	})
	log.Info().Str("player", p.Name).Int("players", count).Msg("player left")
}

// Ready marks a participant ready. Marking twice is harmless; the count only
// moves once per name.
func (r *Room) Ready(id uuid.UUID) error {
	r.mu.Lock()
	p, ok := r.participants[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("you are not in the room")
	}
	if r.phase != PhaseReadyCheck {
		r.mu.Unlock()
		return fmt.Errorf("ready is not accepted right now")
	}
	r.ready[p.Name] = true

	out := []protocol.ServerMessage{protocol.Info(
		fmt.Sprintf("%s is ready (%d/%d)", p.Name, len(r.ready), len(r.participants)))}
	r.checkRoomStatusLocked(&out)
	r.mu.Unlock()

	r.flush(out)
	return nil
}

// Vote records a participant's mode choice. A second vote from the same name
// is rejected. Once every participant has voted the mode is resolved and the
// round starts.
func (r *Room) Vote(id uuid.UUID, mode protocol.Mode) error {
	r.mu.Lock()
	p, ok := r.participants[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("you are not in the room")
	}
	if r.phase != PhaseVoting {
		r.mu.Unlock()
		return fmt.Errorf("it is not voting time")
	}
	if _, voted := r.votes[p.Name]; voted {
		r.mu.Unlock()
		return fmt.Errorf("you have already voted")
	}
	r.votes[p.Name] = mode

	out := []protocol.ServerMessage{protocol.Info(
		fmt.Sprintf("%s voted %s (%d/%d)", p.Name, mode, len(r.votes), len(r.participants)))}

	var started bool
	var startedPayload events.GameStartedPayload
	if len(r.votes) >= len(r.participants) {
		started, startedPayload = r.resolveVotesLocked(&out)
	}
	r.mu.Unlock()

	r.flush(out)
	if started {
		r.publish(events.EventTypeGameStarted, startedPayload)
	}
	return nil
}

// resolveVotesLocked tallies the votes, picks the mode (majority, uniform
// random on a tie), initializes a fresh prize pool, moves the room into the
// playing phase, and starts the round timer goroutine.
func (r *Room) resolveVotesLocked(out *[]protocol.ServerMessage) (bool, events.GameStartedPayload) {
	var autoVotes, manualVotes int
	for _, mode := range r.votes {
		if mode == protocol.ModeAuto {
			autoVotes++
		} else {
			manualVotes++
		}
	}

	var reason string
	switch {
	case autoVotes > manualVotes:
		r.mode = protocol.ModeAuto
		reason = "majority decision"
	case manualVotes > autoVotes:
		r.mode = protocol.ModeManual
		reason = "majority decision"
	default:
		if rand.Intn(2) == 0 {
			r.mode = protocol.ModeAuto
		} else {
			r.mode = protocol.ModeManual
		}
		reason = "tie broken at random"
	}

	*out = append(*out, protocol.Info(fmt.Sprintf(
		"voting closed! auto: %d vs manual: %d — %s mode (%s)",
		autoVotes, manualVotes, r.mode, reason)))

	r.pool.Initialize(len(r.participants))
	r.roundStop = false
	r.setPhaseLocked(PhasePlaying)

	*out = append(*out, protocol.Info(fmt.Sprintf(
		"game started! mode: %s | %d seconds | %d prizes up for grabs",
		r.mode, r.cfg.GameDuration, r.pool.Remaining())))

	go r.runRound()

	return true, events.GameStartedPayload{
		Mode:        string(r.mode),
		Players:     len(r.participants),
		PoolSize:    r.pool.Remaining(),
		DurationSec: r.cfg.GameDuration,
		StartedAt:   time.Now().UTC(),
	}
}

// TriggerDraw performs one manual draw for the requesting participant. Only
// valid while playing in manual mode; the prize label is returned to the
// requester and is not broadcast.
func (r *Room) TriggerDraw(id uuid.UUID) (string, error) {
	r.mu.Lock()
	p, ok := r.participants[id]
	if !ok {
		r.mu.Unlock()
		return "", fmt.Errorf("you are not in the room")
	}
	if r.phase != PhasePlaying {
		r.mu.Unlock()
		return "", fmt.Errorf("the game is not running")
	}
	if r.mode == protocol.ModeAuto {
		r.mu.Unlock()
		return "", fmt.Errorf("auto mode is running, manual draws are disabled")
	}

	item, ok := r.pool.DrawOne()
	if !ok {
		r.mu.Unlock()
		return "", fmt.Errorf("too slow! the prizes are all gone")
	}
	p.Score += item.Points
	name := p.Name
	r.mu.Unlock()

	log.Debug().Str("player", name).Str("prize", item.Label).Msg("manual draw")
	return item.Label, nil
}

// Replay resets the room after a finished round: scores back to zero, votes
// and ready flags cleared, phase back to waiting with an immediate room-status
// re-evaluation.
func (r *Room) Replay(id uuid.UUID) error {
	r.mu.Lock()
	if _, ok := r.participants[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("you are not in the room")
	}
	if r.phase != PhaseFinished {
		r.mu.Unlock()
		return fmt.Errorf("replay is only available after the game ends")
	}

	for _, p := range r.participants {
		p.Score = 0
	}
	r.ready = make(map[string]bool)
	r.votes = make(map[string]protocol.Mode)
	r.mode = ""
	r.roundStop = false
	r.setPhaseLocked(PhaseWaiting)

	out := []protocol.ServerMessage{protocol.Info("the room has been reset! ready up to play again")}
	r.checkRoomStatusLocked(&out)
	r.mu.Unlock()

	r.flush(out)
	log.Info().Msg("room reset for replay")
	return nil
}

// Shutdown requests cooperative cancellation of a running round. The timer
// observes the flag on its next tick.
func (r *Room) Shutdown() {
	r.mu.Lock()
	r.roundStop = true
	r.mu.Unlock()
}

// checkRoomStatusLocked re-evaluates the room after every roster or ready
// change and advances the phase when its entry condition is met.
func (r *Room) checkRoomStatusLocked(out *[]protocol.ServerMessage) {
	switch r.phase {
	case PhaseWaiting:
		if len(r.participants) >= r.cfg.MaxPlayers {
			r.setPhaseLocked(PhaseReadyCheck)
			*out = append(*out, protocol.Info("everyone is here! send ready to begin"))
		} else {
			*out = append(*out, protocol.Info(fmt.Sprintf(
				"waiting for players... (%d/%d)", len(r.participants), r.cfg.MaxPlayers)))
		}
	case PhaseReadyCheck:
		if len(r.ready) >= len(r.participants) && len(r.participants) >= r.cfg.MaxPlayers {
			r.setPhaseLocked(PhaseVoting)
			*out = append(*out, protocol.Info("all players ready! vote for a mode: auto (draws for you) or manual (race to draw)"))
		}
	}
}

func (r *Room) setPhaseLocked(next Phase) {
	if !r.phase.CanTransitionTo(next) {
		log.Warn().
			Str("from", r.phase.String()).
			Str("to", next.String()).
			Msg("blocked invalid phase transition")
		return
	}
	log.Info().
		Str("from", r.phase.String()).
		Str("to", next.String()).
		Msg("phase transition")
	r.phase = next
}

func (r *Room) nameTakenLocked(name string) bool {
	for _, p := range r.participants {
		if p.Name == name {
			return true
		}
	}
	return false
}

// flush broadcasts messages collected under the lock. Must be called after
// the lock is released so network writes never happen while holding it.
func (r *Room) flush(msgs []protocol.ServerMessage) {
	for _, msg := range msgs {
		r.broadcaster.Broadcast(msg)
	}
}

// publish emits a room lifecycle event. Best-effort: failures are logged only.
func (r *Room) publish(eventType events.EventType, payload any) {
	event, err := events.NewRoomEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build room event")
		return
	}
	if err := r.publisher.Publish(context.Background(), event); err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish room event")
	}
}

// Phase returns the current lifecycle phase.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Count returns the number of registered participants.
func (r *Room) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// Names returns the participant display names in join order.
func (r *Room) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		names = append(names, r.participants[id].Name)
	}
	return names
}

// ScoresSnapshot returns a copy of the current scores keyed by name.
func (r *Room) ScoresSnapshot() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	scores := make(map[string]int, len(r.participants))
	for _, p := range r.participants {
		scores[p.Name] = p.Score
	}
	return scores
}

// PrizesRemaining reports how many prizes are left in the current pool.
func (r *Room) PrizesRemaining() int {
	return r.pool.Remaining()
}
