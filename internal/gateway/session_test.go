package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Fangzx-code/TCP-IP/internal/events"
	"github.com/Fangzx-code/TCP-IP/internal/protocol"
	"github.com/Fangzx-code/TCP-IP/internal/room"
)

// fakeTransport feeds scripted inbound records and captures everything the
// session writes back.
type fakeTransport struct {
	in chan []byte

	mu  sync.Mutex
	out [][]byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case data, ok := <-f.in:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-f.closed:
		return nil, io.EOF
	}
}

func (f *fakeTransport) WriteMessage(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	f.out = append(f.out, buf)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) received(t *testing.T) []protocol.ServerMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := make([]protocol.ServerMessage, 0, len(f.out))
	for _, data := range f.out {
		var msg protocol.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("session wrote undecodable record %q: %v", data, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// failingTransport rejects every write, standing in for a dead peer.
type failingTransport struct{}

func (failingTransport) ReadMessage() ([]byte, error) { return nil, io.EOF }

func (failingTransport) WriteMessage(data []byte) error { return fmt.Errorf("peer gone") }

func (failingTransport) Close() error { return nil }

func raw(action protocol.Action, fields map[string]string) []byte {
	m := map[string]string{"action": string(action)}
	for k, v := range fields {
		m[k] = v
	}
	data, _ := json.Marshal(m)
	return data
}

func newTestSetup() (*room.Room, *Manager) {
	manager := NewManager()
	rm := room.NewRoom(room.DefaultConfig(), manager, events.NewNopPublisher())
	return rm, manager
}

func waitFor(t *testing.T, cond func() bool, desc string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func TestSessionWelcomeAndRegistration(t *testing.T) {
	rm, manager := newTestSetup()

	ft := newFakeTransport()
	ft.in <- raw(protocol.ActionReady, nil) // ignored before registration
	ft.in <- raw(protocol.ActionRegister, map[string]string{"name": "Ada"})
	close(ft.in)

	NewSession(ft, "test", rm, manager).Run()

	msgs := ft.received(t)
	if len(msgs) == 0 || msgs[0].Status != protocol.StatusWelcome {
		t.Fatalf("first message = %+v, want a welcome", msgs)
	}
	for _, msg := range msgs {
		if msg.Status == protocol.StatusError {
			t.Errorf("pre-registration ready should be ignored, got error %q", msg.Message)
		}
	}

	joined := false
	for _, msg := range msgs {
		if msg.Status == protocol.StatusInfo && msg.Message == "Ada joined the room!" {
			joined = true
		}
	}
	if !joined {
		t.Error("registering session never saw its own join broadcast")
	}

	// Disconnect cleanup ran when Run returned.
	if got := rm.Count(); got != 0 {
		t.Errorf("room count after disconnect = %d, want 0", got)
	}
	if got := manager.Count(); got != 0 {
		t.Errorf("manager count after disconnect = %d, want 0", got)
	}
}

func TestSessionDuplicateRegisterRejected(t *testing.T) {
	rm, manager := newTestSetup()

	ft := newFakeTransport()
	ft.in <- raw(protocol.ActionRegister, map[string]string{"name": "Ada"})
	ft.in <- raw(protocol.ActionRegister, map[string]string{"name": "Eve"})
	close(ft.in)

	NewSession(ft, "test", rm, manager).Run()

	rejected := false
	for _, msg := range ft.received(t) {
		if msg.Status == protocol.StatusError {
			rejected = true
		}
	}
	if !rejected {
		t.Error("second register on the same connection should be rejected")
	}
}

func TestSessionDropsMalformedInput(t *testing.T) {
	rm, manager := newTestSetup()

	ft := newFakeTransport()
	ft.in <- []byte("this is not json")
	ft.in <- []byte(`{"action":"dance"}`)
	ft.in <- raw(protocol.ActionRegister, map[string]string{"name": "Ada"})
	close(ft.in)

	NewSession(ft, "test", rm, manager).Run()

	for _, msg := range ft.received(t) {
		if msg.Status == protocol.StatusError {
			t.Errorf("malformed input must be dropped silently, got error %q", msg.Message)
		}
	}
}

func TestSessionOutOfPhaseActionGetsErrorReply(t *testing.T) {
	rm, manager := newTestSetup()

	ft := newFakeTransport()
	ft.in <- raw(protocol.ActionRegister, map[string]string{"name": "Ada"})
	ft.in <- raw(protocol.ActionTriggerDraw, nil)
	close(ft.in)

	NewSession(ft, "test", rm, manager).Run()

	rejected := false
	for _, msg := range ft.received(t) {
		if msg.Status == protocol.StatusError {
			rejected = true
		}
	}
	if !rejected {
		t.Error("trigger_draw outside the playing phase should get an error reply")
	}
}

func TestBroadcastSurvivesDeadPeer(t *testing.T) {
	rm, manager := newTestSetup()

	healthy := newFakeTransport()

	manager.Register(NewSession(healthy, "healthy", rm, manager))
	manager.Register(NewSession(failingTransport{}, "dead", rm, manager))

	manager.Broadcast(protocol.Info("hello"))

	got := false
	for _, msg := range healthy.received(t) {
		if msg.Status == protocol.StatusInfo && msg.Message == "hello" {
			got = true
		}
	}
	if !got {
		t.Error("healthy peer missed a broadcast because another peer was dead")
	}
	if got := manager.Count(); got != 2 {
		t.Errorf("broadcast must not evict sessions, manager count = %d, want 2", got)
	}
}

// Full protocol walk over two concurrent sessions: register, ready, vote
// manual, draw, confirm the draw result only reaches the drawer.
func TestTwoSessionManualGameFlow(t *testing.T) {
	rm, manager := newTestSetup()

	ft1, ft2 := newFakeTransport(), newFakeTransport()
	go NewSession(ft1, "p1", rm, manager).Run()
	go NewSession(ft2, "p2", rm, manager).Run()
	defer close(ft1.in)
	defer close(ft2.in)

	ft1.in <- raw(protocol.ActionRegister, map[string]string{"name": "A"})
	waitFor(t, func() bool { return rm.Count() == 1 }, "first registration")
	ft2.in <- raw(protocol.ActionRegister, map[string]string{"name": "B"})
	waitFor(t, func() bool { return rm.Phase() == room.PhaseReadyCheck }, "ready check")

	ft1.in <- raw(protocol.ActionReady, nil)
	ft2.in <- raw(protocol.ActionReady, nil)
	waitFor(t, func() bool { return rm.Phase() == room.PhaseVoting }, "voting")

	ft1.in <- raw(protocol.ActionVote, map[string]string{"mode": "manual"})
	ft2.in <- raw(protocol.ActionVote, map[string]string{"mode": "manual"})
	waitFor(t, func() bool { return rm.Phase() == room.PhasePlaying }, "playing")

	ft1.in <- raw(protocol.ActionTriggerDraw, nil)
	waitFor(t, func() bool {
		for _, msg := range ft1.received(t) {
			if msg.Status == protocol.StatusDrawResult {
				return true
			}
		}
		return false
	}, "draw result")

	for _, msg := range ft2.received(t) {
		if msg.Status == protocol.StatusDrawResult {
			t.Error("draw result must only go to the requesting session")
		}
	}

	rm.Shutdown()
}
