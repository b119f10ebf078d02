package protocol

import (
	"strings"
	"testing"
)

func TestDecodeClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ClientMessage
		wantErr bool
	}{
		{
			name:  "register with name",
			input: `{"action":"register","name":"Ada"}`,
			want:  ClientMessage{Action: ActionRegister, Name: "Ada"},
		},
		{
			name:  "register without name defaults",
			input: `{"action":"register"}`,
			want:  ClientMessage{Action: ActionRegister, Name: "Player"},
		},
		{
			name:  "ready",
			input: `{"action":"ready"}`,
			want:  ClientMessage{Action: ActionReady},
		},
		{
			name:  "vote auto",
			input: `{"action":"vote","mode":"auto"}`,
			want:  ClientMessage{Action: ActionVote, Mode: ModeAuto},
		},
		{
			name:  "trigger draw",
			input: `{"action":"trigger_draw"}`,
			want:  ClientMessage{Action: ActionTriggerDraw},
		},
		{
			name:    "vote with bogus mode",
			input:   `{"action":"vote","mode":"turbo"}`,
			wantErr: true,
		},
		{
			name:    "vote without mode",
			input:   `{"action":"vote"}`,
			wantErr: true,
		},
		{
			name:    "unknown action",
			input:   `{"action":"dance"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			input:   `{"action":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeClientMessage([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestServerMessageEncodeOmitsEmptyFields(t *testing.T) {
	data, err := Info("hello").Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(data), "prize") {
		t.Errorf("info message should not carry a prize field: %s", data)
	}

	data, err = DrawResult("(100 pts)").Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), `"status":"draw_result"`) {
		t.Errorf("unexpected draw_result encoding: %s", data)
	}
	if !strings.Contains(string(data), `"prize":"(100 pts)"`) {
		t.Errorf("draw_result should carry the prize label: %s", data)
	}
}
