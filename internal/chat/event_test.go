package chat

import "testing"

func TestCommand(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOk bool
	}{
		{"/connect", "connect", true},
		{"  /Cancel  ", "cancel", true},
		{"/connect@zapbot", "connect", true},
		{"/connect now please", "connect", true},
		{"connect", "", false},
		{"/", "", false},
		{"/@zapbot", "", false},
		{"⚡ nice", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := Event{Text: tt.text}.Command()
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("Command(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestConversationKey(t *testing.T) {
	ev := Event{Ref: MessageRef{ConversationID: "c1"}, Sender: User{ID: "u1"}}
	if got := ev.ConversationKey(); got != "c1:u1" {
		t.Errorf("ConversationKey() = %q", got)
	}
}

func TestMultiParty(t *testing.T) {
	if ConversationPrivate.MultiParty() {
		t.Error("private conversation reported as multi-party")
	}
	if !ConversationGroup.MultiParty() || !ConversationBroadcast.MultiParty() {
		t.Error("group and broadcast must be multi-party")
	}
}
