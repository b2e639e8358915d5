package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Event
	}{
		{"user", "1001 USER Bob 0010 [CHAT]", UserListed{User: "Bob", RoleCode: "0010"}},
		{"user flags", "1009 USER Bob 0000", UserListed{User: "Bob", RoleCode: "0000"}},
		{"join", "1002 X Alice", Joined{User: "Alice"}},
		{"join with flags", "1002 JOIN Alice 0010 [W3XP]", Joined{User: "Alice"}},
		{"leave", "1003 LEAVE Alice", Left{User: "Alice"}},
		{"whisper", "1004 WHISPER Bob me hello there", Whisper{From: "Bob", Text: "hello there"}},
		{"whisper empty text", "1004 WHISPER Bob me", Whisper{From: "Bob", Text: ""}},
		{"whisper echo", "1010 WHISPER Carol me see you", WhisperEcho{To: "Carol", Text: "see you"}},
		{"talk", "1005 TALK Bob hi all", Talk{From: "Bob", Text: "hi all"}},
		{"broadcast", "1006 BROADCAST Server restarts soon", Broadcast{Text: "Server restarts soon"}},
		{"info", "1018 INFO Welcome to the gateway", Info{Kind: KindInfo, Text: "Welcome to the gateway"}},
		{"topic", `1018 INFO "w3" topic: ladder tonight`, ChannelTopicUpdate{Channel: "w3", Topic: "ladder tonight"}},
		{"topic unquoted", "1018 INFO w3 topic: ladder tonight", ChannelTopicUpdate{Channel: "w3", Topic: "ladder tonight"}},
		{"stats", "1020 STATS 12 wins", Info{Kind: KindStats, Text: "12 wins"}},
		{"in game", "1021 INGAME Bob is in a game", Info{Kind: KindInGame, Text: "Bob is in a game"}},
		{"logged in", "1022 LOGGEDIN Bob", Info{Kind: KindLoggedIn, Text: "Bob"}},
		{"logged out", "1023 LOGGEDOUT Bob", Info{Kind: KindLoggedOut, Text: "Bob"}},
		{"error", "1019 ERROR That user is not logged on.", Error{Text: "That user is not logged on."}},
		{"channel", `1007 CHANNEL "w3"`, ChannelReset{Channel: "w3"}},
		{"channel bare", "1007 CHANNEL", ChannelReset{}},
		{"unknown", "1234 X what is this", Unknown{Raw: "1234 X what is this", Text: "what is this"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.line, DefaultCodeTable))
		})
	}
}

func TestDecodeKeepsSpacing(t *testing.T) {
	ev := Decode("1005 TALK Bob a  b   c ", DefaultCodeTable)
	assert.Equal(t, Talk{From: "Bob", Text: "a  b   c "}, ev)
}

func TestDecodeMalformed(t *testing.T) {
	lines := []string{
		"9999",
		"",
		"1002 X",
		"1003 LEAVE",
		"1001 USER Bob",
		"1004 WHISPER Bob",
		"1005 TALK",
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			var ev Event
			require.NotPanics(t, func() { ev = Decode(line, DefaultCodeTable) })
			errEv, ok := ev.(Error)
			require.True(t, ok, "expected Error, got %T", ev)
			assert.Contains(t, errEv.Text, `"`+line+`"`)
		})
	}
}

func TestDecodeUsesGivenTable(t *testing.T) {
	table := CodeTable{"42": KindJoin}
	assert.Equal(t, Joined{User: "Alice"}, Decode("42 X Alice", table))
	assert.IsType(t, Unknown{}, Decode("1002 X Alice", table))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "WHISPER_TO", KindWhisperTo.String())
	assert.Equal(t, "UNKNOWN", Kind(99).String())
	assert.Equal(t, KindChannel, DefaultCodeTable.Lookup(CodeOf(`1007 CHANNEL "w3"`)))
	assert.Equal(t, "9999", CodeOf("9999"))
}
