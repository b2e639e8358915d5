package protocol

// Event is one decoded protocol line. The set of implementations is closed;
// switch on the concrete type.
type Event interface {
	event()
}

// UserListed reports a user already present in the channel, with the raw
// four digit role code the gateway attached.
type UserListed struct {
	User     string
	RoleCode string
}

// Joined reports a user entering the channel.
type Joined struct {
	User string
}

// Left reports a user leaving the channel.
type Left struct {
	User string
}

// Whisper is a private message addressed to us.
type Whisper struct {
	From string
	Text string
}

// WhisperEcho is the gateway echoing a whisper we sent.
type WhisperEcho struct {
	To   string
	Text string
}

// Talk is a public channel message.
type Talk struct {
	From string
	Text string
}

// Broadcast is a server-wide announcement without sender.
type Broadcast struct {
	Text string
}

// Info is an informational server line. Kind is KindInfo or one of the
// status kinds (stats, in game, logged in/out) that carry free text only.
type Info struct {
	Kind Kind
	Text string
}

// ChannelTopicUpdate is an info line announcing the topic of a channel.
type ChannelTopicUpdate struct {
	Channel string
	Topic   string
}

// ChannelReset announces that the server is about to rebuild the channel
// membership. Channel is empty when the line carried no name.
type ChannelReset struct {
	Channel string
}

// Error is either a server error line or a local diagnostic for a line that
// could not be decoded.
type Error struct {
	Text string
}

// Unknown is a line whose code is not in the code table.
type Unknown struct {
	Raw  string
	Text string
}

func (UserListed) event()         {}
func (Joined) event()             {}
func (Left) event()               {}
func (Whisper) event()            {}
func (WhisperEcho) event()        {}
func (Talk) event()               {}
func (Broadcast) event()          {}
func (Info) event()               {}
func (ChannelTopicUpdate) event() {}
func (ChannelReset) event()       {}
func (Error) event()              {}
func (Unknown) event()            {}
