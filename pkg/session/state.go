// Package session keeps the client-side view of a chat session (roster,
// roles, channel and topic) and derives display notifications from decoded
// protocol events.
package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/tehcyx/bnetchat/pkg/protocol"
)

// Category tags a notification with what happened.
type Category int

const (
	CategoryJoin Category = iota
	CategoryLeave
	CategoryWhisper
	CategoryWhisperEcho
	CategoryTalk
	CategoryBroadcast
	CategoryInfo
	CategoryError
	CategoryUnknown
)

func (c Category) String() string {
	switch c {
	case CategoryJoin:
		return "join"
	case CategoryLeave:
		return "leave"
	case CategoryWhisper:
		return "whisper"
	case CategoryWhisperEcho:
		return "whisper_echo"
	case CategoryTalk:
		return "talk"
	case CategoryBroadcast:
		return "broadcast"
	case CategoryInfo:
		return "info"
	case CategoryError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is a display-ready message derived from exactly one event.
// Seq increases by one per notification of a State.
type Notification struct {
	Seq      uint64
	Time     time.Time
	Category Category
	Text     string
}

// Snapshot is a copy of the state safe to hand to other goroutines.
type Snapshot struct {
	Roster  []string
	Roles   map[string]Role
	Channel string
	Topic   string
}

// State is the session view owned by the single consumer of a connection's
// line queue. It is not safe for concurrent use.
type State struct {
	roster  map[string]struct{}
	roles   map[string]Role
	channel string
	topic   string

	seq uint64
	now func() time.Time
}

// Option configures a State.
type Option func(*State)

// WithClock replaces the wall clock used to stamp notifications.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		s.now = now
	}
}

// New returns an empty state.
func New(opts ...Option) *State {
	s := &State{
		roster: make(map[string]struct{}),
		roles:  make(map[string]Role),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply folds ev into the state and returns the notifications it produced,
// in order. Events must be applied in wire order.
func (s *State) Apply(ev protocol.Event) []Notification {
	switch e := ev.(type) {
	case protocol.UserListed:
		s.addUser(e.User, RoleFromCode(e.RoleCode))
		return nil

	case protocol.Joined:
		// joins carry no role code: a newcomer is a plain user, a known
		// user keeps what was recorded
		s.addUser(e.User, RoleUser)
		return s.notify(CategoryJoin, fmt.Sprintf("%s has joined the channel", e.User))

	case protocol.Left:
		delete(s.roster, e.User)
		delete(s.roles, e.User)
		return s.notify(CategoryLeave, fmt.Sprintf("%s has left the channel", e.User))

	case protocol.Whisper:
		return s.notify(CategoryWhisper, fmt.Sprintf("%s whispers: %s", e.From, e.Text))

	case protocol.WhisperEcho:
		return s.notify(CategoryWhisperEcho, fmt.Sprintf("You whisper %s: %s", e.To, e.Text))

	case protocol.Talk:
		return s.notify(CategoryTalk, fmt.Sprintf("%s: %s", e.From, e.Text))

	case protocol.Broadcast:
		return s.notify(CategoryBroadcast, fmt.Sprintf("Broadcast: %s", e.Text))

	case protocol.Info:
		return s.notify(CategoryInfo, fmt.Sprintf("%s: %s", e.Kind, e.Text))

	case protocol.Error:
		return s.notify(CategoryError, fmt.Sprintf("ERROR: %s", e.Text))

	case protocol.Unknown:
		return s.notify(CategoryUnknown, fmt.Sprintf("Unknown: %s", e.Raw))

	case protocol.ChannelTopicUpdate:
		s.channel = e.Channel
		s.topic = e.Topic
		return nil

	case protocol.ChannelReset:
		s.roster = make(map[string]struct{})
		s.roles = make(map[string]Role)
		if e.Channel != "" {
			s.channel = e.Channel
			s.topic = ""
		}
		return nil
	}
	return nil
}

// addUser records user in the roster. A recorded role is only replaced by a
// higher one.
func (s *State) addUser(user string, role Role) {
	s.roster[user] = struct{}{}
	if current, ok := s.roles[user]; ok && current >= role {
		return
	}
	s.roles[user] = role
}

func (s *State) notify(cat Category, text string) []Notification {
	s.seq++
	return []Notification{{
		Seq:      s.seq,
		Time:     s.now(),
		Category: cat,
		Text:     text,
	}}
}

// Contains reports whether user is in the roster.
func (s *State) Contains(user string) bool {
	_, ok := s.roster[user]
	return ok
}

// Role returns the recorded role of user.
func (s *State) Role(user string) (Role, bool) {
	r, ok := s.roles[user]
	return r, ok
}

// Roster returns the roster sorted by name.
func (s *State) Roster() []string {
	users := make([]string, 0, len(s.roster))
	for u := range s.roster {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Channel returns the current channel name and topic, empty when unknown.
func (s *State) Channel() (name, topic string) {
	return s.channel, s.topic
}

// Snapshot copies the state.
func (s *State) Snapshot() Snapshot {
	roles := make(map[string]Role, len(s.roles))
	for u, r := range s.roles {
		roles[u] = r
	}
	return Snapshot{
		Roster:  s.Roster(),
		Roles:   roles,
		Channel: s.channel,
		Topic:   s.topic,
	}
}
