// Package protocol implements the wire side of the Battle.net-style chat
// gateway: the numeric code table, line framing and event decoding.
package protocol

// Kind is the semantic kind a numeric code maps to.
type Kind int

const (
	KindUnknown Kind = iota
	KindUser
	KindJoin
	KindLeave
	KindWhisper
	KindWhisperTo
	KindTalk
	KindBroadcast
	KindInfo
	KindError
	KindStats
	KindInGame
	KindLoggedIn
	KindLoggedOut
	KindChannel
)

var kindNames = [...]string{
	KindUnknown:   "UNKNOWN",
	KindUser:      "USER",
	KindJoin:      "JOIN",
	KindLeave:     "LEAVE",
	KindWhisper:   "WHISPER",
	KindWhisperTo: "WHISPER_TO",
	KindTalk:      "TALK",
	KindBroadcast: "BROADCAST",
	KindInfo:      "INFO",
	KindError:     "ERROR",
	KindStats:     "STATS",
	KindInGame:    "INGAME",
	KindLoggedIn:  "LOGGED_IN",
	KindLoggedOut: "LOGGED_OUT",
	KindChannel:   "CHANNEL",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

const (
	// Chat event codes
	CodeUser      = "1001"
	CodeJoin      = "1002"
	CodeLeave     = "1003"
	CodeWhisper   = "1004"
	CodeTalk      = "1005"
	CodeBroadcast = "1006"
	CodeChannel   = "1007"
	CodeUserFlags = "1009" // flags update for a user already listed
	CodeWhisperTo = "1010"
	// !Chat event codes

	// Server messages
	CodeInfo      = "1018"
	CodeError     = "1019"
	CodeStats     = "1020"
	CodeInGame    = "1021"
	CodeLoggedIn  = "1022"
	CodeLoggedOut = "1023"
	// !Server messages

	// CodeName precedes "NAME <username>" once the gateway accepted the login.
	CodeName = "2010"
)

// Selector is the protocol-selector byte opening a chat session.
const Selector byte = 0x03

// CodeTable maps a numeric code to its kind. Codes missing from the table
// decode as KindUnknown.
type CodeTable map[string]Kind

// DefaultCodeTable is the code table spoken by the gateway.
var DefaultCodeTable = CodeTable{
	CodeUser:      KindUser,
	CodeJoin:      KindJoin,
	CodeLeave:     KindLeave,
	CodeWhisper:   KindWhisper,
	CodeTalk:      KindTalk,
	CodeBroadcast: KindBroadcast,
	CodeChannel:   KindChannel,
	CodeUserFlags: KindUser,
	CodeWhisperTo: KindWhisperTo,
	CodeInfo:      KindInfo,
	CodeError:     KindError,
	CodeStats:     KindStats,
	CodeInGame:    KindInGame,
	CodeLoggedIn:  KindLoggedIn,
	CodeLoggedOut: KindLoggedOut,
}

// Lookup returns the kind for code, KindUnknown when absent.
func (t CodeTable) Lookup(code string) Kind {
	if k, ok := t[code]; ok {
		return k
	}
	return KindUnknown
}

// CodeOf returns the leading numeric code of a raw line.
func CodeOf(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == ' ' {
			return line[:i]
		}
	}
	return line
}
