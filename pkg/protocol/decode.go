package protocol

import (
	"fmt"
	"strings"
)

// topicSeparator splits an info line into channel name and topic.
const topicSeparator = " topic: "

// Decode turns one protocol line into an Event. It never fails: lines
// missing required tokens come back as an Error event naming the raw line.
//
// Layout: "<code> <text type> <payload...>". The text type token is legacy
// and ignored, the code alone selects the kind. Payload text is taken as the
// exact remainder of the line so spacing survives.
func Decode(line string, table CodeTable) Event {
	code, rest, ok := strings.Cut(line, " ")
	if !ok || code == "" {
		return malformed(line, "missing text type")
	}
	_, payload, _ := strings.Cut(rest, " ")

	kind := table.Lookup(code)
	switch kind {
	case KindUser:
		user, rest := nextToken(payload)
		role, _ := nextToken(rest)
		if user == "" || role == "" {
			return malformed(line, "USER needs username and role code")
		}
		return UserListed{User: user, RoleCode: role}

	case KindJoin:
		user, _ := nextToken(payload)
		if user == "" {
			return malformed(line, "JOIN needs username")
		}
		return Joined{User: user}

	case KindLeave:
		user, _ := nextToken(payload)
		if user == "" {
			return malformed(line, "LEAVE needs username")
		}
		return Left{User: user}

	case KindWhisper, KindWhisperTo:
		peer, rest := nextToken(payload)
		if peer == "" || rest == "" {
			return malformed(line, fmt.Sprintf("%s needs sender and recipient", kind))
		}
		// token after the peer is the other party, always us: dropped
		_, text := nextToken(rest)
		if kind == KindWhisperTo {
			return WhisperEcho{To: peer, Text: text}
		}
		return Whisper{From: peer, Text: text}

	case KindTalk:
		from, text := nextToken(payload)
		if from == "" {
			return malformed(line, "TALK needs sender")
		}
		return Talk{From: from, Text: text}

	case KindBroadcast:
		return Broadcast{Text: payload}

	case KindInfo:
		if channel, topic, found := strings.Cut(payload, topicSeparator); found {
			return ChannelTopicUpdate{Channel: channelName(channel), Topic: topic}
		}
		return Info{Kind: KindInfo, Text: payload}

	case KindStats, KindInGame, KindLoggedIn, KindLoggedOut:
		return Info{Kind: kind, Text: payload}

	case KindError:
		return Error{Text: payload}

	case KindChannel:
		return ChannelReset{Channel: channelName(payload)}

	default:
		return Unknown{Raw: line, Text: payload}
	}
}

// channelName drops the quotes the gateway puts around channel names.
func channelName(s string) string {
	return strings.Trim(s, `"`)
}

// nextToken splits s at the first single space. A missing space yields the
// whole string and an empty remainder.
func nextToken(s string) (token, rest string) {
	token, rest, _ = strings.Cut(s, " ")
	return token, rest
}

func malformed(line, reason string) Error {
	return Error{Text: fmt.Sprintf("malformed line %q: %s", line, reason)}
}
