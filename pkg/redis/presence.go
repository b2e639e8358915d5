package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tehcyx/bnetchat/pkg/version"
)

// Session presence
// Every mirrored session registers itself and refreshes its entry with a
// heartbeat so watchers can list live sessions.

const (
	activeSessionsKey = "bnetchat:sessions:active"

	presenceTTL = 30 * time.Second
	// HeartbeatInterval is how often a live session should call Heartbeat.
	HeartbeatInterval = 10 * time.Second
)

// SessionInfo describes a live mirrored session.
type SessionInfo struct {
	SessionID     string    `json:"session_id"`
	Username      string    `json:"username"`
	Server        string    `json:"server"`
	Channel       string    `json:"channel"`
	StartTime     time.Time `json:"start_time"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Version       string    `json:"version"`
}

func presenceKey(sessionID string) string {
	return fmt.Sprintf("bnetchat:session:%s:info", sessionID)
}

// RegisterSession announces this session.
func (c *Client) RegisterSession(ctx context.Context, username, server string) error {
	now := time.Now()
	info := SessionInfo{
		SessionID:     c.sessionID,
		Username:      username,
		Server:        server,
		StartTime:     now,
		LastHeartbeat: now,
		Version:       version.GetVersion(),
	}
	if err := c.storeSessionInfo(ctx, info); err != nil {
		return fmt.Errorf("failed to register session: %w", err)
	}

	if err := c.rdb.SAdd(ctx, activeSessionsKey, c.sessionID).Err(); err != nil {
		return fmt.Errorf("failed to add session to active set: %w", err)
	}

	return nil
}

// Heartbeat refreshes the presence entry and records the current channel.
func (c *Client) Heartbeat(ctx context.Context, channel string) error {
	data, err := c.rdb.Get(ctx, presenceKey(c.sessionID)).Result()
	if err == goredis.Nil {
		return fmt.Errorf("session not registered: %s", c.sessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to get session info: %w", err)
	}

	var info SessionInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return fmt.Errorf("failed to unmarshal session info: %w", err)
	}
	info.LastHeartbeat = time.Now()
	info.Channel = channel

	if err := c.storeSessionInfo(ctx, info); err != nil {
		return fmt.Errorf("failed to send heartbeat: %w", err)
	}
	return nil
}

func (c *Client) storeSessionInfo(ctx context.Context, info SessionInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal session info: %w", err)
	}
	return c.rdb.Set(ctx, presenceKey(info.SessionID), data, presenceTTL).Err()
}

// ActiveSessions returns the sessions whose heartbeat is recent. Expired
// entries are pruned from the active set on the way.
func (c *Client) ActiveSessions(ctx context.Context) ([]SessionInfo, error) {
	ids, err := c.rdb.SMembers(ctx, activeSessionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get active sessions: %w", err)
	}

	var sessions []SessionInfo
	for _, id := range ids {
		data, err := c.rdb.Get(ctx, presenceKey(id)).Result()
		if err == goredis.Nil {
			c.rdb.SRem(ctx, activeSessionsKey, id)
			continue
		}
		if err != nil {
			continue
		}

		var info SessionInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil {
			continue
		}
		sessions = append(sessions, info)
	}

	return sessions, nil
}

// UnregisterSession removes every key of this session.
func (c *Client) UnregisterSession(ctx context.Context) error {
	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, presenceKey(c.sessionID))
	pipe.Del(ctx, snapshotKey(c.sessionID))
	pipe.SRem(ctx, activeSessionsKey, c.sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to unregister session: %w", err)
	}
	return nil
}
