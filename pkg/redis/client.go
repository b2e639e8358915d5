// Package redis mirrors a chat session into Redis so other processes can
// follow it: every notification is published on a pub/sub channel and the
// latest roster snapshot is kept under a per-session key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tehcyx/bnetchat/pkg/session"
	"github.com/tehcyx/bnetchat/pkg/version"
)

const (
	// NotificationsChannel is the pub/sub channel notifications go to.
	NotificationsChannel = "bnetchat:notifications"

	// snapshotTTL bounds how long a snapshot outlives its session.
	snapshotTTL = 2 * time.Minute

	connectTimeout = time.Second
)

// Client wraps the Redis client for one chat session.
type Client struct {
	rdb       *redis.Client
	pubsub    *redis.PubSub
	sessionID string
}

// NotificationData is the published form of a notification.
type NotificationData struct {
	Session  string    `json:"session"`
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"time"`
	Category string    `json:"category"`
	Text     string    `json:"text"`
}

// SnapshotData is the stored form of a session snapshot.
type SnapshotData struct {
	Session   string            `json:"session"`
	Version   string            `json:"version"`
	Channel   string            `json:"channel"`
	Topic     string            `json:"topic"`
	Roster    []string          `json:"roster"`
	Roles     map[string]string `json:"roles"` // username -> role name
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewClient connects to redisURL on behalf of the chat session sessionID,
// whose id prefixes every key this client writes. The server must answer a
// PING within connectTimeout.
func NewClient(redisURL string, sessionID string) (*Client, error) {
	if sessionID == "" {
		return nil, errors.New("redis mirror needs a session id")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach Redis at %s: %w", opts.Addr, err)
	}

	return &Client{rdb: rdb, sessionID: sessionID}, nil
}

// Close ends a running notification subscription and drops the connection
// pool. Session keys are left to expire; call UnregisterSession first to
// remove them right away.
func (c *Client) Close() error {
	var subErr error
	if c.pubsub != nil {
		subErr = c.pubsub.Close()
	}
	return errors.Join(subErr, c.rdb.Close())
}

// Health reports whether the mirror can still reach Redis.
func (c *Client) Health(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis mirror unhealthy: %w", err)
	}
	return nil
}

// PublishNotification publishes n on NotificationsChannel.
func (c *Client) PublishNotification(ctx context.Context, n session.Notification) error {
	data, err := json.Marshal(newNotificationData(c.sessionID, n))
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := c.rdb.Publish(ctx, NotificationsChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

// SubscribeNotifications follows the notifications of every mirrored
// session until ctx is done.
func (c *Client) SubscribeNotifications(ctx context.Context) (<-chan *NotificationData, error) {
	c.pubsub = c.rdb.Subscribe(ctx, NotificationsChannel)

	// Wait for subscription confirmation
	if _, err := c.pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan *NotificationData)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-c.pubsub.Channel():
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				var n NotificationData
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					continue
				}
				select {
				case out <- &n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// StoreSnapshot replaces the stored snapshot of this session.
func (c *Client) StoreSnapshot(ctx context.Context, snap session.Snapshot) error {
	data, err := json.Marshal(newSnapshotData(c.sessionID, snap, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.rdb.Set(ctx, snapshotKey(c.sessionID), data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	return nil
}

// GetSnapshot returns the stored snapshot of sessionID.
func (c *Client) GetSnapshot(ctx context.Context, sessionID string) (*SnapshotData, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap SnapshotData
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

func snapshotKey(sessionID string) string {
	return fmt.Sprintf("bnetchat:session:%s:snapshot", sessionID)
}

func newNotificationData(sessionID string, n session.Notification) NotificationData {
	return NotificationData{
		Session:  sessionID,
		Seq:      n.Seq,
		Time:     n.Time,
		Category: n.Category.String(),
		Text:     n.Text,
	}
}

func newSnapshotData(sessionID string, snap session.Snapshot, now time.Time) SnapshotData {
	roles := make(map[string]string, len(snap.Roles))
	for user, role := range snap.Roles {
		roles[user] = role.String()
	}
	return SnapshotData{
		Session:   sessionID,
		Version:   version.GetVersion(),
		Channel:   snap.Channel,
		Topic:     snap.Topic,
		Roster:    snap.Roster,
		Roles:     roles,
		UpdatedAt: now,
	}
}
