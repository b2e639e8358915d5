package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tehcyx/bnetchat/pkg/redis"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the notifications of every mirrored session",
	Long: `Watch lists the sessions currently mirrored into Redis and then prints
every notification they publish. It needs redis.url from the config file;
redis.enabled only matters for the chat command.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := redis.NewClient(cfg.Redis.URL, uuid.NewString())
	if err != nil {
		return err
	}
	defer rc.Close()

	sessions, err := rc.ActiveSessions(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printSessions(out, sessions)

	notes, err := rc.SubscribeNotifications(ctx)
	if err != nil {
		return err
	}
	for n := range notes {
		fmt.Fprintf(out, "[%s] %s %s\n", n.Time.Format("15:04:05"), shortID(n.Session), n.Text)
	}
	return nil
}

func printSessions(w io.Writer, sessions []redis.SessionInfo) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No active sessions")
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s %s@%s in %q since %s\n",
			shortID(s.SessionID), s.Username, s.Server, s.Channel, s.StartTime.Format("15:04:05"))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
