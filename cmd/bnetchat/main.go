package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tehcyx/bnetchat/internal/config"
	"github.com/tehcyx/bnetchat/pkg/chat"
	"github.com/tehcyx/bnetchat/pkg/client"
	"github.com/tehcyx/bnetchat/pkg/redis"
	"github.com/tehcyx/bnetchat/pkg/version"
)

const passwordEnv = "BNETCHAT_PASSWORD"

var (
	configFile  string
	serverFlag  string
	userFlag    string
	channelFlag string
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:           "bnetchat",
	Short:         "Chat client for Battle.net style chat gateways",
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func init() {
	rootCmd.SetVersionTemplate(version.UserAgent() + "\n")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.bnetchat/conf.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&serverFlag, "server", "", "Gateway address host:port")
	rootCmd.Flags().StringVar(&userFlag, "user", "", "Account name")
	rootCmd.Flags().StringVar(&channelFlag, "channel", "", "Channel to join after login")
	rootCmd.AddCommand(watchCmd)
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig() (*config.Config, error) {
	path := configFile
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if serverFlag != "" {
		cfg.Server.Address = serverFlag
	}
	if userFlag != "" {
		cfg.Server.Username = userFlag
	}
	if channelFlag != "" {
		cfg.Server.Channel = channelFlag
	}
	if debug {
		cfg.Debug = true
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	return cfg, nil
}

// readPassword prompts on the terminal, or takes BNETCHAT_PASSWORD when
// stdin is not one. The password is used exactly as given.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		if pw := os.Getenv(passwordEnv); pw != "" {
			return pw, nil
		}
		return "", fmt.Errorf("stdin is not a terminal and %s is not set", passwordEnv)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	bytes, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	password, err := readPassword()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := chat.Options{Options: cfg.ClientOptions()}
	opts.SessionID = uuid.New()

	var mirror *redis.Client
	if cfg.Redis.Enabled {
		mirror, err = redis.NewClient(cfg.Redis.URL, opts.SessionID.String())
		if err != nil {
			return err
		}
		defer mirror.Close()
		opts.Mirror = mirror
	}

	creds := client.Credentials{Server: cfg.Server.Address, Username: cfg.Server.Username, Password: password}
	c, err := chat.Open(ctx, creds, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	var p presence
	if mirror != nil {
		p = mirror
		if err := mirror.RegisterSession(ctx, creds.Username, creds.Server); err != nil {
			log.Warnf("Failed to register session: %v", err)
		}
		defer mirror.UnregisterSession(context.Background())
	}

	quit := make(chan struct{})
	go readCommands(os.Stdin, c, quit)

	return printLoop(ctx, c, os.Stdout, quit, p)
}

type presence interface {
	Heartbeat(ctx context.Context, channel string) error
}

// readCommands sends every stdin line to the gateway until /quit or EOF.
func readCommands(r io.Reader, c *chat.Client, quit chan<- struct{}) {
	defer close(quit)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}
		if err := c.Send(line); err != nil {
			if errors.Is(err, client.ErrNotConnected) {
				return
			}
			log.Errorf("Send failed: %v", err)
		}
	}
}

// printLoop prints notifications until the session ends, the user quits or
// ctx is cancelled. The session state is only touched from here, so the
// presence heartbeat runs here too.
func printLoop(ctx context.Context, c *chat.Client, w io.Writer, quit <-chan struct{}, p presence) error {
	ticker := time.NewTicker(client.DefaultPollInterval)
	defer ticker.Stop()

	var beat <-chan time.Time
	if p != nil {
		hb := time.NewTicker(redis.HeartbeatInterval)
		defer hb.Stop()
		beat = hb.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-quit:
			return nil
		case <-beat:
			if err := p.Heartbeat(ctx, c.Snapshot().Channel); err != nil {
				log.Warnf("Heartbeat failed: %v", err)
			}
			continue
		case <-c.Ready():
		case <-ticker.C:
		}

		for _, n := range c.Poll(ctx) {
			fmt.Fprintf(w, "[%s] %s\n", n.Time.Format("15:04:05"), n.Text)
		}
		if c.Finished() {
			return nil
		}
	}
}
