package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/matheus3301/tabroom/internal/chat"
	"github.com/matheus3301/tabroom/internal/client"
	"github.com/matheus3301/tabroom/internal/config"
	"github.com/matheus3301/tabroom/internal/profile"
	"github.com/spf13/cobra"
)

var (
	flagProfile string
	flagSession string
	flagJSON    bool
	flagTimeout time.Duration
	flagTo      string
)

var rootCmd = &cobra.Command{
	Use:           "tabroomctl",
	Short:         "Control a running tab daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagProfile, "profile", "", "profile name (overrides config default)")
	flags.StringVar(&flagSession, "session", "", "session name (overrides config default)")
	flags.BoolVar(&flagJSON, "json", false, "output in JSON format")
	flags.DurationVar(&flagTimeout, "timeout", 10*time.Second, "request timeout")

	sendCmd.Flags().StringVar(&flagTo, "to", "", "recipient user id (defaults to the selected peer)")

	rootCmd.AddCommand(statusCmd, usersCmd, selectCmd, sendCmd, conversationCmd, historyCmd, clearCmd, watchCmd, closeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// connect resolves the target session and dials its daemon.
func connect() (*client.Client, error) {
	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		return nil, err
	}
	profileName, sessionName, err := profile.Resolve(flagProfile, flagSession, cfg)
	if err != nil {
		return nil, err
	}
	c, err := client.New(profile.SocketPath(profileName, sessionName))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to tab %s/%s: %w", profileName, sessionName, err)
	}
	return c, nil
}

// withClient runs fn against the daemon with the request timeout applied.
func withClient(fn func(ctx context.Context, c *client.Client) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
		defer cancel()
		return fn(ctx, c)
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tab status",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *client.Client) error {
		st, err := c.Status(ctx)
		if err != nil {
			return err
		}
		if flagJSON {
			return outputJSON(st)
		}
		fmt.Printf("Tab:      %s/%s\n", st.Profile, st.Session)
		fmt.Printf("State:    %s (since %s)\n", st.State, st.Since.Format(time.TimeOnly))
		fmt.Printf("User:     %s (%s)\n", st.User.DisplayName, st.User.ID)
		fmt.Printf("Users:    %d\n", st.Users)
		fmt.Printf("Messages: %d\n", st.Messages)
		if st.Selected != "" {
			fmt.Printf("Selected: %s\n", st.Selected)
		}
		fmt.Printf("Uptime:   %s\n", st.Uptime.Round(time.Second))
		return nil
	}),
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users known to the tab",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *client.Client) error {
		users, err := c.Users(ctx)
		if err != nil {
			return err
		}
		if flagJSON {
			return outputJSON(users)
		}
		st, err := c.Status(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			marker := " "
			switch u.ID {
			case st.User.ID:
				marker = "*"
			case st.Selected:
				marker = ">"
			}
			fmt.Printf("%s %-8s %s\n", marker, u.ID, u.DisplayName)
		}
		return nil
	}),
}

var selectCmd = &cobra.Command{
	Use:   "select <user-id>",
	Short: "Open the conversation with a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			return c.Select(ctx, args[0])
		})(cmd, args)
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <text...>",
	Short: "Send a message to the selected peer (or --to)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return withClient(func(ctx context.Context, c *client.Client) error {
			m, err := c.Send(ctx, flagTo, text)
			if err != nil {
				return err
			}
			if m == nil {
				return errors.New("message ignored: text is blank")
			}
			if flagJSON {
				return outputJSON(m)
			}
			printMessage(*m)
			return nil
		})(cmd, args)
	},
}

var conversationCmd = &cobra.Command{
	Use:   "conversation",
	Short: "Print the conversation with the selected peer",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *client.Client) error {
		msgs, err := c.Conversation(ctx)
		if err != nil {
			return err
		}
		if flagJSON {
			return outputJSON(msgs)
		}
		for _, m := range msgs {
			printMessage(m)
		}
		return nil
	}),
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print every message of the profile's log",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *client.Client) error {
		msgs, err := c.History(ctx)
		if err != nil {
			return err
		}
		if flagJSON {
			return outputJSON(msgs)
		}
		for _, m := range msgs {
			printMessage(m)
		}
		return nil
	}),
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every message of the profile's log",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *client.Client) error {
		return c.ClearHistory(ctx)
	}),
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream tab events until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = c.Watch(ctx, func(evt client.Event) error {
			if flagJSON {
				return outputJSON(evt)
			}
			payload, _ := json.Marshal(evt.Payload)
			fmt.Printf("%s %-24s %s\n", evt.At.Format(time.TimeOnly), evt.Kind, payload)
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Close the tab: end its session and stop the daemon",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *client.Client) error {
		return c.CloseTab(ctx)
	}),
}

func printMessage(m chat.Message) {
	at := time.UnixMilli(m.SentAtEpochMs).Format(time.DateTime)
	fmt.Printf("[%s] %s -> %s: %s\n", at, m.SenderID, m.RecipientID, m.Text)
	if p := m.LinkPreview; p != nil {
		fmt.Printf("    %s | %s\n", p.Domain, p.Title)
	}
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
