package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var rawEvents bool

var submitCmd = &cobra.Command{
	Use:   "submit [task description]",
	Short: "Submit a task and follow its progress until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitTask(cmd, args[0])
	},
}

func init() {
	submitCmd.Flags().BoolVar(&rawEvents, "raw", false, "print every event as indented JSON")
	rootCmd.AddCommand(submitCmd)
}

// socketURL derives the event channel URL from the server base URL.
func socketURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func submitTask(cmd *cobra.Command, request string) error {
	target, err := socketURL(serverURL, authToken)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", serverURL, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	data, err := json.Marshal(map[string]string{"request": request})
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(envelope{Event: "submitTask", Data: data}); err != nil {
		return fmt.Errorf("send task: %w", err)
	}

	out := cmd.OutOrStdout()
	view := &taskView{}
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		if rawEvents {
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, env.Data, "", "  "); err == nil {
				fmt.Fprintf(out, "%s %s\n", env.Event, pretty.String())
			}
		}
		line, done, err := view.apply(env)
		if err != nil {
			return err
		}
		if line != "" && !rawEvents {
			fmt.Fprintln(out, line)
		}
		if done {
			fmt.Fprint(out, view.report())
			return view.Err
		}
	}
}
