package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/device-management-toolkit/bmcserver/internal/client"
	"github.com/device-management-toolkit/bmcserver/internal/entity/dto/v1"
)

const defaultServer = "http://localhost:8000"

var errLoginCredentials = errors.New("login needs --user and --password")

type globalFlags struct {
	server   string
	user     string
	password string
	token    string
	timeout  time.Duration
	retries  int
}

func (g *globalFlags) client() *client.Client {
	return client.New(client.Options{
		BaseURL:  g.server,
		Username: g.user,
		Password: g.password,
		Token:    g.token,
		Timeout:  g.timeout,
		RetryMax: g.retries,
	})
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	server := os.Getenv("BMC_SERVER")
	if server == "" {
		server = defaultServer
	}

	root := &cobra.Command{
		Use:   "bmcctl",
		Short: "Read and change the device mode of a BMC server",
		Long: `bmcctl talks to a running bmcserver. It reads the current device mode,
sends mode commands and follows live state changes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.server, "server", "s", server, "Server base URL (env BMC_SERVER)")
	root.PersistentFlags().StringVarP(&g.user, "user", "u", os.Getenv("BMC_USER"), "Username for basic auth (env BMC_USER)")
	root.PersistentFlags().StringVarP(&g.password, "password", "p", os.Getenv("BMC_PASSWORD"), "Password for basic auth (env BMC_PASSWORD)")
	root.PersistentFlags().StringVar(&g.token, "token", os.Getenv("BMC_TOKEN"), "Bearer token, wins over basic auth (env BMC_TOKEN)")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 30*time.Second, "Request timeout")
	root.PersistentFlags().IntVar(&g.retries, "retries", 0, "Transport retries for read requests")

	root.AddCommand(
		newModeCmd(g),
		newStateCmd(g),
		newSetCmd(g),
		newZeroCmd(g),
		newWatchCmd(g),
		newLoginCmd(g),
	)

	return root
}

func newModeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mode",
		Short: "Print the current device mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := g.client().Mode(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), mode)

			return nil
		},
	}
}

func newStateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the full server state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := g.client().State(cmd.Context())
			if err != nil {
				return err
			}

			return printJSON(cmd, st)
		},
	}
}

func newSetCmd(g *globalFlags) *cobra.Command {
	var (
		key    string
		newKey bool
	)

	cmd := &cobra.Command{
		Use:   "set MODE",
		Short: "Drive the device to MODE (OFF, STANDBY, RUN or FAULT)",
		Long: `Sends one mode command. The server answers once the device confirmed the
new mode, or refuses when another command is still running.

Use --key to make a retry safe: the server replays the earlier result instead of
sending the command to the device again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if newKey && key == "" {
				key = uuid.NewString()
			}

			res, err := g.client().SetMode(cmd.Context(), args[0], key)
			if err != nil {
				return err
			}

			printResult(cmd, res, key)

			return nil
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Idempotency key for safe retries")
	cmd.Flags().BoolVar(&newKey, "new-key", false, "Generate an idempotency key and print it")

	return cmd
}

func newZeroCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "zero",
		Short: "Drive the device to its configured safe mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := g.client().Zero(cmd.Context())
			if err != nil {
				return err
			}

			printResult(cmd, res, "")

			return nil
		},
	}
}

func newWatchCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow state changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return g.client().Watch(ctx, func(st dto.StateResponse) error {
				return printJSON(cmd, st)
			})
		},
	}
}

func newLoginCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Exchange --user and --password for a bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.user == "" || g.password == "" {
				return errLoginCredentials
			}

			token, err := g.client().Login(cmd.Context(), g.user, g.password)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)

			return nil
		},
	}
}

func printResult(cmd *cobra.Command, res client.Result, key string) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, res.Mode)

	if res.CommandID != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "command %s", res.CommandID)

		if res.Replayed {
			fmt.Fprint(cmd.ErrOrStderr(), " (replayed)")
		}

		fmt.Fprintln(cmd.ErrOrStderr())
	}

	if key != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "idempotency key %s\n", key)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())

	return enc.Encode(v)
}
