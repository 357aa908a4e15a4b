package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/go-vtiger/auth"
	"github.com/jrsteele09/go-vtiger/crmmodel"
	"github.com/jrsteele09/go-vtiger/internal/app"
	"github.com/jrsteele09/go-vtiger/internal/config"
	"github.com/jrsteele09/go-vtiger/server"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	defaultServeAddr = ":9090"
	shutdownTimeout  = 5 * time.Second
)

// cli carries state shared by the subcommands.
type cli struct {
	envFiles []string
	driver   string
	logLevel string
	persist  bool
	app      *app.App
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           appName,
		Short:         "Run webservice operations against a Vtiger CRM",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringSliceVar(&c.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	flags.StringVar(&c.driver, "driver", "", "session store driver: "+strings.Join(config.SessionDrivers, ", "))
	flags.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&c.persist, "persist", false, "keep the session open after the operation")

	root.AddCommand(
		c.sessionCommand(),
		c.queryCommand(),
		c.retrieveCommand(),
		c.createCommand(),
		c.updateCommand(),
		c.deleteCommand(),
		c.describeCommand(),
		c.logoutCommand(),
		c.serveCommand(),
		versionCommand(),
	)
	return root
}

// setup applies flag overrides on top of the environment and builds the app.
func (c *cli) setup(cmd *cobra.Command) error {
	overrides := map[string]string{}
	if cmd.Flags().Changed("driver") {
		overrides["VTIGER_SESSION_DRIVER"] = c.driver
	}
	if cmd.Flags().Changed("log-level") {
		overrides["VTIGER_LOG_LEVEL"] = c.logLevel
	}
	if cmd.Flags().Changed("persist") {
		overrides["VTIGER_PERSIST_CONNECTION"] = fmt.Sprint(c.persist)
	}
	for k, v := range overrides {
		if err := os.Setenv(k, v); err != nil {
			return errors.Wrapf(err, "set %s", k)
		}
	}

	cfg, err := config.Load(c.envFiles...)
	if err != nil {
		return err
	}
	if cfg.GetAccessKey() == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		key, err := promptAccessKey(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if err := os.Setenv("VTIGER_ACCESSKEY", key); err != nil {
			return errors.Wrap(err, "set VTIGER_ACCESSKEY")
		}
	}

	c.app, err = app.New(cfg)
	return err
}

func promptAccessKey(w io.Writer) (string, error) {
	fmt.Fprint(w, "Access key: ")
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", errors.Wrap(err, "read access key")
	}
	return strings.TrimSpace(string(key)), nil
}

func (c *cli) sessionCommand() *cobra.Command {
	var showExpiry bool
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Print a valid session id, logging in if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.TokenSource(cmd.Context(), c.app.Client.Manager()).Token()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
			if showExpiry {
				fmt.Fprintln(cmd.OutOrStdout(), token.Expiry.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showExpiry, "expiry", false, "also print when the challenge token expires")
	return cmd
}

func (c *cli) queryCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "query <query>",
		Short:   "Run a query, e.g. \"SELECT * FROM Contacts LIMIT 5;\"",
		Args:    cobra.ExactArgs(1),
		Example: `  vtiger query "SELECT firstname, lastname FROM Contacts WHERE lastname = 'Smith';"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResponse(cmd, crmmodel.OperationQuery)(c.app.Client.Query(cmd.Context(), args[0]))
		},
	}
}

func (c *cli) retrieveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "retrieve <id>",
		Short: "Fetch one record by id ({moduleCode}x{itemId})",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResponse(cmd, crmmodel.OperationRetrieve)(c.app.Client.Retrieve(cmd.Context(), args[0]))
		},
	}
}

func (c *cli) createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <elementType> <element|->",
		Short: "Create a record from a JSON element (- reads stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			element, err := readElement(cmd, args[1])
			if err != nil {
				return err
			}
			return printResponse(cmd, crmmodel.OperationCreate)(c.app.Client.Create(cmd.Context(), args[0], element))
		},
	}
}

func (c *cli) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update <element|->",
		Short: "Replace a record with a JSON element carrying its id (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			element, err := readElement(cmd, args[0])
			if err != nil {
				return err
			}
			return printResponse(cmd, crmmodel.OperationUpdate)(c.app.Client.Update(cmd.Context(), element))
		},
	}
}

func (c *cli) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one record by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResponse(cmd, crmmodel.OperationDelete)(c.app.Client.Delete(cmd.Context(), args[0]))
		},
	}
}

func (c *cli) describeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <elementType>",
		Short: "List the fields of an element type, e.g. Contacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResponse(cmd, crmmodel.OperationDescribe)(c.app.Client.Describe(cmd.Context(), args[0]))
		},
	}
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Close the cached session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Client.Logout(cmd.Context())
		},
	}
}

func (c *cli) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and session endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = config.GetEnv("VTIGER_METRICS_ADDR", defaultServeAddr)
			}
			handler, err := server.New(c.app.Config.GetEnv(), c.app.Client, c.app.Registry, server.WithLogger(c.app.Logger))
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

			errCh := make(chan error, 1)
			go func() {
				errCh <- listenAndServe(c, srv)
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}
			return shutdown(srv)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $VTIGER_METRICS_ADDR or "+defaultServeAddr+")")
	return cmd
}

func listenAndServe(c *cli, srv *http.Server) error {
	c.app.Logger.Info().Str("addr", srv.Addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			displayAppname(appName)
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// readElement returns arg, or stdin when arg is "-".
func readElement(cmd *cobra.Command, arg string) (json.RawMessage, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		data, err = io.ReadAll(bufio.NewReader(cmd.InOrStdin()))
		if err != nil {
			return nil, errors.Wrap(err, "read element")
		}
	}
	if !json.Valid(data) {
		return nil, errors.New("element is not valid JSON")
	}
	return json.RawMessage(data), nil
}

// printResponse writes the envelope as indented JSON and turns a business failure
// into a non-zero exit.
func printResponse(cmd *cobra.Command, op crmmodel.OperationType) func(*crmmodel.Response, error) error {
	return func(resp *crmmodel.Response, err error) error {
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return errors.Wrap(err, "encode response")
		}
		return resp.Err(op)
	}
}
