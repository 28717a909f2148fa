// Command coachctl practises a mock interview from the terminal against the
// interview backend: list interviews, answer one question at a time, read
// the feedback.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mockprep/coach-gateway/internal/backend"
	"github.com/mockprep/coach-gateway/internal/config"
	"github.com/mockprep/coach-gateway/internal/logger"
	"github.com/mockprep/coach-gateway/internal/model"
)

// app is shared by every subcommand.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	client *backend.Client
	in     *bufio.Reader

	backendURL string
	email      string
	verbose    bool
}

// account is a logged-in backend session.
type account struct {
	creds backend.Credentials
	user  model.User
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{in: bufio.NewReader(os.Stdin)}

	cmd := &cobra.Command{
		Use:           "coachctl",
		Short:         "Practise mock interviews from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load()
			level := "warn"
			if a.verbose {
				level = "debug"
			}
			a.log = logger.New(os.Stderr, level, "pretty")
			if a.backendURL == "" {
				a.backendURL = a.cfg.BackendURL
			}
			a.client = backend.New(a.backendURL, a.cfg.BackendTimeout, a.log)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.backendURL, "backend", "", "Backend base URL (default $BACKEND_URL)")
	cmd.PersistentFlags().StringVar(&a.email, "email", "", "Account email (prompted when empty)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log backend requests")

	cmd.AddCommand(newInterviewsCommand(a))
	cmd.AddCommand(newAnswerCommand(a))
	cmd.AddCommand(newFeedbackCommand(a))
	return cmd
}

// login prompts for whatever credentials are missing and opens a backend
// session. COACH_PASSWORD skips the password prompt for scripted use.
func (a *app) login(ctx context.Context, out io.Writer) (account, error) {
	email := a.email
	if email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := a.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return account{}, err
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return account{}, errors.New("email is required")
	}

	password := os.Getenv("COACH_PASSWORD")
	if password == "" {
		fmt.Fprint(out, "Password: ")
		p, err := readPassword(a.in)
		fmt.Fprintln(out)
		if err != nil {
			return account{}, fmt.Errorf("read password: %w", err)
		}
		password = p
	}

	creds, err := a.client.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) {
			return account{}, errors.New("incorrect email or password")
		}
		return account{}, err
	}
	user, err := a.client.Me(ctx, creds)
	if err != nil {
		return account{}, fmt.Errorf("resolve user: %w", err)
	}
	return account{creds: creds, user: user}, nil
}

// readPassword reads without echo from a terminal, or a plain line otherwise.
func readPassword(in *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		return string(b), err
	}
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// logout ends the backend session; failures only matter to the backend.
func (a *app) logout(acc account) {
	if err := a.client.Logout(context.Background(), acc.creds); err != nil {
		a.log.Debug().Err(err).Msg("Logout failed")
	}
}
