// Command propspace is the marketplace client. It signs users in and out,
// keeps the session on disk and shows the effective session the client
// resolves: principal, profile and role.
//
// Usage:
//
//	propspace signup -email a@example.com -password secret -role landlord [-name Alice]
//	propspace signin -email a@example.com -password secret
//	propspace setup-profile -role tenant [-name Alice]
//	propspace signout
//	propspace whoami
//	propspace update-profile [-name N] [-phone P] [-bio B]
//	propspace watch
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
	"github.com/propspace/marketplace/internal/core/service"
	"github.com/propspace/marketplace/internal/infrastructure/apiclient"
	"github.com/propspace/marketplace/internal/infrastructure/config"
	"github.com/propspace/marketplace/pkg/logger"
)

var errUsage = errors.New("usage: propspace <signup|signin|setup-profile|signout|whoami|update-profile|watch> [flags]")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "propspace:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// app is the client stack the commands share.
type app struct {
	client  *apiclient.Client
	manager *service.SessionManager
	log     zerolog.Logger
	out     io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.LoadClient(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr, Service: "propspace-cli"})

	sessionFile := cfg.SessionFile
	if sessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("locate config dir: %w", err)
		}
		sessionFile = filepath.Join(dir, "propspace", "session.json")
	}

	client := apiclient.New(apiclient.Options{
		BaseURL:       cfg.APIURL,
		Store:         apiclient.NewFileTokenStore(sessionFile),
		RefreshMargin: cfg.RefreshMargin,
		Log:           logger.Component("apiclient"),
	})
	a, err := newApp(ctx, client, cfg.ResolveTimeout, log, out)
	if err != nil {
		return err
	}
	defer a.manager.Close()

	return a.exec(ctx, args[0], args[1:])
}

// newApp wires the session manager on top of client and resolves the stored
// session before any command runs.
func newApp(ctx context.Context, client *apiclient.Client, resolveTimeout time.Duration, log zerolog.Logger, out io.Writer) (*app, error) {
	component := func(name string) zerolog.Logger { return log.With().Str("component", name).Logger() }

	resolver := service.NewIdentityResolver(client, client, component("identity"))
	manager := service.NewSessionManager(client, resolver, resolveTimeout, component("session"))
	if err := manager.Start(ctx); err != nil {
		manager.Close()
		return nil, fmt.Errorf("start session: %w", err)
	}
	return &app{client: client, manager: manager, log: log, out: out}, nil
}

func (a *app) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "signup":
		return a.signUp(ctx, args)
	case "signin":
		return a.signIn(ctx, args)
	case "setup-profile":
		return a.setupProfile(ctx, args)
	case "signout":
		return a.signOut(ctx)
	case "whoami":
		return a.print(a.manager.Session())
	case "update-profile":
		return a.updateProfile(ctx, args)
	case "watch":
		return a.watch(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) signUp(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("PROPSPACE_PASSWORD"), "account password (or PROPSPACE_PASSWORD)")
	role := fs.String("role", "", "landlord or tenant")
	name := fs.String("name", "", "display name (defaults to the email local part)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	r, err := domain.ParseRole(*role)
	if err != nil {
		return err
	}
	session, err := a.manager.SignUp(ctx, *email, *password, r, *name)
	if err != nil && !session.Authenticated() {
		return err
	}
	return a.report(session, err)
}

func (a *app) signIn(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signin", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("PROPSPACE_PASSWORD"), "account password (or PROPSPACE_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	session, err := a.manager.SignIn(ctx, *email, *password)
	if err != nil && !session.Authenticated() {
		return err
	}
	return a.report(session, err)
}

func (a *app) signOut(ctx context.Context) error {
	if err := a.manager.SignOut(ctx); err != nil {
		a.log.Warn().Err(err).Msg("server sign-out failed; local session cleared")
	}
	return a.print(a.manager.Session())
}

// setupProfile creates the profile for a signed-in user whose role could
// not be derived at sign-up. An existing profile is left as it is.
func (a *app) setupProfile(ctx context.Context, args []string) error {
	current := a.manager.Session()
	if !current.Authenticated() {
		return domain.ErrNoPrincipal
	}

	fs := flag.NewFlagSet("setup-profile", flag.ContinueOnError)
	role := fs.String("role", "", "landlord or tenant")
	name := fs.String("name", current.Principal.SignupAttributes.DisplayName, "display name (defaults to the email local part)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	r, err := domain.ParseRole(*role)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	displayName := *name
	if displayName == "" {
		displayName = domain.DefaultDisplayName(current.Principal.Email)
	}
	if _, err := a.client.CreateProfile(ctx, ports.CreateProfileInput{
		ID:          current.Principal.ID,
		Email:       current.Principal.Email,
		Role:        r,
		DisplayName: displayName,
	}); err != nil {
		return err
	}
	session, err := a.manager.RefreshProfile(ctx)
	return a.report(session, err)
}

func (a *app) updateProfile(ctx context.Context, args []string) error {
	current := a.manager.Session()
	if current.Profile == nil {
		if !current.Authenticated() {
			return domain.ErrNoPrincipal
		}
		return fmt.Errorf("%w: no profile yet", domain.ErrProfileNotFound)
	}

	fs := flag.NewFlagSet("update-profile", flag.ContinueOnError)
	name := fs.String("name", current.Profile.DisplayName, "display name")
	phone := fs.String("phone", current.Profile.Phone, "phone number")
	bio := fs.String("bio", current.Profile.Bio, "short bio")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	if _, err := a.client.UpdateProfile(ctx, domain.ProfileDetails{DisplayName: *name, Phone: *phone, Bio: *bio}); err != nil {
		return err
	}
	session, err := a.manager.RefreshProfile(ctx)
	return a.report(session, err)
}

// watch keeps the token fresh and prints every session change until
// interrupted.
func (a *app) watch(ctx context.Context) error {
	updates, unsubscribe := a.manager.Subscribe()
	defer unsubscribe()

	go a.client.Run(ctx)

	if err := a.print(a.manager.Session()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-updates:
			if !ok {
				return nil
			}
			if err := a.print(s); err != nil {
				return err
			}
		}
	}
}

// report prints the session and surfaces a resolution failure as a
// warning: the user is signed in even when the profile is not ready.
func (a *app) report(s domain.EffectiveSession, err error) error {
	if err != nil {
		a.log.Warn().Err(err).Msg("signed in without a usable profile")
	}
	return a.print(s)
}

type sessionView struct {
	State             domain.SessionState `json:"state"`
	Principal         *domain.Principal   `json:"principal"`
	Profile           *domain.Profile     `json:"profile"`
	EffectiveRole     string              `json:"effective_role"`
	NeedsProfileSetup bool                `json:"needs_profile_setup"`
	Error             string              `json:"error,omitempty"`
}

func (a *app) print(s domain.EffectiveSession) error {
	view := sessionView{
		State:             a.manager.State(),
		Principal:         s.Principal,
		Profile:           s.Profile,
		EffectiveRole:     s.EffectiveRole.String(),
		NeedsProfileSetup: s.NeedsProfileSetup(),
	}
	if s.Err != nil {
		view.Error = s.Err.Error()
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
