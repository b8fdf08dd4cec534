package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"draftshare/internal/config"
	"draftshare/internal/drafts"
	"draftshare/internal/gitlocal"
	"draftshare/internal/identity"
	"draftshare/internal/logging"
	"draftshare/internal/model"
	"draftshare/internal/providerauth"
	"draftshare/internal/registry"
	"draftshare/internal/transport"
)

const usage = `usage: draftctl <command> [flags]

commands:
  create    create and publish a draft from local changes
  list      list drafts
  get       show one draft with its changesets
  patch     show a patch's hydrated diff
  archive   archive a draft
  delete    delete a draft
  users     list the users of a draft
  counts    show open/archived draft totals
  login     store a provider session token
  logout    revoke a provider session token
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "draftctl: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, sessions, cleanup, err := buildService(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := run(ctx, svc, sessions, cfg, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("command failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}

// buildService wires the capability graph: HTTP transport, repository
// registry, identity resolution, provider session cache, and the draft
// service on top.
func buildService(cfg *config.Config, logger *slog.Logger) (*drafts.Service, *providerauth.RedisSessionCache, func(), error) {
	client := transport.NewClient(cfg.API.BaseURL, cfg.API.Token, logger)
	client.SetTimeout(cfg.API.Timeout)

	if err := os.MkdirAll(filepath.Dir(cfg.Registry.DBPath), 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create registry dir: %w", err)
	}
	store, err := registry.OpenStore(cfg.Registry.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open repository registry: %w", err)
	}
	reg := registry.New(store, cfg.Registry.CloneDir, promptForPath)
	identities := identity.NewResolver(reg, logger)

	var cache *providerauth.RedisSessionCache
	var sessions providerauth.SessionStore
	cleanup := func() { store.Close() }
	if strings.TrimSpace(cfg.Sessions.RedisURL) != "" {
		cache, err = providerauth.NewRedisSessionCache(cfg.Sessions.RedisURL)
		if err != nil {
			store.Close()
			return nil, nil, nil, fmt.Errorf("connect session cache: %w", err)
		}
		sessions = cache
		cleanup = func() {
			cache.Close()
			store.Close()
		}
	}
	auth := providerauth.NewResolver(sessions, identities, logger)

	account := model.Account{ID: cfg.Account.ID, Name: cfg.Account.Name, Email: cfg.Account.Email}
	return drafts.NewService(client, auth, identities, account, logger), cache, cleanup, nil
}

func run(ctx context.Context, svc *drafts.Service, sessions *providerauth.RedisSessionCache, cfg *config.Config, command string, args []string) error {
	switch command {
	case "login":
		return cmdLogin(ctx, sessions, cfg, args)
	case "logout":
		return cmdLogout(ctx, sessions, args)
	case "create":
		return cmdCreate(ctx, svc, args)
	case "list":
		return cmdList(ctx, svc, args)
	case "get":
		return cmdGet(ctx, svc, args)
	case "patch":
		return cmdPatch(ctx, svc, args)
	case "archive":
		return cmdArchive(ctx, svc, args)
	case "delete":
		return cmdDelete(ctx, svc, args)
	case "users":
		return cmdUsers(ctx, svc, args)
	case "counts":
		return cmdCounts(ctx, svc)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func cmdCreate(ctx context.Context, svc *drafts.Service, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	title := fs.String("title", "", "draft title (required)")
	description := fs.String("description", "", "draft description")
	repoPath := fs.String("repo", ".", "repository path")
	from := fs.String("from", "", "base revision (required)")
	to := fs.String("to", model.WorkingStateRev, "target revision, defaults to the working state")
	visibility := fs.String("visibility", "", "PUBLIC, PROVIDER_MEMBERS, or PRIVATE")
	prEntity := fs.String("pr-entity", "", "linked work item id; switches the draft to a code suggestion")
	fs.Parse(args)

	if *title == "" || *from == "" {
		fs.Usage()
		return fmt.Errorf("create: -title and -from are required")
	}

	repo, err := gitlocal.Open(*repoPath)
	if err != nil {
		return fmt.Errorf("open repository %s: %w", *repoPath, err)
	}

	draftType := model.DraftTypeShared
	if *prEntity != "" {
		draftType = model.DraftTypeSuggestion
	}
	draft, err := svc.CreateDraft(ctx, draftType, *title, []model.CreateDraftChange{
		{Repo: repo, FromRev: *from, ToRev: *to},
	}, drafts.CreateOptions{
		Description: *description,
		Visibility:  model.Visibility(*visibility),
		PREntityID:  *prEntity,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created draft %s (%s)\n", draft.ID, draft.Title)
	for _, cs := range draft.Changesets {
		for _, patch := range cs.Patches {
			fmt.Printf("  patch %s: %d file(s) on %s\n", patch.ID, len(patch.Files), patch.BaseBranch)
		}
	}
	return nil
}

func cmdList(ctx context.Context, svc *drafts.Service, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	archived := fs.Bool("archived", false, "list archived drafts instead of open ones")
	prEntity := fs.String("pr-entity", "", "only drafts linked to this work item")
	fs.Parse(args)

	filter := model.DraftFilter{PREntityID: *prEntity}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "archived" {
			filter.Archived = archived
		}
	})
	list, err := svc.GetDrafts(ctx, filter, nil)
	if err != nil {
		return err
	}
	for _, draft := range list {
		fmt.Printf("%s  %-12s  %-8s  %s\n", draft.ID, draft.Type, draft.Role, draft.Title)
	}
	return nil
}

func cmdGet(ctx context.Context, svc *drafts.Service, args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("get: expected one draft id")
	}

	draft, err := svc.GetDraft(ctx, fs.Arg(0), nil)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", draft.ID, draft.Title)
	fmt.Printf("  author: %s  role: %s  visibility: %s\n", draft.Author.Name, draft.Role, draft.Visibility)
	fmt.Printf("  created: %s\n", draft.CreatedAt.Format(time.RFC3339))
	if draft.Archive.Archived {
		fmt.Printf("  archived: %s\n", draft.Archive.Reason)
	}
	for _, cs := range draft.Changesets {
		fmt.Printf("  changeset %s (%d patches)\n", cs.ID, len(cs.Patches))
		for _, patch := range cs.Patches {
			fmt.Printf("    patch %s on %s\n", patch.ID, patch.BaseBranch)
		}
	}
	return nil
}

func cmdPatch(ctx context.Context, svc *drafts.Service, args []string) error {
	fs := flag.NewFlagSet("patch", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("patch: expected one patch id")
	}

	patch, err := svc.GetPatchDetailsByID(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	for _, file := range patch.Files {
		fmt.Printf("%-8s %s\n", file.Status, file.Path)
	}
	fmt.Println(patch.Contents)
	return nil
}

func cmdArchive(ctx context.Context, svc *drafts.Service, args []string) error {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	reason := fs.String("reason", "", "archive reason")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("archive: expected one draft id")
	}

	draft, err := svc.GetDraft(ctx, fs.Arg(0), nil)
	if err != nil {
		return err
	}
	return svc.ArchiveDraft(ctx, draft, *reason, nil)
}

func cmdDelete(ctx context.Context, svc *drafts.Service, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("delete: expected one draft id")
	}
	return svc.DeleteDraft(ctx, fs.Arg(0))
}

func cmdUsers(ctx context.Context, svc *drafts.Service, args []string) error {
	fs := flag.NewFlagSet("users", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("users: expected one draft id")
	}

	users, err := svc.GetDraftUsers(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	for _, user := range users {
		fmt.Printf("%s  %-8s  %s <%s>\n", user.ID, user.Role, user.Name, user.Email)
	}
	return nil
}

func cmdCounts(ctx context.Context, svc *drafts.Service) error {
	counts, err := svc.GetDraftCounts(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("open: %d  archived: %d\n", counts.Open, counts.Archived)
	return nil
}

func cmdLogin(ctx context.Context, sessions *providerauth.RedisSessionCache, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	integration := fs.String("integration", "github", "integration id: github, gitlab, or bitbucket")
	token := fs.String("token", "", "provider session token (required)")
	fs.Parse(args)

	if sessions == nil {
		return fmt.Errorf("login: no session cache configured, set DRAFTSHARE_REDIS_URL")
	}
	if *token == "" {
		return fmt.Errorf("login: -token is required")
	}
	if _, ok := providerauth.LookupIntegration(*integration); !ok {
		return fmt.Errorf("login: unknown integration %q", *integration)
	}
	return sessions.PutSession(ctx, *integration, *token, cfg.Sessions.TTL)
}

func cmdLogout(ctx context.Context, sessions *providerauth.RedisSessionCache, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	integration := fs.String("integration", "github", "integration id")
	fs.Parse(args)

	if sessions == nil {
		return fmt.Errorf("logout: no session cache configured, set DRAFTSHARE_REDIS_URL")
	}
	return sessions.RevokeSession(ctx, *integration)
}

// promptForPath asks the user for the local path of a repository the
// registry could not locate. An empty answer means the user declined.
func promptForPath(ctx context.Context, identity *model.RepositoryIdentity) (string, error) {
	fmt.Fprintf(os.Stderr, "repository %q not found locally; enter its path (empty to skip): ", identityLabel(identity))
	var path string
	if _, err := fmt.Scanln(&path); err != nil {
		return "", nil
	}
	return strings.TrimSpace(path), nil
}

func identityLabel(id *model.RepositoryIdentity) string {
	if id.Name != "" {
		return id.Name
	}
	return id.ShortFingerprint()
}
