package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/eelab/labdesk/internal/adapters/reaper"
	redisadapter "github.com/eelab/labdesk/internal/adapters/redis"
	"github.com/eelab/labdesk/internal/bootstrap"
	"github.com/eelab/labdesk/internal/data"
	"github.com/eelab/labdesk/internal/domain/model"
	"github.com/eelab/labdesk/internal/service"
)

const cliActor = "labdesk-admin"

type listOptions struct {
	Limit  int
	Offset int
	JSON   bool
}

type auditListOptions struct {
	listOptions
	Policy string
	User   string
}

type assignOptions struct {
	User    string
	Role    string
	By      string
	Replace bool
}

func parseListFlags(name string, args []string) (listOptions, error) {
	fs := newFlagSet(name)
	opts := listOptions{}
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum rows to print")
	fs.IntVar(&opts.Offset, "offset", 0, "Rows to skip")
	fs.BoolVar(&opts.JSON, "json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return listOptions{}, err
	}
	if opts.Limit < 1 {
		return listOptions{}, errors.New("--limit must be at least 1")
	}
	if opts.Offset < 0 {
		return listOptions{}, errors.New("--offset cannot be negative")
	}
	return opts, nil
}

func parseAuditListFlags(args []string) (auditListOptions, error) {
	fs := newFlagSet("audit-list")
	opts := auditListOptions{}
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum rows to print")
	fs.IntVar(&opts.Offset, "offset", 0, "Rows to skip")
	fs.BoolVar(&opts.JSON, "json", false, "Print JSON instead of a table")
	fs.StringVar(&opts.Policy, "policy", "", "Only events for this policy")
	fs.StringVar(&opts.User, "user", "", "Only events for this user id")
	if err := fs.Parse(args); err != nil {
		return auditListOptions{}, err
	}
	if opts.Limit < 1 {
		return auditListOptions{}, errors.New("--limit must be at least 1")
	}
	if opts.Offset < 0 {
		return auditListOptions{}, errors.New("--offset cannot be negative")
	}
	return opts, nil
}

func parseAssignFlags(args []string) (assignOptions, error) {
	fs := newFlagSet("roles-assign")
	opts := assignOptions{}
	fs.StringVar(&opts.User, "user", "", "User id (OIDC subject) to assign")
	fs.StringVar(&opts.Role, "role", "", "Role: admin, head_of_department, lecturer or student")
	fs.StringVar(&opts.By, "by", cliActor, "Recorded as the assigning actor")
	fs.BoolVar(&opts.Replace, "replace", false, "Overwrite an existing assignment")
	if err := fs.Parse(args); err != nil {
		return assignOptions{}, err
	}
	if strings.TrimSpace(opts.User) == "" {
		return assignOptions{}, errors.New("--user is required")
	}
	if strings.TrimSpace(opts.Role) == "" {
		return assignOptions{}, errors.New("--role is required")
	}
	return opts, nil
}

func parseUserFlag(name string, args []string) (string, error) {
	fs := newFlagSet(name)
	user := fs.String("user", "", "User id")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if strings.TrimSpace(*user) == "" {
		return "", errors.New("--user is required")
	}
	return strings.TrimSpace(*user), nil
}

func roleService(db *sql.DB) *service.RoleService {
	return service.NewRoleService(service.RoleServiceOptions{Repo: data.NewRoleAssignmentRepo(db)})
}

func runRolesList(cmdCtx *commandContext, args []string) error {
	opts, err := parseListFlags("roles-list", args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		items, listErr := roleService(db).List(ctx, opts.Limit, opts.Offset)
		if listErr != nil {
			return fmt.Errorf("list role assignments: %w", listErr)
		}
		return printRoleAssignments(cmdCtx.Out, items, opts.JSON)
	})
}

func runRolesAssign(cmdCtx *commandContext, args []string) error {
	opts, err := parseAssignFlags(args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		a, assignErr := roleService(db).Assign(ctx, model.AssignRoleRequest{
			UserID:     opts.User,
			Role:       opts.Role,
			AssignedBy: opts.By,
			Replace:    opts.Replace,
		})
		if assignErr != nil {
			return fmt.Errorf("assign role: %w", assignErr)
		}
		cmdCtx.Logger.InfoContext(ctx, "role assigned", "user_id", a.UserID, "role", a.Role.String())
		return writef(cmdCtx.Out, "%s is now %s (applies at next login)\n", a.UserID, a.Role.Label())
	})
}

func runRolesRemove(cmdCtx *commandContext, args []string) error {
	user, err := parseUserFlag("roles-remove", args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		if rmErr := roleService(db).Remove(ctx, user); rmErr != nil {
			return fmt.Errorf("remove role: %w", rmErr)
		}
		return writef(cmdCtx.Out, "removed role assignment for %s\n", user)
	})
}

func runAuditList(cmdCtx *commandContext, args []string) error {
	opts, err := parseAuditListFlags(args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		events, listErr := data.NewAccessEventRepo(db).List(ctx, model.AccessEventListOptions{
			Policy: opts.Policy,
			UserID: opts.User,
			Limit:  opts.Limit,
			Offset: opts.Offset,
		})
		if listErr != nil {
			return fmt.Errorf("list access events: %w", listErr)
		}
		return printAccessEvents(cmdCtx.Out, events, opts.JSON)
	})
}

func runAuditPrune(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("audit-prune")
	retention := fs.Duration("retention", cmdCtx.Config.Audit.Retention, "Delete events older than this")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := cmdCtx.Config.Audit
	cfg.Retention = *retention

	return withDatabase(cmdCtx, defaultMigrationTimeout, func(ctx context.Context, db *sql.DB) error {
		runner, wireErr := reaper.NewRunner(reaper.RunnerOptions{DB: db, Config: cfg, Logger: cmdCtx.Logger})
		if wireErr != nil {
			return wireErr
		}
		n, pruneErr := runner.Prune(ctx)
		if pruneErr != nil {
			return pruneErr
		}
		return writef(cmdCtx.Out, "pruned %d access events older than %s\n", n, cfg.Retention)
	})
}

func runGateClear(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("gate-clear")
	client := fs.String("client", "", "Gate client id (gate_client cookie value)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*client) == "" {
		return errors.New("--client is required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	rdb, err := bootstrap.ConnectRedis(ctx, bootstrap.DatabaseConfig{
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if cerr := rdb.Close(); cerr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", cerr)
		}
	}()

	store := redisadapter.NewGateStateStore(rdb, cmdCtx.Config.Gate.StateTTL)
	if clearErr := store.Clear(ctx, strings.TrimSpace(*client)); clearErr != nil {
		return clearErr
	}
	return writef(cmdCtx.Out, "cleared gate states for client %s\n", *client)
}

func printRoleAssignments(w io.Writer, items []*model.RoleAssignment, asJSON bool) error {
	if asJSON {
		if items == nil {
			items = []*model.RoleAssignment{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		return writef(w, "no role assignments\n")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "USER\tROLE\tASSIGNED BY\tUPDATED\n"); err != nil {
		return err
	}
	for _, a := range items {
		if err := writef(tw, "%s\t%s\t%s\t%s\n",
			a.UserID, a.Role.String(), a.AssignedBy, a.UpdatedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// accessEventRow adds the persisted state and role names hidden from the API shape.
type accessEventRow struct {
	*model.AccessEvent
	State string `json:"state"`
	Role  string `json:"role,omitempty"`
}

func printAccessEvents(w io.Writer, events []*model.AccessEvent, asJSON bool) error {
	if asJSON {
		rows := make([]accessEventRow, 0, len(events))
		for _, ev := range events {
			rows = append(rows, accessEventRow{AccessEvent: ev, State: ev.StateName(), Role: ev.RoleName()})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	if len(events) == 0 {
		return writef(w, "no access events\n")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "WHEN\tPOLICY\tSTATE\tUSER\tROLE\tPATH\n"); err != nil {
		return err
	}
	for _, ev := range events {
		user := ev.UserID
		if user == "" {
			user = "-"
		}
		role := ev.RoleName()
		if role == "" {
			role = "-"
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.OccurredAt.UTC().Format(time.RFC3339), ev.Policy, ev.StateName(), user, role, ev.Path); err != nil {
			return err
		}
	}
	return tw.Flush()
}
