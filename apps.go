package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"flame/service/app"
	"flame/service/appform"
	"flame/service/client"
	"flame/service/config"
	"flame/service/util"

	"github.com/spf13/cobra"
)

type appFlags struct {
	name     string
	url      string
	icon     string
	iconFile string
	public   bool
}

func newAppsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "Manage apps on a running Flame server",
	}

	cmd.AddCommand(newAppsListCmd())
	cmd.AddCommand(newAppsAddCmd())
	cmd.AddCommand(newAppsUpdateCmd())
	cmd.AddCommand(newAppsDeleteCmd())

	return cmd
}

func newAppsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all apps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newAPIClient()
			if err != nil {
				return err
			}

			apps, err := c.ListApps(cmd.Context())
			if err != nil {
				return err
			}

			return printApps(cmd.OutOrStdout(), apps)
		},
	}
}

func newAppsAddCmd() *cobra.Command {
	flags := &appFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppForm(cmd, flags, 0)
		},
	}
	bindAppFlags(cmd, flags)
	return cmd
}

func newAppsUpdateCmd() *cobra.Command {
	flags := &appFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an app; unset flags keep their current values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAppForm(cmd, flags, id)
		},
	}
	bindAppFlags(cmd, flags)
	return cmd
}

func newAppsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, _, err := newAPIClient()
			if err != nil {
				return err
			}
			if err := c.DeleteApp(cmd.Context(), id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted app %d\n", id)
			return nil
		},
	}
}

func bindAppFlags(cmd *cobra.Command, flags *appFlags) {
	cmd.Flags().StringVar(&flags.name, "name", "", "app name")
	cmd.Flags().StringVar(&flags.url, "url", "", "app URL")
	cmd.Flags().StringVar(&flags.icon, "icon", "", "MDI icon name, e.g. "+appform.IconPlaceholder)
	cmd.Flags().StringVar(&flags.iconFile, "icon-file", "", "custom icon to upload ("+app.IconAccept+")")
	cmd.Flags().BoolVar(&flags.public, "public", true, "show the app to visitors without the API key")
	cmd.MarkFlagsMutuallyExclusive("icon", "icon-file")
}

// runAppForm drives an app form the way the dashboard does: seed it with the
// existing app, replay the changed flags as edits, then submit.
func runAppForm(cmd *cobra.Command, flags *appFlags, id int64) error {
	c, cfg, err := newAPIClient()
	if err != nil {
		return err
	}
	logger := util.NewLogger(cfg.VerboseLogging)
	ctx := cmd.Context()

	var existing *app.App
	if id != 0 {
		existing, err = c.GetApp(ctx, id)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	actions := &cliActions{client: c, out: out}
	form := appform.New(actions, func() {
		fmt.Fprintln(out, "Done")
	}, existing, logger)

	changed := cmd.Flags().Changed
	for _, input := range []struct{ flag, field, value string }{
		{"name", "name", flags.name},
		{"url", "url", flags.url},
		{"icon", "icon", flags.icon},
	} {
		if changed(input.flag) {
			if err := form.HandleInput(input.field, input.value); err != nil {
				return err
			}
		}
	}
	if changed("public") {
		value := "0"
		if flags.public {
			value = "1"
		}
		if err := form.HandleInput("isPublic", value, appform.InputOptions{IsBool: true}); err != nil {
			return err
		}
	}

	if flags.iconFile != "" {
		icon, err := readIconFile(flags.iconFile, cfg.MaxIconSize)
		if err != nil {
			return err
		}
		form.ToggleCustomIcon()
		form.HandleFile(icon)
	}

	form.Submit(ctx)
	return actions.err
}

// cliActions sends form submissions to the server API and keeps the last
// failure so the command can exit non-zero.
type cliActions struct {
	client *client.Client
	out    io.Writer
	err    error
}

func (a *cliActions) AddApp(ctx context.Context, payload app.Payload) error {
	created, err := a.client.CreateApp(ctx, payload)
	if err != nil {
		a.err = err
		return err
	}
	fmt.Fprintf(a.out, "Added app %d (%s)\n", created.ID, created.Name)
	return nil
}

func (a *cliActions) UpdateApp(ctx context.Context, id int64, payload app.Payload) error {
	if err := a.client.UpdateApp(ctx, id, payload); err != nil {
		a.err = err
		return err
	}
	fmt.Fprintf(a.out, "Updated app %d\n", id)
	return nil
}

func newAPIClient() (*client.Client, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return client.New(cfg.BaseURL(), cfg.APIKey), cfg, nil
}

func readIconFile(path string, maxSize int64) (*app.Icon, error) {
	if err := app.CheckIconFilename(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat icon file: %w", err)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", app.ErrIconTooLarge, info.Size(), maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read icon file: %w", err)
	}

	return &app.Icon{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

func printApps(w io.Writer, apps []app.App) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tURL\tICON\tVISIBILITY")
	for _, a := range apps {
		visibility := "public"
		if !a.IsPublic {
			visibility = "hidden"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Name, util.DisplayURL(a.URL), a.Icon, visibility)
	}
	return tw.Flush()
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid app id %q", raw)
	}
	return id, nil
}

var _ appform.Actions = (*cliActions)(nil)
