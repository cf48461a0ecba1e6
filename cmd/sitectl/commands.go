package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"go_sitectl/internal/model"
	"go_sitectl/internal/site"
)

func (c *cli) listCmd() *cobra.Command {
	var enabled, disabled bool
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sites",
		Args:  cobra.NoArgs,
		RunE: c.with(func(cmd *cobra.Command, _ []string, a *app) error {
			status := ""
			if enabled {
				status = "enabled"
			} else if disabled {
				status = "disabled"
			}
			sites, err := a.engine.List(cmd.Context(), status)
			if err != nil {
				return err
			}
			return writeSites(cmd.OutOrStdout(), format, sites)
		}),
	}
	cmd.Flags().BoolVar(&enabled, "enabled", false, "only enabled sites")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "only disabled sites")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, csv, yaml, json, count or text")
	cmd.MarkFlagsMutuallyExclusive("enabled", "disabled")
	return cmd
}

func (c *cli) createCmd() *cobra.Command {
	var opts site.CreateOptions

	cmd := &cobra.Command{
		Use:   "create <site>",
		Short: "Create a site",
		Args:  cobra.ExactArgs(1),
		RunE: c.with(func(cmd *cobra.Command, args []string, a *app) error {
			opts.URL = args[0]
			s, err := a.engine.Create(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if opts.SSL != model.SSLNone && !s.HasSSL() {
				printWarning(cmd.ErrOrStderr(), "SSL could not be enabled for %s, run 'sitectl ssl %s' to retry", s.URL, s.URL)
			}
			printSuccess(cmd.OutOrStdout(), "Site %s created (%s)", s.URL, s.Type)
			return nil
		}),
	}
	cmd.Flags().StringVar(&opts.Type, "type", model.SiteTypeHTML, "site type: html, php or wp")
	cmd.Flags().StringVar(&opts.SSL, "ssl", "", "ssl mode: le or inherit")
	cmd.Flags().BoolVar(&opts.Wildcard, "wildcard", false, "issue a wildcard certificate (requires --ssl=le)")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <site>",
		Short: "Delete a site with its containers, database, files and certificates",
		Args:  cobra.ExactArgs(1),
		RunE: c.with(func(cmd *cobra.Command, args []string, a *app) error {
			url := args[0]
			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Delete %s and all of its data?", url))
				if err != nil {
					return fmt.Errorf("refusing to delete %s: %w", url, err)
				}
				if !ok {
					return fmt.Errorf("delete of %s cancelled", url)
				}
			}
			if err := a.engine.Delete(cmd.Context(), url); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Site %s deleted", url)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question on an interactive terminal
func confirm(cmd *cobra.Command, question string) (bool, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return false, fmt.Errorf("no terminal to confirm on, pass --yes")
	}
	var answer bool
	err := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&answer).
		Run()
	return answer, err
}

func (c *cli) updateCmd() *cobra.Command {
	var newType string

	cmd := &cobra.Command{
		Use:   "update [<site>]",
		Short: "Change the type of a site",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.with(func(cmd *cobra.Command, args []string, a *app) error {
			url, err := a.site(args)
			if err != nil {
				return err
			}
			if err := a.engine.Update(cmd.Context(), url, newType); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Site %s updated to %s", url, newType)
			return nil
		}),
	}
	cmd.Flags().StringVar(&newType, "type", "", "new site type: html, php or wp")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func (c *cli) backupCmd() *cobra.Command {
	var location string
	var force bool

	cmd := &cobra.Command{
		Use:   "backup [<site>]",
		Short: "Back up a site's files, config and database",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.with(func(cmd *cobra.Command, args []string, a *app) error {
			url, err := a.site(args)
			if err != nil {
				return err
			}
			dest, err := a.engine.Backup(cmd.Context(), url, location, force)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Site %s backed up to %s", url, dest)
			return nil
		}),
	}
	cmd.Flags().StringVar(&location, "location", "", "backup directory (default <backup_root>/<site>)")
	cmd.Flags().BoolVar(&force, "force", false, "skip the nginx configuration check")
	return cmd
}

func (c *cli) enableCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "enable [<site>]",
		Short: "Start a site's containers",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.with(func(cmd *cobra.Command, args []string, a *app) error {
			url, err := a.site(args)
			if err != nil {
				return err
			}
			if err := a.engine.Enable(cmd.Context(), url, force); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Site %s enabled", url)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "start containers even if the site is already enabled")
	return cmd
}

func (c *cli) disableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable [<site>]",
		Short: "Stop a site's containers",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.with(func(cmd *cobra.Command, args []string, a *app) error {
			url, err := a.site(args)
			if err != nil {
				return err
			}
			if err := a.engine.Disable(cmd.Context(), url); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Site %s disabled", url)
			return nil
		}),
	}
}

// knownServices is every service any site type runs, one flag each
func knownServices() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range model.SiteTypes {
		for _, svc := range site.Services(t) {
			if !seen[svc] {
				seen[svc] = true
				out = append(out, svc)
			}
		}
	}
	sort.Strings(out)
	return out
}

// serviceCmd builds restart and reload, which share their flags
func (c *cli) serviceCmd(action, short string) *cobra.Command {
	var all bool
	selected := map[string]*bool{}

	cmd := &cobra.Command{
		Use:   action + " [<site>]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: c.with(func(cmd *cobra.Command, args []string, a *app) error {
			url, err := a.site(args)
			if err != nil {
				return err
			}
			var services []string
			for _, svc := range knownServices() {
				if *selected[svc] {
					services = append(services, svc)
				}
			}

			run := a.engine.Restart
			verb := "restarted"
			if action == "reload" {
				run = a.engine.Reload
				verb = "reloaded"
			}
			if err := run(cmd.Context(), url, services, all); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Site %s %s", url, verb)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "all services of the site")
	for _, svc := range knownServices() {
		selected[svc] = cmd.Flags().Bool(svc, false, svc+" service")
	}
	return cmd
}

func (c *cli) sslCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "ssl <site>",
		Short: "Issue or re-issue the site's certificate",
		Args:  cobra.ExactArgs(1),
		RunE: c.with(func(cmd *cobra.Command, args []string, a *app) error {
			url := args[0]
			if err := a.engine.SSL(cmd.Context(), url, force); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "SSL enabled for %s", url)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "request a new certificate even if the installed one is valid")
	return cmd
}

func (c *cli) sslRenewCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "ssl-renew [<site>]",
		Short: "Renew certificates that are missing, mismatched or close to expiry",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.with(func(cmd *cobra.Command, args []string, a *app) error {
			if all {
				count, err := a.engine.RenewAll(cmd.Context())
				if err != nil {
					return fmt.Errorf("renewed %d certificate(s), some renewals failed: %w", count, err)
				}
				printSuccess(cmd.OutOrStdout(), "Renewed %d certificate(s)", count)
				return nil
			}

			url, err := a.site(args)
			if err != nil {
				return err
			}
			renewed, err := a.engine.Renew(cmd.Context(), url)
			if err != nil {
				return err
			}
			if renewed {
				printSuccess(cmd.OutOrStdout(), "Certificate of %s renewed", url)
			} else {
				printSuccess(cmd.OutOrStdout(), "Certificate of %s is valid, nothing to renew", url)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "renew every site with an issued certificate")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [<site>]",
		Short: "Show recent lifecycle operations of a site",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.with(func(cmd *cobra.Command, args []string, a *app) error {
			url, err := a.site(args)
			if err != nil {
				return err
			}
			ops, err := a.journal.Recent(cmd.Context(), url, limit)
			if err != nil {
				return err
			}
			return writeHistory(cmd.OutOrStdout(), ops)
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of operations to show (max 100)")
	return cmd
}
