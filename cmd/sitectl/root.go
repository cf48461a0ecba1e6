package main

import (
	"os"

	"github.com/spf13/cobra"
)

// cli carries the state shared by every subcommand
type cli struct {
	open       opener
	configPath string
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:   "sitectl",
		Short: "Manage the lifecycle of hosted sites",
		Long: `sitectl creates, updates, backs up, enables, disables and deletes
container-hosted websites and manages their TLS certificates.

Commands taking an optional <site> fall back to the site whose
directory contains the current working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("SITECTL_CONFIG"),
		"INI config file; environment variables override it (env SITECTL_CONFIG)")

	root.AddCommand(
		c.listCmd(),
		c.createCmd(),
		c.deleteCmd(),
		c.updateCmd(),
		c.backupCmd(),
		c.enableCmd(),
		c.disableCmd(),
		c.serviceCmd("restart", "Restart site services"),
		c.serviceCmd("reload", "Reload site services without restarting containers"),
		c.sslCmd(),
		c.sslRenewCmd(),
		c.historyCmd(),
		c.serveCmd(),
	)
	return root
}

// with opens the app for the duration of one command
func (c *cli) with(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := c.open(c.configPath)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); cerr != nil {
				a.log.WithError(cerr).Warn("Failed to close resources")
			}
		}()
		return fn(cmd, args, a)
	}
}

// site resolves the target site of a command
func (a *app) site(args []string) (string, error) {
	return resolveSite(args, a.cfg.Paths.FSRoot)
}
