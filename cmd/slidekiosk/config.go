package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialise the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration and where it came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), resolved)
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default global configuration file",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}

func printConfig(w io.Writer, resolved *ports.ResolvedConfig) error {
	local := resolved.Sources.LocalPath
	if local == "" {
		local = "(none)"
	}
	flags := strings.Join(resolved.Sources.Flags, ", ")
	if flags == "" {
		flags = "(none)"
	}

	fmt.Fprintf(w, "# global: %s\n# local: %s\n# flags: %s\n\n", resolved.Sources.GlobalPath, local, flags)

	enc := toml.NewEncoder(w)
	enc.Indent = "  "
	return enc.Encode(resolved.Config)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	path := newConfigLoader(cmd).GetGlobalPath()

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	written, err := newConfigService(cmd).WriteDefaults(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", written)
	return nil
}
