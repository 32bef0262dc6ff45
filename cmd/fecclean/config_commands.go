package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fecclean/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			cfg, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("read back sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			printInitNextSteps(out, target, cfg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

// printInitNextSteps walks a new user from the sample file to a first batch.
func printInitNextSteps(out io.Writer, target string, cfg *config.Config) {
	fmt.Fprintln(out, "Next steps:")
	step := 1
	if key := cfg.FEC.APIKey; key == "" || key == "DEMO_KEY" || strings.HasPrefix(key, "your_") {
		fmt.Fprintf(out, "  %d. Set fec.api_key in %s (or export FEC_API_KEY)\n", step, target)
		step++
	}
	fmt.Fprintf(out, "  %d. fecclean fetch            downloads into %s\n", step, cfg.Paths.RawDir)
	step++
	fmt.Fprintf(out, "  %d. fecclean batch            writes %d pass(es) per file into %s\n", step, len(cfg.Cleaning.Passes), cfg.Paths.CleanedDir)
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			passes := make([]string, 0, len(cfg.Cleaning.Passes))
			for _, p := range cfg.Cleaning.Passes {
				passes = append(passes, fmt.Sprintf("%s=%v", p.Name, p.Floor))
			}
			fmt.Fprintf(out, "Passes: %s\n", strings.Join(passes, ", "))
			if cfg.FEC.APIKey == "DEMO_KEY" {
				printStatus(out, "api key", statusWarn, "using DEMO_KEY; OpenFEC limits it heavily")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
