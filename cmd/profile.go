package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/smartfill/internal/profile"
)

// askField prompts for one profile field. Tests replace it.
var askField = surveyAsk

func surveyAsk(f profile.Field) (string, error) {
	var prompt survey.Prompt
	if f.Multiline {
		prompt = &survey.Multiline{Message: f.Prompt, Help: f.Help}
	} else {
		prompt = &survey.Input{Message: f.Prompt, Help: f.Help}
	}
	var opts []survey.AskOpt
	if f.Required {
		opts = append(opts, survey.WithValidator(survey.Required))
	}
	var out string
	if err := survey.AskOne(prompt, &out, opts...); err != nil {
		return "", err
	}
	return out, nil
}

func newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Create or inspect the personal profile",
	}
	profileCmd.AddCommand(newProfileInitCmd())
	profileCmd.AddCommand(newProfileShowCmd())
	return profileCmd
}

func newProfileInitCmd() *cobra.Command {
	var (
		output string
		force  bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Answer a few questions and write a YAML profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			path := output
			if path == "" {
				path = cfg.Profile().Path
			}
			if format, err := profile.FormatFor(path); err != nil || format != profile.FormatYAML {
				return fmt.Errorf("profile init writes YAML; %s is not a .yaml or .yml path", path)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			entries := make([]profile.Entry, 0, len(profile.Fields))
			for _, f := range profile.Fields {
				answer, err := askField(f)
				if err != nil {
					return fmt.Errorf("profile init aborted: %w", err)
				}
				entries = append(entries, profile.Entry{Key: f.Key, Value: answer})
			}

			var buf bytes.Buffer
			if err := profile.WriteYAML(&buf, entries); err != nil {
				return err
			}
			if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
				return fmt.Errorf("failed to write profile: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Profile written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "", "profile path (default is profile.path)")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing profile")
	return initCmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the profile text exactly as the oracle sees it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := profile.Load(cfg.Profile().Path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc.Text())
			return nil
		},
	}
}
