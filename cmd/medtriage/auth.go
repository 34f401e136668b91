package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(authCmd)
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize Google Calendar access and store the credential",
	Long: `Run the OAuth consent flow for the installed-app client in
scheduling.client_secret_path and store the resulting credential at
scheduling.token_path. An existing valid or refreshable credential is reused.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

func runAuth(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	tokens, err := newTokenManager(cfg.Scheduling, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	tok, err := tokens.Token(cmd.Context())
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s credential stored at %s (expires %s)\n",
		titleStyle.Render("Authorized."), cfg.Scheduling.TokenPath, tok.Expiry.Format("2006-01-02 15:04 MST"))
	return nil
}
