package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	Long:  "Issue a signed bearer token for a client of the REST API. Requires JWT_SECRET.",
	RunE:  runToken,
}

var (
	tokenSubject string
	tokenScope   string
)

func init() {
	tokenCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "", "Client name the token is issued to (required)")
	tokenCmd.Flags().StringVar(&tokenScope, "scope", "", "Optional scope recorded in the token")

	_ = tokenCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	token, err := issueToken(cfg, tokenSubject, tokenScope)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func issueToken(cfg *config.Config, subject, scope string) (string, error) {
	jwtConfig, err := cfg.JWTConfig()
	if err != nil {
		return "", fmt.Errorf("failed to create JWT config: %w", err)
	}
	if jwtConfig == nil {
		return "", fmt.Errorf("JWT_SECRET is required to issue tokens")
	}
	return server.NewJWTService(jwtConfig).GenerateToken(subject, scope)
}
