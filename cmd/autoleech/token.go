package main

import (
	"fmt"

	"github.com/jonathan/autoleech/internal/config"
	"github.com/jonathan/autoleech/internal/server"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the operator HTTP API",
	Long:  "Signs a token with JWT_SECRET for an operator listed in OWNER_ID or SUDO_USERS.",
	RunE:  runToken,
}

var tokenOperator int64

func init() {
	tokenCmd.Flags().Int64Var(&tokenOperator, "operator", 0, "Operator Telegram user id (required)")
	if err := tokenCmd.MarkFlagRequired("operator"); err != nil {
		panic(fmt.Sprintf("failed to mark operator flag as required: %v", err))
	}
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.IsOperator(tokenOperator) {
		return fmt.Errorf("user %d is not an operator (OWNER_ID or SUDO_USERS)", tokenOperator)
	}

	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	token, err := server.NewJWTService(jwtCfg).GenerateToken(tokenOperator)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
