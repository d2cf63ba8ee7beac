package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"igclog/internal/config"
	"igclog/internal/enrichment"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate against the enrichment service",
		Long:  "Exchanges credentials for an access token and stores it in the configuration file. The token authorizes elevation lookups.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if email == "" {
				email = cfg.Enrichment.Email
			}
			if email == "" {
				return errors.New("no email given (use --email or set enrichment.email)")
			}
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			client := enrichment.NewClient(enrichment.WithBaseURL(cfg.Enrichment.BaseURL))
			token, err := client.Authenticate(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			cfg.Enrichment.Email = email
			cfg.Enrichment.AccessToken = token
			if err := config.Save(cfg, ctx.configPath); err != nil {
				return fmt.Errorf("store access token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated, token stored in %s\n", ctx.configPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "u", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when omitted)")
	return cmd
}
