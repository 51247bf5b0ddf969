package main

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/config"
	"github.com/saurabh1e/pos-api/internal/storage"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin user interactively",
	Long:  "Prompt for an organisation and credentials, then create an active admin user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := storage.Open(cmd.Context(), storage.DefaultConfig(cfg.Database.URL))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		answers := struct {
			Organisation string
			Email        string
			Name         string
			MobileNumber string `survey:"mobile_number"`
			Password     string
		}{}

		questions := []*survey.Question{
			{
				Name:     "organisation",
				Prompt:   &survey.Input{Message: "Organisation name:"},
				Validate: survey.Required,
			},
			{
				Name:     "email",
				Prompt:   &survey.Input{Message: "Admin email:"},
				Validate: survey.Required,
			},
			{
				Name:     "name",
				Prompt:   &survey.Input{Message: "Full name:"},
				Validate: survey.Required,
			},
			{
				Name:     "mobile_number",
				Prompt:   &survey.Input{Message: "Mobile number:"},
				Validate: survey.Required,
			},
			{
				Name:     "password",
				Prompt:   &survey.Password{Message: "Password:"},
				Validate: survey.MinLength(8),
			},
		}
		if err := survey.Ask(questions, &answers); err != nil {
			return err
		}

		hash, err := auth.HashPassword(answers.Password)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var orgID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO organisations (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`,
			answers.Organisation,
		).Scan(&orgID)
		if err != nil {
			return fmt.Errorf("creating organisation: %w", err)
		}

		var userID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO users (email, password, name, mobile_number, active, organisation_id)
			 VALUES ($1, $2, $3, $4, TRUE, $5)
			 RETURNING id`,
			answers.Email, hash, answers.Name, answers.MobileNumber, orgID,
		).Scan(&userID)
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_id)
			 SELECT $1, id FROM roles WHERE name = 'admin'`,
			userID,
		)
		if err != nil {
			return fmt.Errorf("assigning admin role: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		green := color.New(color.FgGreen)
		green.Printf("Created admin user %s (id %d) in organisation %s (id %d)\n",
			answers.Email, userID, answers.Organisation, orgID)
		return nil
	},
}
