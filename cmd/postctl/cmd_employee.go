package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/repositories"
	"github.com/postertrack/backend/internal/services"
	"github.com/spf13/cobra"
)

var employeeFlags struct {
	email     string
	password  string
	firstName string
	lastName  string
}

// createEmployeeCmd seeds a company employee account
var createEmployeeCmd = &cobra.Command{
	Use:   "create-employee",
	Short: "Create a company employee account",
	Long: `Create an active company_employee user. Used to seed the first account,
since only employees can create users through the API.

The password can be passed with --password or the POSTCTL_PASSWORD variable.`,
	RunE: runCreateEmployee,
}

func init() {
	f := createEmployeeCmd.Flags()
	f.StringVar(&employeeFlags.email, "email", "", "Login email (required)")
	f.StringVar(&employeeFlags.password, "password", "", "Initial password")
	f.StringVar(&employeeFlags.firstName, "first-name", "", "First name (required)")
	f.StringVar(&employeeFlags.lastName, "last-name", "", "Last name")
	_ = createEmployeeCmd.MarkFlagRequired("email")
	_ = createEmployeeCmd.MarkFlagRequired("first-name")
}

func runCreateEmployee(cmd *cobra.Command, _ []string) error {
	password := employeeFlags.password
	if password == "" {
		password = os.Getenv("POSTCTL_PASSWORD")
	}
	if password == "" {
		return errors.New("a password is required (--password or POSTCTL_PASSWORD)")
	}

	ctx := cmd.Context()
	env, closeEnv, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer closeEnv()

	userRepo := repositories.NewUserRepo(env.pool)
	audit := services.NewAuditService(repositories.NewAuditRepo(env.pool), env.log)
	sessions := services.NewSessionService(repositories.NewSessionRepo(env.pool), userRepo, services.NopSessionCache{}, env.cfg, env.log)
	users := services.NewUserService(userRepo, repositories.NewCompanyRepo(env.pool), repositories.NewAssignmentRepo(env.pool), sessions, audit, env.cfg, env.log)

	u, err := users.Bootstrap(ctx, services.CreateUserInput{
		Email:     employeeFlags.email,
		Password:  password,
		FirstName: employeeFlags.firstName,
		LastName:  employeeFlags.lastName,
	})
	if err != nil {
		if fields := apperr.FieldsOf(err); len(fields) > 0 {
			for k, v := range fields {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", k, v)
			}
		}
		return fmt.Errorf("create employee: %s", apperr.PublicMessage(err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created employee %s (%s)\n", u.Email, u.ID)
	return nil
}
