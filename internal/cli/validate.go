package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"vocab-mocktest-service/internal/bank"
	"vocab-mocktest-service/internal/config"
	"vocab-mocktest-service/internal/domain"
	pgloader "vocab-mocktest-service/internal/infra/postgres"
)

// NewValidateCmd audits a question source for data-quality defects:
// out-of-range answer keys, empty option text, missing group ids. Malformed
// questions corrupt scoring, so they are caught here rather than tolerated at
// runtime.
func NewValidateCmd(configPath *string) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Audit a question source for data-quality issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), *configPath, source)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source id to validate (empty validates the embedded sample banks)")
	return cmd
}

func runValidate(ctx context.Context, configPath, source string) error {
	var loader bank.Loader = bank.NewStaticLoader()
	if source != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Postgres.URL != "" {
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			loader = pgloader.NewBankLoader(pool)
		}
		return validateSource(ctx, loader, source)
	}

	for _, id := range []string{"reading-comprehension", "para-summary"} {
		if err := validateSource(ctx, loader, id); err != nil {
			return err
		}
	}
	return nil
}

func validateSource(ctx context.Context, loader bank.Loader, source string) error {
	b, err := loader.LoadBank(ctx, source)
	if err != nil {
		return err
	}
	issues := domain.ValidateBank(b)
	if len(issues) == 0 {
		fmt.Printf("%s: ok (%d questions)\n", source, len(b.Questions))
		return nil
	}
	for _, issue := range issues {
		fmt.Printf("%s: %s\n", source, issue)
	}
	return fmt.Errorf("%s: %d issue(s) found", source, len(issues))
}
