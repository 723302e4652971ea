package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"clinicq/internal/bootstrap"
	"clinicq/internal/events"
	"clinicq/pkg/auth"
	"clinicq/pkg/config"
	"clinicq/pkg/model"
)

const ServiceName = "clinicctl"

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Operator tooling for the clinic slot and queue service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepLocksCmd())
	rootCmd.AddCommand(generateSlotsCmd())
	rootCmd.AddCommand(nextTokenCmd())
	rootCmd.AddCommand(issueTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create collections, validators and indexes, and apply SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(ServiceName)
			defer cfg.GracefulShutdown()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return bootstrap.Migrate(ctx, cfg)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall migration timeout")
	return cmd
}

func sweepLocksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-locks",
		Short: "Expire every reservation lock past its TTL and return its capacity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, cfg *config.Config, s *bootstrap.Services) error {
				result, err := s.Locks.ExpireSweep(ctx, cfg.Clock())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func generateSlotsCmd() *cobra.Command {
	req := &model.SlotGenerationRequest{}
	cmd := &cobra.Command{
		Use:   "generate-slots",
		Short: "Create the slots of a hospital for a range of business days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, _ *config.Config, s *bootstrap.Services) error {
				result, err := s.Slots.Generate(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.HospitalID, "hospital", "", "hospital id")
	flags.StringVar(&req.FromDate, "from", "", "first business day, YYYY-MM-DD")
	flags.StringVar(&req.ToDate, "to", "", "last business day, YYYY-MM-DD")
	flags.StringVar(&req.DayStart, "day-start", "09:00", "opening time, HH:MM")
	flags.StringVar(&req.DayEnd, "day-end", "17:00", "closing time, HH:MM")
	flags.IntVar(&req.SlotMinutes, "slot-minutes", 30, "slot length in minutes")
	flags.IntVar(&req.MaxCapacity, "capacity", 1, "patients per slot")
	_ = cmd.MarkFlagRequired("hospital")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func nextTokenCmd() *cobra.Command {
	var hospitalID, day string
	cmd := &cobra.Command{
		Use:   "next-token",
		Short: "Issue the next queue token of a hospital",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, cfg *config.Config, s *bootstrap.Services) error {
				if day == "" {
					day = cfg.Calendar.DayKey(cfg.Clock())
				}
				token, err := s.Tokens.NextTokenForDay(ctx, hospitalID, day)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"hospitalId": hospitalID,
					"dayKey":     day,
					"token":      token,
				})
			})
		},
	}
	cmd.Flags().StringVar(&hospitalID, "hospital", "", "hospital id")
	cmd.Flags().StringVar(&day, "day", "", "business day, YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("hospital")
	return cmd
}

func issueTokenCmd() *cobra.Command {
	var (
		subject string
		roles   []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign a staff bearer token with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(ServiceName)
			token, err := auth.NewJWTAuthorizer(cfg.JWTSecret, cfg.JWTIssuer).IssueToken(subject, roles, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "staff member the token is issued to")
	cmd.Flags().StringSliceVar(&roles, "role", []string{auth.RoleReceptionist}, "granted roles (admin, receptionist, doctor, pharmacist)")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// withServices builds the service graph from the environment, runs fn and
// closes every connection it opened.
func withServices(ctx context.Context, fn func(context.Context, *config.Config, *bootstrap.Services) error) error {
	cfg := config.Load(ServiceName)
	defer cfg.GracefulShutdown()

	repos := bootstrap.NewRepositories(cfg)
	counter, err := bootstrap.NewCounter(ctx, cfg, repos)
	if err != nil {
		return err
	}
	// operator commands do not emit domain events
	services := bootstrap.NewServices(cfg, repos, counter, events.NoopPublisher{})
	return fn(ctx, cfg, services)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
