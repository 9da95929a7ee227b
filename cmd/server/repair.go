package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/service"
)

func repairCmd(configPath *string) *cobra.Command {
	var (
		all       bool
		userHex   string
		planType  string
		restoreID string
	)

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Repair users holding more than one active plan of a type",
		Long: "With --all every inconsistent user is repaired, keeping the newest active plan.\n" +
			"With --user and --type a single user is repaired; --restore reactivates a plan\n" +
			"when the user has no active plan left after a failed regeneration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && userHex == "" {
				return errors.New("either --all or --user is required")
			}

			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			var reports []service.RepairReport
			if all {
				reports, err = a.planService.RepairAll(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				userID, err := primitive.ObjectIDFromHex(userHex)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				var restore *primitive.ObjectID
				if restoreID != "" {
					id, err := primitive.ObjectIDFromHex(restoreID)
					if err != nil {
						return fmt.Errorf("invalid --restore: %w", err)
					}
					restore = &id
				}
				report, err := a.planService.RepairInconsistentState(cmd.Context(), userID, domain.PlanType(planType), restore)
				if err != nil {
					return err
				}
				reports = append(reports, *report)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reports)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "repair every inconsistent user")
	cmd.Flags().StringVar(&userHex, "user", "", "user ID to repair")
	cmd.Flags().StringVar(&planType, "type", string(domain.PlanTypeWorkout), "plan type (workout or nutrition)")
	cmd.Flags().StringVar(&restoreID, "restore", "", "plan ID to reactivate when none is active")
	return cmd
}
