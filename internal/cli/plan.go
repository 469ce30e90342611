package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewPlanCmd создаёт группу команд для управления планами.
func NewPlanCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage orchestration plans",
	}

	cmd.AddCommand(
		newPlanListCmd(clientFn, outputFn),
		newPlanCreateCmd(clientFn, outputFn),
		newPlanShowCmd(clientFn, outputFn),
		newPlanUpdateCmd(clientFn, outputFn),
		newPlanDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newPlanListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var tenantID string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			plans, err := client.ListPlans(ListPlansOpts{
				TenantID: tenantID,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "TENANT", "NAME", "STEPS", "ACTIVE", "CREATED"}
			rows := make([][]string, len(plans))
			for i, p := range plans {
				rows[i] = []string{
					p.ID, p.TenantID, p.Name, strconv.Itoa(len(p.Steps)),
					strconv.FormatBool(p.IsActive), p.CreatedAt,
				}
			}

			out.Print(headers, rows, plans)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "Filter by tenant ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newPlanCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a plan from a definition file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read plan file: %w", err)
			}

			// Валидируем что это валидный JSON
			if !json.Valid(data) {
				return fmt.Errorf("plan file is not valid JSON")
			}

			plan, err := client.CreatePlan(json.RawMessage(data))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Plan created: %s", plan.ID))
			out.Print(
				[]string{"ID", "TENANT", "NAME", "STEPS", "ACTIVE", "CREATED"},
				[][]string{{
					plan.ID, plan.TenantID, plan.Name, strconv.Itoa(len(plan.Steps)),
					strconv.FormatBool(plan.IsActive), plan.CreatedAt,
				}},
				plan,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to plan JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newPlanShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show plan details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			plan, err := client.GetPlan(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "TENANT", "NAME", "STEPS", "ACTIVE", "CREATED"},
				[][]string{{
					plan.ID, plan.TenantID, plan.Name, strconv.Itoa(len(plan.Steps)),
					strconv.FormatBool(plan.IsActive), plan.CreatedAt,
				}},
				plan,
			)
			return nil
		},
	}
}

func newPlanUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var active string
	var stepsFile string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdatePlanRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("active") {
				b, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("invalid value for --active: %s", active)
				}
				req.IsActive = &b
			}
			if stepsFile != "" {
				data, err := os.ReadFile(stepsFile)
				if err != nil {
					return fmt.Errorf("failed to read steps file: %w", err)
				}
				if !json.Valid(data) {
					return fmt.Errorf("steps file is not valid JSON")
				}
				req.Steps = json.RawMessage(data)
			}

			plan, err := client.UpdatePlan(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Plan updated")
			out.Print(
				[]string{"ID", "TENANT", "NAME", "STEPS", "ACTIVE", "CREATED"},
				[][]string{{
					plan.ID, plan.TenantID, plan.Name, strconv.Itoa(len(plan.Steps)),
					strconv.FormatBool(plan.IsActive), plan.CreatedAt,
				}},
				plan,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New plan name")
	cmd.Flags().StringVar(&active, "active", "", "Set active status (true/false)")
	cmd.Flags().StringVar(&stepsFile, "steps-file", "", "Path to JSON file with new steps array")

	return cmd
}

func newPlanDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeletePlan(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Plan deleted: %s", args[0]))
			return nil
		},
	}
}
