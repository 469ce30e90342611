package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для управления запусками.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Manage plan executions",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionStartCmd(clientFn, outputFn),
		newExecutionSubmitCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionStepsCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var planID string
	var tenantID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions(ListExecutionsOpts{
				PlanID:   planID,
				TenantID: tenantID,
				Status:   status,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "PLAN", "STATUS", "STARTED", "FINISHED"}
			rows := make([][]string, len(executions))
			for i, e := range executions {
				rows[i] = []string{e.ID, e.PlanName, e.Status, e.StartedAt, e.FinishedAt}
			}

			out.Print(headers, rows, executions)
			return nil
		},
	}

	cmd.Flags().StringVar(&planID, "plan-id", "", "Filter by plan ID")
	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "Filter by tenant ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (QUEUED, RUNNING, COMPLETED, PARTIALLY_COMPLETED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newExecutionStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var inputs []string
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "start PLAN_ID",
		Short: "Start an execution of a stored plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := ExecutePlanRequest{
				IdempotencyKey: idempotencyKey,
			}

			if len(inputs) > 0 {
				req.Input = make(map[string]any)
				for _, kv := range inputs {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
					}
					req.Input[parts[0]] = parts[1]
				}
			}

			execution, err := client.ExecutePlan(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution queued: %s", execution.ID))
			out.Print(
				[]string{"ID", "PLAN", "STATUS", "CREATED"},
				[][]string{{execution.ID, execution.PlanName, execution.Status, execution.CreatedAt}},
				execution,
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for the execution")

	return cmd
}

func newExecutionSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string
	var inputs []string
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a one-off plan from a definition file",
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

			req := ExecuteInlineRequest{
				Plan:           json.RawMessage(data),
				IdempotencyKey: idempotencyKey,
			}

			if len(inputs) > 0 {
				req.Input = make(map[string]any)
				for _, kv := range inputs {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
					}
					req.Input[parts[0]] = parts[1]
				}
			}

			execution, err := client.ExecuteInline(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution queued: %s", execution.ID))
			out.Print(
				[]string{"ID", "PLAN", "STATUS", "CREATED"},
				[][]string{{execution.ID, execution.PlanName, execution.Status, execution.CreatedAt}},
				execution,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to plan JSON file (required)")
	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for the execution")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execution, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "PLAN", "STATUS", "ERROR", "STARTED", "FINISHED"},
				[][]string{{
					execution.ID, execution.PlanName, execution.Status,
					execution.Error, execution.StartedAt, execution.FinishedAt,
				}},
				execution,
			)
			return nil
		},
	}
}

func newExecutionStepsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "steps EXECUTION_ID",
		Short: "List step results of an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execution, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			if execution.Result == nil {
				out.Success(fmt.Sprintf("Execution %s has no result yet (status: %s)", execution.ID, execution.Status))
				return nil
			}

			headers := []string{"STEP_ID", "NAME", "STATUS", "DURATION_MS", "COMPENSATED", "ERROR"}
			rows := make([][]string, len(execution.Result.StepResults))
			for i, sr := range execution.Result.StepResults {
				rows[i] = []string{
					sr.StepID, sr.StepName, sr.Status, strconv.FormatInt(sr.DurationMs, 10),
					strconv.FormatBool(sr.Compensated), sr.Error,
				}
			}

			out.Print(headers, rows, execution.Result.StepResults)
			return nil
		},
	}
}
