package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// PlanResponse — план из API.
type PlanResponse struct {
	ID        string           `json:"id"`
	TenantID  string           `json:"tenant_id"`
	Name      string           `json:"name"`
	Steps     []map[string]any `json:"steps"`
	IsActive  bool             `json:"is_active"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

// ExecutionResponse — запуск из API.
type ExecutionResponse struct {
	ID             string          `json:"id"`
	PlanID         string          `json:"plan_id"`
	TenantID       string          `json:"tenant_id,omitempty"`
	PlanName       string          `json:"plan_name"`
	Status         string          `json:"status"`
	Input          map[string]any  `json:"input,omitempty"`
	Result         *ResultResponse `json:"result,omitempty"`
	Error          string          `json:"error,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	StartedAt      string          `json:"started_at,omitempty"`
	FinishedAt     string          `json:"finished_at,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

// ResultResponse — итог выполнения плана. Поля в camelCase: это
// контрактный формат результата, а не операционный формат API.
type ResultResponse struct {
	Success             bool                 `json:"success"`
	Status              string               `json:"status"`
	TotalSteps          int                  `json:"totalSteps"`
	CompletedSteps      int                  `json:"completedSteps"`
	FailedSteps         int                  `json:"failedSteps"`
	SkippedSteps        int                  `json:"skippedSteps"`
	TotalDurationMs     int64                `json:"totalDurationMs"`
	CompensationApplied bool                 `json:"compensationApplied"`
	StepResults         []StepResultResponse `json:"stepResults"`
}

// StepResultResponse — итог выполнения одного шага.
type StepResultResponse struct {
	StepID      string `json:"stepId"`
	StepName    string `json:"stepName,omitempty"`
	Status      string `json:"status"`
	DurationMs  int64  `json:"durationMs"`
	Error       string `json:"error,omitempty"`
	Compensated bool   `json:"compensated,omitempty"`
}

// ScheduleResponse — расписание из API.
type ScheduleResponse struct {
	ID              string         `json:"id"`
	PlanID          string         `json:"plan_id"`
	Name            string         `json:"name"`
	CronExpr        string         `json:"cron_expr,omitempty"`
	IntervalSec     int            `json:"interval_sec,omitempty"`
	Timezone        string         `json:"timezone"`
	Input           map[string]any `json:"input,omitempty"`
	Enabled         bool           `json:"enabled"`
	NextDueAt       string         `json:"next_due_at,omitempty"`
	LastRunAt       string         `json:"last_run_at,omitempty"`
	LastExecutionID string         `json:"last_execution_id,omitempty"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

// --- Request types ---

// UpdatePlanRequest — обновление плана.
type UpdatePlanRequest struct {
	Name     *string         `json:"name,omitempty"`
	Steps    json.RawMessage `json:"steps,omitempty"`
	IsActive *bool           `json:"is_active,omitempty"`
}

// ExecutePlanRequest — запуск сохранённого плана.
type ExecutePlanRequest struct {
	Input          map[string]any `json:"input,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// ExecuteInlineRequest — запуск плана, переданного в теле запроса.
type ExecuteInlineRequest struct {
	Plan           json.RawMessage `json:"plan"`
	Input          map[string]any  `json:"input,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// CreateScheduleRequest — создание расписания.
type CreateScheduleRequest struct {
	PlanID      string         `json:"plan_id"`
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Input       map[string]any `json:"input,omitempty"`
}

// UpdateScheduleRequest — обновление расписания.
type UpdateScheduleRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

// ListPlansOpts — параметры фильтрации планов.
type ListPlansOpts struct {
	TenantID string
	Limit    int
}

// ListExecutionsOpts — параметры фильтрации запусков.
type ListExecutionsOpts struct {
	PlanID   string
	TenantID string
	Status   string
	Limit    int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Conductor API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Plans ---

// ListPlans возвращает планы с учётом фильтров.
func (c *Client) ListPlans(opts ListPlansOpts) ([]PlanResponse, error) {
	params := url.Values{}
	if opts.TenantID != "" {
		params.Set("tenant_id", opts.TenantID)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var plans []PlanResponse
	err := c.list("/api/v1/plans", params, &plans)
	return plans, err
}

// CreatePlan регистрирует план. Тело запроса передаётся как есть:
// определение шагов готовится в JSON-файле, а не собирается из флагов.
func (c *Client) CreatePlan(body json.RawMessage) (*PlanResponse, error) {
	var plan PlanResponse
	err := c.post("/api/v1/plans", body, &plan)
	return &plan, err
}

// GetPlan возвращает план по ID.
func (c *Client) GetPlan(id string) (*PlanResponse, error) {
	var plan PlanResponse
	err := c.get("/api/v1/plans/"+id, &plan)
	return &plan, err
}

// UpdatePlan обновляет план.
func (c *Client) UpdatePlan(id string, req UpdatePlanRequest) (*PlanResponse, error) {
	var plan PlanResponse
	err := c.put("/api/v1/plans/"+id, req, &plan)
	return &plan, err
}

// DeletePlan удаляет план.
func (c *Client) DeletePlan(id string) error {
	return c.delete("/api/v1/plans/" + id)
}

// --- Executions ---

// ListExecutions возвращает запуски с учётом фильтров.
func (c *Client) ListExecutions(opts ListExecutionsOpts) ([]ExecutionResponse, error) {
	params := url.Values{}
	if opts.PlanID != "" {
		params.Set("plan_id", opts.PlanID)
	}
	if opts.TenantID != "" {
		params.Set("tenant_id", opts.TenantID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var executions []ExecutionResponse
	err := c.list("/api/v1/executions", params, &executions)
	return executions, err
}

// ExecutePlan ставит сохранённый план в очередь.
func (c *Client) ExecutePlan(planID string, req ExecutePlanRequest) (*ExecutionResponse, error) {
	var execution ExecutionResponse
	err := c.post("/api/v1/plans/"+planID+"/executions", req, &execution)
	return &execution, err
}

// ExecuteInline ставит в очередь план из тела запроса, без регистрации.
func (c *Client) ExecuteInline(req ExecuteInlineRequest) (*ExecutionResponse, error) {
	var execution ExecutionResponse
	err := c.post("/api/v1/executions", req, &execution)
	return &execution, err
}

// GetExecution возвращает запуск по ID.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var execution ExecutionResponse
	err := c.get("/api/v1/executions/"+id, &execution)
	return &execution, err
}

// --- Schedules ---

// ListSchedules возвращает расписания, опционально фильтруя по плану.
func (c *Client) ListSchedules(planID string) ([]ScheduleResponse, error) {
	params := url.Values{}
	if planID != "" {
		params.Set("plan_id", planID)
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule создаёт расписание.
func (c *Client) CreateSchedule(req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает расписание по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// UpdateSchedule обновляет расписание.
func (c *Client) UpdateSchedule(id string, req UpdateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.put("/api/v1/schedules/"+id, req, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет расписание.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// EnableSchedule включает расписание.
func (c *Client) EnableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// DisableSchedule выключает расписание.
func (c *Client) DisableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
