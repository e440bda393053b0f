// Package ranking orders employees by suitability for a free-text task,
// either through the language model or by keyword scoring.
package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/demanddesk/demanddesk/internal/employee"
	"github.com/demanddesk/demanddesk/internal/llm"
	"github.com/demanddesk/demanddesk/internal/observability"
)

var ErrEmptyTask = errors.New("task description cannot be empty")

type Strategy string

const (
	StrategyLLM     Strategy = "llm"
	StrategyKeyword Strategy = "keyword"
)

type Result struct {
	Strategy  Strategy            `json:"strategy"`
	Employees []employee.Employee `json:"employees"`
	Analysis  string              `json:"task_analysis,omitempty"`
	Reasoning string              `json:"reasoning,omitempty"`
}

type Ranker struct {
	Completer  llm.Completer
	LLMEnabled bool
	Logger     *slog.Logger
}

// Rank picks the strategy once from the capability flag. A failed model
// call degrades to keyword scoring and the result reports StrategyKeyword.
func (r *Ranker) Rank(ctx context.Context, task string, employees []employee.Employee) (Result, error) {
	if strings.TrimSpace(task) == "" {
		return Result{}, ErrEmptyTask
	}

	if r.LLMEnabled && r.Completer != nil {
		result, err := r.rankWithModel(ctx, task, employees)
		if err == nil {
			observability.ObserveRanking(string(StrategyLLM))
			return result, nil
		}
		r.logger().WarnContext(ctx, "model ranking failed, using keyword ranking", slog.String("error", err.Error()))
	}

	observability.ObserveRanking(string(StrategyKeyword))
	return Result{Strategy: StrategyKeyword, Employees: KeywordRank(task, employees)}, nil
}

type modelAnswer struct {
	TaskAnalysis        string `json:"task_analysis"`
	SuitableEmployeeIDs []any  `json:"suitable_employee_ids"`
	Reasoning           string `json:"reasoning"`
}

func (r *Ranker) rankWithModel(ctx context.Context, task string, employees []employee.Employee) (Result, error) {
	prompt, err := buildRankingPrompt(task, employees)
	if err != nil {
		return Result{}, err
	}
	raw, err := r.Completer.Complete(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("complete ranking prompt: %w", err)
	}

	var answer modelAnswer
	if err := json.Unmarshal([]byte(extractJSON(raw)), &answer); err != nil {
		return Result{}, fmt.Errorf("decode ranking answer: %w", err)
	}

	byID := make(map[int]employee.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}
	seen := make(map[int]bool, len(answer.SuitableEmployeeIDs))
	ranked := make([]employee.Employee, 0, len(answer.SuitableEmployeeIDs))
	for _, rawID := range answer.SuitableEmployeeIDs {
		id, ok := answerID(rawID)
		if !ok || seen[id] {
			continue
		}
		e, ok := byID[id]
		if !ok {
			continue
		}
		seen[id] = true
		ranked = append(ranked, e)
	}

	return Result{
		Strategy:  StrategyLLM,
		Employees: ranked,
		Analysis:  strings.TrimSpace(answer.TaskAnalysis),
		Reasoning: strings.TrimSpace(answer.Reasoning),
	}, nil
}

func (r *Ranker) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

type promptEmployee struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Skills         []string `json:"skills"`
	Qualifications []string `json:"qualifications"`
	Strength       int      `json:"strength"`
	Availability   string   `json:"availability"`
	Team           string   `json:"team"`
}

func buildRankingPrompt(task string, employees []employee.Employee) (string, error) {
	payload := make([]promptEmployee, 0, len(employees))
	for _, e := range employees {
		payload = append(payload, promptEmployee{
			ID:             e.ID,
			Name:           e.Name,
			Skills:         e.Skills,
			Qualifications: e.Qualifications,
			Strength:       e.Strength,
			Availability:   e.Availability,
			Team:           e.Team,
		})
	}
	employeesJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal employees for prompt: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are an expert at matching employees to tasks based on their skills and qualifications.\n\n")
	b.WriteString("Given the task description and the employees below, decide which employees are suitable for the task.\n\n")
	fmt.Fprintf(&b, "TASK DESCRIPTION:\n%s\n\n", strings.TrimSpace(task))
	fmt.Fprintf(&b, "AVAILABLE EMPLOYEES:\n%s\n\n", employeesJSON)
	b.WriteString("Respond with JSON in exactly this shape:\n")
	b.WriteString(`{"task_analysis": "what the task requires", "suitable_employee_ids": [1, 2], "reasoning": "why these employees match"}`)
	b.WriteString("\nList suitable_employee_ids from most to least suitable. Return only valid JSON.\n")
	return b.String(), nil
}

// extractJSON returns the body of a ```json fence, else of the first plain
// fence, else the trimmed text.
func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if _, after, ok := strings.Cut(text, "```json"); ok {
		body, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(body)
	}
	if parts := strings.Split(text, "```"); len(parts) >= 3 {
		return strings.TrimSpace(parts[1])
	}
	return text
}

func answerID(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(v))
		return id, err == nil
	default:
		return 0, false
	}
}

// KeywordRank scores each employee against the lower-cased task: +2 per skill
// and +1 per qualification mentioned in it, +1 when Available and +0.5 when
// Partially Available. Employees scoring zero are dropped; ties keep input
// order.
func KeywordRank(task string, employees []employee.Employee) []employee.Employee {
	taskLower := strings.ToLower(task)
	type scored struct {
		employee employee.Employee
		score    float64
	}
	candidates := make([]scored, 0, len(employees))
	for _, e := range employees {
		score := 0.0
		for _, skill := range e.Skills {
			if skill != "" && strings.Contains(taskLower, strings.ToLower(skill)) {
				score += 2
			}
		}
		for _, qualification := range e.Qualifications {
			if qualification != "" && strings.Contains(taskLower, strings.ToLower(qualification)) {
				score++
			}
		}
		switch e.Availability {
		case employee.AvailabilityAvailable:
			score++
		case employee.AvailabilityPartiallyAvailable:
			score += 0.5
		}
		if score > 0 {
			candidates = append(candidates, scored{employee: e, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	out := make([]employee.Employee, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.employee)
	}
	return out
}
