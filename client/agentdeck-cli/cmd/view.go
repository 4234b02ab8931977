package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// envelope is one frame on the event channel.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type agentState struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

type taskResult struct {
	OriginalRequest string   `json:"originalRequest"`
	Summary         string   `json:"summary"`
	Results         []string `json:"results"`
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

// taskView is the client-side picture of one task, rebuilt by merging
// server events the same way the browser dashboard does.
type taskView struct {
	TaskID  string
	Request string
	Status  string
	Message string
	Reasons []string
	Agents  []*agentState
	Result  *taskResult
	Err     error
}

func (v *taskView) agent(t string) *agentState {
	for _, a := range v.Agents {
		if a.Type == t {
			return a
		}
	}
	a := &agentState{Type: t, Name: t, Status: "pending"}
	v.Agents = append(v.Agents, a)
	return a
}

// apply merges one event. It returns a line worth printing (possibly empty)
// and whether the task reached an end state.
func (v *taskView) apply(env envelope) (string, bool, error) {
	switch env.Event {
	case "taskCreated":
		var p struct {
			TaskID string `json:"taskId"`
			Task   struct {
				Request string `json:"request"`
				Status  string `json:"status"`
			} `json:"task"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return "", false, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		v.TaskID, v.Request, v.Status = p.TaskID, p.Task.Request, p.Task.Status
		return fmt.Sprintf("Task %s created", v.TaskID), false, nil

	case "taskUpdate":
		var p struct {
			TaskID       string        `json:"taskId"`
			Status       string        `json:"status"`
			Message      string        `json:"message"`
			AgentReasons []string      `json:"agentReasons"`
			Agents       []*agentState `json:"agents"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return "", false, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		if !v.owns(p.TaskID) {
			return "", false, nil
		}
		v.Status, v.Message = p.Status, p.Message
		if len(p.AgentReasons) > 0 {
			v.Reasons = p.AgentReasons
		}
		if len(p.Agents) > 0 {
			v.Agents = p.Agents
		}
		line := fmt.Sprintf("[%s] %s", p.Status, p.Message)
		for _, r := range p.AgentReasons {
			line += "\n    - " + r
		}
		return line, false, nil

	case "agentUpdate":
		var p struct {
			TaskID    string `json:"taskId"`
			AgentType string `json:"agentType"`
			Status    string `json:"status"`
			Progress  int    `json:"progress"`
			Message   string `json:"message"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return "", false, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		if !v.owns(p.TaskID) {
			return "", false, nil
		}
		a := v.agent(p.AgentType)
		a.Status, a.Progress, a.Message = p.Status, p.Progress, p.Message
		first, _, _ := strings.Cut(p.Message, "\n")
		return fmt.Sprintf("  %s %-18s %3d%%  %s", a.Icon, a.Name, a.Progress, first), false, nil

	case "taskCompleted":
		var p struct {
			TaskID string      `json:"taskId"`
			Result *taskResult `json:"result"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return "", false, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		if !v.owns(p.TaskID) {
			return "", false, nil
		}
		v.Status, v.Result = "completed", p.Result
		return "", true, nil

	case "taskFailed":
		var p struct {
			TaskID string `json:"taskId"`
			Error  string `json:"error"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return "", false, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		if !v.owns(p.TaskID) {
			return "", false, nil
		}
		v.Status, v.Err = "failed", errors.New(p.Error)
		return "Task failed: " + p.Error, true, nil

	case "taskRejected":
		var p struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return "", false, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		v.Err = fmt.Errorf("task rejected: %s", p.Error)
		return "", true, nil

	case "error":
		var p struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(env.Data, &p)
		return "Server error: " + p.Error, false, nil
	}
	return "", false, nil
}

func (v *taskView) owns(taskID string) bool {
	return v.TaskID == "" || taskID == v.TaskID
}

// report renders the final result block.
func (v *taskView) report() string {
	if v.Result == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", v.Result.Summary)
	for i, r := range v.Result.Results {
		name := ""
		if i < len(v.Agents) {
			name = v.Agents[i].Name
		}
		fmt.Fprintf(&b, "\n== %s ==\n%s\n", name, r)
	}
	b.WriteString("\nInsights:\n")
	for _, s := range v.Result.Insights {
		fmt.Fprintf(&b, "  * %s\n", s)
	}
	b.WriteString("Recommendations:\n")
	for _, s := range v.Result.Recommendations {
		fmt.Fprintf(&b, "  * %s\n", s)
	}
	return b.String()
}
