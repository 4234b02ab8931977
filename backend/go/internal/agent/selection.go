package agent

import (
	"AgentDeck/backend/go/internal/models"
	"slices"
	"strings"
)

// Selection is the ordered agent assignment for one request, with one reason per agent.
type Selection struct {
	Agents  []models.AgentType
	Reasons []string
}

func (s *Selection) add(t models.AgentType, reason string) {
	if slices.Contains(s.Agents, t) {
		return
	}
	s.Agents = append(s.Agents, t)
	s.Reasons = append(s.Reasons, string(t)+": "+reason)
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// Select assigns agents to a request by case-insensitive keyword checks.
// Matches append in rule order and never duplicate; a request matching no rule
// gets Planner, Researcher and Writer.
func Select(request string) Selection {
	lower := strings.ToLower(request)
	sel := Selection{Agents: []models.AgentType{}, Reasons: []string{}}

	if containsAny(lower, "summarize", "analyze") {
		sel.add(models.AgentPlanner, "Breaking down complex analysis into manageable subtasks")
		sel.add(models.AgentResearcher, "Gathering relevant data and information sources")
		sel.add(models.AgentAnalyst, "Processing and analyzing the collected data")
		sel.add(models.AgentWriter, "Creating comprehensive summaries and insights")
	}
	if containsAny(lower, "chart", "visual", "graph") {
		sel.add(models.AgentVisualizer, "Creating charts and visual representations of data")
	}
	if containsAny(lower, "financial", "data") {
		sel.add(models.AgentResearcher, "Gathering financial data and market information")
		sel.add(models.AgentAnalyst, "Analyzing financial trends and data patterns")
	}

	if len(sel.Agents) == 0 {
		sel.add(models.AgentPlanner, "Organizing the general request into structured tasks")
		sel.add(models.AgentResearcher, "Gathering relevant information for the request")
		sel.add(models.AgentWriter, "Creating a comprehensive response and summary")
	}
	return sel
}

// Subtask is the work description shown while an agent runs.
func Subtask(request string) string {
	if strings.Contains(strings.ToLower(request), "financial") {
		return "Processing financial data"
	}
	return "Processing request data"
}
