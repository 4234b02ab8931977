package agent

import (
	"AgentDeck/backend/go/internal/models"
	"time"
)

// Spec is everything the server knows about one agent kind.
type Spec struct {
	Type       models.AgentType
	Descriptor models.AgentDescriptor
	Duration   time.Duration
	render     func(r Rand) string
}

// Render produces the canned result text for one run.
func (s Spec) Render(r Rand) string {
	if s.render == nil {
		return "Task completed successfully with comprehensive results."
	}
	return s.render(r)
}

// DefaultSpecs returns the built-in agent table in display order.
func DefaultSpecs() []Spec {
	return []Spec{
		{
			Type: models.AgentPlanner,
			Descriptor: models.AgentDescriptor{
				Name:        "Task Planner",
				Description: "Breaks down complex tasks into subtasks",
				Icon:        "P",
				Color:       "#3B82F6",
			},
			Duration: 2000 * time.Millisecond,
			render:   renderPlanner,
		},
		{
			Type: models.AgentResearcher,
			Descriptor: models.AgentDescriptor{
				Name:        "Data Researcher",
				Description: "Gathers and analyzes information",
				Icon:        "R",
				Color:       "#10B981",
			},
			Duration: 4000 * time.Millisecond,
			render:   renderResearcher,
		},
		{
			Type: models.AgentAnalyst,
			Descriptor: models.AgentDescriptor{
				Name:        "Data Analyst",
				Description: "Processes and analyzes data",
				Icon:        "A",
				Color:       "#F59E0B",
			},
			Duration: 3000 * time.Millisecond,
			render:   renderAnalyst,
		},
		{
			Type: models.AgentWriter,
			Descriptor: models.AgentDescriptor{
				Name:        "Content Writer",
				Description: "Creates summaries and reports",
				Icon:        "W",
				Color:       "#8B5CF6",
			},
			Duration: 2500 * time.Millisecond,
			render:   renderWriter,
		},
		{
			Type: models.AgentVisualizer,
			Descriptor: models.AgentDescriptor{
				Name:        "Chart Creator",
				Description: "Creates visualizations and charts",
				Icon:        "V",
				Color:       "#EF4444",
			},
			Duration: 3500 * time.Millisecond,
			render:   renderVisualizer,
		},
	}
}
