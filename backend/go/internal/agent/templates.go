package agent

import "fmt"

// between returns a value in [lo, lo+span).
func between(r Rand, lo, span int) int {
	return lo + r.IntN(span)
}

func renderPlanner(r Rand) string {
	return fmt.Sprintf(`TASK BREAKDOWN COMPLETE
• Identified %d key subtasks
• Prioritized execution sequence for optimal workflow
• Allocated resources and dependencies between tasks
• Created structured execution plan with clear milestones`, between(r, 2, 3))
}

func renderResearcher(r Rand) string {
	return fmt.Sprintf(`RESEARCH COMPLETED
• Found %d relevant data sources
• Gathered %d key data points
• Verified data accuracy and reliability
• Compiled comprehensive information repository`, between(r, 3, 5), between(r, 10, 20))
}

func renderAnalyst(r Rand) string {
	return fmt.Sprintf(`ANALYSIS COMPLETED
• Processed %d data points
• Identified %d key trends and patterns
• Generated statistical insights and correlations
• Created detailed analytical framework`, between(r, 500, 1000), between(r, 3, 5))
}

func renderWriter(Rand) string {
	return `CONTENT GENERATED
• Created comprehensive summary with key insights
• Structured findings into clear, actionable sections
• Highlighted critical recommendations and next steps
• Formatted content for professional presentation`
}

func renderVisualizer(r Rand) string {
	return fmt.Sprintf(`VISUALIZATION CREATED
• Generated interactive chart with trend analysis
• Created %d data visualizations
• Implemented dynamic filtering and drill-down capabilities
• Optimized for both technical and executive audiences`, between(r, 2, 3))
}
