package llm

// SchemaName is the name sent with the structured output format
const SchemaName = "weekly_report"

func str(description string) map[string]any {
	s := map[string]any{"type": "string"}
	if description != "" {
		s["description"] = description
	}
	return s
}

func enum(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

// object builds a strict object schema: every property is required and no
// others are allowed
func object(props map[string]any, order ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             order,
		"additionalProperties": false,
	}
}

func array(description string, items map[string]any, minItems, maxItems int) map[string]any {
	a := map[string]any{
		"type":        "array",
		"description": description,
		"items":       items,
	}
	if minItems > 0 {
		a["minItems"] = minItems
	}
	if maxItems > 0 {
		a["maxItems"] = maxItems
	}
	return a
}

// ReportSchema is the JSON schema the model must answer with. It mirrors
// models.ReportContent.
func ReportSchema() map[string]any {
	return object(map[string]any{
		"summary": str("A 2-3 sentence executive summary of the week"),
		"what_worked": array("Top performing posts and why they worked", object(map[string]any{
			"post_caption": str(""),
			"reason":       str(""),
			"pattern":      str(""),
		}, "post_caption", "reason", "pattern"), 0, 0),
		"what_didnt_work": array("Underperforming posts with specific improvement guidance", object(map[string]any{
			"post_caption": str(""),
			"issue":        str(""),
			"improvement":  str(""),
		}, "post_caption", "issue", "improvement"), 0, 0),
		"patterns": array("Key patterns detected in the data", object(map[string]any{
			"observation":    str(""),
			"evidence":       str(""),
			"recommendation": str(""),
		}, "observation", "evidence", "recommendation"), 0, 0),
		"viral_opportunities": array("3-5 viral opportunity recommendations", object(map[string]any{
			"idea":             str(""),
			"hook_suggestion":  str(""),
			"format":           str(""),
			"why_it_fits":      str(""),
			"expected_outcome": str(""),
		}, "idea", "hook_suggestion", "format", "why_it_fits", "expected_outcome"), 3, 5),
		"next_week_plan": array("7-day posting plan for next week", object(map[string]any{
			"day":          str(""),
			"content_idea": str(""),
			"format":       str(""),
			"hook":         str(""),
			"type":         enum("viral attempt", "audience builder"),
		}, "day", "content_idea", "format", "hook", "type"), 7, 7),
		"skill_focus": array("Skills to improve this week", object(map[string]any{
			"skill":  str(""),
			"why":    str(""),
			"action": str(""),
		}, "skill", "why", "action"), 0, 0),
		"reinforcement_notes": array("Learnings to carry forward", object(map[string]any{
			"text": str(""),
			"type": enum("insight", "adjustment", "validation"),
		}, "text", "type"), 0, 0),
	},
		"summary", "what_worked", "what_didnt_work", "patterns",
		"viral_opportunities", "next_week_plan", "skill_focus", "reinforcement_notes",
	)
}
