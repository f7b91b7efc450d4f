package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/vc-research-engine/internal/gateway"
	"github.com/sells-group/vc-research-engine/internal/registry"
)

const systemPrompt = `You are a venture research analyst. You research one section of a company
report at a time using the tools you are given, then produce structured JSON.

You operate in steps. On every turn reply with exactly one JSON object and
nothing else, choosing one of these actions:

{"action": "search", "query": "<web search query>", "max_results": <n>}
{"action": "scrape", "url": "<page url>", "focus": "<optional: team|investors|funding|about>"}
{"action": "exec_code", "source": "<python snippet for calculations>"}
{"action": "final", "output": { ...the completed section JSON... }}

Rules:
- Only use the actions listed in the task; other tools are not available.
- Ground every claim in tool observations from this conversation.
- Use exec_code only for arithmetic (market sizing, growth rates, multiples).
- When a value cannot be established, use "Unknown" for strings and 0 for
  numbers rather than guessing.
- The final output must match the given JSON structure exactly.`

// taskPrompt builds the opening user message for one extraction task.
func taskPrompt(spec registry.SectionSpec, company string, toolBudget int) string {
	skeleton, _ := json.MarshalIndent(spec.Schema.Skeleton(), "", "  ")

	tools := make([]string, len(spec.AllowedTools))
	for i, tool := range spec.AllowedTools {
		tools[i] = string(tool)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", company)
	fmt.Fprintf(&b, "Section: %s\n\n", spec.ID)
	fmt.Fprintf(&b, "Task: %s\n\n", spec.Instructions)
	fmt.Fprintf(&b, "Available actions: %s, final\n", strings.Join(tools, ", "))
	fmt.Fprintf(&b, "Tool budget: at most %d tool calls before you must answer.\n\n", toolBudget)
	fmt.Fprintf(&b, "The final output must be a JSON object with exactly this structure (example values show the expected types):\n%s", skeleton)
	return b.String()
}

// repairPrompt asks for a corrected final payload after schema validation
// failed. One repair round is allowed per task.
func repairPrompt(validationErr error) string {
	return fmt.Sprintf(
		"Your final output did not match the required structure: %v\n"+
			"Reply again with {\"action\": \"final\", \"output\": {...}} containing the corrected JSON. Do not include any other text.",
		validationErr,
	)
}

// budgetExhaustedPrompt forces a final answer once the tool budget is spent.
const budgetExhaustedPrompt = "Tool budget exhausted. Reply now with " +
	`{"action": "final", "output": {...}} using the information gathered so far.`

// invalidReplyPrompt is fed back when a reply could not be parsed as an action.
func invalidReplyPrompt(parseErr error) string {
	return fmt.Sprintf(
		"Could not parse your reply as an action (%v). Reply with exactly one JSON object using one of the listed actions.",
		parseErr,
	)
}

// disallowedToolPrompt is fed back when the model picked a tool the task
// does not permit.
func disallowedToolPrompt(tool gateway.Tool) string {
	return fmt.Sprintf("Tool %s is not available for this task. Use one of the listed actions.", tool)
}
