package ai

import (
	"fmt"
	"strings"

	"github.com/kayz/dogcmd/internal/intent"
)

// SystemPrompt renders the classification instructions for an action set.
func SystemPrompt(actions *intent.ActionSet) string {
	var sb strings.Builder
	sb.WriteString("You convert robot commands into action templates.\n\n")
	sb.WriteString("Return ONLY a JSON array. No explanations. No commentary. No code fences.\n\n")
	sb.WriteString("Each element is {\"action\": <name>, \"parameters\": {<slot>: <placeholder>}}.\n\n")

	sb.WriteString("The input has already been abstracted:\n")
	sb.WriteString("- <VAR1>, <VAR2>, ... stand for numbers in order of appearance\n")
	sb.WriteString("- <TEXT> stands for words to be spoken\n\n")

	sb.WriteString("RULES:\n")
	sb.WriteString("1. Use only these actions:\n")
	for _, a := range actions.Actions() {
		switch a.Class {
		case intent.ClassTimed:
			fmt.Fprintf(&sb, "   - %s (timed: first placeholder is \"duration\", later ones \"count1\", \"count2\", ...)\n", a.Name)
		case intent.ClassCounted:
			fmt.Fprintf(&sb, "   - %s (counted: placeholders are \"count1\", \"count2\", ...)\n", a.Name)
		case intent.ClassFreeText:
			fmt.Fprintf(&sb, "   - %s (speech: single slot \"text\" bound to <TEXT>)\n", a.Name)
		}
	}
	sb.WriteString("2. Every action is its own element. Keep the order of the sentence.\n")
	sb.WriteString("3. Copy placeholders exactly. Never invent numbers or text.\n")
	sb.WriteString("4. Ignore words that are not actions.\n")
	sb.WriteString("5. An action without placeholders has empty parameters {}.\n\n")

	sb.WriteString("EXAMPLES:\n\n")
	sb.WriteString("User: sit for <VAR1> and wag_tail <VAR2>\n")
	sb.WriteString(`JSON: [{"action":"sit","parameters":{"duration":"<VAR1>"}},{"action":"wag_tail","parameters":{"count1":"<VAR2>"}}]`)
	sb.WriteString("\n\nUser: lie and howl\n")
	sb.WriteString(`JSON: [{"action":"lie","parameters":{}},{"action":"howl","parameters":{}}]`)
	sb.WriteString("\n\nUser: please bark <VAR1> then say <TEXT>\n")
	sb.WriteString(`JSON: [{"action":"bark","parameters":{"duration":"<VAR1>"}},{"action":"say","parameters":{"text":"<TEXT>"}}]`)
	sb.WriteString("\n")
	return sb.String()
}
