package analyzer

import (
	"fmt"
	"strings"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
	"github.com/tigerroll/scorin/pkg/assess/core/domain/model"
)

// buildCriteriaBlock renders the framework sections and items as the
// criteria portion of the assessment prompt. Item lines carry the type
// and maximum so the model scores on the right scale.
func buildCriteriaBlock(framework *model.Framework) string {
	var b strings.Builder
	for _, section := range framework.Sections {
		fmt.Fprintf(&b, "Section %s", section.ID)
		if section.Title != "" {
			fmt.Fprintf(&b, " (%s)", section.Title)
		}
		fmt.Fprintf(&b, " - weight %g%%:\n", section.Weight)
		for _, item := range section.Items {
			fmt.Fprintf(&b, "- item %s", item.ID)
			if item.Title != "" {
				fmt.Fprintf(&b, ": %s", item.Title)
			}
			fmt.Fprintf(&b, " [type %s, max score %g]", item.Type, item.Type.MaxScore())
			if item.IsCritical {
				b.WriteString(" (CRITICAL)")
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// flattenTranscript renders a transcript as one dialogue line per text
// message, prefixed with the upper-cased sender role. Non-text messages
// carry no assessable content and are dropped.
func flattenTranscript(transcript port.Transcript) string {
	var lines []string
	for _, msg := range transcript.Messages {
		if !strings.EqualFold(msg.Type, "text") || msg.Text == "" {
			continue
		}
		sender := strings.ToUpper(msg.Sender)
		if sender == "" {
			sender = "UNKNOWN"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", sender, msg.Text))
	}
	return strings.Join(lines, "\n")
}

// buildPrompt assembles the full assessment prompt from the criteria
// block and the flattened transcript. The output contract pins the JSON
// shape the analyzer decodes.
func buildPrompt(criteriaBlock, dialogue string) string {
	var b strings.Builder
	b.WriteString("You are a quality assessor for customer service conversations.\n")
	b.WriteString("Score the conversation below against every item of the assessment criteria.\n\n")
	b.WriteString("Assessment criteria:\n")
	b.WriteString(criteriaBlock)
	b.WriteString("\n\nConversation transcript:\n")
	b.WriteString(dialogue)
	b.WriteString("\n\nRespond with a single JSON object and nothing else, in this exact shape:\n")
	b.WriteString(`{"scores": [{"sectionId": "...", "itemId": "...", "score": 0, "comment": "..."}], "overallAssessment": "..."}`)
	b.WriteString("\nInclude one entry in \"scores\" for every item, with \"score\" between 0 and the item's max score.\n")
	return b.String()
}
