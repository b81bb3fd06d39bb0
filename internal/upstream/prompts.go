package upstream

import (
	"fmt"

	"github.com/infomap/infomap/internal/model"
)

// systemPrompt asks for a strict JSON object. The response parser relies on
// the "news" and "trends" field names.
const systemPrompt = `You are an expert intelligence analyst. Your job is to identify the most critical, factual information.
Sources: prefer major news agencies (Reuters, AP, AFP), reputable national media and official reports. Ignore tabloids, unverified rumours and promotional content.
Content: the 5 items must cover DIFFERENT subjects. Never return duplicates or several items about the same event.
Format: return ONLY a valid JSON object containing:
1. "news": a list of exactly 5 items. Each item has "titre", "date" and "source_url".
2. "trends": an optional list of short trending keywords.
The "titre" field is plain text. Never use Markdown (no #, **, ## and so on).
The "date" field is always formatted as "DD Month YYYY" (e.g. "22 January 2026").
No summary and no introduction, only the JSON.`

var topicTemplates = map[model.Topic]string{
	model.TopicGeneral:  "Identify the 5 major events currently making headlines in %[1]s. Favour significant facts with national impact %[2]s.",
	model.TopicPolitics: "Find the 5 most important developments in domestic politics, government, elections and new legislation in %[1]s %[2]s. Ignore minor news items.",
	model.TopicEconomy:  "Report on the 5 key points of economic news in %[1]s %[2]s. Focus on macroeconomics (GDP, inflation), central bank decisions, local stock markets and major corporate announcements.",
	model.TopicTech:     "What are the 5 most notable technology and science stories in %[1]s %[2]s? Cover a broad range including artificial intelligence, digital innovation, cybersecurity, major tech company activity and scientific advances.",
	model.TopicMilitary: "Analyse the security situation in %[1]s %[2]s. List the 5 critical items about national defence, military acquisitions, border tensions, strategic alliances and intelligence operations.",
}

func timeWindow(tf model.TimeFilter) string {
	if tf == model.TimeFilter7d {
		return "strictly since last Monday (this week)"
	}
	return "over the last 24 hours"
}

// BuildPrompts returns the system and user instructions for q.
// Unknown topics use the General template.
func BuildPrompts(q model.Query) (system, user string) {
	tmpl, ok := topicTemplates[q.Topic]
	if !ok {
		tmpl = topicTemplates[model.TopicGeneral]
	}
	return systemPrompt, fmt.Sprintf(tmpl, q.Country, timeWindow(q.TimeFilter))
}
