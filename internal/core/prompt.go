package core

import (
	"fmt"
	"strings"
)

// labelGuidance describes the well-known labels for the model. Labels outside
// this table are listed without guidance.
var labelGuidance = map[string]string{
	"phishing": "the message tries to steal credentials, money or personal data through deception: " +
		"spoofed senders, fake login or payment pages, urgent account warnings, malicious links or attachments.",
	"spam": "unsolicited bulk or commercial mail such as advertising, promotions or newsletters " +
		"the recipient did not ask for, with no attempt to harvest credentials.",
	"benign":  "legitimate personal or business correspondence, expected notifications and transactional mail.",
	"unknown": "use only when the content is too short, garbled or ambiguous to decide between the other labels.",
}

// BuildPrompt builds the two-message instruction payload for text and labels.
// The output depends only on its arguments.
func BuildPrompt(text string, labels LabelSet) Prompt {
	names := labels.Labels()
	quoted := make([]string, len(names))
	for i, label := range names {
		quoted[i] = fmt.Sprintf("%q", label)
	}

	var system strings.Builder
	system.WriteString("You are an email security classifier. Given an email's subject and body, ")
	system.WriteString("select exactly one label from this list: ")
	system.WriteString(strings.Join(quoted, ", "))
	system.WriteString(".\n")
	for _, label := range names {
		if guidance, ok := labelGuidance[strings.ToLower(label)]; ok {
			fmt.Fprintf(&system, "- %s: %s\n", label, guidance)
		}
	}
	system.WriteString(`Respond ONLY with a compact JSON object like: {"label": "<one_of_labels>"}.`)

	text = strings.TrimSpace(text)

	var user strings.Builder
	fmt.Fprintf(&user, "Labels: [%s]\n\n", strings.Join(names, ", "))
	user.WriteString("Analyze the email for suspicious URLs, urgent or threatening language, ")
	user.WriteString("requests for passwords or payment details, impersonation of known brands or people, ")
	user.WriteString("and spelling or grammar anomalies.\n\n")
	fmt.Fprintf(&user, "Email:\n%s\n\n", text)
	user.WriteString(`Return JSON only, in the form {"label": "<one_of_labels>"}.`)

	return Prompt{
		System: system.String(),
		User:   user.String(),
		Text:   text,
	}
}
