package llmstream

import "mcpchat/pkg/mcperrors"

// ExtractSystemPrompt pulls every RoleSystem message out of messages,
// concatenating their content, and returns the remaining conversation.
// Most provider SDKs accept only one system prompt, supplied out of band
// from the message list.
func ExtractSystemPrompt(messages []Message) (systemPrompt string, rest []Message) {
	rest = make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return systemPrompt, rest
}

// EnsureAlternation verifies that, after system messages are removed, the
// conversation strictly alternates user/assistant turns starting with
// user, which several provider SDKs require. It does not attempt to
// repair the conversation; the history is built by convo.State, whose
// EnforceToolUseInvariants closes an unanswered tool-use round.
func EnsureAlternation(messages []Message) error {
	expected := RoleUser
	for i := range messages {
		msg := &messages[i]
		if msg.Role != expected {
			return mcperrors.New(mcperrors.KindClient, "conversation does not strictly alternate user/assistant turns")
		}
		if expected == RoleUser {
			expected = RoleAssistant
		} else {
			expected = RoleUser
		}
	}
	return nil
}
