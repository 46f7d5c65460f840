package llmstream

import "testing"

func TestExtractSystemPromptConcatenatesAndRemoves(t *testing.T) {
	messages := []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "never rhyme"},
	}

	prompt, rest := ExtractSystemPrompt(messages)

	if prompt != "be terse\n\nnever rhyme" {
		t.Fatalf("unexpected system prompt: %q", prompt)
	}
	if len(rest) != 1 || rest[0].Role != RoleUser {
		t.Fatalf("expected only the user message to remain, got %+v", rest)
	}
}

func TestEnsureAlternationAcceptsStrictSequence(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "again"},
	}
	if err := EnsureAlternation(messages); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestEnsureAlternationRejectsConsecutiveSameRole(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleUser, Content: "again"},
	}
	if err := EnsureAlternation(messages); err == nil {
		t.Fatal("expected an error for consecutive user messages")
	}
}

func TestEnsureAlternationRejectsStartingWithAssistant(t *testing.T) {
	messages := []Message{{Role: RoleAssistant, Content: "hello"}}
	if err := EnsureAlternation(messages); err == nil {
		t.Fatal("expected an error when conversation opens with assistant")
	}
}
