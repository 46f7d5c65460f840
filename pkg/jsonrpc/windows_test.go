package jsonrpc

import "testing"

func TestQuoteWindowsArgNoSpecialChars(t *testing.T) {
	got := QuoteWindowsArg("plainarg")
	want := "plainarg"
	if got != want {
		t.Fatalf("QuoteWindowsArg(%q) = %q, want %q", "plainarg", got, want)
	}
}

func TestQuoteWindowsArgWithSpace(t *testing.T) {
	got := QuoteWindowsArg("hello world")
	want := `"hello world"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestQuoteWindowsArgEmpty(t *testing.T) {
	got := QuoteWindowsArg("")
	want := `""`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestQuoteWindowsArgWithQuote(t *testing.T) {
	got := QuoteWindowsArg(`say "hi"`)
	want := `"say \"hi\""`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestQuoteWindowsArgTrailingBackslash(t *testing.T) {
	got := QuoteWindowsArg(`C:\path\`)
	want := `"C:\path\\"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestQuoteWindowsArgBackslashBeforeQuote(t *testing.T) {
	got := QuoteWindowsArg(`a\"b`)
	want := `"a\\\"b"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestQuoteWindowsArgBackslashNotBeforeQuote(t *testing.T) {
	got := QuoteWindowsArg(`C:\no quote\here`)
	want := `"C:\no quote\here"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildWindowsCommandLine(t *testing.T) {
	got := BuildWindowsCommandLine("node", []string{"server.js", "--name", "my server"})
	want := `node server.js --name "my server"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
