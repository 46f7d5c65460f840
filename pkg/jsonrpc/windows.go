package jsonrpc

import "strings"

// QuoteWindowsArg quotes a single argument using the MSVCRT / CommandLineToArgvW
// convention: backslashes are only escaped (doubled) when they immediately
// precede a double quote or the closing quote, and every literal double
// quote is escaped with a backslash. Non-empty arguments with no space, tab,
// newline, vertical tab or double quote are returned unchanged and unquoted.
func QuoteWindowsArg(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n\v\"") {
		return arg
	}

	var b strings.Builder
	b.WriteByte('"')

	backslashes := 0
	for _, r := range arg {
		switch r {
		case '\\':
			backslashes++
		case '"':
			// Escape all pending backslashes, then escape the quote itself.
			for i := 0; i < backslashes*2+1; i++ {
				b.WriteByte('\\')
			}
			b.WriteByte('"')
			backslashes = 0
		default:
			for i := 0; i < backslashes; i++ {
				b.WriteByte('\\')
			}
			backslashes = 0
			b.WriteRune(r)
		}
	}

	// Trailing backslashes must be doubled since they precede the closing quote.
	for i := 0; i < backslashes*2; i++ {
		b.WriteByte('\\')
	}
	b.WriteByte('"')

	return b.String()
}

// BuildWindowsCommandLine joins command and args into a single string
// suitable for CreateProcess's lpCommandLine, quoting each token as needed.
func BuildWindowsCommandLine(command string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, QuoteWindowsArg(command))
	for _, a := range args {
		parts = append(parts, QuoteWindowsArg(a))
	}
	return strings.Join(parts, " ")
}
