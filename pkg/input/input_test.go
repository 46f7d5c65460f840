package input

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadLineReturnsLinesInOrder(t *testing.T) {
	src := New(strings.NewReader("first\nsecond\n"))

	ctx := context.Background()
	line, err := src.ReadLine(ctx)
	require.NoError(t, err)
	require.Equal(t, "first", line)

	line, err = src.ReadLine(ctx)
	require.NoError(t, err)
	require.Equal(t, "second", line)
}

func TestReadLineReturnsEOFAtEnd(t *testing.T) {
	src := New(strings.NewReader("only\n"))
	ctx := context.Background()

	_, err := src.ReadLine(ctx)
	require.NoError(t, err)

	_, err = src.ReadLine(ctx)
	require.True(t, errors.Is(err, io.EOF))
}

func TestReadLineRespectsContextCancellation(t *testing.T) {
	src := New(blockingReader{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := src.ReadLine(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingReader struct{}

func (blockingReader) Read(_ []byte) (int, error) {
	select {}
}
