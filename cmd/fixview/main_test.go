package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fix-logviewer/backend/internal/testutil"
	"github.com/fix-logviewer/backend/internal/viewer"
)

const sampleLog = "10:00:00 INFO start\n" +
	"10:00:01 OUT 8=FIX.4.4|9=10|35=BE|49=A|56=B|34=1|923=r1|924=2|553=u|10=000|\n" +
	"10:00:02 INFO done\n"

func TestRunPrintWithCatalogDir(t *testing.T) {
	dir := testutil.WriteStandardDictionaries(t)
	var stdout, stderr bytes.Buffer

	code := run([]string{"--print", "--dir", dir}, strings.NewReader(sampleLog), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, "10:00:01 OUT 8=FIX.4.4|"), out)
	assert.Contains(t, out, "+--BeginString[8] = FIX.4.4\n")
	assert.Contains(t, out, "|--UserRequestType[924] = LOG_OFF_USER[2]\n")
	assert.NotContains(t, out, "start")
}

func TestRunPrintWithFixedDictionary(t *testing.T) {
	dir := testutil.WriteStandardDictionaries(t)
	logPath := filepath.Join(t.TempDir(), "in.log")
	require.NoError(t, os.WriteFile(logPath, []byte(strings.ReplaceAll(sampleLog, "FIX.4.4", "FIX.4.2")), 0644))

	var stdout, stderr bytes.Buffer
	code := run([]string{"--print", "--dict", filepath.Join(dir, "FIX44.xml"), logPath}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "+--BeginString[8] = FIX.4.2\n", "fixed dictionaries ignore the version")
}

func TestRunWritesLogFile(t *testing.T) {
	dir := testutil.WriteStandardDictionaries(t)
	logFile := filepath.Join(t.TempDir(), "fixview.log")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--print", "--dir", dir, "--log", logFile}, strings.NewReader(sampleLog+"8=FIX.4.4|35=ZZ|10=000|\n"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Loaded log"`)
	assert.Contains(t, string(data), "Could not find FIX message schema for the message type")
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "unknown flag", args: []string{"--nope"}, code: 2},
		{name: "two files", args: []string{"a.log", "b.log"}, code: 2},
		{name: "dict and catalog", args: []string{"--dict", "a.xml", "--catalog", "c.yaml"}, code: 2},
		{name: "missing dictionary", args: []string{"--print", "--dict", "/nonexistent/FIX44.xml"}, code: 1},
		{name: "missing input", args: []string{"--print", "/nonexistent/in.log"}, code: 1},
		{name: "help", args: []string{"-h"}, code: 0},
		{name: "long help", args: []string{"--help"}, code: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.code, run(tt.args, strings.NewReader(""), &stdout, &stderr))
		})
	}
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("a\r\nb\n\nc"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "", "c"}, lines)
}

func TestStreamLinesDeliversBeforeEOF(t *testing.T) {
	pr, pw := io.Pipe()
	batches := make(chan viewer.LinesMsg, 16)
	send := func(msg tea.Msg) {
		batches <- msg.(viewer.LinesMsg)
	}

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := streamLines(pr, send)
		done <- result{n, err}
	}()

	next := func() viewer.LinesMsg {
		t.Helper()
		select {
		case b := <-batches:
			return b
		case <-time.After(5 * time.Second):
			t.Fatal("no batch arrived while the writer was still open")
			return nil
		}
	}

	_, err := io.WriteString(pw, "10:00:00 first\r\n")
	require.NoError(t, err)
	assert.Equal(t, viewer.LinesMsg{"10:00:00 first"}, next())

	_, err = io.WriteString(pw, "8=FIX.4.4|35=0|10=000|\n")
	require.NoError(t, err)
	assert.Equal(t, viewer.LinesMsg{"8=FIX.4.4|35=0|10=000|"}, next())

	select {
	case <-done:
		t.Fatal("stream finished before the writer closed")
	default:
	}

	require.NoError(t, pw.Close())
	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, 2, r.n)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish after the writer closed")
	}
}

func TestStreamLinesBatchesBufferedInput(t *testing.T) {
	input := strings.Repeat("line\n", streamBatchSize+5)
	var got []string
	var sizes []int
	n, err := streamLines(strings.NewReader(input), func(msg tea.Msg) {
		batch := msg.(viewer.LinesMsg)
		sizes = append(sizes, len(batch))
		got = append(got, batch...)
	})
	require.NoError(t, err)
	assert.Equal(t, streamBatchSize+5, n)
	assert.Len(t, got, streamBatchSize+5)
	for _, size := range sizes {
		assert.LessOrEqual(t, size, streamBatchSize)
	}
}

func TestStreamLinesReportsScanError(t *testing.T) {
	long := strings.Repeat("x", maxLineBytes+1) + "\n"
	_, err := streamLines(strings.NewReader("ok\n"+long), func(tea.Msg) {})
	assert.Error(t, err)
}
