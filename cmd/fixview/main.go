// Command fixview browses a log file and shows the FIX messages it contains
// as field trees.
//
//	fixview [--dict FIX44.xml[,FIX50SP2.xml]] [--catalog catalog.yaml] [--print] [--log fixview.log] [file]
//
// With no file argument the log is read from stdin.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	flags "github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"

	"github.com/fix-logviewer/backend/internal/config"
	"github.com/fix-logviewer/backend/internal/observability"
	"github.com/fix-logviewer/backend/internal/parser"
	"github.com/fix-logviewer/backend/internal/schema"
	"github.com/fix-logviewer/backend/internal/viewer"
)

const (
	maxLineBytes    = 1 << 20
	streamBatchSize = 1000
)

var errHelp = errors.New("help requested")

type options struct {
	Dicts    string `short:"d" long:"dict" value-name:"FILES" description:"Comma separated dictionary files used for every message"`
	Catalog  string `short:"c" long:"catalog" value-name:"FILE" description:"Dictionary catalog file (.yaml, .yml or .toml)"`
	DictDir  string `long:"dir" env:"FIX_DICTIONARY_DIR" default:"./dictionaries" value-name:"DIR" description:"Directory holding the standard dictionaries"`
	Print    bool   `short:"p" long:"print" description:"Print every rendered message instead of opening the viewer"`
	LogPath  string `short:"l" long:"log" value-name:"FILE" description:"Write logs to this file"`
	LogLevel string `long:"level" default:"info" description:"Log level"`

	Args struct {
		File string `positional-arg-name:"file" description:"Log file to read; stdin when omitted"`
	} `positional-args:"yes"`

	input string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stdout, stderr)
	if err != nil {
		if errors.Is(err, errHelp) {
			return 0
		}
		return 2
	}

	logger, closeLog, err := openLogger(opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer closeLog()

	registry, err := newRegistry(opts, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	renderer := parser.NewRenderer(registry, logger)

	source := opts.input
	in := stdin
	if source == "" {
		source = "stdin"
	} else {
		f, err := os.Open(opts.input)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	if opts.Print {
		lines, err := readLines(in)
		if err != nil {
			fmt.Fprintf(stderr, "error: reading %s: %v\n", source, err)
			return 1
		}
		logger.Info().Str("source", source).Int("lines", len(lines)).Msg("Loaded log")
		if err := viewer.WriteTrees(stdout, lines, renderer); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	programOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithOutput(stdout)}
	if opts.input == "" {
		// stdin carried the log, so keys come from the terminal.
		programOpts = append(programOpts, tea.WithInputTTY())
	}
	p := tea.NewProgram(viewer.New(nil, renderer, source), programOpts...)

	// The viewer opens at once and lines arrive while the input is still
	// being read, so a followed log keeps growing on screen.
	streamErr := make(chan error, 1)
	go func() {
		n, err := streamLines(in, p.Send)
		if err == nil {
			logger.Info().Str("source", source).Int("lines", n).Msg("Loaded log")
		}
		streamErr <- err
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	select {
	case err := <-streamErr:
		if err != nil {
			fmt.Fprintf(stderr, "error: reading %s: %v\n", source, err)
			return 1
		}
	default:
	}
	return 0
}

func parseFlags(args []string, stdout, stderr io.Writer) (options, error) {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "[OPTIONS] [file]"
	rest, err := parser.ParseArgs(args)
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, ferr.Message)
			return opts, errHelp
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return opts, err
	}
	if len(rest) > 0 {
		fmt.Fprintln(stderr, "error: at most one log file argument is allowed")
		return opts, errors.New("too many arguments")
	}
	if opts.Dicts != "" && opts.Catalog != "" {
		fmt.Fprintln(stderr, "error: --dict and --catalog are mutually exclusive")
		return opts, errors.New("conflicting flags")
	}
	opts.input = opts.Args.File
	return opts, nil
}

// openLogger logs to the -log file when given. Without one, print mode logs
// warnings to stderr and the interactive viewer stays silent.
func openLogger(opts options, stderr io.Writer) (zerolog.Logger, func(), error) {
	if opts.LogPath != "" {
		f, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), func() {}, fmt.Errorf("failed to open log file: %w", err)
		}
		logger := observability.NewLogger(observability.LoggerOptions{
			App:    "fixview",
			Level:  opts.LogLevel,
			Format: "json",
			Out:    f,
		})
		return logger, func() { f.Close() }, nil
	}
	if opts.Print {
		return observability.NewLogger(observability.LoggerOptions{
			App:   "fixview",
			Level: "warn",
			Out:   stderr,
		}), func() {}, nil
	}
	return zerolog.Nop(), func() {}, nil
}

func newRegistry(opts options, logger zerolog.Logger) (*parser.Registry, error) {
	if opts.Dicts != "" {
		var files []string
		for _, f := range strings.Split(opts.Dicts, ",") {
			if f = strings.TrimSpace(f); f != "" {
				files = append(files, f)
			}
		}
		s, err := schema.Load(files...)
		if err != nil {
			return nil, fmt.Errorf("failed to load dictionaries: %w", err)
		}
		return parser.NewFixedRegistry(s), nil
	}

	catalog := config.DefaultCatalog(opts.DictDir)
	if opts.Catalog != "" {
		var err error
		if catalog, err = config.LoadCatalog(opts.Catalog); err != nil {
			return nil, err
		}
	}
	return parser.NewRegistry(catalog, logger), nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	return scanner
}

func readLines(r io.Reader) ([]string, error) {
	scanner := newLineScanner(r)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}

// streamLines scans r and hands lines to send as viewer.LinesMsg batches.
// A batch holds whatever was read since the previous one, capped at
// streamBatchSize, so a slow writer sees each line as soon as it lands.
// It returns the number of lines read once r is exhausted.
func streamLines(r io.Reader, send func(tea.Msg)) (int, error) {
	lines := make(chan string, streamBatchSize)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := newLineScanner(r)
		for scanner.Scan() {
			lines <- strings.TrimRight(scanner.Text(), "\r")
		}
		errc <- scanner.Err()
	}()

	total := 0
	for line := range lines {
		batch := []string{line}
	drain:
		for len(batch) < streamBatchSize {
			select {
			case l, ok := <-lines:
				if !ok {
					break drain
				}
				batch = append(batch, l)
			default:
				break drain
			}
		}
		total += len(batch)
		send(viewer.LinesMsg(batch))
	}
	return total, <-errc
}
