// Package prompt provides interactive parameter collection on the terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fgeck/pgshift/internal/models"
	"golang.org/x/term"
)

// Service defines the interface for interactive prompts.
type Service interface {
	Ask(label, defaultValue string) (string, error)
	AskInt(label string, defaultValue int) (int, error)
	AskSecret(label string) (string, error)
	AskConflict(containerName string) (models.ConflictPolicy, error)
}

// Impl implements the prompt Service interface on a reader/writer pair.
type Impl struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // stdin descriptor for no-echo input; -1 when not a terminal
}

// New creates a prompt service on the process's stdin/stdout.
func New() *Impl {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fd = -1
	}
	return &Impl{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		fd:  fd,
	}
}

// NewWithStreams creates a prompt service on arbitrary streams (for testing).
func NewWithStreams(in io.Reader, out io.Writer) *Impl {
	return &Impl{
		in:  bufio.NewReader(in),
		out: out,
		fd:  -1,
	}
}

func (s *Impl) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Ask prompts for a string value, returning the default on empty input.
func (s *Impl) Ask(label, defaultValue string) (string, error) {
	if defaultValue != "" {
		fmt.Fprintf(s.out, "%s [%s]: ", label, defaultValue)
	} else {
		fmt.Fprintf(s.out, "%s: ", label)
	}

	value, err := s.readLine()
	if err != nil {
		return "", err
	}
	if value == "" {
		return defaultValue, nil
	}
	return value, nil
}

// AskInt prompts for an integer value, returning the default on empty input.
func (s *Impl) AskInt(label string, defaultValue int) (int, error) {
	value, err := s.Ask(label, strconv.Itoa(defaultValue))
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", label, value)
	}
	return n, nil
}

// AskSecret prompts for a value without echoing it when stdin is a terminal.
func (s *Impl) AskSecret(label string) (string, error) {
	fmt.Fprintf(s.out, "%s: ", label)

	if s.fd >= 0 {
		secret, err := term.ReadPassword(s.fd)
		fmt.Fprintln(s.out)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	return s.readLine()
}

// AskConflict presents the tri-state choice for an already-existing target
// container.
func (s *Impl) AskConflict(containerName string) (models.ConflictPolicy, error) {
	fmt.Fprintf(s.out, "Container %q already exists. [r]eplace, [u]se as-is, or [a]bort? ", containerName)

	value, err := s.readLine()
	if err != nil {
		return "", err
	}

	switch strings.ToLower(value) {
	case "r", "replace":
		return models.ConflictReplace, nil
	case "u", "use", "reuse":
		return models.ConflictReuse, nil
	case "a", "abort", "":
		return models.ConflictAbort, nil
	default:
		return "", fmt.Errorf("invalid choice %q", value)
	}
}
