package git

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Chifiwang/obsidian-git-integration/internal/logger"
)

// UserInteractor defines an interface for interacting with the user
type UserInteractor interface {
	// PromptYesNo asks the user a yes/no question and returns their response
	PromptYesNo(question string) bool

	// PromptLine asks for one line of free text. ok is false when no
	// answer could be read.
	PromptLine(prompt string) (answer string, ok bool)
}

// DefaultInteractor is the standard implementation of UserInteractor
// that reads from stdin and writes to stdout
type DefaultInteractor struct {
	Reader io.Reader
	Writer io.Writer
	Logger logger.Logger

	// Quiet suppresses the prompt text, for piped input.
	Quiet bool

	buf *bufio.Reader
}

// NewDefaultInteractor creates a new DefaultInteractor
func NewDefaultInteractor(logger logger.Logger) *DefaultInteractor {
	return &DefaultInteractor{
		Reader: os.Stdin,
		Writer: os.Stdout,
		Logger: logger,
		Quiet:  !term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// NewInteractor returns a NonInteractiveInteractor when nonInteractive is
// set and a DefaultInteractor on stdin otherwise.
func NewInteractor(nonInteractive bool, log logger.Logger) UserInteractor {
	if nonInteractive {
		return NewNonInteractiveInteractor()
	}
	return NewDefaultInteractor(log)
}

func (i *DefaultInteractor) readLine() (string, bool) {
	if i.buf == nil {
		i.buf = bufio.NewReader(i.Reader)
	}
	line, err := i.buf.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}

// PromptYesNo asks the user a yes/no question and returns their response
func (i *DefaultInteractor) PromptYesNo(question string) bool {
	if !i.Quiet {
		_, _ = fmt.Fprintf(i.Writer, "%s (y/n): ", question)
	}

	answer, ok := i.readLine()
	if !ok {
		// On error, default to 'no'
		return false
	}

	answer = strings.TrimSpace(answer)
	return strings.HasPrefix(strings.ToLower(answer), "y")
}

// PromptLine implements UserInteractor.PromptLine. The answer is returned
// verbatim apart from the line terminator.
func (i *DefaultInteractor) PromptLine(prompt string) (string, bool) {
	if !i.Quiet {
		_, _ = fmt.Fprintf(i.Writer, "%s: ", prompt)
	}

	answer, ok := i.readLine()
	if ok && i.Logger != nil {
		i.Logger.Info("prompt %q answered (%d bytes)", prompt, len(answer))
	}
	return answer, ok
}

// NonInteractiveInteractor always returns default values without prompting
type NonInteractiveInteractor struct{}

// NewNonInteractiveInteractor creates a new NonInteractiveInteractor
func NewNonInteractiveInteractor() *NonInteractiveInteractor {
	return &NonInteractiveInteractor{}
}

// PromptYesNo always returns false without prompting
func (i *NonInteractiveInteractor) PromptYesNo(question string) bool {
	return false
}

// PromptLine never reads anything.
func (i *NonInteractiveInteractor) PromptLine(prompt string) (string, bool) {
	return "", false
}
