// Package prompt reads yes/no confirmations from an interactive terminal.
package prompt

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

const (
	maximumPromptAttemptsConstant  = 3
	unrecognizedAnswerHintConstant = "Please answer yes or no.\n"
)

var (
	affirmativeAnswers = map[string]struct{}{"y": {}, "yes": {}}
	negativeAnswers    = map[string]struct{}{"": {}, "n": {}, "no": {}}
)

// TerminalPrompter asks confirmation questions over a line-oriented reader.
type TerminalPrompter struct {
	input  *bufio.Reader
	output io.Writer
}

// NewTerminalPrompter wires a prompter to the given input and output streams. Output may be nil.
func NewTerminalPrompter(input io.Reader, output io.Writer) *TerminalPrompter {
	return &TerminalPrompter{input: bufio.NewReader(input), output: output}
}

// Confirm returns true only for y/yes. An empty line, n/no and end of input decline.
// Unrecognised answers repeat the question a bounded number of times before declining.
func (prompter *TerminalPrompter) Confirm(question string) (bool, error) {
	for attempt := 0; attempt < maximumPromptAttemptsConstant; attempt++ {
		if attempt > 0 {
			if writeError := prompter.write(unrecognizedAnswerHintConstant); writeError != nil {
				return false, writeError
			}
		}
		if writeError := prompter.write(question); writeError != nil {
			return false, writeError
		}

		line, readError := prompter.input.ReadString('\n')
		endOfInput := errors.Is(readError, io.EOF)
		if readError != nil && !endOfInput {
			return false, readError
		}

		answer := strings.ToLower(strings.TrimSpace(line))
		if _, affirmative := affirmativeAnswers[answer]; affirmative {
			return true, nil
		}
		if _, negative := negativeAnswers[answer]; negative || endOfInput {
			return false, nil
		}
	}
	return false, nil
}

func (prompter *TerminalPrompter) write(text string) error {
	if prompter.output == nil {
		return nil
	}
	_, writeError := io.WriteString(prompter.output, text)
	return writeError
}
