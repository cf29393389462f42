package utils

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/meysamhadeli/repoaudit/constants/lipgloss"
)

// InputPromptWithContext asks for a single line of input, returning early if
// ctx is cancelled. EOF yields an empty string.
func InputPromptWithContext(ctx context.Context, reader *bufio.Reader, w io.Writer, label string) (string, error) {
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		fmt.Fprint(w, lipgloss.BlueSky.Render(label+"> "))

		userInput, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && userInput != "") {
			if errors.Is(err, io.EOF) {
				errChan <- nil
			} else {
				errChan <- fmt.Errorf("error reading input: %w", err)
			}
			return
		}
		inputChan <- strings.TrimSpace(userInput)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(w)
		return "", ctx.Err()
	case err := <-errChan:
		return "", err
	case input := <-inputChan:
		return input, nil
	}
}

// Confirm asks a yes/no question; only "y" and "yes" count as yes.
func Confirm(reader *bufio.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s (y/N): ", question)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
