package main

import (
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// promptConfirm is a test hook for replacing the confirmation prompt in tests.
// Takes reader, writer, and question string. Returns true for yes.
var promptConfirm = defaultPromptConfirm

// isTerminal reports whether the stream is an interactive terminal.
func isTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func defaultPromptConfirm(in io.Reader, out io.Writer, question string) bool {
	if !isTerminal(in) {
		return false
	}

	var confirmed bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	).WithInput(in).WithOutput(out).Run()

	if err != nil {
		return false
	}
	return confirmed
}

// confirmPublish asks before a new collection is made public. When not
// interactive there is nobody to ask and the collection is published.
func confirmPublish(in io.Reader, out io.Writer, interactive bool) func(string) (bool, error) {
	return func(name string) (bool, error) {
		if !interactive {
			return true, nil
		}
		return promptConfirm(in, out, "Make collection "+name+" publicly viewable?"), nil
	}
}
