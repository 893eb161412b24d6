package commands

import (
	"fmt"
	"io"
)

// Println writes text followed by a newline, nothing else.
func Println(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w, "%s\n", text)
	return err
}

// Print implements `pipegate print`: every argument on its own line, or one
// empty line without arguments.
func Print(args []string, stdout, stderr io.Writer) int {
	cmd := &SimpleCommand{
		Use:   "print [TEXT] ...",
		Short: "Print each TEXT followed by a newline.",
	}

	return cmd.Run(args, stdout, stderr, func() int {
		texts := cmd.Flags().Args()
		if len(texts) == 0 {
			texts = []string{""}
		}

		for _, text := range texts {
			if err := Println(stdout, text); err != nil {
				fmt.Fprintf(stderr, "print: %v\n", err)
				return 1
			}
		}
		return 0
	})
}
