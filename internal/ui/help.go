package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

const minFlagWidth = 28

// Help writes the full colored help of cmd
func Help(w io.Writer, cmd *cobra.Command) {
	fmt.Fprintf(w, "\n%s\n", Paint(ColorBold+ColorCyan, strings.ToUpper(cmd.Name())))
	if cmd.Short != "" {
		fmt.Fprintln(w, cmd.Short)
	}
	if cmd.Long != "" && cmd.Long != cmd.Short {
		fmt.Fprintf(w, "\n%s\n", Wrap(cmd.Long, 80))
	}

	usage(w, cmd)
	examples(w, cmd.Example)
	commands(w, cmd)

	if cmd.HasAvailableLocalFlags() {
		heading(w, "Flags")
		Flags(w, cmd.LocalFlags().FlagUsages())
	}
	if cmd.HasAvailableInheritedFlags() {
		heading(w, "Global Flags")
		Flags(w, cmd.InheritedFlags().FlagUsages())
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "\n%s\n", Paint(ColorDim, fmt.Sprintf("Use \"%s <command> --help\" for more information about a command.", cmd.CommandPath())))
	}
	fmt.Fprintln(w)
}

// Usage writes the short usage shown after a flag or argument error
func Usage(w io.Writer, cmd *cobra.Command) error {
	usage(w, cmd)
	commands(w, cmd)
	if cmd.HasAvailableLocalFlags() {
		heading(w, "Flags")
		Flags(w, cmd.LocalFlags().FlagUsages())
	}
	fmt.Fprintf(w, "\n%s\n", Paint(ColorDim, fmt.Sprintf("Use \"%s --help\" for more information.", cmd.CommandPath())))
	return nil
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", Paint(ColorBold+ColorWhite, title))
}

func usage(w io.Writer, cmd *cobra.Command) {
	heading(w, "Usage")
	if cmd.Runnable() {
		fmt.Fprintf(w, "  %s\n", Paint(ColorCyan, cmd.UseLine()))
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s %s %s\n", Paint(ColorCyan, cmd.CommandPath()), Paint(ColorYellow, "<command>"), Paint(ColorDim, "[flags]"))
	}
}

// examples prints "# comment" lines dimmed and everything else as a command
func examples(w io.Writer, example string) {
	if strings.TrimSpace(example) == "" {
		return
	}
	heading(w, "Examples")
	lastWasCommand := false
	for _, line := range strings.Split(example, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "#"):
			if lastWasCommand {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "  %s\n", Paint(ColorDim, line))
			lastWasCommand = false
		default:
			fmt.Fprintf(w, "  %s\n", Paint(ColorGreen, "$ "+line))
			lastWasCommand = true
		}
	}
}

func commands(w io.Writer, cmd *cobra.Command) {
	if !cmd.HasAvailableSubCommands() {
		return
	}
	heading(w, "Commands")

	var subs []*cobra.Command
	width := 0
	for _, c := range cmd.Commands() {
		if c.IsAvailableCommand() && c.Name() != "help" {
			subs = append(subs, c)
			width = max(width, len(c.Name()))
		}
	}
	for _, c := range subs {
		pad := strings.Repeat(" ", width-len(c.Name())+2)
		fmt.Fprintf(w, "  %s%s%s\n", Paint(ColorCyan, c.Name()), pad, Paint(ColorDim, c.Short))
	}
}

// Flags re-aligns pflag usage text into a flag column and a dimmed
// description column
func Flags(w io.Writer, flagUsages string) {
	lines := strings.Split(flagUsages, "\n")

	width := minFlagWidth
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "-") {
			flag, _, _ := strings.Cut(trimmed, "  ")
			width = max(width, len(strings.TrimSpace(flag)))
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "-") {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", width+4), Paint(ColorDim, trimmed))
			continue
		}
		flag, desc, ok := strings.Cut(trimmed, "  ")
		if !ok {
			fmt.Fprintf(w, "  %s\n", Paint(ColorGreen, trimmed))
			continue
		}
		flag = strings.TrimSpace(flag)
		pad := strings.Repeat(" ", width-len(flag)+2)
		fmt.Fprintf(w, "  %s%s%s\n", Paint(ColorGreen, flag), pad, Paint(ColorDim, strings.TrimSpace(desc)))
	}
}

// Wrap wraps text at width, keeping paragraphs and list items on their own lines
func Wrap(text string, width int) string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		var lines []string
		for _, line := range strings.Split(para, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
				lines = append(lines, line)
				continue
			}

			var current strings.Builder
			for _, word := range strings.Fields(line) {
				switch {
				case current.Len() == 0:
				case current.Len()+1+len(word) <= width:
					current.WriteByte(' ')
				default:
					lines = append(lines, current.String())
					current.Reset()
				}
				current.WriteString(word)
			}
			if current.Len() > 0 {
				lines = append(lines, current.String())
			}
		}
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
