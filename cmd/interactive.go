package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/term"

	"appraisal/internal/types"
)

var (
	errCancelled   = errors.New("cancelled")
	errNoRawSelect = errors.New("interactive selection not supported on this terminal")
)

// promptForm asks for every schema column missing from values. Numeric
// columns are typed; categorical columns are picked from their vocabulary.
// All input is read through stdin so later prompts can share its buffer.
func promptForm(stdin *bufio.Reader, values map[string]string) error {
	for _, c := range types.Columns {
		if _, ok := values[c.Name]; ok {
			continue
		}
		switch c.Kind {
		case types.Numeric:
			v, err := promptNumber(stdin, c.Label)
			if err != nil {
				return err
			}
			values[c.Name] = v
		case types.Categorical:
			i, err := pickOption(stdin, c.Label, c.Vocabulary)
			if errors.Is(err, errNoRawSelect) {
				i, err = promptChoice(stdin, c.Label, c.Vocabulary)
			}
			if err != nil {
				return err
			}
			values[c.Name] = c.Vocabulary[i]
		}
	}
	return nil
}

func promptNumber(r *bufio.Reader, label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		line, err := r.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			if _, perr := strconv.ParseFloat(strings.ReplaceAll(line, ",", ""), 64); perr == nil {
				return line, nil
			}
			fmt.Println("  please enter a number")
		}
		if err != nil {
			return "", errCancelled
		}
	}
}

// promptChoice is the numbered fallback when raw mode is unavailable.
func promptChoice(r *bufio.Reader, label string, options []string) (int, error) {
	fmt.Println(label)
	for i, o := range options {
		fmt.Printf("  %d) %s\n", i+1, o)
	}
	for {
		fmt.Print("Choice: ")
		line, err := r.ReadString('\n')
		if n, perr := strconv.Atoi(strings.TrimSpace(line)); perr == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		if err != nil {
			return 0, errCancelled
		}
	}
}

// pickOption lets the user move through options with arrow keys and press
// Enter to choose one. Keys are read from reader while the terminal is raw.
func pickOption(reader *bufio.Reader, title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errCancelled
	}

	if runtime.GOOS == "windows" {
		enableVT()
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return 0, errNoRawSelect
	}
	defer term.Restore(fd, oldState)

	selected := 0

	// raw mode disables output post-processing, so lines end in \r\n
	redraw := func() {
		fmt.Print("\033[H\033[2J")
		fmt.Print(title + "\r\n")
		for i, o := range options {
			prefix := "  "
			if i == selected {
				prefix = "> "
			}
			fmt.Print(prefix + o + "\r\n")
		}
		fmt.Print("(↑/↓ to choose, Enter to select, Esc to cancel)\r\n")
	}
	up := func() {
		if selected > 0 {
			selected--
			redraw()
		}
	}
	down := func() {
		if selected < len(options)-1 {
			selected++
			redraw()
		}
	}

	redraw()

	for {
		b1, err := reader.ReadByte()
		if err != nil {
			return 0, errCancelled
		}
		// Windows console arrow sequences (0 or 224, then code)
		if b1 == 0 || b1 == 224 {
			b2, _ := reader.ReadByte()
			switch b2 {
			case 72:
				up()
			case 80:
				down()
			}
			continue
		}

		switch b1 {
		case 27: // ESC or ANSI sequence
			if reader.Buffered() == 0 {
				fmt.Print("\r\n")
				return 0, errCancelled
			}
			b2, _ := reader.ReadByte()
			if b2 != '[' || reader.Buffered() == 0 {
				continue
			}
			b3, _ := reader.ReadByte()
			switch b3 {
			case 'A':
				up()
			case 'B':
				down()
			}
		case '\r', '\n':
			fmt.Print("\r\n")
			return selected, nil
		case 3: // Ctrl-C
			fmt.Print("\r\n")
			return 0, errCancelled
		}
	}
}
