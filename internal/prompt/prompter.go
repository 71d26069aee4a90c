package prompt

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

const (
	EmojiInput    = "🖊️"
	EmojiQuestion = "❓"
	EmojiWarning  = "⚠️"
)

var (
	questionColor = color.New(color.FgCyan, color.Bold)
	defaultColor  = color.New(color.FgHiBlack)
	warnColor     = color.New(color.FgYellow)
)

// ErrNoInput is returned when the operator's input stream ends before an
// answer was given.
var ErrNoInput = errors.New("no more input")

// Question is a single free-text prompt. Answers are trimmed; an empty answer
// takes Default. Validate, when set, is applied to the final answer and the
// question is asked again until it passes.
type Question struct {
	Message  string
	Default  string
	Validate func(string) error
}

type Prompter interface {
	Input(q Question) (string, error)
	Confirm(msg string, defaultYes bool) (bool, error)
	MultiSelect(label string, options []string) ([]string, error)
}

type cliPrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewCLIPrompter(in io.Reader, out io.Writer) Prompter {
	return &cliPrompter{reader: bufio.NewReader(in), out: out}
}

func (p *cliPrompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", errors.Wrap(err, "read answer")
	}
	return strings.TrimSpace(line), nil
}

// NonEmpty rejects blank answers.
func NonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("a resposta não pode ficar vazia")
	}
	return nil
}

func (p *cliPrompter) Input(q Question) (string, error) {
	for {
		questionColor.Fprintf(p.out, "%s %s ", EmojiInput, q.Message)
		if q.Default != "" {
			defaultColor.Fprintf(p.out, "(%s) ", q.Default)
		}
		fmt.Fprint(p.out, "> ")

		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = q.Default
		}

		validate := q.Validate
		if validate == nil {
			validate = NonEmpty
		}
		if err := validate(answer); err != nil {
			warnColor.Fprintf(p.out, "%s %v\n", EmojiWarning, err)
			continue
		}
		return answer, nil
	}
}

func (p *cliPrompter) Confirm(msg string, defaultYes bool) (bool, error) {
	options := "(y/N)"
	if defaultYes {
		options = "(Y/n)"
	}

	for {
		questionColor.Fprintf(p.out, "%s %s %s: ", EmojiQuestion, msg, options)
		answer, err := p.readLine()
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "":
			return defaultYes, nil
		case "y", "yes", "s", "sim":
			return true, nil
		case "n", "no", "nao", "não":
			return false, nil
		}
		warnColor.Fprintf(p.out, "%s Responda com 'y' ou 'n'\n", EmojiWarning)
	}
}

// MultiSelect lists options with 1-based indexes and accepts a comma or space
// separated list of indexes, "a" for all, or an empty line for none. The
// selection is returned in option order.
func (p *cliPrompter) MultiSelect(label string, options []string) ([]string, error) {
	if len(options) == 0 {
		return nil, nil
	}

	for {
		questionColor.Fprintf(p.out, "%s %s\n", EmojiQuestion, label)
		for i, opt := range options {
			fmt.Fprintf(p.out, "  %2d) %s\n", i+1, opt)
		}
		defaultColor.Fprint(p.out, "números separados por vírgula, 'a' para todos, vazio para nenhum ")
		fmt.Fprint(p.out, "> ")

		answer, err := p.readLine()
		if err != nil {
			return nil, err
		}

		picked, err := parseSelection(answer, len(options))
		if err != nil {
			warnColor.Fprintf(p.out, "%s %v\n", EmojiWarning, err)
			continue
		}

		selected := make([]string, 0, len(picked))
		for _, idx := range picked {
			selected = append(selected, options[idx])
		}
		return selected, nil
	}
}

func parseSelection(answer string, n int) ([]int, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, nil
	}
	if strings.EqualFold(answer, "a") {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	seen := make(map[int]bool)
	fields := strings.FieldsFunc(answer, func(r rune) bool { return r == ',' || r == ' ' })
	for _, f := range fields {
		i, err := strconv.Atoi(f)
		if err != nil || i < 1 || i > n {
			return nil, errors.Errorf("opção inválida %q", f)
		}
		seen[i-1] = true
	}

	picked := make([]int, 0, len(seen))
	for i := range seen {
		picked = append(picked, i)
	}
	sort.Ints(picked)
	return picked, nil
}
