package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/session"
)

// terminalPrompter collects pass/leak inputs on stdin. EOF (Ctrl-D) cancels,
// which returns the session to the running stopwatch.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

func (p *terminalPrompter) readLine(prompt string) (string, bool, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err == io.EOF {
		fmt.Fprintln(p.out)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(line), true, nil
}

func (p *terminalPrompter) PassRemark() (string, bool, error) {
	return p.readLine("Optional remark (Enter for none, Ctrl-D to cancel): ")
}

func (p *terminalPrompter) LeakDetails() (string, string, bool, error) {
	fmt.Fprintln(p.out, "Leak reason:")
	for i, r := range session.LeakReasons {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, r)
	}

	var reason string
	for {
		line, ok, err := p.readLine(fmt.Sprintf("Select 1-%d (Ctrl-D to cancel): ", len(session.LeakReasons)))
		if err != nil || !ok {
			return "", "", false, err
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(session.LeakReasons) {
			reason = session.LeakReasons[n-1]
			break
		}
		if session.ValidLeakReason(line) {
			reason = line
			break
		}
		fmt.Fprintln(p.out, "Please select a leak reason.")
	}

	remarkPrompt := "Optional remark (Enter for none, Ctrl-D to cancel): "
	if reason == "Others" {
		remarkPrompt = "Remark (required for Others, Ctrl-D to cancel): "
	}
	for {
		remark, ok, err := p.readLine(remarkPrompt)
		if err != nil || !ok {
			return "", "", false, err
		}
		if remark == "" && reason == "Others" {
			fmt.Fprintln(p.out, "Remark is required when reason is 'Others'.")
			continue
		}
		return reason, remark, true, nil
	}
}

// flagPrompter satisfies the prompter with values already supplied as command
// flags, for non-interactive use.
type flagPrompter struct {
	remark string
	reason string
}

func (p *flagPrompter) PassRemark() (string, bool, error) {
	return p.remark, true, nil
}

func (p *flagPrompter) LeakDetails() (string, string, bool, error) {
	return p.reason, p.remark, true, nil
}
