// Package runlist parses the run-list DSL: a line-oriented text file that
// interleaves "¥ SETUP" / "¥ RUN" phase markers with "¥¥ machine1 machine2"
// target-machine markers, producing an ordered list of phases, each mapping
// a machine name to the script text it should run.
package runlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// StepType distinguishes a one-time setup phase from a phase meant to be
// re-runnable.
type StepType int

const (
	StepSetup StepType = iota
	StepRun
)

func (s StepType) String() string {
	switch s {
	case StepSetup:
		return "setup"
	case StepRun:
		return "run"
	default:
		return "unknown"
	}
}

// Step is one phase of the run list: which kind it is, and the script text
// each named machine should execute during it.
type Step struct {
	Type    StepType
	Scripts map[string]string
}

var (
	setupMarker   = regexp.MustCompile(`^¥\s*SETUP\s*$`)
	runMarker     = regexp.MustCompile(`^¥\s*RUN\s*$`)
	machineMarker = regexp.MustCompile(`^¥¥[ \t]*(.+)$`)
	splitRe       = regexp.MustCompile(`[ \t]+`)
)

// ParseRunList reads the run-list file at path and returns its ordered
// phases. Lines are classified one at a time: a SETUP/RUN marker starts a
// new phase (flushing whatever script text had accumulated for the
// previous one first), a "¥¥ name1 name2" marker switches which machines
// subsequent lines are recorded against, and every other line is appended
// to the script text of the currently-targeted machines.
func ParseRunList(path string) ([]Step, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("taas: runlist: could not open %s: %w", path, err)
	}
	defer f.Close()
	return parseRunList(f)
}

func parseRunList(r io.Reader) ([]Step, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var steps []Step
	var currentMachines []string
	var currentScript strings.Builder
	currentStep := map[string]string{}
	var state *StepType

	flushScript := func() {
		if currentScript.Len() == 0 {
			return
		}
		for _, m := range currentMachines {
			currentStep[m] = currentScript.String()
		}
		currentScript.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case setupMarker.MatchString(line):
			flushScript()
			if state != nil {
				steps = append(steps, Step{Type: *state, Scripts: currentStep})
			}
			currentStep = map[string]string{}
			s := StepSetup
			state = &s
			continue

		case runMarker.MatchString(line):
			flushScript()
			if state != nil {
				steps = append(steps, Step{Type: *state, Scripts: currentStep})
			}
			currentStep = map[string]string{}
			s := StepRun
			state = &s
			continue

		case machineMarker.MatchString(line):
			flushScript()
			match := machineMarker.FindStringSubmatch(line)
			currentMachines = splitRe.Split(strings.TrimSpace(match[1]), -1)
			continue
		}

		if state != nil {
			currentScript.WriteString(line)
			currentScript.WriteString("\n")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("taas: runlist: error reading run list: %w", err)
	}

	flushScript()
	if state != nil {
		steps = append(steps, Step{Type: *state, Scripts: currentStep})
	}
	return steps, nil
}
