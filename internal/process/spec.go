package process

import (
	"os/exec"
	"strings"

	"github.com/nodeward/devnetup/internal/logger"
)

// Spec describes a process to be launched and supervised.
type Spec struct {
	Name    string        `json:"name"`
	Command string        `json:"command"`  // command line to start the process
	WorkDir string        `json:"work_dir"` // optional working dir
	Env     []string      `json:"env"`      // full environment (KEY=VALUE); empty inherits
	PIDFile string        `json:"pid_file"` // optional pidfile path
	Log     logger.Config `json:"log"`      // stdout/stderr capture
}

// BuildCommand constructs an *exec.Cmd for the spec's command line. A shell
// is only involved when metacharacters require one; an explicit "sh -c ..."
// prefix is honored without double-wrapping.
func (s *Spec) BuildCommand() *exec.Cmd {
	cmdStr := strings.TrimSpace(s.Command)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if after, ok := explicitShellArg(cmdStr); ok {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", after)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(name, args...)
}

// explicitShellArg detects a leading "sh -c <ARG>" (or an absolute-path
// variant) and returns the argument after -c with one outer quote pair
// stripped so redirections inside the script still parse.
func explicitShellArg(cmdStr string) (string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	for _, p := range []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "} {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return after, true
		}
	}
	return "", false
}
