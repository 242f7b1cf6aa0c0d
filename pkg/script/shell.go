package script

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

const DefaultShell = "/bin/sh"

// ShellEngine runs code with a shell. Code starting with a shebang line is
// written to a temporary file and executed directly instead.
type ShellEngine struct {
	Shell   string
	Timeout time.Duration
	Fs      afero.Fs
}

func NewShellEngine(shell string) *ShellEngine {
	if shell == "" {
		shell = DefaultShell
	}
	return &ShellEngine{Shell: shell, Fs: afero.NewOsFs()}
}

func (e *ShellEngine) Eval(ctx context.Context, req Request) (string, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	if strings.HasPrefix(req.Code, "#!") {
		path, cleanup, err := e.writeScript(req.Code)
		if err != nil {
			return "", err
		}
		defer cleanup()
		cmd = exec.CommandContext(ctx, path)
	} else {
		cmd = exec.CommandContext(ctx, e.Shell, "-c", req.Code)
	}
	cmd.Env = environ(req)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	zerolog.Ctx(ctx).Trace().Str("shell", e.Shell).Str("code", req.Code).Msg("running shell code")

	out, err := cmd.Output()
	if err != nil {
		return "", errors.Errorf("running shell code: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return trimOutput(out), nil
}

func (e *ShellEngine) writeScript(code string) (string, func(), error) {
	f, err := afero.TempFile(e.Fs, "", "gosnips-*")
	if err != nil {
		return "", nil, errors.Errorf("creating script file: %w", err)
	}
	name := f.Name()
	cleanup := func() { _ = e.Fs.Remove(name) }

	if _, err := f.WriteString(code); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, errors.Errorf("writing script file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, errors.Errorf("closing script file: %w", err)
	}
	if err := e.Fs.Chmod(name, 0o700); err != nil {
		cleanup()
		return "", nil, errors.Errorf("making script executable: %w", err)
	}
	return name, cleanup, nil
}

func (e *ShellEngine) Validate() error {
	if _, err := exec.LookPath(e.Shell); err != nil {
		return errors.Errorf("shell %s: %w", e.Shell, err)
	}
	return nil
}

// CommandEngine evaluates code by running an interpreter with the code as its
// last argument, e.g. []string{"python3", "-c"}.
type CommandEngine struct {
	Command []string
	Timeout time.Duration
}

func (e *CommandEngine) Eval(ctx context.Context, req Request) (string, error) {
	if len(e.Command) == 0 {
		return "", errors.New("command engine has no command")
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, e.Command[1:]...), req.Code)
	cmd := exec.CommandContext(ctx, e.Command[0], args...)
	cmd.Env = environ(req)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	zerolog.Ctx(ctx).Trace().Strs("command", e.Command).Str("lang", string(req.Lang)).Msg("running interpreter")

	out, err := cmd.Output()
	if err != nil {
		return "", errors.Errorf("running %s: %w: %s", e.Command[0], err, strings.TrimSpace(stderr.String()))
	}
	return trimOutput(out), nil
}

func (e *CommandEngine) Validate() error {
	if len(e.Command) == 0 {
		return errors.New("empty command")
	}
	if _, err := exec.LookPath(e.Command[0]); err != nil {
		return errors.Errorf("interpreter %s: %w", e.Command[0], err)
	}
	return nil
}
