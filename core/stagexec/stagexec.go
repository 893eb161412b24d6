// Package stagexec is the child side of a pipeline stage.
//
// The supervisor starts each stage by re-executing its own binary with the
// hidden CommandName subcommand. By then the process-creation facility has
// already bound the pipe endpoints to stdin/stdout. The trampoline opens any
// file redirections, installs them on the standard descriptors, resolves the
// program on PATH and replaces itself with it. When any of that fails the
// child reports on stderr and exits with a distinguished status; it never
// returns to orchestration code.
package stagexec

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/sys/unix"
)

// CommandName is the hidden subcommand that runs the trampoline.
const CommandName = "__stage"

const (
	// ExitRedirect means a file redirection couldn't be applied.
	ExitRedirect = 1
	// ExitBadRequest means the trampoline's own arguments were malformed.
	ExitBadRequest = 2
	// ExitCannotExec means the program was found but isn't executable or exec
	// failed.
	ExitCannotExec = 126
	// ExitNotFound means the program wasn't found on PATH.
	ExitNotFound = 127
)

// execFunc replaces the process image. Tests override it to capture the call.
var execFunc = unix.Exec

// Request describes what the trampoline does before exec.
type Request struct {
	Program string

	// StdinFile, when set, is opened read-only and installed as stdin.
	StdinFile string
	// StdoutFile, when set, is opened create|truncate|write-only with Mode and
	// installed as stdout.
	StdoutFile string
	Mode       os.FileMode
}

// Args encodes the request for the trampoline's command line.
func (r *Request) Args() []string {
	var args []string
	if r.StdinFile != "" {
		args = append(args, "--stdin-file", r.StdinFile)
	}
	if r.StdoutFile != "" {
		args = append(args, "--stdout-file", r.StdoutFile, "--mode", strconv.FormatUint(uint64(r.Mode.Perm()), 8))
	}
	return append(args, "--", r.Program)
}

// ParseArgs decodes the arguments produced by Request.Args.
func ParseArgs(args []string) (*Request, error) {
	opts := getopt.New()
	stdinFile := opts.StringLong("stdin-file", rune(0), "", "open FILE as standard input", "FILE")
	stdoutFile := opts.StringLong("stdout-file", rune(0), "", "truncate FILE and use it as standard output", "FILE")
	mode := opts.StringLong("mode", rune(0), "666", "octal permission bits for --stdout-file", "MODE")

	if err := opts.Getopt(append([]string{CommandName}, args...), nil); err != nil {
		return nil, err
	}

	rest := opts.Args()
	if len(rest) != 1 || rest[0] == "" {
		return nil, fmt.Errorf("expected exactly one program, got %q", rest)
	}

	perm, err := strconv.ParseUint(*mode, 8, 32)
	if err != nil || perm > 0777 {
		return nil, fmt.Errorf("invalid mode %q", *mode)
	}

	return &Request{
		Program:    rest[0],
		StdinFile:  *stdinFile,
		StdoutFile: *stdoutFile,
		Mode:       os.FileMode(perm),
	}, nil
}

// Main runs the trampoline and exits the process. It only returns control to
// the kernel, either through exec or os.Exit.
func Main(args []string, stderr io.Writer) {
	os.Exit(RunArgs(args, stderr))
}

// RunArgs parses the trampoline arguments and runs the request. It returns
// only if the program couldn't be started.
func RunArgs(args []string, stderr io.Writer) int {
	req, err := ParseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", CommandName, err)
		return ExitBadRequest
	}
	return Run(req, stderr)
}

// Run applies the redirections and execs the program. On success it doesn't
// return; otherwise it returns the exit status the child should use.
func Run(req *Request, stderr io.Writer) int {
	if req.StdinFile != "" {
		if err := redirect(req.StdinFile, unix.O_RDONLY, 0, unix.Stdin); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", req.StdinFile, err)
			return ExitRedirect
		}
	}
	if req.StdoutFile != "" {
		flags := unix.O_CREAT | unix.O_TRUNC | unix.O_WRONLY
		if err := redirect(req.StdoutFile, flags, uint32(req.Mode.Perm()), unix.Stdout); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", req.StdoutFile, err)
			return ExitRedirect
		}
	}

	path, err := exec.LookPath(req.Program)
	if errors.Is(err, exec.ErrDot) {
		// "." on PATH is honored the way a shell does.
		err = nil
	}
	switch {
	case errors.Is(err, fs.ErrPermission), err != nil && onPathNotExecutable(req.Program):
		fmt.Fprintf(stderr, "%s: permission denied\n", req.Program)
		return ExitCannotExec
	case err != nil:
		fmt.Fprintf(stderr, "%s: command not found\n", req.Program)
		return ExitNotFound
	}

	err = execFunc(path, []string{req.Program}, os.Environ())

	// Only reached if exec failed.
	fmt.Fprintf(stderr, "%s: %v\n", req.Program, err)
	return ExitCannotExec
}

// onPathNotExecutable reports whether a PATH search for name only failed
// because the matches aren't executable. LookPath reports that case as not
// found.
func onPathNotExecutable(name string) bool {
	if strings.Contains(name, "/") {
		return false
	}
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			dir = "."
		}
		fi, err := os.Stat(filepath.Join(dir, name))
		if err == nil && fi.Mode().IsRegular() && fi.Mode().Perm()&0111 == 0 {
			return true
		}
	}
	return false
}

// redirect opens path and installs it on target.
func redirect(path string, flags int, mode uint32, target int) error {
	fd, err := unix.Open(path, flags, mode)
	if err != nil {
		return err
	}
	if fd == target {
		return nil
	}
	if err := unix.Dup2(fd, target); err != nil {
		unix.Close(fd)
		return err
	}
	return unix.Close(fd)
}
