package pipeline

import (
	"fmt"
	"os"
)

// Role is the standard stream a Redirection replaces in the child.
type Role int

const (
	Stdin Role = iota
	Stdout
)

func (r Role) String() string {
	switch r {
	case Stdin:
		return "stdin"
	case Stdout:
		return "stdout"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Kind is where a redirected stream comes from or goes to.
type Kind int

const (
	// Inherit keeps the supervisor's stream.
	Inherit Kind = iota
	// FromEndpoint binds the stream to a pipe endpoint.
	FromEndpoint
	// ToFile opens a path inside the child before it execs.
	ToFile
)

// DefaultOutputMode is requested when creating the output file; the umask
// applies.
const DefaultOutputMode os.FileMode = 0777

// Redirection declares how one standard stream of a child is set up. The
// launcher applies every Redirection before the stage's program runs.
type Redirection struct {
	Role Role
	Kind Kind

	Endpoint *Endpoint

	Path string
	Mode os.FileMode
}

// InheritStream leaves role connected to the supervisor's stream.
func InheritStream(role Role) Redirection {
	return Redirection{Role: role, Kind: Inherit}
}

// BindEndpoint connects role to a pipe endpoint.
func BindEndpoint(role Role, endpoint *Endpoint) Redirection {
	return Redirection{Role: role, Kind: FromEndpoint, Endpoint: endpoint}
}

// ToFileRedirection is `> path`: stdout goes to path, created if absent and
// truncated if present, write-only with the given mode.
func ToFileRedirection(path string, mode os.FileMode) Redirection {
	return Redirection{Role: Stdout, Kind: ToFile, Path: path, Mode: mode}
}

func (r Redirection) String() string {
	switch r.Kind {
	case FromEndpoint:
		name := "<nil>"
		if r.Endpoint != nil {
			name = r.Endpoint.Name()
		}
		return fmt.Sprintf("%s=pipe:%s", r.Role, name)
	case ToFile:
		return fmt.Sprintf("%s=file:%s", r.Role, r.Path)
	default:
		return fmt.Sprintf("%s=inherit", r.Role)
	}
}

// validateRedirections rejects redirections that bind one role twice or are missing
// their target.
func validateRedirections(redirs []Redirection) error {
	seen := make(map[Role]bool)
	for _, r := range redirs {
		if r.Role != Stdin && r.Role != Stdout {
			return fmt.Errorf("unsupported redirection role %v", r.Role)
		}
		if seen[r.Role] {
			return fmt.Errorf("%s redirected more than once", r.Role)
		}
		seen[r.Role] = true

		switch r.Kind {
		case Inherit:
		case FromEndpoint:
			if r.Endpoint == nil {
				return fmt.Errorf("%s bound to a nil pipe endpoint", r.Role)
			}
		case ToFile:
			if r.Path == "" {
				return fmt.Errorf("%s redirected to an empty path", r.Role)
			}
		default:
			return fmt.Errorf("unknown redirection kind %d", int(r.Kind))
		}
	}
	return nil
}
