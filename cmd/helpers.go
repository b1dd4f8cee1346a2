package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/dorkyrobot/cftp/internal/nav"
	"github.com/dorkyrobot/cftp/internal/store"
)

// shellError carries the message shown to the user in place of the
// underlying error's text.
type shellError struct {
	msg string
	err error
}

func (e *shellError) Error() string { return e.msg }
func (e *shellError) Unwrap() error { return e.err }

// failf returns an error that the shell reports as the formatted message.
// cause may be nil.
func failf(cause error, format string, args ...any) error {
	return &shellError{msg: fmt.Sprintf(format, args...), err: cause}
}

// describe returns the message reported for a failed command.
func describe(err error) string {
	var se *shellError
	switch {
	case errors.As(err, &se):
		return se.msg
	case errors.Is(err, nav.ErrNoRegion):
		return "You must connect to a region first (see chregion)"
	case errors.Is(err, nav.ErrNoContainer):
		return "You must be in a container first (see chcontainer)"
	case errors.Is(err, store.ErrAuthenticationFailed):
		return "Authentication failed. Check your username and API key."
	case errors.Is(err, store.ErrAccessDenied):
		return "Access denied: " + err.Error()
	}
	return err.Error()
}

// objectError maps the errors of a path lookup to the messages the shell
// prints for them. path is the absolute display path of the object.
func objectError(err error, container, path string) error {
	switch {
	case errors.Is(err, store.ErrNoSuchContainer):
		return failf(err, "Container %s does not exist.", container)
	case errors.Is(err, store.ErrNoSuchObject):
		return failf(err, "Object %s does not exist.", path)
	case errors.Is(err, store.ErrObjectIsSubDirectory):
		return failf(err, "Object %s is a sub-directory.", path)
	case errors.Is(err, store.ErrObjectArchived):
		return failf(err, "Object %s is archived and must be restored before it can be read.", path)
	}
	return err
}

func requireRegion(env *Env) error {
	if env.Engine.Location().Region == "" {
		return nav.ErrNoRegion
	}
	return nil
}

// newFlagSet returns a flag set for a shell command. Parse errors are
// returned, never fatal; -h/--help prints usage and yields pflag.ErrHelp.
func newFlagSet(name, usage string, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "usage: %s\n", usage)
		if s := fs.FlagUsages(); s != "" {
			fmt.Fprint(out, s)
		}
	}
	return fs
}

func usageError(usage string) error {
	return failf(nil, "usage: %s", usage)
}

// displayPath renders (container, key) as an absolute path, keeping any
// trailing delimiter on key.
func displayPath(env *Env, container, key string) string {
	return env.Engine.Delimiter().Abs(container, "") + key
}
