package cmd

import (
	"context"

	"github.com/dorkyrobot/cftp/internal/output"
)

const lsUsage = "ls [-l] [-h] [-H] [path]"

func init() {
	register("ls", runLS, lsUsage, "list the current location or a given path")
}

func runLS(ctx context.Context, env *Env, args []string) error {
	fs := newFlagSet("ls", lsUsage, env.Out)
	long := fs.BoolP("long", "l", false, "print a long listing")
	human := fs.BoolP("human", "h", false, "with -l, print sizes in human readable form")
	header := fs.BoolP("header", "H", false, "with -l, print the table header")
	help := fs.Bool("help", false, "show this help")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *help {
		fs.Usage()
		return nil
	}
	if fs.NArg() > 1 {
		return usageError(lsUsage)
	}
	if err := requireRegion(env); err != nil {
		return err
	}

	d := env.Engine.Delimiter()
	container, prefix := env.Engine.ResolveTarget(fs.Arg(0))
	if fs.NArg() == 0 && prefix != "" {
		prefix += string(d)
	}

	entries, err := env.Engine.Listing(ctx, container, prefix)
	if err != nil {
		return objectError(err, container, displayPath(env, container, prefix))
	}

	return output.Write(env.Out, entries, output.Options{
		Long:      *long,
		Human:     *human,
		Header:    *header,
		Delimiter: d,
	})
}
