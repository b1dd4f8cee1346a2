package cmd

import (
	"context"
	"errors"

	"github.com/dorkyrobot/cftp/internal/nav"
	"github.com/dorkyrobot/cftp/internal/store"
)

func init() {
	register("cd", runCD, "cd [path]",
		"change container and prefix; the first component of an absolute path is the container")
}

func runCD(ctx context.Context, env *Env, args []string) error {
	if err := requireRegion(env); err != nil {
		return err
	}
	if len(args) > 1 {
		return usageError("cd [path]")
	}

	target := ""
	if len(args) == 1 {
		target = args[0]
	}

	err := env.Engine.ChangeDirectory(ctx, target)
	switch {
	case errors.Is(err, store.ErrNoSuchContainer):
		container, _ := env.Engine.ResolveTarget(target)
		return failf(err, "Container %s does not exist. You must create it before changing to it.", container)
	case errors.Is(err, nav.ErrNotADirectory):
		container, key := env.Engine.ResolveTarget(target)
		return failf(err, "%s is an object, not a directory.", displayPath(env, container, key))
	}
	return err
}
