package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/dorkyrobot/cftp/internal/nav"
	"github.com/dorkyrobot/cftp/internal/store"
)

func init() {
	register("chcontainer", runChcontainer, "chcontainer [container]",
		"change to a container, or leave the current one; resets the prefix")
	register("chprefix", runChprefix, "chprefix [prefix]",
		"change the prefix within the current container, or clear it")
}

func runChcontainer(ctx context.Context, env *Env, args []string) error {
	if err := requireRegion(env); err != nil {
		return err
	}
	if len(args) > 1 {
		return usageError("chcontainer [container]")
	}

	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	if err := env.Engine.ChangeContainer(ctx, name); err != nil {
		if errors.Is(err, store.ErrNoSuchContainer) {
			return failf(err, "Container %s does not exist. You must create it before changing to it.", name)
		}
		return err
	}
	if name != "" {
		fmt.Fprintln(env.Out, "Changed container to", name)
	}
	return nil
}

func runChprefix(_ context.Context, env *Env, args []string) error {
	if err := requireRegion(env); err != nil {
		return err
	}
	if env.Engine.Location().Container == "" {
		return nav.ErrNoContainer
	}
	if len(args) > 1 {
		return usageError("chprefix [prefix]")
	}

	segment := ""
	if len(args) == 1 {
		segment = args[0]
	}
	return env.Engine.ChangePrefix(segment)
}
