package cmd

import (
	"context"

	"github.com/dorkyrobot/cftp/internal/nav"
	"github.com/dorkyrobot/cftp/internal/output"
)

func init() {
	register("stat", runStat, "stat <path>", "show object metadata")
}

func runStat(ctx context.Context, env *Env, args []string) error {
	if len(args) != 1 {
		return usageError("stat <path>")
	}
	if err := requireRegion(env); err != nil {
		return err
	}

	container, key := env.Engine.ResolveTarget(args[0])
	path := displayPath(env, container, key)
	t, err := env.Engine.Classify(ctx, container, key)
	if err != nil {
		return objectError(err, container, path)
	}
	if t.Kind != nav.KindObject {
		return failf(nil, "%s is a %s, not an object.", env.Engine.Delimiter().Abs(container, key), t.Kind)
	}

	output.FormatStat(env.Out, path, t.Attrs, env.TTY)
	return nil
}
