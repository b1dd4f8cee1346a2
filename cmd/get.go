package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dorkyrobot/cftp/internal/tui"
)

const getUsage = "get [-f] <remote> [local|-]"

func init() {
	register("get", runGet, getUsage, "download an object; - writes it to standard output")
}

func runGet(ctx context.Context, env *Env, args []string) error {
	fs := newFlagSet("get", getUsage, env.Out)
	force := fs.BoolP("force", "f", false, "overwrite an existing local file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 || fs.NArg() > 2 {
		return usageError(getUsage)
	}
	if err := requireRegion(env); err != nil {
		return err
	}

	remote := fs.Arg(0)
	localPath := fs.Arg(1)
	if localPath == "" {
		localPath = env.Engine.Delimiter().Leaf(remote)
	}
	toStdout := localPath == "-"

	if !toStdout && !*force {
		if _, err := os.Stat(localPath); err == nil {
			return failf(nil, "Destination file %s exists. You must force overwrite.", localPath)
		}
	}

	container, key := env.Engine.ResolveTarget(remote)
	path := displayPath(env, container, key)
	rc, size, err := env.Engine.Fetch(ctx, container, key)
	if err != nil {
		return objectError(err, container, path)
	}
	defer rc.Close()

	var progress tui.ProgressFunc
	if env.Progress != nil {
		progress = env.Progress(path)
	}

	if toStdout {
		_, err := tui.CopyWithProgress(ctx, env.Out, rc, size, env.Cfg.ChunkSize, progress)
		return err
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", localPath, err)
	}

	if _, err := tui.CopyWithProgress(ctx, f, rc, size, env.Cfg.ChunkSize, progress); err != nil {
		f.Close()
		os.Remove(localPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(localPath)
		return fmt.Errorf("writing %s: %w", localPath, err)
	}

	fmt.Fprintf(env.Out, "%s → %s\n", path, localPath)
	return nil
}
