package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

func init() {
	register("lls", runLLS, "lls [ls args...]", "run ls on the local machine")
	register("lpwd", runLPWD, "lpwd", "print the local working directory")
	register("lcd", runLCD, "lcd [dir]", "change the local working directory (default: home)")
}

func runLLS(ctx context.Context, env *Env, args []string) error {
	c := exec.CommandContext(ctx, "ls", args...)
	c.Stdout = env.Out
	c.Stderr = env.Out
	if err := c.Run(); err != nil {
		return fmt.Errorf("lls: %w", err)
	}
	return nil
}

func runLPWD(_ context.Context, env *Env, _ []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Out, dir)
	return nil
}

func runLCD(_ context.Context, env *Env, args []string) error {
	if len(args) > 1 {
		return usageError("lcd [dir]")
	}

	dir := ""
	if len(args) == 1 {
		dir = args[0]
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dir = home
	}
	if err := os.Chdir(dir); err != nil {
		return failf(err, "Unable to change local directory: %v", err)
	}
	return nil
}
