package cmd

import (
	"context"
	"fmt"
)

func init() {
	register("pwd", runPWD, "pwd", "print the current location")
	register("lsreg", runLsreg, "lsreg", "list the available regions")
}

func runPWD(_ context.Context, env *Env, _ []string) error {
	fmt.Fprintln(env.Out, env.Engine.Location().Path())
	return nil
}

func runLsreg(ctx context.Context, env *Env, _ []string) error {
	regions, err := env.Engine.ListRegions(ctx)
	if err != nil {
		return err
	}
	for _, r := range regions {
		fmt.Fprintln(env.Out, r)
	}
	return nil
}
