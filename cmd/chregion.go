package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/dorkyrobot/cftp/internal/store"
)

const chregionUsage = "chregion [-s|--snet] [region]"

func init() {
	register("chregion", runChregion, chregionUsage,
		"connect to a region, or leave the current one; resets container and prefix")
}

func runChregion(ctx context.Context, env *Env, args []string) error {
	fs := newFlagSet("chregion", chregionUsage, env.Out)
	snet := fs.BoolP("snet", "s", false, "connect over the region's private network")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return usageError(chregionUsage)
	}

	name := strings.ToUpper(fs.Arg(0))
	prev := env.Engine.Location().Region
	if err := env.Engine.ChangeRegion(ctx, name, *snet); err != nil {
		if store.IsAuthenticationFailed(err) {
			return err
		}
		return failf(err, "Unable to access region %s. Perhaps check your private network (--snet) settings?", name)
	}

	switch loc := env.Engine.Location(); {
	case loc.Region != "":
		fmt.Fprintln(env.Out, "Changed region to", loc.Region)
	case prev != "":
		fmt.Fprintln(env.Out, "Backed out of region", prev)
	}
	return nil
}
