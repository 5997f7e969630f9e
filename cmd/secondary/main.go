// Command secondary runs the replicated-log secondary role described in
// DESIGN.md: it accepts replicated writes from the master, buffers
// out-of-order arrivals, and serves a gap-free prefix of the master's log.
package main

import (
	"context"
	"os"

	"github.com/datawire/dlib/dlog"

	"github.com/replogio/replog/internal/secondaryd"
)

func main() {
	ctx := context.Background()
	if err := secondaryd.Command().ExecuteContext(ctx); err != nil {
		dlog.Errorf(ctx, "%+v", err)
		os.Exit(1)
	}
}
