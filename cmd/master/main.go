// Command master runs the replicated-log master role described in
// DESIGN.md: it accepts client writes, assigns sequence numbers, and
// replicates them to the configured secondaries.
package main

import (
	"context"
	"os"

	"github.com/datawire/dlib/dlog"

	"github.com/replogio/replog/internal/masterd"
)

func main() {
	ctx := context.Background()
	if err := masterd.Command().ExecuteContext(ctx); err != nil {
		dlog.Errorf(ctx, "%+v", err)
		os.Exit(1)
	}
}
