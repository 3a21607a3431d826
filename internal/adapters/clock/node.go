package clock

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/jonboulle/clockwork"
)

// SourceNodeID is the unique identifier for the wall clock source Graft node.
const SourceNodeID graft.ID = "adapter.clock.source"

func init() {
	graft.Register(graft.Node[clockwork.Clock]{
		ID:        SourceNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (clockwork.Clock, error) {
			return clockwork.NewRealClock(), nil
		},
	})
}
