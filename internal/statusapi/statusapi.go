// Package statusapi exposes a tiny read-only GraphQL schema reporting the
// watchtower's own health: chain connectivity, the last block observed on
// each side of the bridge, and the commit-check watermark. It is deliberately
// separate from the Prometheus metrics endpoint - this is meant for a human
// or a dashboard to query ad hoc, not to be scraped.
package statusapi

import (
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/rs/cors"

	"github.com/fuel-canary-watchtower/watchtower/internal/status"
)

const schema = `
	schema {
		query: Query
	}

	type Query {
		status: Status!
	}

	type Status {
		l1Connected: Boolean!
		l2Connected: Boolean!
		lastL1Block: Float!
		lastL2Block: Float!
		lastCommitCheckBlock: Float!
		uptimeSeconds: Float!
	}
`

type statusResolver struct {
	snapshot status.Snapshot
}

func (r *statusResolver) L1Connected() bool          { return r.snapshot.L1Connected }
func (r *statusResolver) L2Connected() bool          { return r.snapshot.L2Connected }
func (r *statusResolver) LastL1Block() float64       { return float64(r.snapshot.LastL1Block) }
func (r *statusResolver) LastL2Block() float64       { return float64(r.snapshot.LastL2Block) }
func (r *statusResolver) UptimeSeconds() float64     { return r.snapshot.UptimeSeconds }
func (r *statusResolver) LastCommitCheckBlock() float64 {
	return float64(r.snapshot.LastCommitCheckBlock)
}

// resolver is the GraphQL root resolver. It holds only the tracker it reads
// from - every query re-snapshots the tracker, so the API is always current.
type resolver struct {
	tracker *status.Tracker
}

// Status resolves the single query field.
func (r *resolver) Status() *statusResolver {
	return &statusResolver{snapshot: r.tracker.Snapshot()}
}

// Handler builds the CORS-wrapped GraphQL HTTP handler for the given
// tracker, to be mounted at e.g. "/status".
func Handler(tracker *status.Tracker) http.Handler {
	parsed := graphql.MustParseSchema(schema, &resolver{tracker: tracker})
	relayHandler := &relay.Handler{Schema: parsed}
	return cors.Default().Handler(relayHandler)
}
