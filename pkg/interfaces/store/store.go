// Package store declares the external storage-backend boundary (§6): a
// blob+index collaborator that answers filter queries and accepts writes.
// The core never implements storage itself, only consumes it through I.
package store

import (
	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/encoders/filter"
	"meshrelay.dev/pkg/utils/context"
)

// Page is a query result page: the matched events plus an opaque
// continuation token the caller can present to fetch the next page.
type Page struct {
	Events     []*event.E
	Continue   string
	HasMore    bool
}

// I is the narrow interface the Admission Pipeline and Subscription
// Registry consume. A concrete implementation might be a remote blob+index
// service; the reference implementation in this module is a thin badger
// wrapper sufficient for local development and tests.
type I interface {
	// QueryEvents runs f against the backend, honoring f.Limit, and
	// returns at most one page. Continue is the bookmark to present on the
	// next query and is set whether or not HasMore is; HasMore reports
	// whether matching events remain past f.Limit.
	QueryEvents(c context.T, f *filter.F, bookmark string) (Page, error)
	// SaveEvent durably stores ev. It does not itself decide admission;
	// the Admission Pipeline calls this only after every other check
	// passes.
	SaveEvent(c context.T, ev *event.E) error
}
