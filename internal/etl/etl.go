// Package etl implements the source extractors: each one composes
// retrieval, structural normalization, and (where needed) identity
// assignment into a normalized record batch handed to a destination store.
//
// Extractors are sequential by design. The upstream services enforce
// undocumented rate limits, so every repeated remote call is separated by
// an explicit pause and nothing runs concurrently.
package etl

import (
	"context"
	"time"

	"github.com/datopublico/civicingest/internal/civic"
)

// Default source endpoints. Overridable per extractor, mainly for tests.
const (
	DefaultChamberBaseURL     = "https://opendata.camara.cl/wscamaradiputados.asmx"
	DefaultSenateBaseURL      = "https://tramitacion.senado.cl/wspublico"
	DefaultProcurementBaseURL = "https://api.mercadopublico.cl/servicios/v1/publico"
)

// DefaultVoteCutoff is the start of the current legislative period; vote
// detail extraction only covers bills filed on or after it.
var DefaultVoteCutoff = time.Date(2022, time.March, 11, 0, 0, 0, 0, time.UTC)

// Fetcher retrieves remote documents. FetchStrict retries and propagates
// exhaustion; FetchLenient makes one attempt and reports absence.
type Fetcher interface {
	FetchStrict(ctx context.Context, url string) (string, error)
	FetchLenient(ctx context.Context, url string) (string, bool)
}

// Pauser inserts the inter-call delays that keep the crawl under the
// sources' tolerance. Swapped for a no-op in tests.
type Pauser interface {
	Pause(ctx context.Context, d time.Duration)
}

// Clock supplies the timestamps stamped into updated_at columns and the
// procurement query date.
type Clock interface {
	Now() time.Time
}

// LegislativeStore is the destination for the legislative table group.
type LegislativeStore interface {
	UpsertSessions(ctx context.Context, sessions []civic.Session) int
	UpsertBillKeys(ctx context.Context, bulletins []string) int
	UpsertBills(ctx context.Context, bills []civic.Bill) int
	UpsertDeputies(ctx context.Context, deputies []civic.Deputy) int
	UpsertSenators(ctx context.Context, senators []civic.Senator) int
	UpsertFloorVote(ctx context.Context, vote civic.FloorVote) error
	InsertVoteRecords(ctx context.Context, records []civic.VoteRecord) int
	BillKeys(ctx context.Context) ([]string, error)
	BillKeysFiledSince(ctx context.Context, cutoff time.Time) ([]string, error)
	Senators(ctx context.Context) ([]civic.Senator, error)
}

// ProcurementStore is the destination for the procurement table group.
type ProcurementStore interface {
	UpsertOrders(ctx context.Context, orders []civic.ProcurementOrder) int
	UpsertSuppliers(ctx context.Context, suppliers []civic.Supplier) int
	UpsertTenders(ctx context.Context, tenders []civic.Tender) int
}

// TimerPauser implements Pauser with a context-aware timer.
type TimerPauser struct{}

// Pause blocks for d or until the context finishes.
func (TimerPauser) Pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// SystemClock implements Clock with the real time in UTC.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// truncateRunes caps s at n characters, respecting rune boundaries.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
