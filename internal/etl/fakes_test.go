package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/datopublico/civicingest/internal/civic"
)

// fakeFetcher serves canned documents keyed by full URL and records every
// call in order.
type fakeFetcher struct {
	strict  map[string]string
	lenient map[string]string
	calls   []string
}

func (f *fakeFetcher) FetchStrict(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	body, ok := f.strict[url]
	if !ok {
		return "", fmt.Errorf("no canned strict response for %s", url)
	}
	return body, nil
}

func (f *fakeFetcher) FetchLenient(_ context.Context, url string) (string, bool) {
	f.calls = append(f.calls, url)
	body, ok := f.lenient[url]
	return body, ok
}

// fakeLegStore records every write and serves configured read results.
type fakeLegStore struct {
	sessions     [][]civic.Session
	billKeySets  [][]string
	bills        [][]civic.Bill
	deputies     [][]civic.Deputy
	senatorSets  [][]civic.Senator
	floorVotes   []civic.FloorVote
	voteRecords  [][]civic.VoteRecord
	keys         []string
	keysErr      error
	keysSince    []string
	keysSinceErr error
	roster       []civic.Senator
	rosterErr    error
	floorVoteErr func(vote civic.FloorVote) error
}

func (s *fakeLegStore) UpsertSessions(_ context.Context, sessions []civic.Session) int {
	s.sessions = append(s.sessions, sessions)
	return len(sessions)
}

func (s *fakeLegStore) UpsertBillKeys(_ context.Context, bulletins []string) int {
	s.billKeySets = append(s.billKeySets, bulletins)
	return len(bulletins)
}

func (s *fakeLegStore) UpsertBills(_ context.Context, bills []civic.Bill) int {
	s.bills = append(s.bills, bills)
	return len(bills)
}

func (s *fakeLegStore) UpsertDeputies(_ context.Context, deputies []civic.Deputy) int {
	s.deputies = append(s.deputies, deputies)
	return len(deputies)
}

func (s *fakeLegStore) UpsertSenators(_ context.Context, senators []civic.Senator) int {
	s.senatorSets = append(s.senatorSets, senators)
	return len(senators)
}

func (s *fakeLegStore) UpsertFloorVote(_ context.Context, vote civic.FloorVote) error {
	if s.floorVoteErr != nil {
		if err := s.floorVoteErr(vote); err != nil {
			return err
		}
	}
	s.floorVotes = append(s.floorVotes, vote)
	return nil
}

func (s *fakeLegStore) InsertVoteRecords(_ context.Context, records []civic.VoteRecord) int {
	s.voteRecords = append(s.voteRecords, records)
	return len(records)
}

func (s *fakeLegStore) BillKeys(context.Context) ([]string, error) {
	return s.keys, s.keysErr
}

func (s *fakeLegStore) BillKeysFiledSince(context.Context, time.Time) ([]string, error) {
	return s.keysSince, s.keysSinceErr
}

func (s *fakeLegStore) Senators(context.Context) ([]civic.Senator, error) {
	return s.roster, s.rosterErr
}

// fakeProcStore records procurement writes.
type fakeProcStore struct {
	orders    [][]civic.ProcurementOrder
	suppliers [][]civic.Supplier
	tenders   [][]civic.Tender
}

func (s *fakeProcStore) UpsertOrders(_ context.Context, orders []civic.ProcurementOrder) int {
	s.orders = append(s.orders, orders)
	return len(orders)
}

func (s *fakeProcStore) UpsertSuppliers(_ context.Context, suppliers []civic.Supplier) int {
	s.suppliers = append(s.suppliers, suppliers)
	return len(suppliers)
}

func (s *fakeProcStore) UpsertTenders(_ context.Context, tenders []civic.Tender) int {
	s.tenders = append(s.tenders, tenders)
	return len(tenders)
}

// noPause keeps tests instant.
type noPause struct{}

func (noPause) Pause(context.Context, time.Duration) {}

// fixedClock pins updated_at stamps and the procurement query date.
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
