package pairing

import (
	"context"
	"errors"
	"sync"

	"github.com/anonpair/chat-bot/internal/record"
	"github.com/anonpair/chat-bot/internal/session"
)

// fakeRecords is an in-memory stand-in for the Redis partner record store,
// with injectable write failures.
type fakeRecords struct {
	mu       sync.Mutex
	recs     map[int64]record.Record
	failPair int // fail this many SetPair calls
	failAll  bool
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{recs: make(map[int64]record.Record)}
}

func (f *fakeRecords) Get(_ context.Context, userID int64) (record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs[userID], nil
}

func (f *fakeRecords) SetStatus(_ context.Context, userID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("fake: write refused")
	}
	f.recs[userID] = record.Record{UserID: userID, Status: status}
	return nil
}

func (f *fakeRecords) SetPair(_ context.Context, a, b int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("fake: write refused")
	}
	if f.failPair > 0 {
		f.failPair--
		return errors.New("fake: transient pair write failure")
	}
	f.recs[a] = record.Record{UserID: a, Status: record.StatusChatting, PartnerID: b}
	f.recs[b] = record.Record{UserID: b, Status: record.StatusChatting, PartnerID: a}
	return nil
}

func (f *fakeRecords) ClearPair(_ context.Context, a, b int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("fake: write refused")
	}
	f.recs[a] = record.Record{UserID: a, Status: record.StatusIdle}
	f.recs[b] = record.Record{UserID: b, Status: record.StatusIdle}
	return nil
}

// set seeds a raw record, bypassing the pairing rules (for staleness tests).
func (f *fakeRecords) set(rec record.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[rec.UserID] = rec
}

// fakeMessenger records deliveries and can mark recipients unreachable.
type fakeMessenger struct {
	mu          sync.Mutex
	sent        map[int64][]string
	unreachable map[int64]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		sent:        make(map[int64][]string),
		unreachable: make(map[int64]bool),
	}
}

func (f *fakeMessenger) SendText(_ context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable[userID] {
		return ErrPartnerUnreachable
	}
	f.sent[userID] = append(f.sent[userID], text)
	return nil
}

func (f *fakeMessenger) received(userID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent[userID]...)
}

// fakeNotifier records every notice per user.
type fakeNotifier struct {
	mu      sync.Mutex
	notices map[int64][]Notice
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{notices: make(map[int64][]Notice)}
}

func (f *fakeNotifier) Notify(_ context.Context, userID int64, notice Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices[userID] = append(f.notices[userID], notice)
}

func (f *fakeNotifier) count(userID int64, notice Notice) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, got := range f.notices[userID] {
		if got == notice {
			n++
		}
	}
	return n
}

// fakeEvents records published lifecycle events by subject.
type fakeEvents struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{published: make(map[string][][]byte)}
}

func (f *fakeEvents) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[subject] = append(f.published[subject], data)
	return nil
}

func (f *fakeEvents) count(subject string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published[subject])
}

// testService builds a service around the fakes with short windows.
func testService() (*Service, *fakeRecords, *fakeMessenger, *fakeNotifier, *fakeEvents) {
	records := newFakeRecords()
	messenger := newFakeMessenger()
	notifier := newFakeNotifier()
	events := newFakeEvents()

	cfg := DefaultConfig()
	cfg.PersistBackoff = 0 // no sleeping in unit tests

	svc := NewService(session.NewStore(), records, messenger, notifier, events, nil, cfg)
	return svc, records, messenger, notifier, events
}
