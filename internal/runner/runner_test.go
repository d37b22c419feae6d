package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type phones struct {
	p1, p2 string
}

// fakeStore records row writes and save ordering.
type fakeStore struct {
	rows    int
	urls    map[int]string
	urlErr  map[int]error
	written map[int]phones
	saves   int
	events  []string
}

func newFakeStore(rows int) *fakeStore {
	s := &fakeStore{
		urls:    make(map[int]string),
		urlErr:  make(map[int]error),
		written: make(map[int]phones),
	}
	for row := 2; row <= rows; row++ {
		s.urls[row] = fmt.Sprintf("www.example.org/dr-%d", row)
	}
	s.rows = rows
	return s
}

func (s *fakeStore) RowCount() int { return s.rows }

func (s *fakeStore) URL(row int) (string, error) {
	if err := s.urlErr[row]; err != nil {
		return "", err
	}
	return s.urls[row], nil
}

func (s *fakeStore) SetPhones(row int, p1, p2 string) error {
	s.written[row] = phones{p1, p2}
	s.events = append(s.events, fmt.Sprintf("write:%d", row))
	return nil
}

func (s *fakeStore) Save() error {
	s.saves++
	s.events = append(s.events, "save")
	return nil
}

type fakeExtractor struct {
	byURL map[string][]string
	err   error
	calls []string
}

func (f *fakeExtractor) ExtractPhones(ctx context.Context, url string) ([]string, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.byURL[url], nil
}

func newTestRunner(cfg Config, store Store, ex Extractor) *Runner {
	return New(cfg, store, ex, log.New(io.Discard))
}

func TestRowWithPhonesWritten(t *testing.T) {
	store := newFakeStore(2)
	ex := &fakeExtractor{byURL: map[string][]string{
		"https://www.example.org/dr-2": {"55 1234 5678", "55 9876 5432"},
	}}

	require.NoError(t, newTestRunner(Config{}, store, ex).Run(context.Background()))

	assert.Equal(t, phones{"55 1234 5678", "55 9876 5432"}, store.written[2])
}

func TestSchemePrefixedBeforeExtraction(t *testing.T) {
	store := newFakeStore(2)
	ex := &fakeExtractor{}

	require.NoError(t, newTestRunner(Config{}, store, ex).Run(context.Background()))

	require.Len(t, ex.calls, 1)
	assert.Equal(t, "https://www.example.org/dr-2", ex.calls[0])
}

func TestBlankURLWritesSentinelAndSkipsExtractor(t *testing.T) {
	store := newFakeStore(3)
	store.urls[2] = ""
	ex := &fakeExtractor{}

	require.NoError(t, newTestRunner(Config{}, store, ex).Run(context.Background()))

	assert.Equal(t, phones{SentinelNoURL, ""}, store.written[2])
	require.Len(t, ex.calls, 1)
	assert.Equal(t, "https://www.example.org/dr-3", ex.calls[0])
}

func TestNoCandidatesWritesSentinel(t *testing.T) {
	store := newFakeStore(2)
	ex := &fakeExtractor{}

	require.NoError(t, newTestRunner(Config{}, store, ex).Run(context.Background()))

	assert.Equal(t, phones{SentinelNoPhone, ""}, store.written[2])
}

func TestExtractorErrorMarksRowEmptyAndContinues(t *testing.T) {
	store := newFakeStore(3)
	ex := &fakeExtractor{err: errors.New("browser gone")}

	require.NoError(t, newTestRunner(Config{}, store, ex).Run(context.Background()))

	assert.Equal(t, phones{SentinelNoPhone, ""}, store.written[2])
	assert.Equal(t, phones{SentinelNoPhone, ""}, store.written[3])
}

func TestUnreadableRowRecordsErrorSentinel(t *testing.T) {
	store := newFakeStore(3)
	store.urlErr[2] = errors.New("bad cell")
	ex := &fakeExtractor{}

	require.NoError(t, newTestRunner(Config{}, store, ex).Run(context.Background()))

	assert.Equal(t, "Error: bad cell", store.written[2].p1)
	assert.Equal(t, phones{SentinelNoPhone, ""}, store.written[3])
}

func TestCheckpointEveryTenProcessedRows(t *testing.T) {
	// Rows 2..13: twelve processable rows. A checkpoint must land after the
	// tenth successful row and before the eleventh row is written, plus the
	// unconditional final save.
	store := newFakeStore(13)
	ex := &fakeExtractor{}

	require.NoError(t, newTestRunner(Config{}, store, ex).Run(context.Background()))

	assert.Equal(t, 2, store.saves)
	assert.Equal(t, "save", store.events[10], "checkpoint follows the tenth processed row")
	assert.Equal(t, "write:12", store.events[11])
	assert.Equal(t, "save", store.events[len(store.events)-1], "final save closes the run")
}

func TestSkippedRowsDoNotAdvanceCheckpoint(t *testing.T) {
	// Eleven rows but one blank URL: only ten successful rows, so the only
	// mid-run checkpoint is the one after the tenth success.
	store := newFakeStore(13)
	store.urls[2] = ""
	ex := &fakeExtractor{}

	require.NoError(t, newTestRunner(Config{}, store, ex).Run(context.Background()))

	assert.Equal(t, 2, store.saves)
}

func TestMaxRowsClampsRange(t *testing.T) {
	store := newFakeStore(10)
	ex := &fakeExtractor{}

	require.NoError(t, newTestRunner(Config{MaxRows: 3}, store, ex).Run(context.Background()))

	assert.Len(t, ex.calls, 3)
	assert.Contains(t, store.written, 4)
	assert.NotContains(t, store.written, 5)
}

func TestStartRowBelowDataClampedToTwo(t *testing.T) {
	store := newFakeStore(3)
	ex := &fakeExtractor{}

	require.NoError(t, newTestRunner(Config{StartRow: 0}, store, ex).Run(context.Background()))

	assert.NotContains(t, store.written, 1, "header row is never processed")
	assert.Contains(t, store.written, 2)
}

func TestEmptyRangeStillSavesNothingExtra(t *testing.T) {
	store := newFakeStore(1) // header only
	ex := &fakeExtractor{}

	require.NoError(t, newTestRunner(Config{}, store, ex).Run(context.Background()))

	assert.Empty(t, ex.calls)
	assert.Zero(t, store.saves)
}

func TestCancellationCheckpointsBeforeReturning(t *testing.T) {
	store := newFakeStore(5)
	ctx, cancel := context.WithCancel(context.Background())
	ex := &fakeExtractor{}
	calls := 0
	cancelAfterFirst := extractorFunc(func(c context.Context, url string) ([]string, error) {
		calls++
		if calls == 1 {
			cancel()
		}
		return ex.ExtractPhones(c, url)
	})

	err := newTestRunner(Config{}, store, cancelAfterFirst).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, store.saves, "early termination still persists progress")
}

type extractorFunc func(ctx context.Context, url string) ([]string, error)

func (f extractorFunc) ExtractPhones(ctx context.Context, url string) ([]string, error) {
	return f(ctx, url)
}
