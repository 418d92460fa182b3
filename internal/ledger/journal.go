package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
)

const (
	journalPrefix       = "ledger_"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	commitRecordPrefix  = "commit_"
)

// commitRecord is the journal payload for one committed unit of work: every
// wallet row it updated plus every ledger entry it appended.
type commitRecord struct {
	Wallets []Wallet      `json:"wallets,omitempty"`
	Entries []Transaction `json:"entries,omitempty"`
}

// Journal is a write-ahead log of committed units of work. Each commit is a
// single record flushed to disk synchronously, so replay sees a commit either
// in full or not at all and the in-memory store can be rebuilt after a
// restart or crash.
type Journal struct {
	wal *gowal.Wal
	mu  sync.Mutex
}

// OpenJournal initializes a journal under the provided directory.
func OpenJournal(dir string) (*Journal, error) {
	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           journalPrefix,
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init ledger journal")
	}
	return &Journal{wal: wal}, nil
}

// LogCommit records one atomic commit as a single journal record. A crash or
// write error can therefore never leave a partial commit behind.
func (j *Journal) LogCommit(wallets []Wallet, entries []Transaction) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	payload, err := json.Marshal(commitRecord{Wallets: wallets, Entries: entries})
	if err != nil {
		return errors.Wrap(err, "marshal commit record")
	}
	index := j.wal.CurrentIndex() + 1
	key := fmt.Sprintf("%s%d", commitRecordPrefix, index)
	if err := j.wal.Write(index, key, payload); err != nil {
		return errors.Wrap(err, "write commit record")
	}
	return nil
}

// Replay rebuilds the latest wallet state per user and the full transaction
// log by applying commit records in write order.
func (j *Journal) Replay() (map[int64]Wallet, []Transaction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	wallets := make(map[int64]Wallet)
	var log []Transaction
	for record := range j.wal.Iterator() {
		if !strings.HasPrefix(record.Key, commitRecordPrefix) {
			continue
		}
		var commit commitRecord
		if err := json.Unmarshal(record.Value, &commit); err != nil {
			return nil, nil, errors.Wrap(err, "decode commit record")
		}
		for _, w := range commit.Wallets {
			wallets[w.UserID] = w
		}
		log = append(log, commit.Entries...)
	}
	return wallets, log, nil
}

// Close closes the underlying WAL.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.wal.Close()
}
