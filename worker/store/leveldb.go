package store

import (
	"encoding/json"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

type levelStore struct {
	db *leveldb.DB
}

// NewLevelDBStore opens (or recovers) a journal database at path.
func NewLevelDBStore(path string) (Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		OpenFilesCacheCapacity: 16,
	})
	if _, corrupted := err.(*lerrors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bet journal %s", path)
	}
	log.WithField("path", path).Info("bet journal on leveldb")
	return &levelStore{db: db}, nil
}

// NewMemLevelDBStore keeps the journal in memory only.
func NewMemLevelDBStore() (Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open in-memory bet journal")
	}
	return &levelStore{db: db}, nil
}

func (l *levelStore) Set(identity string, bet *Bet) error {
	bs, err := json.Marshal(bet)
	if err != nil {
		return errors.Wrap(err, "failed to encode bet")
	}
	if err := l.db.Put([]byte(Key(identity)), bs, &opt.WriteOptions{Sync: true}); err != nil {
		return errors.Wrap(err, "failed to save bet to leveldb")
	}
	return nil
}

func (l *levelStore) Get(identity string) (*Bet, error) {
	bs, err := l.db.Get([]byte(Key(identity)), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bet from leveldb")
	}

	var bet Bet
	if err := json.Unmarshal(bs, &bet); err != nil {
		return nil, errors.Wrap(err, "failed to decode bet")
	}
	return &bet, nil
}

func (l *levelStore) Close() error {
	return l.db.Close()
}
