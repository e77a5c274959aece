package store

import (
	"encoding/json"

	"github.com/go-redis/redis/v7"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type redisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the journal server and pings it once.
func NewRedisStore(addr, password string, db int) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping().Result(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to ping redis at %s", addr)
	}

	log.WithFields(log.Fields{"addr": addr, "db": db}).Info("bet journal on redis")
	return &redisStore{client: client}, nil
}

func (r *redisStore) Set(identity string, bet *Bet) error {
	bs, err := json.Marshal(bet)
	if err != nil {
		return errors.Wrap(err, "failed to encode bet")
	}
	if err := r.client.Set(Key(identity), bs, 0).Err(); err != nil {
		return errors.Wrap(err, "failed to save bet to redis")
	}
	return nil
}

func (r *redisStore) Get(identity string) (*Bet, error) {
	bs, err := r.client.Get(Key(identity)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bet from redis")
	}

	var bet Bet
	if err := json.Unmarshal(bs, &bet); err != nil {
		return nil, errors.Wrap(err, "failed to decode bet")
	}
	return &bet, nil
}

func (r *redisStore) Close() error {
	return r.client.Close()
}
