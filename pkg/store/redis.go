package store

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/yurifrl/loanbook/pkg/book"
	"github.com/yurifrl/loanbook/pkg/codec"
)

// RedisStore keeps the contact order in the list <prefix>:contacts and each
// contact in the hash <prefix>:contact:<id> with fields name and loans.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	codec  *codec.Codec
	logger *log.Logger
}

func NewRedisStore(client redis.UniversalClient, prefix string, c *codec.Codec, logger *log.Logger) *RedisStore {
	if prefix == "" {
		prefix = "loanbook"
	}
	return &RedisStore{client: client, prefix: prefix, codec: c, logger: logger}
}

// DialRedis connects to a single redis node and checks it answers.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) listKey() string {
	return s.prefix + ":contacts"
}

func (s *RedisStore) contactKey(id string) string {
	return s.prefix + ":contact:" + id
}

func (s *RedisStore) Load(ctx context.Context) (*book.Book, error) {
	records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	b := fromRecords(records, s.codec, s.logger)
	s.logger.Debug("loaded book", "prefix", s.prefix, "contacts", b.Len())
	return b, nil
}

// LoadRaw returns each contact's ledger string as stored, keyed by contact ID.
func (s *RedisStore) LoadRaw(ctx context.Context) (map[string]string, error) {
	records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	return rawLedgers(records), nil
}

func (s *RedisStore) records(ctx context.Context) ([]record, error) {
	ids, err := s.client.LRange(ctx, s.listKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read contact list: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, s.contactKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts: %w", err)
	}

	records := make([]record, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			s.logger.Warn("contact listed but missing", "id", ids[i])
			continue
		}
		records = append(records, record{ID: ids[i], Name: fields["name"], Loans: fields["loans"]})
	}
	return records, nil
}

// Save rewrites the list and every contact hash in one transaction and
// deletes hashes of contacts that are gone.
func (s *RedisStore) Save(ctx context.Context, b *book.Book) error {
	previous, err := s.client.LRange(ctx, s.listKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to read contact list: %w", err)
	}

	records := toRecords(b, s.codec)
	keep := make(map[string]bool, len(records))
	for _, r := range records {
		keep[r.ID] = true
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range previous {
			if !keep[id] {
				p.Del(ctx, s.contactKey(id))
			}
		}
		p.Del(ctx, s.listKey())
		for _, r := range records {
			p.HSet(ctx, s.contactKey(r.ID), "name", r.Name, "loans", r.Loans)
			p.RPush(ctx, s.listKey(), r.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save book: %w", err)
	}
	s.logger.Debug("saved book", "prefix", s.prefix, "contacts", len(records))
	return nil
}
