package redis

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/grantsync/pkg/errors"
)

// PatentStore keeps each record as JSON under <prefix>patent:<number> and
// indexes patent numbers in the sorted set <prefix>grants, scored by the
// grant date as YYYYMMDD.
//
// Both writes use NX semantics, so the first stored version of a patent wins.
// Load returns records ordered by (grant_date, patent_number): members with
// equal scores sort lexicographically.
type PatentStore struct {
	rdb    redis.Cmdable
	prefix string
	logger logging.Logger
}

// NewPatentStore builds a store over rdb with the given key prefix.
func NewPatentStore(rdb redis.Cmdable, prefix string, log logging.Logger) *PatentStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PatentStore{rdb: rdb, prefix: prefix, logger: log.Named("redis_store")}
}

func (s *PatentStore) recordKey(number string) string {
	return s.prefix + "patent:" + number
}

func (s *PatentStore) indexKey() string {
	return s.prefix + "grants"
}

// Save writes patents in one MULTI/EXEC transaction.
func (s *PatentStore) Save(ctx context.Context, patents []patent.Patent) error {
	if len(patents) == 0 {
		return nil
	}

	values := make([]string, len(patents))
	for i := range patents {
		b, err := json.Marshal(patents[i])
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode patent")
		}
		values[i] = string(b)
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := range patents {
			p := &patents[i]
			pipe.SetNX(ctx, s.recordKey(p.PatentNumber), values[i], 0)
			pipe.ZAddNX(ctx, s.indexKey(), redis.Z{
				Score:  float64(p.GrantDate.Ordinal()),
				Member: p.PatentNumber,
			})
		}
		return nil
	})
	if err != nil {
		return classify(err, "failed to save patents")
	}

	s.logger.Debug("saved patents", logging.Int("count", len(patents)))
	return nil
}

// Load returns the stored patents granted within [start, end].
func (s *PatentStore) Load(ctx context.Context, start, end patent.Date) ([]patent.Patent, error) {
	numbers, err := s.rdb.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(start.Ordinal(), 10),
		Max: strconv.FormatInt(end.Ordinal(), 10),
	}).Result()
	if err != nil {
		return nil, classify(err, "failed to query grant index")
	}

	out := make([]patent.Patent, 0, len(numbers))
	if len(numbers) == 0 {
		return out, nil
	}

	keys := make([]string, len(numbers))
	for i, n := range numbers {
		keys[i] = s.recordKey(n)
	}

	raw, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, classify(err, "failed to read patents")
	}

	for i, v := range raw {
		str, ok := v.(string)
		if !ok {
			// Indexed but the record key is gone.
			s.logger.Warn("grant index entry without record", logging.String("patent_number", numbers[i]))
			continue
		}
		var p patent.Patent
		if err := json.Unmarshal([]byte(str), &p); err != nil {
			return nil, errors.New(errors.ErrCodeSerialization, "failed to decode stored patent").
				WithDetail(numbers[i]).
				WithCause(err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Clear deletes every record key and the index.
func (s *PatentStore) Clear(ctx context.Context) error {
	numbers, err := s.rdb.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return classify(err, "failed to list grant index")
	}

	keys := make([]string, 0, len(numbers)+1)
	for _, n := range numbers {
		keys = append(keys, s.recordKey(n))
	}
	keys = append(keys, s.indexKey())

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return classify(err, "failed to clear patents")
	}
	s.logger.Info("cleared patents", logging.Int("count", len(numbers)))
	return nil
}

// classify separates replies the server rejected from transport failures.
func classify(err error, message string) error {
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return errors.Wrap(err, errors.ErrCodeDBQuery, message)
	}
	return errors.Wrap(err, errors.ErrCodeDBConnection, message)
}

var _ patent.Store = (*PatentStore)(nil)
