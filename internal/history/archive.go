// Package history keeps a short-lived Redis archive of finished matches.
// It is an optional convenience view; the durable record of results stays
// with the counter repository.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttlRecord = 24 * time.Hour

// Record is one finished match as archived.
type Record struct {
	RoomID  string    `json:"room_id"`
	White   string    `json:"white"`
	Black   string    `json:"black"`
	Winner  string    `json:"winner,omitempty"`
	Loser   string    `json:"loser,omitempty"`
	Result  string    `json:"result"` // "win" | "draw"
	Method  string    `json:"method"` // checkmate, surrender, timeout, ...
	EndedAt time.Time `json:"ended_at"`
}

type Archive struct {
	rdb *redis.Client
}

func NewArchive(redisURL string) (*Archive, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for match archive")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Archive{rdb: rdb}, nil
}

func (a *Archive) Close() error {
	if a == nil || a.rdb == nil {
		return nil
	}
	return a.rdb.Close()
}

// Save stores the record with a TTL and indexes it under both usernames.
func (a *Archive) Save(ctx context.Context, rec *Record) error {
	if a == nil || a.rdb == nil || rec == nil {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := a.rdb.Set(ctx, keyRecord(rec.RoomID), raw, ttlRecord).Err(); err != nil {
		return err
	}
	for _, user := range []string{rec.White, rec.Black} {
		if strings.TrimSpace(user) == "" {
			continue
		}
		key := keyUserIdx(user)
		if err := a.rdb.SAdd(ctx, key, rec.RoomID).Err(); err != nil {
			return err
		}
		// refresh index TTL alongside the record TTL so stale ids age out
		_ = a.rdb.Expire(ctx, key, ttlRecord).Err()
	}
	return nil
}

// ByUser returns the user's archived matches, most recent first. Ids whose
// records already expired are skipped.
func (a *Archive) ByUser(ctx context.Context, username string) ([]*Record, error) {
	if a == nil || a.rdb == nil || strings.TrimSpace(username) == "" {
		return nil, nil
	}
	ids, err := a.rdb.SMembers(ctx, keyUserIdx(username)).Result()
	if err != nil {
		return nil, err
	}
	var list []*Record
	for _, id := range ids {
		raw, err := a.rdb.Get(ctx, keyRecord(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		list = append(list, &rec)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].EndedAt.After(list[j].EndedAt) })
	return list, nil
}

func keyRecord(roomID string) string { return "match:game:" + strings.TrimSpace(roomID) }

func keyUserIdx(username string) string { return "match:index:user:" + strings.TrimSpace(username) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
