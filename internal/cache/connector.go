package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"moff.io/walletkit/internal/config"
	"moff.io/walletkit/pkg/errors"
	"moff.io/walletkit/pkg/log"
)

const qrKeyPrefix = "walletkit:qrcode:"

var (
	Redis       *redis.Client
	RateLimiter *redis_rate.Limiter
)

// Init connects to redis when cred carries an address. Without one the
// process runs without a QR cache and without rate limiting.
func Init(cred *config.DBCredential) error {
	if !cred.Enabled() {
		log.Warn("empty redis address found, skipping cache initialization.")
		return nil
	}
	db, _ := strconv.ParseInt(cred.Database, 10, 64)
	client := redis.NewClient(&redis.Options{
		Addr:     cred.GetRedisAddress(),
		Username: cred.User,
		Password: cred.Password,
		DB:       int(db),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return errors.Wrap(err, "ping to redis")
	}
	Redis = client
	RateLimiter = redis_rate.NewLimiter(client)
	log.Infof("Connected to redis %v...", cred.GetRedisAddress())
	return nil
}

func Close() {
	if Redis != nil {
		Redis.Close()
		Redis = nil
		RateLimiter = nil
	}
}

// QRStore keeps encoded QR images in redis for ttl.
type QRStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewQRStore(client redis.Cmdable, ttl time.Duration) *QRStore {
	return &QRStore{client: client, ttl: ttl}
}

func qrKey(uri string) string {
	sum := sha256.Sum256([]byte(uri))
	return qrKeyPrefix + hex.EncodeToString(sum[:])
}

func (s *QRStore) Get(ctx context.Context, uri string) (string, bool, error) {
	v, err := s.client.Get(ctx, qrKey(uri)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "get qr code cache")
	}
	return v, true, nil
}

func (s *QRStore) Set(ctx context.Context, uri, dataURL string) error {
	if err := s.client.Set(ctx, qrKey(uri), dataURL, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "set qr code cache")
	}
	return nil
}

// DeleteFromPrefix removes every key starting with prefix.
func DeleteFromPrefix(ctx context.Context, client redis.Cmdable, prefix string) error {
	var (
		cursor uint64
		match        = prefix + "*"
		count  int64 = 200
	)
	log.Debugf("deleting cache pattern %v", match)
	for {
		keys, c, err := client.Scan(ctx, cursor, match, count).Result()
		if err != nil {
			return errors.WrapAndReport(err, "scan caches")
		}
		cursor = c
		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return errors.WrapAndReport(err, "delete caches")
			}
		}
		if c == 0 {
			return nil
		}
	}
}

// PurgeQRCodes drops every cached QR image.
func (s *QRStore) PurgeQRCodes(ctx context.Context) error {
	return DeleteFromPrefix(ctx, s.client, qrKeyPrefix)
}
