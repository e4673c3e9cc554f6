package ticketstore

import (
	"context"
	"fmt"
	"time"

	"ticket-gate/internal/status"
	"ticket-gate/models"

	"github.com/redis/go-redis/v9"
)

// Atomic compare-and-set on the status field. ARGV: expected, next, used_at, used_by.
const conditionalUpdateScript = `
if redis.call('HGET', KEYS[1], 'status') ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[2])
if ARGV[4] ~= '' then
	redis.call('HSET', KEYS[1], 'used_at', ARGV[3], 'used_by', ARGV[4])
end
return 1
`

// RedisStore keeps one hash per ticket at ticket:{id}.
type RedisStore struct {
	Redis *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{Redis: redisClient}
}

func ticketKey(id string) string {
	return fmt.Sprintf("ticket:%s", id)
}

func (s *RedisStore) GetTicket(ctx context.Context, id string) (models.Ticket, error) {
	data, err := s.Redis.HGetAll(ctx, ticketKey(id)).Result()
	if err != nil {
		return models.Ticket{}, fmt.Errorf("reading ticket %s: %w", id, err)
	}
	if len(data) == 0 {
		return models.Ticket{}, status.ErrTicketNotFound
	}

	ticket := models.Ticket{
		ID:      id,
		OwnerID: data["owner_id"],
		Secret:  data["secret"],
		Status:  models.TicketStatus(data["status"]),
		UsedBy:  data["used_by"],
	}

	if raw := data["used_at"]; raw != "" {
		usedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return models.Ticket{}, fmt.Errorf("parsing used_at of ticket %s: %w", id, err)
		}
		ticket.UsedAt = &usedAt
	}

	return ticket, nil
}

// SaveTicket writes the full ticket hash. Used to mirror newly issued tickets.
func (s *RedisStore) SaveTicket(ctx context.Context, t models.Ticket) error {
	usedAt := ""
	if t.UsedAt != nil {
		usedAt = t.UsedAt.UTC().Format(time.RFC3339Nano)
	}

	err := s.Redis.HSet(ctx, ticketKey(t.ID),
		"owner_id", t.OwnerID,
		"secret", t.Secret,
		"status", string(t.Status),
		"used_at", usedAt,
		"used_by", t.UsedBy,
	).Err()
	if err != nil {
		return fmt.Errorf("saving ticket %s: %w", t.ID, err)
	}

	return nil
}

// DeleteTicket drops the ticket hash. Used to undo a mirror whose insert failed.
func (s *RedisStore) DeleteTicket(ctx context.Context, id string) error {
	if err := s.Redis.Del(ctx, ticketKey(id)).Err(); err != nil {
		return fmt.Errorf("deleting ticket %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) ConditionalUpdateStatus(ctx context.Context, id string, expected, next models.TicketStatus, mark models.UsageMark) (int64, error) {
	usedAt := ""
	if !mark.UsedAt.IsZero() {
		usedAt = mark.UsedAt.UTC().Format(time.RFC3339Nano)
	}

	rows, err := s.Redis.Eval(ctx, conditionalUpdateScript, []string{ticketKey(id)},
		string(expected), string(next), usedAt, mark.UsedBy,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("updating ticket %s: %w", id, err)
	}

	return rows, nil
}
