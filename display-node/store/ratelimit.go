package store

import (
	"context"

	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var rateWindow = redis.NewScript(`
local n = redis.call("incr", KEYS[1])
if n == 1 then
	redis.call("pexpire", KEYS[1], ARGV[1])
end
return n
`)

// RateCount increments the fixed-window counter for a (token, device) pair
// and returns the count within the current window. The window starts with the
// first request and expires on its own; callers compare the count against the
// configured limit.
func (s *Store) RateCount(ctx context.Context, token, device string) (int64, error) {
	window := params.DisplayConfig().StatusRateWindow
	n, err := rateWindow.Run(ctx, s.client, []string{rateKey(token, device)}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, errors.Wrap(err, "could not count request rate")
	}
	return n, nil
}
