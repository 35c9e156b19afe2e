package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Key schema. Revisions and snapshots are the hot read path; both locks are
// short-lived and self-expiring.
//
//	rev:<school>              current schedule revision (integer)
//	snap:<school>:<rev>       snapshot body and tag for one revision
//	bump_lock:<school>        debounce marker collapsing bump storms
//	build_lock:<school>       single-flight build lock (token value)
//	ratelimit:<token>:<dev>   fixed-window request counter
//	school:<school>           pub/sub channel carrying invalidations

func revKey(school int64) string {
	return fmt.Sprintf("rev:%d", school)
}

func snapKey(school, rev int64) string {
	return fmt.Sprintf("snap:%d:%d", school, rev)
}

func snapPattern(school int64) string {
	return fmt.Sprintf("snap:%d:*", school)
}

func bumpLockKey(school int64) string {
	return fmt.Sprintf("bump_lock:%d", school)
}

func buildLockKey(school int64) string {
	return fmt.Sprintf("build_lock:%d", school)
}

func rateKey(token, device string) string {
	return fmt.Sprintf("ratelimit:%s:%s", token, device)
}

func channelName(school int64) string {
	return fmt.Sprintf("school:%d", school)
}

const channelPattern = "school:*"

func revFromSnapKey(key string) (int64, error) {
	idx := strings.LastIndexByte(key, ':')
	if idx < 0 || idx == len(key)-1 {
		return 0, errors.Errorf("malformed snapshot key %q", key)
	}
	return strconv.ParseInt(key[idx+1:], 10, 64)
}

func schoolFromChannel(channel string) (int64, error) {
	idx := strings.LastIndexByte(channel, ':')
	if idx < 0 || idx == len(channel)-1 {
		return 0, errors.Errorf("malformed channel name %q", channel)
	}
	return strconv.ParseInt(channel[idx+1:], 10, 64)
}
