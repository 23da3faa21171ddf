package service

import (
	"discord-giveaway-bot/internal/utils/random"
)

// SelectWinners draws min(count, len(entrants)) distinct entrants uniformly at
// random, in draw order. An empty entrant set yields an empty slice.
func SelectWinners(entrants []string, count int) ([]string, error) {
	if count < 0 {
		return nil, ErrNothingToSelect
	}
	unique := dedupe(entrants)
	if len(unique) == 0 || count == 0 {
		return []string{}, nil
	}
	return random.Sample(unique, count)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
