package normalize

import "strings"

// Drop reasons reported in diagnostics
const (
	DropMalformed = "malformed"
	DropDuplicate = "duplicate"
	DropBot       = "bot"
)

// preprocess removes repeated (source, id) records and, when enabled, bot
// accounts. Records without an id are never treated as duplicates.
func preprocess(events []RawSourceEvent, excludeBots bool, dropped map[string]int) []RawSourceEvent {
	seen := make(map[string]struct{}, len(events))
	cleaned := make([]RawSourceEvent, 0, len(events))

	for _, ev := range events {
		if ev.ID != "" {
			key := string(ev.Source) + "\x00" + ev.ID
			if _, dup := seen[key]; dup {
				dropped[DropDuplicate]++
				continue
			}
			seen[key] = struct{}{}
		}

		if excludeBots && isBot(ev) {
			dropped[DropBot]++
			continue
		}

		cleaned = append(cleaned, ev)
	}

	return cleaned
}

// isBot applies basic bot heuristics: an explicit is_bot flag or a
// "[bot]"-suffixed actor as used by code hosting apps
func isBot(ev RawSourceEvent) bool {
	if ev.metaBool("is_bot") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(ev.Actor), "[bot]")
}
