package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"eventsphere/internal/domain"
)

// Key namespaces. Item, organizer and tag keys embed the raw id so they can be
// deleted precisely; list and search keys hash the full query shape and are
// only ever invalidated as a class.
const (
	itemPrefix      = "events:item:"
	listPrefix      = "events:list:"
	searchPrefix    = "events:search:"
	organizerPrefix = "events:organizer:"
	tagPrefix       = "events:tag:"
)

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func itemKey(eventID string) string {
	return itemPrefix + eventID
}

func listKey(params domain.ListParams) string {
	return listPrefix + sha1Hex(fmt.Sprintf("%s|%d|%d", params.Query, params.Take, params.Skip))
}

func searchKey(filters domain.SearchFilters) string {
	tagIDs := append([]string(nil), filters.TagIDs...)
	sort.Strings(tagIDs)
	return searchPrefix + sha1Hex(filters.Query+"|"+strings.Join(tagIDs, ","))
}

func organizerKey(organizerID string) string {
	return organizerPrefix + organizerID
}

func tagKey(tagID string) string {
	return tagPrefix + tagID
}
