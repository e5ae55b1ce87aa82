package repository

import (
	"sort"
	"strings"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
)

// ClientRegistry indexes client reference data by primary key and by the
// alternate id when it differs.
type ClientRegistry struct {
	byKey map[string]domain.ClientInfo
	keys  []string
}

// NewClientRegistry builds a registry from a cached index.
func NewClientRegistry(index map[string]domain.ClientInfo) *ClientRegistry {
	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &ClientRegistry{byKey: index, keys: keys}
}

// IndexClients keys each client by its id and, when set and different, its
// alternate id. The first client seen for a key wins.
func IndexClients(clients []domain.ClientInfo) map[string]domain.ClientInfo {
	index := make(map[string]domain.ClientInfo, len(clients)*2)
	add := func(key string, c domain.ClientInfo) {
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		if _, exists := index[key]; !exists {
			index[key] = c
		}
	}
	for _, c := range clients {
		add(c.ID, c)
		if c.AltID != c.ID {
			add(c.AltID, c)
		}
	}
	return index
}

func (r *ClientRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byKey)
}

// Resolve returns the client for code, exact key first and then the fuzzy
// fallback of ResolveClient.
func (r *ClientRegistry) Resolve(code string) (domain.ClientInfo, bool) {
	if r == nil {
		return domain.ClientInfo{}, false
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ClientInfo{}, false
	}
	if c, ok := r.byKey[code]; ok {
		return c, true
	}
	return resolveFuzzy(code, r.keys, r.byKey)
}

// ResolveClient matches a client code that is absent from the registry's keys.
// A candidate matches when the code and the candidate key share a prefix
// (each compared up to its first space) or when the candidate's name and
// the code contain one another. Candidates are tried in key order and the
// first match wins.
func ResolveClient(code string, registry map[string]domain.ClientInfo) (domain.ClientInfo, bool) {
	return NewClientRegistry(registry).Resolve(code)
}

func resolveFuzzy(code string, keys []string, byKey map[string]domain.ClientInfo) (domain.ClientInfo, bool) {
	codeHead := firstField(code)
	lowerCode := strings.ToLower(code)

	for _, key := range keys {
		keyHead := firstField(key)
		if keyHead != "" && codeHead != "" &&
			(strings.HasPrefix(codeHead, keyHead) || strings.HasPrefix(keyHead, codeHead)) {
			return byKey[key], true
		}

		name := strings.ToLower(strings.TrimSpace(byKey[key].Name))
		if name != "" && (strings.Contains(lowerCode, name) || strings.Contains(name, lowerCode)) {
			return byKey[key], true
		}
	}
	return domain.ClientInfo{}, false
}

func firstField(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
