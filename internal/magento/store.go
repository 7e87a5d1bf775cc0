package magento

import (
	"strings"

	"github.com/magerun-tools/syscheck/internal/doctor"
)

// Configuration scopes in core_config_data.
const (
	ScopeDefault  = "default"
	ScopeWebsites = "websites"
	ScopeStores   = "stores"
)

// AdminStoreID is the store that holds admin-only configuration. It is
// never reported as a site.
const AdminStoreID = 0

// Store is one row of core_store.
type Store struct {
	ID        int
	Code      string
	WebsiteID int
}

// ConfigValue is one row of core_config_data.
type ConfigValue struct {
	Scope   string
	ScopeID int
	Path    string
	Value   string
}

type scopeKey struct {
	scope string
	id    int
	path  string
}

// Snapshot is an in-memory copy of the store list and configuration
// table. It resolves values with scope fallback: store, then website,
// then default. A Snapshot is immutable and safe for concurrent reads.
type Snapshot struct {
	stores []Store
	byCode map[string]Store
	values map[scopeKey]string
}

// NewSnapshot builds a Snapshot. Stores keep the given order; the admin
// store is dropped.
func NewSnapshot(stores []Store, values []ConfigValue) *Snapshot {
	s := &Snapshot{
		byCode: make(map[string]Store),
		values: make(map[scopeKey]string, len(values)),
	}
	for _, st := range stores {
		if st.ID == AdminStoreID {
			continue
		}
		s.stores = append(s.stores, st)
		s.byCode[st.Code] = st
	}
	for _, v := range values {
		s.values[scopeKey{v.Scope, v.ScopeID, v.Path}] = v.Value
	}
	return s
}

// raw resolves path for store without placeholder expansion. A nil store
// reads the default scope only.
func (s *Snapshot) raw(path string, store *Store) string {
	if store != nil {
		if v, ok := s.values[scopeKey{ScopeStores, store.ID, path}]; ok {
			return v
		}
		if v, ok := s.values[scopeKey{ScopeWebsites, store.WebsiteID, path}]; ok {
			return v
		}
	}
	return s.values[scopeKey{ScopeDefault, 0, path}]
}

// placeholders maps base URL placeholders to the key they stand for.
var placeholders = map[string]string{
	"{{unsecure_base_url}}": doctor.KeyUnsecureBaseURL,
	"{{secure_base_url}}":   doctor.KeySecureBaseURL,
}

// value resolves path and expands base URL placeholders one level deep.
func (s *Snapshot) value(path string, store *Store) string {
	v := s.raw(path, store)
	if !strings.Contains(v, "{{") {
		return v
	}
	for ph, key := range placeholders {
		if key == path || !strings.Contains(v, ph) {
			continue
		}
		v = strings.ReplaceAll(v, ph, s.raw(key, store))
	}
	return v
}

func (s *Snapshot) lookup(site doctor.Site) *Store {
	if site.Code == "" {
		return nil
	}
	st, ok := s.byCode[site.Code]
	if !ok {
		return nil
	}
	return &st
}

// Read returns the value of key for site. The zero Site reads the
// default scope. Unset keys read as "".
func (s *Snapshot) Read(key string, site doctor.Site) string {
	return s.value(key, s.lookup(site))
}

// Sites returns every non-admin store with its resolved base URLs and
// cookie domain.
func (s *Snapshot) Sites() []doctor.Site {
	out := make([]doctor.Site, 0, len(s.stores))
	for i := range s.stores {
		st := &s.stores[i]
		out = append(out, doctor.Site{
			Code:            st.Code,
			UnsecureBaseURL: s.value(doctor.KeyUnsecureBaseURL, st),
			SecureBaseURL:   s.value(doctor.KeySecureBaseURL, st),
			CookieDomain:    s.value(doctor.KeyCookieDomain, st),
		})
	}
	return out
}
