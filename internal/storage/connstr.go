package storage

import (
	"net/url"
	"strings"
)

// IsPostgresConnString reports whether target names a PostgreSQL database rather than a
// SQLite file path.
func IsPostgresConnString(target string) bool {
	return strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://")
}

// HasEmbeddedCredentials reports whether a PostgreSQL connection string carries a password,
// in either URL or key=value form.
func HasEmbeddedCredentials(connStr string) bool {
	if IsPostgresConnString(connStr) {
		u, err := url.Parse(connStr)
		if err != nil {
			return false
		}
		if _, ok := u.User.Password(); ok {
			return true
		}
		for key := range u.Query() {
			if strings.EqualFold(key, "password") {
				return true
			}
		}
		return false
	}

	for _, pair := range strings.Fields(connStr) {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 && strings.EqualFold(strings.TrimSpace(kv[0]), "password") {
			return true
		}
	}
	return false
}
