package peardb

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// mergeCredentials returns dsn with username and password applied the way
// driverName expects them. Empty credentials leave the DSN untouched, as do
// drivers without a notion of credentials (sqlite3).
func mergeCredentials(driverName, dsn, username, password string) (string, error) {
	if username == "" && password == "" {
		return dsn, nil
	}

	switch driverName {
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("peardb: parse mysql dsn: %w", err)
		}
		if username != "" {
			cfg.User = username
		}
		if password != "" {
			cfg.Passwd = password
		}
		return cfg.FormatDSN(), nil

	case "postgres", "postgresql", "pgx", "pgx/v5", "cloudsqlpostgres":
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			return mergeURLCredentials(dsn, username, password)
		}
		return mergeKeywordCredentials(dsn, username, password), nil
	}

	return dsn, nil
}

func mergeURLCredentials(dsn, username, password string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("peardb: parse postgres url: %w", err)
	}

	if u.User != nil {
		if username == "" {
			username = u.User.Username()
		}
		if existing, ok := u.User.Password(); ok && password == "" {
			password = existing
		}
	}

	if password == "" {
		u.User = url.User(username)
	} else {
		u.User = url.UserPassword(username, password)
	}
	return u.String(), nil
}

// mergeKeywordCredentials appends user/password to a key=value connection
// string. libpq uses the last occurrence of a keyword.
func mergeKeywordCredentials(dsn, username, password string) string {
	parts := []string{strings.TrimSpace(dsn)}
	if username != "" {
		parts = append(parts, "user="+quoteKeywordValue(username))
	}
	if password != "" {
		parts = append(parts, "password="+quoteKeywordValue(password))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func quoteKeywordValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
