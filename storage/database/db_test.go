package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-curator/planner/core"
)

func TestDataSourceName(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine:        "postgres",
		Host:          "db.local",
		Port:          5433,
		Name:          "curator",
		User:          "app",
		Password:      "s3cr3t/+",
		AdminUser:     "postgres",
		AdminPassword: "root",
	}}

	tests := []struct {
		name       string
		dbName     string
		admin      bool
		disableTLS bool
		wantUser   string
		wantPass   string
		wantSSL    string
	}{
		{name: "app user", dbName: "curator", wantUser: "app", wantPass: "s3cr3t/+", wantSSL: "require"},
		{name: "admin user", dbName: "postgres", admin: true, wantUser: "postgres", wantPass: "root", wantSSL: "require"},
		{name: "TLS disabled", dbName: "curator", disableTLS: true, wantUser: "app", wantPass: "s3cr3t/+", wantSSL: "disable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf.Database.DisableTLS = tt.disableTLS
			u, err := url.Parse(dataSourceName(tt.dbName, tt.admin, conf))
			require.NoError(t, err)

			assert.Equal(t, "postgres", u.Scheme)
			assert.Equal(t, "db.local:5433", u.Host)
			assert.Equal(t, "/"+tt.dbName, u.Path)
			assert.Equal(t, tt.wantUser, u.User.Username())
			pass, _ := u.User.Password()
			assert.Equal(t, tt.wantPass, pass)
			assert.Equal(t, tt.wantSSL, u.Query().Get("sslmode"))
			assert.Equal(t, "utc", u.Query().Get("timezone"))
		})
	}
}
