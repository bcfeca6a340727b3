package app

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectConfigPath(t *testing.T) string {
	t.Helper()

	projectRoot, err := filepath.Abs("../")
	require.NoError(t, err)

	return filepath.Join(projectRoot, "etc")
}

func TestConfigPathFromEnvironment(t *testing.T) {
	t.Setenv("LDAPSSO_CONFIG_PATH", "/srv/ldapsso/etc")

	assert.Equal(t, "/srv/ldapsso/etc/", configPath())
}

func TestConfigDump(t *testing.T) {
	viper.Set(keyConfigPath, projectConfigPath(t))
	t.Cleanup(func() { viper.Set(keyConfigPath, nil) })

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "toml", args: []string{"config", "dump"}, want: `Host = "ldap.example.org"`},
		{name: "json", args: []string{"config", "dump", "--json"}, want: `"Host": "ldap.example.org"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			rootCmd.SetOut(&out)
			rootCmd.SetArgs(tt.args)
			t.Cleanup(func() { dumpJSON = false })

			require.NoError(t, rootCmd.Execute())
			assert.Contains(t, out.String(), tt.want)
			assert.NotContains(t, out.String(), "secret")
		})
	}
}

func TestMask(t *testing.T) {
	assert.Empty(t, mask(""))
	assert.Equal(t, "********", mask("secret"))
}
