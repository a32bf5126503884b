package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag without value at end is kept",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next dash-prefixed token is not a value",
			args:         []string{"-c", "--config=alt.json"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "--config=alt.json"},
		},
		{
			name:         "server flags among foreign ones",
			args:         []string{"-a", ":8080", "-test.v", "-s", "secret", "-other", "x"},
			allowedFlags: []string{"-a", "-s"},
			want:         []string{"-a", ":8080", "-s", "secret"},
		},
		{
			name:         "repeated flag keeps order",
			args:         []string{"-c", "one.json", "-c", "two.json"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin", "-c", "/path/short.json"}
	assert.Equal(t, "/path/short.json", JsonConfigFlags())

	os.Args = []string{"testbin", "-config", "/path/long.json"}
	assert.Equal(t, "/path/long.json", JsonConfigFlags())

	os.Args = []string{"testbin", "-c", "/path/1.json", "--config=/path/2.json"}
	assert.Equal(t, "/path/2.json", JsonConfigFlags())

	os.Args = []string{"testbin", "-x", "1"}
	assert.Empty(t, JsonConfigFlags())
}

func TestEnvFileFlag(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin"}
	assert.Equal(t, ".env", EnvFileFlag())

	os.Args = []string{"testbin", "-env-file", "/etc/senas/auth.env", "-a", ":9000"}
	assert.Equal(t, "/etc/senas/auth.env", EnvFileFlag())
}
