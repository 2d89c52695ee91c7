package browser

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	url := "http://localhost:8000/#token=abc"
	tests := []struct {
		goos     string
		wantName string
		wantArgs []string
	}{
		{"darwin", "open", []string{url}},
		{"linux", "xdg-open", []string{url}},
		{"freebsd", "xdg-open", []string{url}},
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", url}},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := Command(tt.goos, url)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}

	_, _, err := Command("plan9", url)
	assert.Error(t, err)
}

func TestOpenUsesPlatformCommand(t *testing.T) {
	if _, _, err := Command(runtime.GOOS, "x"); err != nil {
		t.Skip("no browser command for this platform")
	}
	orig := startCommand
	t.Cleanup(func() { startCommand = orig })

	var gotArgs []string
	startCommand = func(name string, args ...string) error {
		gotArgs = args
		return nil
	}
	require.NoError(t, Open("http://localhost:8000"))
	assert.Contains(t, gotArgs, "http://localhost:8000")

	startCommand = func(string, ...string) error { return errors.New("no display") }
	err := Open("http://localhost:8000")
	assert.ErrorContains(t, err, "no display")
}
