package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Classroom/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := Load()

	req.NoError(err)
	req.Equal(8080, cfg.Port)
	req.Equal(domain.DefaultMaxMembers, cfg.MaxMembers)
	req.Equal(54*time.Second, cfg.PingPeriod)
	req.Equal(time.Second, cfg.ChatInterval)
	req.Equal("kick", cfg.Policy)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("CLASSROOM_MAX_MEMBERS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3, cfg.MaxMembers)
}

func TestLoadClient_FlagsWin(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("CLASSROOM_ROOM", "from-env")

	fs := ClientFlags("test")
	req.NoError(fs.Parse([]string{"--name", "alice", "--role", "teacher", "--room", "math", "--whiteboard-api", "https://wb.example"}))

	cfg, err := LoadClient(fs)

	req.NoError(err)
	req.Equal("alice", cfg.Name)
	req.Equal("teacher", cfg.Role)
	req.Equal("math", cfg.Room)
	req.Equal("https://wb.example", cfg.WhiteboardAPI)
	req.Equal(10*time.Second, cfg.AckTimeout)
	req.Equal(50*time.Millisecond, cfg.TickInterval)
	req.Equal(domain.DefaultMaxMembers, cfg.MaxMembers)
}

func TestLoadClient_RejectsUnknownRole(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "test")

	fs := ClientFlags("test")
	require.NoError(t, fs.Parse([]string{"--role", "janitor"}))

	_, err := LoadClient(fs)
	require.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestLoad_MalformedFileIsAnError(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "test")
	req.NoError(os.MkdirAll("config", 0o755))
	req.NoError(os.WriteFile("config/client.test.yaml", []byte("name: [alice\nrole: host\n"), 0o644))
	req.NoError(os.WriteFile("config/config.test.yaml", []byte("port: 9090\n"), 0o644))

	_, err := LoadClient(nil)
	req.Error(err)
	req.Contains(err.Error(), "client.test.yaml")

	// a well formed file is still read
	cfg, err := Load()
	req.NoError(err)
	req.Equal(9090, cfg.Port)
}
