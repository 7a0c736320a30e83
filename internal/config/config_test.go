package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simgate/sim-gateway/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sim-gateway", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 5*time.Second, cfg.Modem.SendTimeout())
	assert.Equal(t, time.Second, cfg.Modem.PollInterval())
	assert.Equal(t, 20, cfg.Modem.MaxPollAttempts)
	assert.Equal(t, 3, cfg.Modem.MaxPollErrors)
	assert.Equal(t, SlotSourceFile, cfg.Slots.Source)
	assert.Equal(t, "DZ", cfg.Slots.DefaultRegion)
	assert.Equal(t, "ussd:outcomes", cfg.Events.OutcomeChannel)
}

func TestLoad_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MODEM_POLL_INTERVAL_MS", "250")
	t.Setenv("MODEM_MAX_POLL_ATTEMPTS", "40")
	t.Setenv("SLOTS_SOURCE", "postgres")
	t.Setenv("AUTH_DISABLED", "true")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Modem.PollInterval())
	assert.Equal(t, 40, cfg.Modem.MaxPollAttempts)
	assert.Equal(t, SlotSourcePostgres, cfg.Slots.Source)
	assert.True(t, cfg.Auth.Disabled)
	assert.Zero(t, cfg.App.RequestTimeout())
}

func TestLoad_Invalid(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SLOTS_SOURCE", "consul")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SLOTS_SOURCE", "")
	t.Setenv("REDIS_DB", "zero")
	_, err = Load()
	assert.Error(t, err)
}

const sampleSlots = `
[[operator]]
name = "Mobilis"
balance_code = "*222#"
transfer_template = "*600*{amount}*{recipient}*{pin}#"

[[slot]]
number = 3
phone = "0661123456"
operator = "Mobilis"
endpoint = "http://192.168.8.1/"

[[slot]]
number = 1
id = "sim-a"
phone = "+213770000001"
operator = "Djezzy"
endpoint = "http://192.168.9.1"
status = "Error"
`

func TestParseSlotFile(t *testing.T) {
	seed, err := ParseSlotFile([]byte(sampleSlots), "DZ")
	require.NoError(t, err)
	require.Len(t, seed.Slots, 2)

	first := seed.Slots[0]
	assert.Equal(t, 3, first.SlotNumber)
	assert.Equal(t, "slot-3", first.ID)
	assert.Equal(t, "+213661123456", first.PhoneNumber)
	assert.Equal(t, "http://192.168.8.1", first.Endpoint)
	assert.Equal(t, domain.SlotStatusActive, first.Status)

	second := seed.Slots[1]
	assert.Equal(t, "sim-a", second.ID)
	assert.Equal(t, domain.SlotStatusError, second.Status)

	profile, ok := seed.Operators["mobilis"]
	require.True(t, ok)
	assert.Equal(t, "*222#", profile.BalanceCode)
}

func TestParseSlotFile_Rejects(t *testing.T) {
	cases := map[string]string{
		"duplicate": "[[slot]]\nnumber = 1\nendpoint = \"http://a\"\n[[slot]]\nnumber = 1\nendpoint = \"http://b\"\n",
		"zero":      "[[slot]]\nnumber = 0\nendpoint = \"http://a\"\n",
		"endpoint":  "[[slot]]\nnumber = 1\n",
		"busy":      "[[slot]]\nnumber = 1\nendpoint = \"http://a\"\nstatus = \"busy\"\n",
		"phone":     "[[slot]]\nnumber = 1\nendpoint = \"http://a\"\nphone = \"not-a-number\"\n",
		"operator":  "[[operator]]\nbalance_code = \"*1#\"\n",
		"syntax":    "[[slot]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSlotFile([]byte(doc), "DZ")
			assert.Error(t, err)
		})
	}
}

func TestLoadSlotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSlots), 0o600))

	seed, err := LoadSlotFile(path, "DZ")
	require.NoError(t, err)
	assert.Len(t, seed.Slots, 2)

	_, err = LoadSlotFile(filepath.Join(t.TempDir(), "missing.toml"), "DZ")
	assert.Error(t, err)
}

func TestNationalPhone(t *testing.T) {
	national, err := NationalPhone("+213661123456", "DZ")
	require.NoError(t, err)
	assert.Equal(t, "0661123456", national)

	national, err = NationalPhone("0661123456", "DZ")
	require.NoError(t, err)
	assert.Equal(t, "0661123456", national)
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
