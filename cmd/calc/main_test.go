package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCalc_DefaultReport(t *testing.T) {
	out, err := run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "position size: 10.00 USDT")
	assert.Contains(t, out, "Take profit price: 51000.00 USDT (+2%)")
	assert.Contains(t, out, "Loss at stop loss: -0.10 USDT")
	assert.Contains(t, out, "55000.00 USDT (up) / 45000.00 USDT (down)")
}

func TestCalc_FlagsOverrideScenarioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yml")
	require.NoError(t, os.WriteFile(path, []byte("capital: 1000\ninvest_percent: 5\nleverage: 5\n"), 0o644))

	out, err := run(t, "--scenario", path, "--leverage", "20", "--json")
	require.NoError(t, err)

	var got struct {
		Scenario struct {
			Capital  float64
			Leverage int
		} `json:"scenario"`
		Result map[string]string `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1000.0, got.Scenario.Capital)
	assert.Equal(t, 20, got.Scenario.Leverage)
	assert.Equal(t, "1000", got.Result["position_size"])
}

func TestCalc_InvalidLeverage(t *testing.T) {
	_, err := run(t, "--leverage", "200")
	require.Error(t, err)
}
