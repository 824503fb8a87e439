package yamlflag_test

import (
	"flag"
	"os"
	"testing"

	"github.com/usnistgov/verbsrx/core/testenv"
	"github.com/usnistgov/verbsrx/core/yamlflag"
)

var makeAR = testenv.MakeAR

type yamlTestConfig struct {
	NRxQueues int      `json:"nRxQueues"`
	RssHf     []string `json:"rssHf"`
}

func TestYamlFlag(t *testing.T) {
	assert, require := makeAR(t)

	var cfg yamlTestConfig
	var fs flag.FlagSet
	fs.Var(yamlflag.New(&cfg), "c", "")

	require.NoError(fs.Parse([]string{"-c", "nRxQueues: 4\nrssHf: [ipv4, tcp]"}))
	assert.Equal(4, cfg.NRxQueues)
	assert.Equal([]string{"ipv4", "tcp"}, cfg.RssHf)
	assert.Equal(`{"nRxQueues":4,"rssHf":["ipv4","tcp"]}`, fs.Lookup("c").Value.String())

	filename := testenv.TempName(t, "config.yaml")
	require.NoError(os.WriteFile(filename, []byte("nRxQueues: 7\n"), 0o644))
	require.NoError(fs.Parse([]string{"-c", "@" + filename}))
	assert.Equal(7, cfg.NRxQueues)

	assert.Error(fs.Parse([]string{"-c", "@" + filename + ".missing"}))
	assert.Error(fs.Parse([]string{"-c", "nRxQueue: 4"}))
	assert.Error(fs.Parse([]string{"-c", "nRxQueues: [1"}))
	assert.Panics(func() { yamlflag.New(cfg) })
}
