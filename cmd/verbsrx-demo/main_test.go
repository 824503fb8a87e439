package main

import (
	"testing"

	"github.com/usnistgov/verbsrx/core/testenv"
)

func TestRun(t *testing.T) {
	_, require := testenv.MakeAR(t)
	require.NoError(app.Run([]string{"verbsrx-demo", "run", "--config", `
name: demo-test
port:
  nRxQueues: 3
  promisc: true
  rxqInterrupt: true
desc: 64
socket: any
pool:
  capacity: 1023
`}))
}

func TestCatalog(t *testing.T) {
	_, require := testenv.MakeAR(t)
	require.NoError(app.Run([]string{"verbsrx-demo", "catalog", "--rss-hf", "ip|tcp", "--rxqs", "2"}))
	require.Error(app.Run([]string{"verbsrx-demo", "catalog", "--rss-hf", "bogus"}))
}
