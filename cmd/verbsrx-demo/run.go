package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/usnistgov/verbsrx/core/gqlserver"
	_ "github.com/usnistgov/verbsrx/core/logging/logginggql"
	"github.com/usnistgov/verbsrx/core/yamlflag"
	"github.com/usnistgov/verbsrx/dpdk/eal"
	"github.com/usnistgov/verbsrx/dpdk/pktmbuf"
	"github.com/usnistgov/verbsrx/dpdk/verbs/mockverbs"
	"github.com/usnistgov/verbsrx/rxport"
	"github.com/usnistgov/verbsrx/rxq"
)

// demoConfig is the YAML document accepted by the run command.
type demoConfig struct {
	Name         string             `json:"name"`
	Capabilities rxq.Capabilities   `json:"capabilities"`
	Port         rxport.Config      `json:"port"`
	Desc         int                `json:"desc"`
	Socket       eal.NumaSocket     `json:"socket"`
	Pool         pktmbuf.PoolConfig `json:"pool"`
}

type portStatus struct {
	Name      string                 `json:"name"`
	Config    rxport.Config          `json:"config"`
	Queues    []rxport.QueueInfo     `json:"queues"`
	IndTables int                    `json:"indTables"`
	HashRxqs  []rxport.HashRxqInfo   `json:"hashRxqs"`
	IntrVec   []int                  `json:"intrVec,omitempty"`
	Objects   map[mockverbs.Kind]int `json:"objects"`
}

func collectStatus(port *rxport.Port, dev *mockverbs.Context) (st portStatus) {
	st.Name = port.Name()
	st.Config = port.Config()
	st.Queues = port.Queues()
	st.IndTables = port.CountIndTables()
	st.HashRxqs = port.HashRxqs()
	if t := port.IntrVec(); t.Enabled() {
		st.IntrVec = t.Vec
	}
	st.Objects = dev.LiveCounts()
	return
}

func init() {
	cfg := demoConfig{
		Name: "demo0",
		Port: rxport.Config{NRxQueues: 4},
		Desc: 256,
	}
	var listen string
	defineCommand(&cli.Command{
		Name:  "run",
		Usage: "Create a port on an in-memory device and show its receive resources.",
		Flags: []cli.Flag{
			&cli.GenericFlag{
				Name:  "config",
				Usage: "demo `configuration` in YAML, or @file.yaml",
				Value: yamlflag.New(&cfg),
			},
			&cli.StringFlag{
				Name:        "gqlserver",
				Usage:       "serve GraphQL at `address` until interrupted",
				Destination: &listen,
			},
		},
		Action: func(c *cli.Context) (e error) {
			dev := mockverbs.New(cfg.Name)
			pd, e := dev.AllocPD()
			if e != nil {
				return e
			}
			defer func() { e = multierr.Append(e, pd.Close()) }()

			pool, e := pktmbuf.NewPool(cfg.Pool, cfg.Socket)
			if e != nil {
				return e
			}
			defer func() { e = multierr.Append(e, pool.Close()) }()

			port, e := rxport.New(cfg.Name, dev, pd, cfg.Capabilities, cfg.Port)
			if e != nil {
				return e
			}
			defer func() { e = multierr.Append(e, port.Close()) }()

			for i := range port.Config().NRxQueues {
				if e := port.RxQueueSetup(i, cfg.Desc, cfg.Socket, pool); e != nil {
					return e
				}
			}
			if e := port.Start(); e != nil {
				return e
			}
			if e := printJSON(collectStatus(port, dev)); e != nil {
				return e
			}

			if listen != "" {
				server, e := gqlserver.Start(listen)
				if e != nil {
					return e
				}
				ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				<-ctx.Done()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if e := server.Shutdown(shutdownCtx); e != nil {
					log.Print(e)
				}
			}

			port.Stop()
			return nil
		},
	})
}
