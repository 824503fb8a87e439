// Command verbsrx-demo exercises receive queue management on an in-memory device.
package main

import (
	"log"
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/usnistgov/verbsrx/core/version"
)

var app = &cli.App{
	Version: version.V.String(),
	Usage:   "Receive queue management demo.",
}

func defineCommand(command *cli.Command) {
	app.Commands = append(app.Commands, command)
}

func main() {
	sort.Sort(cli.CommandsByName(app.Commands))
	e := app.Run(os.Args)
	if e != nil {
		log.Fatal(e)
	}
}
