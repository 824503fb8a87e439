package gqlserver_test

import (
	"github.com/usnistgov/verbsrx/core/testenv"
)

var makeAR = testenv.MakeAR
