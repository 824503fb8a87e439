package jsonhelper_test

import (
	"testing"

	"github.com/usnistgov/verbsrx/core/jsonhelper"
	"github.com/usnistgov/verbsrx/core/testenv"
)

type roundtripTest struct {
	Promisc  bool `json:"promisc"`
	AllMulti bool `json:"allMulti"`
}

func TestRoundtrip(t *testing.T) {
	assert, _ := testenv.MakeAR(t)

	var v roundtripTest
	assert.NoError(jsonhelper.Roundtrip(map[string]any{"promisc": true, "x": 1}, &v))
	assert.True(v.Promisc)
	assert.False(v.AllMulti)

	assert.Error(jsonhelper.Roundtrip(map[string]any{"x": 1}, &v, jsonhelper.DisallowUnknownFields))
	assert.Error(jsonhelper.Roundtrip(func() {}, &v))
}
