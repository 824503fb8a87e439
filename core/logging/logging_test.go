package logging_test

import (
	"testing"

	"github.com/usnistgov/verbsrx/core/logging"
	"github.com/usnistgov/verbsrx/core/testenv"
)

func TestLevels(t *testing.T) {
	assert, require := testenv.MakeAR(t)
	t.Setenv("VERBSRX_LOG", "W")
	t.Setenv("VERBSRX_LOG_LoggingTestB", "D")

	a := logging.GetLevel("LoggingTestA")
	assert.EqualValues('W', a.Level())
	b := logging.GetLevel("LoggingTestB")
	assert.EqualValues('D', b.Level())
	assert.Same(a, logging.GetLevel("LoggingTestA"))

	logger := logging.New("LoggingTestA")
	assert.False(logger.Core().Enabled(-1)) // debug
	a.SetLevel("D")
	assert.True(logger.Core().Enabled(-1))
	a.SetLevel("bogus")
	assert.EqualValues('I', a.Level())

	found := logging.FindLevel("LoggingTestB")
	require.NotNil(found)
	assert.Equal("LoggingTestB", found.Package())
	assert.Nil(logging.FindLevel("LoggingTestZ"))

	var names []string
	for _, pl := range logging.ListLevels() {
		names = append(names, pl.Package())
	}
	assert.Subset(names, []string{"LoggingTestA", "LoggingTestB"})
	assert.IsIncreasing(names)
}

func TestParseLevel(t *testing.T) {
	assert, _ := testenv.MakeAR(t)

	for input, expected := range map[string]byte{
		"V":     'V',
		"W":     'W',
		"N":     'N',
		"debug": 'D',
		"warn":  'W',
		"error": 'E',
		"fatal": 'F',
		"":      'I',
		"x":     'I',
		"bogus": 'I',
	} {
		letter, _ := logging.ParseLevel(input)
		assert.Equal(expected, letter, "%q", input)
	}
}
