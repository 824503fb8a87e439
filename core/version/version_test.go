package version_test

import (
	"testing"
	"time"

	"github.com/usnistgov/verbsrx/core/testenv"
	"github.com/usnistgov/verbsrx/core/version"
)

func TestMake(t *testing.T) {
	assert, _ := testenv.MakeAR(t)

	date := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	v, ok := version.Make("0123456789abcdef0123456789abcdef01234567", date, false)
	assert.True(ok)
	assert.Equal("v0.0.0-20240506070809-0123456789ab", v.String())
	assert.False(v.Dirty)

	v, ok = version.Make("0123456789abcdef0123456789abcdef01234567", date, true)
	assert.True(ok)
	assert.Equal("v0.0.0-20240506070809-0123456789ab-dirty", v.String())

	v, ok = version.Make("", date, false)
	assert.False(ok)
	assert.Equal("development", v.String())
	assert.True(v.Dirty)

	assert.NotEmpty(version.V.String())
}
