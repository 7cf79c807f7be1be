package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Contains(t, info.String(), "csvpivot version")
	assert.NotContains(t, info.FullString(), "Engine:")

	info.Engine = "sqlite 3.45.1"
	assert.Contains(t, info.FullString(), "Engine: sqlite 3.45.1")
}
