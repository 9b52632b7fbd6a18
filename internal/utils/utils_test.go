package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPtr(t *testing.T) {
	v := 42
	p := Ptr(v)

	assert.NotNil(t, p)
	assert.Equal(t, 42, *p)

	v = 100 // original value changed; pointer should still hold 42
	assert.Equal(t, 42, *p)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/base", "rel.txt"), ResolvePath("rel.txt", "/base"))
	assert.Equal(t, "/abs/file.txt", ResolvePath("/abs/file.txt", "/base"))
	assert.Equal(t, "", ResolvePath("", "/base"))
}

func TestResolvePaths(t *testing.T) {
	assert.Nil(t, ResolvePaths(nil, "/base"))

	got := ResolvePaths([]string{"a.txt", "/abs/b.txt", "sub/c.txt"}, "/base")
	assert.Equal(t, []string{
		filepath.Join("/base", "a.txt"),
		"/abs/b.txt",
		filepath.Join("/base", "sub", "c.txt"),
	}, got)
}

func TestTaskLogger(t *testing.T) {
	assert.NotNil(t, TaskLogger("task-001"))
	assert.NotNil(t, PairLogger("task-001", "gpt-5", 1))
}
