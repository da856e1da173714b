package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMethodSet(t *testing.T) {
	t.Run("case insensitive set", func(t *testing.T) {
		s := NewMethodSet(true, "getTitle")
		assert.True(t, s.Has("gettitle"))
		assert.True(t, s.Has("GETTITLE"))
		assert.False(t, s.Has("setTitle"))
	})

	t.Run("case sensitive set", func(t *testing.T) {
		s := NewMethodSet(false, "GetTitle")
		assert.True(t, s.Has("GetTitle"))
		assert.False(t, s.Has("getTitle"))
	})

	t.Run("zero value is empty and usable", func(t *testing.T) {
		var s MethodSet
		assert.False(t, s.Has("x"))
		assert.Equal(t, 0, s.Len())
		s.Add("x")
		assert.True(t, s.Has("x"))
	})

	t.Run("merge", func(t *testing.T) {
		s := NewMethodSet(true, "a")
		s.Merge(NewMethodSet(true, "B"))
		assert.True(t, s.Has("b"))
		assert.Equal(t, 2, s.Len())
	})
}

func TestOracle(t *testing.T) {
	o := NewOracle()
	o.Register("Post", NewMethodSet(true, "getTitle", "setTitle", "__construct"), NewMethodSet(true, "setTitle"))

	t.Run("method on the class exists", func(t *testing.T) {
		assert.True(t, o.Exists("Post", "getTitle"))
		assert.True(t, o.Exists("Post", "GetTitle"))
	})

	t.Run("method of the companion does not exist", func(t *testing.T) {
		assert.False(t, o.Exists("Post", "setTitle"))
	})

	t.Run("unknown method and class", func(t *testing.T) {
		assert.False(t, o.Exists("Post", "getBody"))
		assert.False(t, o.Exists("Tag", "getTitle"))
	})

	t.Run("missing companion means no methods", func(t *testing.T) {
		o.Register("Tag", NewMethodSet(true, "getName"), MethodSet{})
		assert.True(t, o.Exists("Tag", "getName"))
	})
}
