package nbtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daios-ai/nbtest/namespace"
)

func Test_CleanTests_DefaultPattern(t *testing.T) {
	// true: removed by the default pattern
	tests := []map[string]bool{
		{"test": true, "foo": false},
		{"test_clean": true, "foo": false},
		{"Test": true, "hello": false},
		{"TestClass": true, "world": false},
		{"Test_Class": true, "world": false},
		{"teST": false, "bar": false},
		{"TEst_Class": false, "world": false},
		{"_test_clean": false, "foo": false},
		{"_Test_Class": false, "world": false},
	}
	for _, spec := range tests {
		ns := namespace.NewMap()
		var want []string
		for k, remove := range spec {
			ns.Store(k, 1)
			if !remove {
				want = append(want, k)
			}
		}
		_, err := CleanTests(ns, "")
		require.NoError(t, err)
		assert.ElementsMatch(t, want, ns.Keys(), "%v", spec)
	}
}

func Test_CleanTests_CustomPattern(t *testing.T) {
	ns := namespace.NewMap()
	for _, k := range []string{"check_a", "test_a", "check_b", "helper"} {
		ns.Store(k, nil)
	}
	removed, err := CleanTests(ns, "check_*")
	require.NoError(t, err)
	assert.Equal(t, []string{"check_a", "check_b"}, removed)
	assert.Equal(t, []string{"test_a", "helper"}, ns.Keys())

	_, err = CleanTests(ns, "[")
	assert.Error(t, err)
}

func Test_ForceReload(t *testing.T) {
	tests := []struct {
		include string
		want    []string
	}{
		{"foo", []string{}},
		{"foo.bar", []string{"foo", "foo.baz"}},
		{"f", []string{"foo", "foo.bar", "foo.baz"}},
	}
	for _, tt := range tests {
		reg := namespace.NewTable()
		for _, name := range []string{"foo", "foo.bar", "foo.baz"} {
			require.NoError(t, reg.Insert(name, namespace.NewMap()))
		}
		ForceReload(reg, tt.include)
		assert.ElementsMatch(t, tt.want, reg.Names(), tt.include)
	}
}

func Test_ForceReload_ReportsDropped(t *testing.T) {
	reg := namespace.NewTable()
	for _, name := range []string{"a", "a.b", "ab", "c"} {
		require.NoError(t, reg.Insert(name, namespace.NewMap()))
	}
	assert.Equal(t, []string{"a", "a.b", "c"}, ForceReload(reg, "a", "c", "missing"))
	assert.Equal(t, []string{"ab"}, reg.Names())
}
