package nbtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FormatArg(t *testing.T) {
	tests := []struct {
		arg  string
		want string
	}{
		{"-q", "-q"},
		{"plain", "plain"},
		{"{test_one}", "t_xyz::test_one"},
		{"{MODULE}", "t_xyz"},
		{"{testCamel}", "t_xyz::testCamel"},
		{"{MODULE}.nbt::test_a", "t_xyz.nbt::test_a"},
		{"{MODULE}::test_a", "t_xyz::test_a"},
		{"x{{y}}", "x{y}"},
		{"{{MODULE}}", "{MODULE}"},
		{"{test_a} or {test_b}", "t_xyz::test_a or t_xyz::test_b"},
		{"{_}", "t_xyz::_"},
		{"{1}", "t_xyz::1"},
		{"{Test_1}", "t_xyz::Test_1"},
	}
	for _, tt := range tests {
		got, err := FormatArg(tt.arg, "t_xyz")
		require.NoError(t, err, tt.arg)
		assert.Equal(t, tt.want, got, tt.arg)
	}
}

func Test_FormatArg_Errors(t *testing.T) {
	_, err := FormatArg("{DUMMY}", "t_xyz")
	var kerr *TemplateKeyError
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, "DUMMY", kerr.Key)

	for _, arg := range []string{"{TEST_1}", "{X}"} {
		_, err = FormatArg(arg, "t_xyz")
		assert.True(t, errors.As(err, &kerr), arg)
	}

	for _, arg := range []string{"{}", "{test", "a}b", "{a{b}"} {
		_, err := FormatArg(arg, "t_xyz")
		var terr *TemplateError
		assert.True(t, errors.As(err, &terr), arg)
	}
}

func Test_ResolveArgs(t *testing.T) {
	const mod = "t_abc123"
	tests := []struct {
		name    string
		mode    DefOpts
		addopts []string
		args    []string
		want    []string
	}{
		{"auto keeps explicit selector", DefOptsAuto, nil, []string{"t_abc123::test1"}, []string{"t_abc123::test1"}},
		{"auto appends after -k", DefOptsAuto, nil, []string{"-k", "test1"}, []string{"-k", "test1", mod}},
		{"auto ignores -k value", DefOptsAuto, nil, []string{"-k", "t_abc123"}, []string{"-k", "t_abc123", mod}},
		{"auto ignores --deselect value", DefOptsAuto, nil, []string{"--deselect", "{test2}"}, []string{"--deselect", "t_abc123::test2", mod}},
		{"auto expands templates first", DefOptsAuto, nil, []string{"{test1}"}, []string{"t_abc123::test1"}},
		{"auto with module template", DefOptsAuto, nil, []string{"{MODULE}::test1"}, []string{"t_abc123::test1"}},
		{"addopts come first", DefOptsAuto, []string{"-x"}, []string{"-q"}, []string{"-x", "-q", mod}},
		{"addopts may select", DefOptsAuto, []string{"{test1}"}, nil, []string{"t_abc123::test1"}},
		{"empty mode is auto", "", nil, nil, []string{mod}},
		{"always appends", DefOptsAlways, nil, []string{"t_abc123::test1"}, []string{"t_abc123::test1", mod}},
		{"never appends nothing", DefOptsNever, nil, nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveArgs(mod, tt.addopts, tt.args, tt.mode, DefaultSelectionRules)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_ResolveArgs_CustomRules(t *testing.T) {
	rules := SelectionRules{OptionPrefix: "-", ValueFlags: []string{"--only"}}
	got, err := ResolveArgs("t_m", nil, []string{"--only", "t_m::x"}, DefOptsAuto, rules)
	require.NoError(t, err)
	assert.Equal(t, []string{"--only", "t_m::x", "t_m"}, got)

	// -k is not a value flag under these rules
	got, err = ResolveArgs("t_m", nil, []string{"-k", "t_m"}, DefOptsAuto, rules)
	require.NoError(t, err)
	assert.Equal(t, []string{"-k", "t_m"}, got)
}

func Test_ResolveArgs_Errors(t *testing.T) {
	_, err := ResolveArgs("t_m", nil, []string{"{DUMMY}"}, DefOptsAuto, DefaultSelectionRules)
	var kerr *TemplateKeyError
	assert.True(t, errors.As(err, &kerr))

	_, err = ResolveArgs("t_m", nil, nil, DefOpts("sometimes"), DefaultSelectionRules)
	assert.Error(t, err)
}

func Test_ParseDefOpts(t *testing.T) {
	for in, want := range map[string]DefOpts{
		"always": DefOptsAlways, "True": DefOptsAlways, "1": DefOptsAlways,
		"never": DefOptsNever, "false": DefOptsNever, "0": DefOptsNever,
		"auto": DefOptsAuto, "": DefOptsAuto,
	} {
		got, err := ParseDefOpts(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDefOpts("maybe")
	assert.Error(t, err)
}
