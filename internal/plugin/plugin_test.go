package plugin_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
)

type levelStub struct{ gotDifficulty plugin.Difficulty }

func (l *levelStub) GenerateWorksheet(d plugin.Difficulty, count int) ([]plugin.Problem, error) {
	l.gotDifficulty = d
	return make([]plugin.Problem, count), nil
}

type countStub struct{ err error }

func (c *countStub) GenerateWorksheet(count int) ([]plugin.Problem, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([]plugin.Problem, count)
	for i := range out {
		out[i].LaTeX = "1+1"
	}
	return out, nil
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    plugin.Difficulty
		wantErr bool
	}{
		{"easy", plugin.Easy, false},
		{" Hard ", plugin.Hard, false},
		{"CHALLENGE", plugin.Challenge, false},
		{"", "", false},
		{"extreme", "", true},
	}
	for _, tt := range tests {
		got, err := plugin.ParseDifficulty(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDifficulty(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDifficulty(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDifficultyTitle(t *testing.T) {
	assert.Equal(t, "Easy", plugin.Easy.Title())
	assert.Equal(t, "Challenge", plugin.Challenge.Title())
	assert.Equal(t, "", plugin.Difficulty("").Title())
}

func TestParseSignature(t *testing.T) {
	sig, err := plugin.ParseSignature("leveled")
	require.NoError(t, err)
	assert.Equal(t, plugin.SignatureLeveled, sig)

	_, err = plugin.ParseSignature("variadic")
	assert.Error(t, err)
}

func TestLeveledDispatch(t *testing.T) {
	stub := &levelStub{}
	c := plugin.LeveledConstructor(func() plugin.Leveled { return stub })
	require.Equal(t, plugin.SignatureLeveled, c.Signature())

	inst, err := c.New()
	require.NoError(t, err)

	problems, err := inst.Generate(plugin.Hard, 3)
	require.NoError(t, err)
	assert.Len(t, problems, 3)
	assert.Equal(t, plugin.Hard, stub.gotDifficulty)

	// Missing difficulty falls back to easy.
	_, err = inst.Generate("", 1)
	require.NoError(t, err)
	assert.Equal(t, plugin.Easy, stub.gotDifficulty)
}

func TestCountedIgnoresDifficulty(t *testing.T) {
	c := plugin.CountedConstructor(func() plugin.Counted { return &countStub{} })
	inst, err := c.New()
	require.NoError(t, err)
	assert.Equal(t, plugin.SignatureCounted, inst.Signature())

	problems, err := inst.Generate(plugin.Challenge, 2)
	require.NoError(t, err)
	assert.Len(t, problems, 2)
	assert.Equal(t, "1+1", problems[0].LaTeX)
}

func TestGeneratePropagatesError(t *testing.T) {
	boom := errors.New("bad seed")
	inst, err := plugin.CountedConstructor(func() plugin.Counted { return &countStub{err: boom} }).New()
	require.NoError(t, err)

	_, err = inst.Generate("", 4)
	assert.ErrorIs(t, err, boom)
}

func TestConstructorNewDistinctInstances(t *testing.T) {
	c := plugin.CountedConstructor(func() plugin.Counted { return &countStub{} })
	a, err := c.New()
	require.NoError(t, err)
	b, err := c.New()
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestInvalidConstructor(t *testing.T) {
	var zero plugin.Constructor
	assert.False(t, zero.Valid())
	_, err := zero.New()
	assert.Error(t, err)

	nilFactory := plugin.LeveledConstructor(nil)
	assert.False(t, nilFactory.Valid())

	nilResult := plugin.CountedConstructor(func() plugin.Counted { return nil })
	_, err = nilResult.New()
	assert.Error(t, err)
}

func TestConstructorTypedNil(t *testing.T) {
	leveled := plugin.LeveledConstructor(func() plugin.Leveled {
		var l *levelStub
		return l
	})
	inst, err := leveled.New()
	assert.Nil(t, inst)
	assert.EqualError(t, err, "leveled constructor returned nil")

	counted := plugin.CountedConstructor(func() plugin.Counted {
		var c *countStub
		return c
	})
	_, err = counted.New()
	assert.EqualError(t, err, "counted constructor returned nil")
}

func TestConstructorPanicBecomesError(t *testing.T) {
	c := plugin.CountedConstructor(func() plugin.Counted { panic("no seed") })
	var (
		inst *plugin.Instance
		err  error
	)
	require.NotPanics(t, func() { inst, err = c.New() })
	assert.Nil(t, inst)
	assert.EqualError(t, err, "counted constructor panicked: no seed")
}

func TestGenerateNegativeCount(t *testing.T) {
	inst, err := plugin.CountedConstructor(func() plugin.Counted { return &countStub{} }).New()
	require.NoError(t, err)
	_, err = inst.Generate("", -1)
	assert.Error(t, err)
}
