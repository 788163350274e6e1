package tapecmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tracetape.org/tracetape/examples"
	"tracetape.org/tracetape/internal/testutil"
	"tracetape.org/tracetape/tapevm"
	"tracetape.org/tracetape/trace"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()
	type testCase struct {
		Name string
		YAML string
		Want *Config
	}
	def := DefaultConfig()
	withDepth := def
	withDepth.MaxDepth = 8
	withDepth.LogLevel = "debug"
	tcs := []testCase{
		{Name: "Empty", YAML: "", Want: &def},
		{Name: "Partial", YAML: "max_depth: 8\nlog_level: debug\n", Want: &withDepth},
		{Name: "Unknown", YAML: "max_deep: 8\n"},
		{Name: "Zero", YAML: "parallelism: 0\n"},
		{Name: "BadLevel", YAML: "log_level: loud\n"},
		{Name: "NotYAML", YAML: "max_depth: [\n"},
	}
	for _, tc := range tcs {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			cfg, err := ParseConfig([]byte(tc.YAML))
			if tc.Want == nil {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, *tc.Want, cfg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	p := filepath.Join(t.TempDir(), "tapec.yaml")
	require.NoError(t, os.WriteFile(p, []byte("max_passes: 10\ncache_size: 2\n"), 0o644))
	cfg, err = LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, 10, cfg.MaxPasses)
	require.Equal(t, 2, cfg.CacheSize)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	l, err := cfg.NewLogger()
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestTraceOptions(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)
	cfg := DefaultConfig()
	cfg.MaxDepth = 1
	ex, ok := examples.Get("scenario")
	require.True(t, ok)
	_, err := trace.Compile(ctx, ex.Traced, ex.Args, cfg.TraceOptions()...)
	require.ErrorAs(t, err, &trace.LimitError{})
}

func TestReadVectors(t *testing.T) {
	t.Parallel()
	in := "# x y\n1 2\n\n  3.5   -4e1 \n"
	vecs, err := ReadVectors(strings.NewReader(in), 2)
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1, 2}, {3.5, -40}}, vecs)

	_, err = ReadVectors(strings.NewReader("1 2 3\n"), 2)
	require.ErrorContains(t, err, "line 1")
	_, err = ReadVectors(strings.NewReader("1 2\n1 x\n"), 2)
	require.ErrorContains(t, err, "line 2")
}

func TestEval(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)
	ex := examples.Scenario()
	tp, err := trace.Compile(ctx, ex.Traced, ex.Args)
	require.NoError(t, err)
	p, err := tapevm.NewProgram(tp)
	require.NoError(t, err)

	in := "0.1 0.1 0.1\n0.4 2 3\n10 1 1\n"
	var out bytes.Buffer
	require.NoError(t, Eval(ctx, p, strings.NewReader(in), &out, 2))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, len(ex.Inputs))
	vecs, err := ReadVectors(strings.NewReader(out.String()), 1)
	require.NoError(t, err)
	for i, xs := range ex.Inputs {
		require.InDeltaSlice(t, ex.Direct(xs), vecs[i], 1e-12)
	}
}

func TestWriteStats(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)
	ex := examples.Scenario()
	tp, err := trace.Compile(ctx, ex.Traced, ex.Args)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, WriteStats(&out, tp))
	s := out.String()
	require.Contains(t, s, "INPUTS:       3\n")
	require.Contains(t, s, "INSTRUCTIONS: 32\n")
	require.Contains(t, s, "BRANCHES:     4\n")
	require.Contains(t, s, "  IFLT  2\n")
}

func TestWriteVectors(t *testing.T) {
	t.Parallel()
	a, b := 0.1, 0.2
	vecs := [][]float64{{a + b, 1}, {-0.5, 1e-300}}
	var out bytes.Buffer
	require.NoError(t, WriteVectors(&out, vecs))
	require.Equal(t, "3.0000000000000004e-01 1.000000000000000e+00\n-5.000000000000000e-01 1.000000000000000e-300\n", out.String())
	vecs2, err := ReadVectors(&out, 2)
	require.NoError(t, err)
	require.Equal(t, vecs, vecs2)
}
