package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dollar-bars/internal/dollarbar"
	"dollar-bars/internal/model"
	"dollar-bars/internal/saver"
	"dollar-bars/internal/slogx"
	"dollar-bars/internal/source"
	"dollar-bars/internal/source/polygon"
)

var envKeys = []string{"LOG_LEVEL", "PROFILE", "DATA_DIR", "BAR_THRESHOLD", "BAR_MIN_TICKS", "CHUNK_SIZE", "SAVE_FORMAT", "WORKERS", "POLYGON_API_KEY",
	"TICK_SYMBOL_COL", "TICK_TIMESTAMP_COL", "TICK_PRICE_COL", "TICK_VOLUME_COL"}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "100000", cfg.Threshold.String())
	assert.Equal(t, 1, cfg.MinTicks)
	assert.Equal(t, 100000, cfg.ChunkSize)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "parquet", cfg.SaveFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join("data", "bars"), cfg.BarsDir())
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROFILE", "dev")
	t.Setenv("BAR_THRESHOLD", "2500000.50")
	t.Setenv("BAR_MIN_TICKS", "10")
	t.Setenv("WORKERS", "8")
	cfg, err := LoadConfig(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.SaveFormat)
	assert.True(t, cfg.Threshold.Equal(decimal.RequireFromString("2500000.5")))
	assert.Equal(t, dollarbar.Config{Threshold: cfg.Threshold, MinTicks: 10}, cfg.BarConfig())
	assert.Equal(t, 8, cfg.Workers)

	t.Setenv("SAVE_FORMAT", "JSON")
	cfg, err = LoadConfig(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.SaveFormat)
}

func TestOverridesWinOverEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BAR_THRESHOLD", "500")
	t.Setenv("SAVE_FORMAT", "parquet")
	minTicks, chunk := 3, 64
	cfg, err := LoadConfig(Overrides{Threshold: "750", MinTicks: &minTicks, ChunkSize: &chunk, Format: "csv", LogLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "750", cfg.Threshold.String())
	assert.Equal(t, 3, cfg.MinTicks)
	assert.Equal(t, 64, cfg.ChunkSize)
	assert.Equal(t, "csv", cfg.SaveFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigTickColumns(t *testing.T) {
	clearEnv(t)
	t.Setenv("TICK_PRICE_COL", "px")
	t.Setenv("TICK_VOLUME_COL", "qty")
	cfg, err := LoadConfig(Overrides{Columns: ColumnsConfig{Volume: "size", Timestamp: "ts"}})
	require.NoError(t, err)
	assert.Equal(t, ColumnsConfig{Timestamp: "ts", Price: "px", Volume: "size"}, cfg.Columns)
	assert.Len(t, cfg.SourceOptions(), 1)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		o    Overrides
		is   error
	}{
		{name: "zero threshold", env: map[string]string{"BAR_THRESHOLD": "0"}, is: dollarbar.ErrInvalidConfig},
		{name: "negative min ticks", env: map[string]string{"BAR_MIN_TICKS": "-1"}, is: dollarbar.ErrInvalidConfig},
		{name: "bad threshold flag", o: Overrides{Threshold: "lots"}},
		{name: "unknown format", env: map[string]string{"SAVE_FORMAT": "xml"}},
		{name: "zero chunk", env: map[string]string{"CHUNK_SIZE": "0"}},
		{name: "unparsable threshold", env: map[string]string{"BAR_THRESHOLD": "1e"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(tc.o)
			require.Error(t, err)
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
		})
	}
}

func newTestApp(t *testing.T, format string) *App {
	t.Helper()
	cfg := &Config{
		LogLevel:   "error",
		DataDir:    t.TempDir(),
		Threshold:  decimal.NewFromInt(1000),
		MinTicks:   1,
		ChunkSize:  4,
		SaveFormat: format,
		Workers:    2,
	}
	require.NoError(t, cfg.Validate())
	bars, err := ProvideBarConfig(cfg)
	require.NoError(t, err)
	out, err := ProvideOutput(cfg)
	require.NoError(t, err)
	return &App{Config: cfg, Logger: slogx.New(io.Discard, cfg.LogLevel), Bars: bars, Output: out}
}

// writeTicks writes n ticks of 100 dollars each, one second apart starting at start.
func writeTicks(t *testing.T, path string, start time.Time, n int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("symbol,timestamp,price,volume\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "BTC,%s,10,10\n", start.Add(time.Duration(i)*time.Second).Format(time.RFC3339))
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

var day1 = time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Count(string(data), "\n")
}

func TestRunBuildWritesBarsAndStats(t *testing.T) {
	a := newTestApp(t, saver.FormatCSV)
	dir := t.TempDir()
	in1, in2 := filepath.Join(dir, "d1.csv"), filepath.Join(dir, "d2.csv")
	writeTicks(t, in1, day1, 15)
	writeTicks(t, in2, day1.Add(24*time.Hour), 10)

	var table bytes.Buffer
	require.NoError(t, a.RunBuild(context.Background(), BuildRequest{Inputs: []string{in1, in2}}, &table))

	// 25 ticks of 100: two full bars and one partial, plus header
	out := filepath.Join(a.Config.BarsDir(), "d1.csv")
	assert.Equal(t, 4, countLines(t, out))
	assert.Contains(t, table.String(), "d1.csv+d2.csv")
}

func TestRunBuildRejectsOutOfOrderFiles(t *testing.T) {
	a := newTestApp(t, saver.FormatCSV)
	dir := t.TempDir()
	in1, in2 := filepath.Join(dir, "d1.csv"), filepath.Join(dir, "d2.csv")
	writeTicks(t, in1, day1, 5)
	writeTicks(t, in2, day1, 5)

	err := a.RunBuild(context.Background(), BuildRequest{Inputs: []string{in2, in1}, Out: filepath.Join(dir, "out.csv")}, io.Discard)
	assert.ErrorIs(t, err, dollarbar.ErrOutOfOrderTick)
}

func TestRunBuildWithCheckpointContinuesAcrossRuns(t *testing.T) {
	a := newTestApp(t, saver.FormatCSV)
	dir := t.TempDir()
	cp := filepath.Join(dir, "state", "cp.json")
	in1, in2 := filepath.Join(dir, "d1.csv"), filepath.Join(dir, "d2.csv")
	writeTicks(t, in1, day1, 15)
	writeTicks(t, in2, day1.Add(24*time.Hour), 15)

	out1, out2 := filepath.Join(dir, "b1.csv"), filepath.Join(dir, "b2.csv")
	require.NoError(t, a.RunBuild(context.Background(), BuildRequest{Inputs: []string{in1}, Out: out1, Checkpoint: cp}, io.Discard))
	require.NoError(t, a.RunBuild(context.Background(), BuildRequest{Inputs: []string{in2}, Out: out2, Checkpoint: cp}, io.Discard))

	// 30 ticks of 100 close exactly three bars: one on day one, two on day two
	assert.Equal(t, 2, countLines(t, out1))
	assert.Equal(t, 3, countLines(t, out2))

	agg, restored, err := a.aggregatorFor(cp)
	require.NoError(t, err)
	assert.True(t, restored)
	_, open := agg.Pending()
	assert.False(t, open)
}

func TestRunBuildFinalFlushesCheckpointedSeries(t *testing.T) {
	a := newTestApp(t, saver.FormatCSV)
	var sinks []*saver.MemorySink
	a.Output.Open = func(string) (saver.BarSink, error) {
		s := &saver.MemorySink{}
		sinks = append(sinks, s)
		return s, nil
	}
	dir := t.TempDir()
	cp := filepath.Join(dir, "cp.json")
	inputs := []struct {
		start time.Time
		n     int
	}{{day1, 15}, {day1.Add(24 * time.Hour), 12}, {day1.Add(48 * time.Hour), 8}}
	for i, in := range inputs {
		path := filepath.Join(dir, fmt.Sprintf("d%d.csv", i))
		writeTicks(t, path, in.start, in.n)
		req := BuildRequest{Inputs: []string{path}, Out: filepath.Join(dir, "out.csv"), Checkpoint: cp, Final: i == len(inputs)-1}
		require.NoError(t, a.RunBuild(context.Background(), req, io.Discard))
	}

	var bars []model.Bar
	for _, s := range sinks {
		assert.True(t, s.Closed)
		bars = append(bars, s.Bars...)
	}
	dv, ticks := decimal.Zero, 0
	for _, b := range bars {
		dv = dv.Add(b.DollarValue)
		ticks += b.TickCount
	}
	// 35 ticks of 100: three threshold bars and a 500 flush
	require.Len(t, bars, 4)
	assert.True(t, dv.Equal(decimal.NewFromInt(3500)), "got %s", dv)
	assert.Equal(t, 35, ticks)
	assert.Equal(t, model.ClosedByFlush, bars[3].Closure)
	assert.True(t, bars[3].DollarValue.Equal(decimal.NewFromInt(500)))
	assert.NoFileExists(t, cp)
}

func TestRunBuildFinalWithoutCheckpointFile(t *testing.T) {
	a := newTestApp(t, saver.FormatCSV)
	dir := t.TempDir()
	in, out := filepath.Join(dir, "d1.csv"), filepath.Join(dir, "b1.csv")
	writeTicks(t, in, day1, 15)

	cp := filepath.Join(dir, "missing.json")
	require.NoError(t, a.RunBuild(context.Background(), BuildRequest{Inputs: []string{in}, Out: out, Checkpoint: cp, Final: true}, io.Discard))
	// one full bar and the flushed half, plus header
	assert.Equal(t, 3, countLines(t, out))
	assert.NoFileExists(t, cp)
}

func TestRunBuildMapsTickColumns(t *testing.T) {
	a := newTestApp(t, saver.FormatCSV)
	a.Config.Columns = ColumnsConfig{Symbol: "sym", Timestamp: "ts", Price: "px", Volume: "qty"}
	dir := t.TempDir()
	in, out := filepath.Join(dir, "mapped.csv"), filepath.Join(dir, "bars.csv")
	var b strings.Builder
	b.WriteString("ts,sym,qty,px\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "%s,BTC,10,10\n", day1.Add(time.Duration(i)*time.Second).Format(time.RFC3339))
	}
	require.NoError(t, os.WriteFile(in, []byte(b.String()), 0644))

	require.NoError(t, a.RunBuild(context.Background(), BuildRequest{Inputs: []string{in}, Out: out}, io.Discard))
	assert.Equal(t, 3, countLines(t, out))
}

func TestRunBuildRejectsMixedSymbols(t *testing.T) {
	a := newTestApp(t, saver.FormatCSV)
	dir := t.TempDir()
	in := filepath.Join(dir, "mixed.csv")
	data := "symbol,timestamp,price,volume\n" +
		"BTC,2024-01-02T14:30:00Z,10,10\n" +
		"ETH,2024-01-02T14:30:01Z,10,10\n"
	require.NoError(t, os.WriteFile(in, []byte(data), 0644))

	err := a.RunBuild(context.Background(), BuildRequest{Inputs: []string{in}, Out: filepath.Join(dir, "out.csv")}, io.Discard)
	assert.ErrorIs(t, err, source.ErrMixedSymbols)
}

func TestRunBatchReportsFailedPartitions(t *testing.T) {
	a := newTestApp(t, saver.FormatJSON)
	in, out := t.TempDir(), t.TempDir()
	writeTicks(t, filepath.Join(in, "a.csv"), day1, 25)
	writeTicks(t, filepath.Join(in, "b.csv"), day1, 12)
	require.NoError(t, os.WriteFile(filepath.Join(in, "c.csv"), []byte("symbol,timestamp,price,volume\nBTC,not-a-time,1,1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("ignored"), 0644))

	var table bytes.Buffer
	err := a.RunBatch(context.Background(), in, out, &table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 partitions failed")
	assert.Contains(t, err.Error(), "c.csv")

	assert.Equal(t, 3, countLines(t, filepath.Join(out, "a.jsonl")))
	assert.Equal(t, 2, countLines(t, filepath.Join(out, "b.jsonl")))
	assert.FileExists(t, filepath.Join(out, ".lastrun.success.json"))
	assert.FileExists(t, filepath.Join(out, ".lastrun.failed.json"))
	assert.Contains(t, table.String(), "a.csv")
}

type fakeTrades struct {
	trades []models.Trade
	pos    int
}

func (f *fakeTrades) Next() bool {
	if f.pos >= len(f.trades) {
		return false
	}
	f.pos++
	return true
}
func (f *fakeTrades) Item() models.Trade { return f.trades[f.pos-1] }
func (f *fakeTrades) Err() error         { return nil }

func fakeLister(n int) polygon.ListTradesFunc {
	return func(_ context.Context, p *models.ListTradesParams) polygon.TradeIter {
		trades := make([]models.Trade, n)
		for i := range trades {
			trades[i] = models.Trade{Price: 10, Size: 10, SipTimestamp: models.Nanos(day1.Add(time.Duration(i) * time.Second))}
		}
		return &fakeTrades{trades: trades}
	}
}

func TestRunFetchOneFilePerTicker(t *testing.T) {
	a := newTestApp(t, saver.FormatCSV)
	out := t.TempDir()
	tickersFile := filepath.Join(t.TempDir(), "tickers.txt")
	require.NoError(t, os.WriteFile(tickersFile, []byte("# index\nmsft\nAAPL\n"), 0644))

	req := FetchRequest{
		Tickers:     []string{"aapl"},
		TickersFile: tickersFile,
		From:        day1,
		To:          day1.Add(24 * time.Hour),
		OutDir:      out,
	}
	require.NoError(t, a.runFetch(context.Background(), fakeLister(20), req, io.Discard))

	for _, tk := range []string{"AAPL", "MSFT"} {
		path := filepath.Join(out, tk, strings.ToLower(tk)+"_2024-01-02_to_2024-01-03.csv")
		assert.Equal(t, 3, countLines(t, path), tk)
	}
}

func TestRunFetchValidatesRequest(t *testing.T) {
	a := newTestApp(t, saver.FormatCSV)
	err := a.runFetch(context.Background(), fakeLister(1), FetchRequest{From: day1, To: day1.Add(time.Hour)}, io.Discard)
	assert.ErrorContains(t, err, "no tickers")

	err = a.runFetch(context.Background(), fakeLister(1), FetchRequest{Tickers: []string{"X"}, From: day1, To: day1}, io.Discard)
	assert.ErrorContains(t, err, "empty range")

	err = a.RunFetch(context.Background(), FetchRequest{Tickers: []string{"X"}, From: day1, To: day1.Add(time.Hour)}, io.Discard)
	assert.ErrorContains(t, err, "POLYGON_API_KEY")
}

func TestProvideOutputRejectsUnknownFormat(t *testing.T) {
	_, err := ProvideOutput(&Config{SaveFormat: "xlsx"})
	assert.Error(t, err)
}
