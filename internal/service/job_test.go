package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/internal/translator"
)

type chatFunc func(ctx context.Context, model string, prompt string) (string, error)

func (f chatFunc) Chat(ctx context.Context, model string, prompt string) (string, error) {
	return f(ctx, model, prompt)
}

var promptRowRe = regexp.MustCompile(`(?m)^(\d+)\. (.*)$`)

// echoChat answers every numbered row of the prompt with "ZH <text>".
func echoChat(_ context.Context, _ string, prompt string) (string, error) {
	parts := strings.SplitN(prompt, "Lines to translate:", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("unexpected prompt")
	}
	var sb strings.Builder
	for _, m := range promptRowRe.FindAllStringSubmatch(parts[1], -1) {
		fmt.Fprintf(&sb, "%s. ZH %s\n", m[1], m[2])
	}
	return sb.String(), nil
}

type recordingReporter struct {
	mu     sync.Mutex
	values []int
}

func (r *recordingReporter) Progress(p int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, p)
}

func writeSRT(t *testing.T, dir, name string, n int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, subtitle.WriteFile(path, makeLines(n)))
	return path
}

func newJob(input, outputDir string, client translator.ChatClient) *TranslationJob {
	return NewTranslationJob(JobConfig{
		InputPath:      input,
		OutputDir:      outputDir,
		DownloadPrefix: "/outputs-download/",
		Model:          "qwen2.5:7b",
		Source:         language.Japanese,
		Target:         language.SimplifiedChinese,
		BatchSize:      10,
		MaxWorkers:     5,
	}, client)
}

func TestTranslationJob_Run(t *testing.T) {
	dir := t.TempDir()
	input := writeSRT(t, dir, "episode01.srt", 23)
	outDir := filepath.Join(dir, "outputs")

	rep := &recordingReporter{}
	result, err := newJob(input, outDir, chatFunc(echoChat)).Run(context.Background(), rep)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "episode01.bilingual.srt", result.Filename)
	assert.Equal(t, "/outputs-download/episode01.bilingual.srt", result.DownloadURL)

	out, err := subtitle.ReadFile(filepath.Join(outDir, result.Filename))
	require.NoError(t, err)
	require.Len(t, out.Lines, 23)
	for i, line := range out.Lines {
		assert.Equal(t, i+1, line.Index)
		assert.Equal(t, fmt.Sprintf("line %d\nZH line %d", i+1, i+1), line.Text)
	}

	require.NotEmpty(t, rep.values)
	for i := 1; i < len(rep.values); i++ {
		assert.GreaterOrEqual(t, rep.values[i], rep.values[i-1])
	}
	assert.Equal(t, 100, rep.values[len(rep.values)-1])
}

func TestTranslationJob_Run_OneBatchTimesOut(t *testing.T) {
	dir := t.TempDir()
	input := writeSRT(t, dir, "movie.srt", 23)

	chat := chatFunc(func(ctx context.Context, model, prompt string) (string, error) {
		if strings.Contains(prompt, "1. line 11\n") {
			return "", fmt.Errorf("post chat: %w", context.DeadlineExceeded)
		}
		return echoChat(ctx, model, prompt)
	})

	result, err := newJob(input, "", chat).Run(context.Background(), nil)
	require.NoError(t, err)

	out, err := subtitle.ReadFile(filepath.Join(dir, result.Filename))
	require.NoError(t, err)
	require.Len(t, out.Lines, 23)
	for i, line := range out.Lines {
		n := i + 1
		if n >= 11 && n <= 20 {
			assert.Equal(t, fmt.Sprintf("line %d\n%s", n, translator.PlaceholderTimeout), line.Text)
			continue
		}
		assert.Equal(t, fmt.Sprintf("line %d\nZH line %d", n, n), line.Text)
	}
}

func TestTranslationJob_Run_MissingLinePlaceholder(t *testing.T) {
	dir := t.TempDir()
	input := writeSRT(t, dir, "short.srt", 5)

	chat := chatFunc(func(context.Context, string, string) (string, error) {
		return "1. a\n2. b\n4. d\n5. e", nil
	})

	result, err := newJob(input, "", chat).Run(context.Background(), nil)
	require.NoError(t, err)

	out, err := subtitle.ReadFile(filepath.Join(dir, result.Filename))
	require.NoError(t, err)
	require.Len(t, out.Lines, 5)
	assert.Equal(t, "line 3\n[missing line 3]", out.Lines[2].Text)
	assert.Equal(t, "line 4\nd", out.Lines[3].Text)
}

func TestTranslationJob_Run_EmptySubtitle(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "empty.srt")
	require.NoError(t, os.WriteFile(input, []byte("\n\n"), 0o644))

	rep := &recordingReporter{}
	result, err := newJob(input, "", chatFunc(echoChat)).Run(context.Background(), rep)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, result.Filename))
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(data)))
	assert.Equal(t, []int{100}, rep.values)
}

func TestTranslationJob_Run_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.srt")
	require.NoError(t, os.WriteFile(bad, []byte("1\nnot a timing line\nhello\n"), 0o644))

	_, err := newJob(bad, "", chatFunc(echoChat)).Run(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsErrorKind(err, KindFormat))

	_, err = newJob(filepath.Join(dir, "missing.srt"), "", chatFunc(echoChat)).Run(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsErrorKind(err, KindFileRead))

	job := NewTranslationJob(JobConfig{InputPath: bad, Target: language.English}, chatFunc(echoChat))
	_, err = job.Run(context.Background(), nil)
	assert.True(t, IsErrorKind(err, KindConfig))
}

func TestTranslationJob_Run_Cancelled(t *testing.T) {
	dir := t.TempDir()
	input := writeSRT(t, dir, "movie.srt", 23)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newJob(input, "", chatFunc(echoChat)).Run(ctx, nil)
	require.Error(t, err)
	assert.True(t, IsErrorKind(err, KindCancelled))
	assert.ErrorIs(t, err, ErrCancelled)

	_, statErr := os.Stat(filepath.Join(dir, "movie.bilingual.srt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTranslationJob_Run_DetectsSourceLanguage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "talk.srt")
	lines := []subtitle.Line{
		{Index: 1, EndTime: time.Second, Text: "The weather is really nice today and we should go outside"},
		{Index: 2, StartTime: time.Second, EndTime: 2 * time.Second, Text: "I think we should take the children to the park this afternoon"},
	}
	require.NoError(t, subtitle.WriteFile(input, lines))

	var prompt string
	chat := chatFunc(func(ctx context.Context, model, p string) (string, error) {
		prompt = p
		return echoChat(ctx, model, p)
	})

	job := NewTranslationJob(JobConfig{
		InputPath: input,
		Model:     "m",
		Source:    language.Und,
		Target:    language.Japanese,
	}, chat)
	_, err := job.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, prompt, "English")
}

func TestErrorKind(t *testing.T) {
	err := fmt.Errorf("job: %w", WrapError(os.ErrNotExist, KindFileRead, "cannot read"))

	assert.True(t, IsErrorKind(err, KindFileRead))
	assert.False(t, IsErrorKind(err, KindFileWrite))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "[FileRead] cannot read")
	assert.False(t, IsErrorKind(os.ErrNotExist, KindFileRead))
}
