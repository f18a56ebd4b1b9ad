package codeblock

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/promptforge/framework"
)

func newTestMaterializer(t *testing.T) (*Materializer, *[]string) {
	t.Helper()
	var published []string
	return &Materializer{
		OutputDir: t.TempDir(),
		Executor:  framework.NewSafeExecutor(framework.NewCommandGate(), log.New(io.Discard, "", 0)),
		Queue:     framework.NewOutputQueue(),
		Publisher: PublisherFunc(func(doc string) error {
			published = append(published, doc)
			return nil
		}),
		PythonCommand: "cat",
		BashCommand:   "cat",
	}, &published
}

func TestFileNaming(t *testing.T) {
	require.Equal(t, "code_1.py", FileName(Python, 1))
	require.Equal(t, "code_2.sh", FileName(Bash, 2))
	require.Equal(t, "code_3.go", FileName("go", 3))
}

func TestMaterializerWritesAndRunsScripts(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell required")
	}
	m, published := newTestMaterializer(t)
	out, err := m.Process(context.Background(), "```python\n  print('a')\n```\n```bash\necho b\n```\n```python\nprint('c')\n```")
	require.NoError(t, err)
	require.False(t, out.HasDocument)
	require.Empty(t, *published)
	require.Len(t, out.Files, 3)
	require.Equal(t, filepath.Join(m.OutputDir, "code_1.py"), out.Files[0].Path)
	require.Equal(t, filepath.Join(m.OutputDir, "code_2.py"), out.Files[1].Path)
	require.Equal(t, filepath.Join(m.OutputDir, "code_1.sh"), out.Files[2].Path)

	data, err := os.ReadFile(out.Files[0].Path)
	require.NoError(t, err)
	require.Equal(t, "print('a')", string(data))

	require.Len(t, out.Executions, 3)
	for _, exe := range out.Executions {
		select {
		case <-exe.Done():
		case <-time.After(10 * time.Second):
			t.Fatal("execution did not finish")
		}
	}
	lines := m.Queue.Drain()
	require.Contains(t, lines, `$ cat "`+out.Files[0].Path+`"`)
	require.Contains(t, lines, "print('a')")
	require.Contains(t, lines, "echo b")
}

func TestMaterializerAnnouncesOtherLanguages(t *testing.T) {
	m, _ := newTestMaterializer(t)
	out, err := m.Process(context.Background(), "```go\npackage main\n```")
	require.NoError(t, err)
	require.Len(t, out.Files, 1)
	require.Empty(t, out.Executions)
	require.Equal(t, []string{"GO file created: " + filepath.Join(m.OutputDir, "code_1.go")}, m.Queue.Drain())
}

func TestMaterializerWritesMiscasedTagsAsRawFiles(t *testing.T) {
	m, published := newTestMaterializer(t)
	out, err := m.Process(context.Background(), "```HTML\n<p>x</p>\n```")
	require.NoError(t, err)
	require.False(t, out.HasDocument)
	require.Empty(t, *published)
	path := filepath.Join(m.OutputDir, "code_1.HTML")
	require.Equal(t, []WrittenFile{{Language: "HTML", Index: 1, Path: path}}, out.Files)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "<p>x</p>", string(data))
	require.Equal(t, []string{"HTML file created: " + path}, m.Queue.Drain())
}

func TestMaterializerPublishesDocument(t *testing.T) {
	m, published := newTestMaterializer(t)
	rec := &framework.RecordingTelemetry{}
	m.Telemetry = rec
	out, err := m.Process(context.Background(), "```html\n<p>hi</p>\n```")
	require.NoError(t, err)
	require.True(t, out.HasDocument)
	require.Equal(t, []string{out.Document}, *published)
	require.Equal(t, []string{PreviewUpdatedLine}, m.Queue.Drain())
	require.Equal(t, 1, rec.Count(framework.EventPreviewUpdated))
}

func TestMaterializerReportsBlockedCommands(t *testing.T) {
	m, _ := newTestMaterializer(t)
	m.PythonCommand = "sudo python"
	out, err := m.Process(context.Background(), "```python\nprint(1)\n```")
	var secErr *framework.SecurityError
	require.True(t, errors.As(err, &secErr))
	require.Len(t, out.Files, 1, "file is still written")
	require.Empty(t, out.Executions)
	require.Zero(t, m.Queue.Len())
}
