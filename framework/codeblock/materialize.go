package codeblock

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/lexcodex/promptforge/framework"
)

// PreviewUpdatedLine is pushed onto the output queue after a document has
// been published.
const PreviewUpdatedLine = "Live preview updated with web code."

// Publisher receives assembled documents (preview server, editor buffer).
type Publisher interface {
	Publish(document string) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(document string) error

// Publish calls f.
func (f PublisherFunc) Publish(document string) error { return f(document) }

// WrittenFile records one block persisted to disk.
type WrittenFile struct {
	Language Language
	Index    int
	Path     string
}

// Outcome summarizes one Process call.
type Outcome struct {
	Document    string
	HasDocument bool
	Files       []WrittenFile
	Executions  []*framework.Execution
}

// Materializer turns a response into files, executions and a preview
// document.
type Materializer struct {
	OutputDir string
	Executor  *framework.SafeExecutor
	Queue     *framework.OutputQueue
	Publisher Publisher
	Telemetry framework.Telemetry

	// PythonCommand and BashCommand name the interpreters used for
	// executable blocks. They default to "python" and "bash".
	PythonCommand string
	BashCommand   string
}

// FileExtension maps a language tag to the file extension used on disk.
func FileExtension(lang Language) string {
	switch lang {
	case Python:
		return "py"
	case Bash:
		return "sh"
	default:
		return string(lang)
	}
}

// FileName returns code_<index>.<ext>.
func FileName(lang Language, index int) string {
	return fmt.Sprintf("code_%d.%s", index, FileExtension(lang))
}

// Process extracts every block from text. Web blocks are assembled and
// published; python and bash blocks are written and executed; blocks with
// any other tag are written and announced on the queue. Execution and
// publish failures do not stop the remaining blocks and are returned joined.
func (m *Materializer) Process(ctx context.Context, text string) (Outcome, error) {
	var out Outcome
	if m == nil {
		return out, errors.New("materializer missing")
	}
	group := Extract(text)
	var errs []error

	for _, lang := range []Language{Python, Bash} {
		for i, block := range group[lang] {
			path, err := m.write(lang, i+1, block.Text)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out.Files = append(out.Files, WrittenFile{Language: lang, Index: i + 1, Path: path})
			exe, err := m.execute(ctx, lang, path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out.Executions = append(out.Executions, exe)
		}
	}

	other := ExtractOther(text)
	for _, lang := range sortedLanguages(other) {
		for i, block := range other[lang] {
			path, err := m.write(lang, i+1, block.Text)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out.Files = append(out.Files, WrittenFile{Language: lang, Index: i + 1, Path: path})
			m.push(fmt.Sprintf("%s file created: %s", strings.ToUpper(string(lang)), path))
		}
	}

	if doc, ok := Assemble(group); ok {
		out.Document = doc
		out.HasDocument = true
		if m.Publisher != nil {
			if err := m.Publisher.Publish(doc); err != nil {
				errs = append(errs, fmt.Errorf("publish preview: %w", err))
			}
		}
		m.push(PreviewUpdatedLine)
		m.emit(framework.EventPreviewUpdated, "preview updated", map[string]interface{}{"bytes": len(doc)})
	}
	return out, errors.Join(errs...)
}

func (m *Materializer) write(lang Language, index int, text string) (string, error) {
	dir := m.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName(lang, index))
	if err := os.WriteFile(path, []byte(strings.TrimSpace(text)), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	m.emit(framework.EventFileWritten, "file written", map[string]interface{}{"path": path, "language": string(lang)})
	return path, nil
}

func (m *Materializer) execute(ctx context.Context, lang Language, path string) (*framework.Execution, error) {
	if m.Executor == nil || m.Queue == nil {
		return nil, errors.New("executor and output queue required to run code")
	}
	interpreter := m.BashCommand
	if interpreter == "" {
		interpreter = "bash"
	}
	if lang == Python {
		interpreter = m.PythonCommand
		if interpreter == "" {
			interpreter = "python"
		}
	}
	command := fmt.Sprintf(`%s "%s"`, interpreter, path)
	exe, err := m.Executor.Run(ctx, command, m.Queue)
	if err != nil {
		m.emit(framework.EventCommandBlocked, err.Error(), map[string]interface{}{"command": command})
		return nil, err
	}
	m.emit(framework.EventCommandRun, "command started", map[string]interface{}{"command": command})
	return exe, nil
}

func (m *Materializer) push(line string) {
	if m.Queue != nil {
		m.Queue.Push(line)
	}
}

func (m *Materializer) emit(t framework.EventType, msg string, meta map[string]interface{}) {
	if m.Telemetry == nil {
		return
	}
	m.Telemetry.Emit(framework.Event{Type: t, Message: msg, Timestamp: time.Now().UTC(), Metadata: meta})
}

func sortedLanguages(group BlockGroup) []Language {
	return slices.Sorted(maps.Keys(group))
}
