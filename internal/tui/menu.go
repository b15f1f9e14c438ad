// Package tui implements the line-oriented terminal front end.
package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"nexus/internal/catalog"
	"nexus/internal/executor"
	"nexus/internal/files"
)

// EndMarker terminates multi-line content entry.
const EndMarker = "END"

// Options configures a Menu.
type Options struct {
	In       io.Reader
	Out      io.Writer
	Files    *files.Service
	Executor *executor.Executor
	Known    *catalog.KnownFiles
	// Location is where new files are created. Empty means the file
	// service root.
	Location string
}

// Menu is the interactive terminal menu. It reads one command per line and
// returns when the user quits or input ends.
type Menu struct {
	in       *bufio.Scanner
	out      io.Writer
	files    *files.Service
	executor *executor.Executor
	known    *catalog.KnownFiles
	location string
	st       styles
}

type styles struct {
	title   lipgloss.Style
	box     lipgloss.Style
	prompt  lipgloss.Style
	index   lipgloss.Style
	file    lipgloss.Style
	key     lipgloss.Style
	dim     lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	lineNo  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#374151")).
			Padding(0, 2),
		prompt:  r.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
		index:   r.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		file:    r.NewStyle().Foreground(lipgloss.Color("#FBBF24")),
		key:     r.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		success: r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		failure: r.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		lineNo:  r.NewStyle().Foreground(lipgloss.Color("#4B5563")),
	}
}

// New creates a menu. The renderer follows Out, so colors are dropped when
// Out is not a terminal.
func New(opts Options) *Menu {
	in := bufio.NewScanner(opts.In)
	in.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Menu{
		in:       in,
		out:      opts.Out,
		files:    opts.Files,
		executor: opts.Executor,
		known:    opts.Known,
		location: opts.Location,
		st:       newStyles(lipgloss.NewRenderer(opts.Out)),
	}
}

// Run shows the menu until the user quits, input ends or ctx is cancelled.
func (m *Menu) Run(ctx context.Context) error {
	m.println(m.st.box.Render(m.st.title.Render("NEXUS FILE MANAGER & CODE RUNNER")))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.showMenu()

		line, ok := m.ask("Choose an option: ")
		if !ok {
			m.println("")
			return nil
		}
		choice := strings.ToUpper(strings.TrimSpace(line))

		switch choice {
		case "N":
			m.createFile(ctx)
		case "E":
			m.editFile(ctx)
		case "V":
			m.viewFile(ctx)
		case "X":
			m.executeFile(ctx)
		case "D":
			m.deleteFile(ctx)
		case "L":
			m.listDirectory(ctx)
		case "Q":
			m.println(m.st.success.Render("Goodbye!"))
			return nil
		case "":
		default:
			m.fail("Invalid option: " + choice)
		}
	}
}

func (m *Menu) showMenu() {
	entries := m.known.List()
	m.println("")
	m.println(m.st.title.Render("Your Files:"))
	if len(entries) == 0 {
		m.println(m.st.dim.Render("  (none yet)"))
	}
	for i, e := range entries {
		m.printf("  %s %s\n", m.st.index.Render(strconv.Itoa(i+1)+"."), m.st.file.Render(e.Path()))
	}

	n := len(entries)
	m.println("")
	m.option("N", "Create New File")
	m.option("E", fmt.Sprintf("Edit Existing File (1-%d)", n))
	m.option("V", fmt.Sprintf("View File (1-%d)", n))
	m.option("X", fmt.Sprintf("Execute File (1-%d)", n))
	m.option("D", fmt.Sprintf("Delete File (1-%d)", n))
	m.option("L", "List Directory")
	m.option("Q", "Quit")
}

func (m *Menu) option(key, label string) {
	m.printf("  %s %s\n", m.st.key.Render("["+key+"]"), label)
}

func (m *Menu) createFile(ctx context.Context) {
	if m.known.Len() >= m.known.Cap() {
		m.fail("Maximum file limit reached!")
		return
	}

	name, ok := m.ask("Enter filename: ")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		m.fail("Filename is required")
		return
	}

	if m.files.Exists(ctx, name, m.location) {
		answer, _ := m.ask("File already exists. Overwrite? (y/n): ")
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			m.fail("Operation cancelled")
			return
		}
	}

	content := m.readContent()
	if err := m.files.Create(ctx, name, content, m.location); err != nil {
		log.Debug().Err(err).Str("filename", name).Msg("tui create failed")
		m.fail("Failed to create file: " + err.Error())
		return
	}
	if _, err := m.known.Add(name, m.location); err != nil {
		m.fail("Maximum file limit reached!")
		return
	}
	m.ok("File saved successfully!")
}

func (m *Menu) editFile(ctx context.Context) {
	entry, ok := m.selectFile()
	if !ok {
		return
	}
	m.println(m.st.dim.Render("Editing " + entry.Path() + " (existing content is replaced)"))
	content := m.readContent()
	if err := m.files.Edit(ctx, entry.Name, content, entry.Location); err != nil {
		m.fail("Failed to open file for editing: " + err.Error())
		return
	}
	m.ok("File saved successfully!")
}

func (m *Menu) viewFile(ctx context.Context) {
	entry, ok := m.selectFile()
	if !ok {
		return
	}
	content, err := m.files.View(ctx, entry.Name, entry.Location)
	if err != nil {
		m.fail("Cannot open file for reading")
		return
	}

	m.println(m.st.title.Render(entry.Path()) + " " + m.st.dim.Render("[READ-ONLY]"))
	lines := strings.SplitAfter(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		m.printf("%s %s", m.st.lineNo.Render(fmt.Sprintf("%4d │", i+1)), line)
		if !strings.HasSuffix(line, "\n") {
			m.println("")
		}
	}
}

func (m *Menu) executeFile(ctx context.Context) {
	entry, ok := m.selectFile()
	if !ok {
		return
	}
	action, _ := m.ask("Action [compile/run/both] (both): ")
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		action = "both"
	}

	res, err := m.executor.Execute(ctx, executor.ExecutionRequest{
		Filename: entry.Name,
		Action:   action,
		Location: entry.Location,
	})
	if res == nil {
		m.fail(err.Error())
		return
	}

	m.println(m.st.dim.Render("$ " + res.Command))
	if res.Output != "" {
		m.printf("%s", res.Output)
		if !strings.HasSuffix(res.Output, "\n") {
			m.println("")
		}
	}
	if res.Truncated {
		m.println(m.st.dim.Render("(output truncated)"))
	}

	switch {
	case res.Succeeded:
		m.ok(fmt.Sprintf("Exit code 0 (%s)", res.Duration.Round(time.Millisecond)))
	case errors.Is(err, executor.ErrTimeout):
		m.fail("Execution timed out")
	default:
		m.fail(fmt.Sprintf("Execution failed with exit code %d", res.ExitCode))
	}
}

func (m *Menu) deleteFile(ctx context.Context) {
	entry, ok := m.selectFile()
	if !ok {
		return
	}
	answer, _ := m.ask("Delete " + entry.Path() + "? (y/n): ")
	if !strings.EqualFold(strings.TrimSpace(answer), "y") {
		m.fail("Operation cancelled")
		return
	}
	if err := m.files.Delete(ctx, entry.Name, entry.Location); err != nil && !errors.Is(err, files.ErrNotFound) {
		m.fail("Cannot delete file: " + err.Error())
		return
	}
	m.known.Remove(entry.Name, entry.Location)
	m.ok("File deleted")
}

func (m *Menu) listDirectory(ctx context.Context) {
	names, err := m.files.List(ctx, m.location)
	if err != nil {
		m.fail("Cannot open directory")
		return
	}
	m.println(m.st.title.Render("Directory " + m.files.Location(m.location) + ":"))
	if len(names) == 0 {
		m.println(m.st.dim.Render("  (empty)"))
	}
	for _, name := range names {
		m.println("  " + m.st.file.Render(name))
	}
}

// selectFile prompts for a 1-based index into the known file list.
func (m *Menu) selectFile() (catalog.Entry, bool) {
	n := m.known.Len()
	if n == 0 {
		m.fail("No files yet. Create one with [N].")
		return catalog.Entry{}, false
	}
	line, ok := m.ask(fmt.Sprintf("Enter file number (1-%d): ", n))
	if !ok {
		return catalog.Entry{}, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		m.fail("Invalid file number!")
		return catalog.Entry{}, false
	}
	entry, found := m.known.Get(i - 1)
	if !found {
		m.fail("Invalid file number!")
		return catalog.Entry{}, false
	}
	return entry, true
}

// readContent collects lines until EndMarker or end of input.
func (m *Menu) readContent() string {
	m.println(m.st.dim.Render("Enter content. Type " + EndMarker + " on its own line to finish."))
	var b strings.Builder
	for lineNo := 1; ; lineNo++ {
		line, ok := m.ask(m.st.lineNo.Render(fmt.Sprintf("%4d │ ", lineNo)))
		if !ok || line == EndMarker {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func (m *Menu) ask(prompt string) (string, bool) {
	m.printf("%s", m.st.prompt.Render(prompt))
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSuffix(m.in.Text(), "\r"), true
}

func (m *Menu) ok(msg string) {
	m.println(m.st.success.Render("✓ " + msg))
}

func (m *Menu) fail(msg string) {
	m.println(m.st.failure.Render("✗ " + msg))
}

func (m *Menu) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}

func (m *Menu) println(s string) {
	fmt.Fprintln(m.out, s)
}
