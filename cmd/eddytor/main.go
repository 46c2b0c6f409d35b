// Eddytor loads a document, replays an action script on it in an editing
// session, and prints the resulting document.
//
//	eddytor -in note.html -script actions.txt -format markdown
//
// The document is read from stdin when -in is not given, and an empty
// document is used when the input is empty. See parseScript for the
// operations of a script.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/shodgson/eddytor/editor"
	"github.com/shodgson/eddytor/highlight"
	"github.com/shodgson/eddytor/internal/config"
	"github.com/shodgson/eddytor/internal/logger"
	"github.com/shodgson/eddytor/markdown"
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/schema/eddytor"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var usageStr = `Usage: %s [options]

Options:
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			color.New(color.FgRed).Fprintf(os.Stderr, "eddytor: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("eddytor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, usageStr, fs.Name())
		fs.PrintDefaults()
	}
	in := fs.String("in", "", "document to load, HTML or JSON (default stdin)")
	from := fs.String("from", "auto", "input format: auto, html or json")
	scriptPath := fs.String("script", "", "action script to replay")
	format := fs.String("format", "html", "output format: html, json or markdown")
	tight := fs.Bool("tight", false, "tight lists in markdown output")
	envFile := fs.String("env", "", "env file to load (default .env)")
	verbose := fs.Bool("v", false, "print command results and slash menu events")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	log, closeLog, err := logger.New(logger.Options{
		Level:      cfg.App.LogLevel,
		FilePath:   cfg.App.LogFilePath,
		Production: cfg.IsProduction(),
		Console:    zapcore.AddSync(stderr),
	})
	if err != nil {
		return err
	}
	defer closeLog()

	doc, err := loadDocument(*in, *from, stdin)
	if err != nil {
		return err
	}
	var steps []step
	if *scriptPath != "" {
		f, err := os.Open(*scriptPath)
		if err != nil {
			return err
		}
		steps, err = parseScript(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", *scriptPath, err)
		}
	}

	session, err := editor.NewSession(editor.SessionConfig{
		Doc:           doc,
		Highlighter:   highlight.New(cfg.Editor.HighlightTTL, log),
		Logger:        log,
		CheckingDelay: cfg.Editor.CheckingDelay,
		CodeLanguage:  cfg.Editor.CodeLanguage,
	})
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	defer session.Teardown()

	n := &notices{w: stderr, verbose: *verbose}
	session.OnSlash(n.slash)
	events := editor.NewEvents()
	if err := session.Attach(events); err != nil {
		return err
	}
	r := &runner{session: session, events: events, notices: n}
	if err := r.run(steps); err != nil {
		return err
	}
	log.Debug("script replayed", zap.Int("steps", len(steps)))

	output, err := render(session, *format, *tight)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, output)
	return err
}

// loadDocument reads the input document. An empty input gives a nil
// document, for which the session creates an empty one.
func loadDocument(path, format string, stdin io.Reader) (*model.Node, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	if format == "auto" {
		format = "html"
		if strings.EqualFold(filepath.Ext(path), ".json") || strings.HasPrefix(text, "{") {
			format = "json"
		}
	}
	switch format {
	case "html":
		return eddytor.Parse(text)
	case "json":
		doc, err := model.ParseJSON(eddytor.Schema, data)
		if err != nil {
			return nil, fmt.Errorf("reading JSON document: %w", err)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("unknown input format %q", format)
}

func render(session *editor.Session, format string, tight bool) (string, error) {
	switch format {
	case "html":
		return session.HTML()
	case "json":
		data, err := json.MarshalIndent(session.State().Doc, "", "  ")
		return string(data), err
	case "markdown", "md":
		return markdown.DefaultSerializer.Serialize(session.State().Doc, markdown.WithTightLists(tight)), nil
	}
	return "", fmt.Errorf("unknown output format %q", format)
}

// notices prints what happens in the session to the user.
type notices struct {
	w       io.Writer
	verbose bool
}

func (n *notices) result(id string, result editor.Result) {
	switch {
	case !result.Success:
		color.New(color.FgYellow).Fprintf(n.w, "%s: %s\n", id, result.Message)
	case n.verbose && result.Pending:
		color.New(color.FgCyan).Fprintf(n.w, "%s: waiting for the dialog\n", id)
	case n.verbose:
		color.New(color.FgGreen).Fprintf(n.w, "%s: done\n", id)
	}
}

func (n *notices) slash(event editor.SlashEvent) {
	if !n.verbose {
		return
	}
	switch {
	case event.Key != "":
		color.New(color.FgCyan).Fprintf(n.w, "slash menu key %s\n", event.Key)
	case event.State.Active:
		color.New(color.FgCyan).Fprintf(n.w, "slash menu open at %d: %q\n", event.State.Pos, event.State.Query)
	default:
		color.New(color.FgCyan).Fprintln(n.w, "slash menu closed")
	}
}
