// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the note graph to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notewiki/internal/apperr"
	"github.com/starford/notewiki/internal/noteservice"
	"github.com/starford/notewiki/internal/parser"
)

const formatURI = "notewiki://note-format"

// Server wraps the MCP server with NoteWiki tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *noteservice.Service
	logger *slog.Logger
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger}

	s.mcp = server.NewMCPServer(
		"NoteWiki",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List every note as one line: id, title and tags."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its content, tags and kids."),
		mcp.WithString("note", mcp.Required(), mcp.Description(noteRefHelp)),
		mcp.WithBoolean("by_title", mcp.Description("Treat note as a title even when it is all digits")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Tags and kids are titles separated by spaces or commas; "+
			"titles that do not exist yet become empty notes. See get_note_format."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Unique title")),
		mcp.WithString("content", mcp.Description("Free-form text")),
		mcp.WithString("tags", mcp.Description("Parent titles, e.g. \"project, ideas\"")),
		mcp.WithString("kids", mcp.Description("Child titles")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Update a note. Omitted fields keep their value; given tags or kids "+
			"replace the current set."),
		mcp.WithString("note", mcp.Required(), mcp.Description(noteRefHelp)),
		mcp.WithBoolean("by_title", mcp.Description("Treat note as a title even when it is all digits")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New content")),
		mcp.WithString("tags", mcp.Description("Parent titles separated by spaces or commas")),
		mcp.WithString("kids", mcp.Description("Child titles separated by spaces or commas")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("get_kids",
		mcp.WithDescription("List the notes tagged with the given note."),
		mcp.WithString("note", mcp.Required(), mcp.Description(noteRefHelp)),
		mcp.WithBoolean("by_title", mcp.Description("Treat note as a title even when it is all digits")),
	), s.getKids)

	s.mcp.AddTool(mcp.NewTool("get_note_format",
		mcp.WithDescription("Returns the description of the notes file format and tag rules."),
	), s.getNoteFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note Format",
			mcp.WithResourceDescription("JSON file format and tag/kid rules of NoteWiki notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// noteRefHelp documents how the note argument is resolved.
const noteRefHelp = "Note title or numeric id. A number naming an existing id is read as that id; " +
	"set by_title for titles made only of digits"

// noteRef reads the note argument and resolves it to a ref the service
// reads unambiguously.
func (s *Server) noteRef(ctx context.Context, op string, req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	ref, err := req.RequireString("note")
	if err != nil {
		return "", mcp.NewToolResultError(err.Error())
	}
	if !req.GetBool("by_title", false) {
		return ref, nil
	}
	id, err := s.svc.IDOf(ctx, ref)
	if err != nil {
		return "", s.toolError(op, err)
	}
	return strconv.FormatUint(uint64(id), 10), nil
}

func (s *Server) toolError(op string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("%s: note not found", op))
	case errors.Is(err, apperr.ErrTitleTaken):
		return mcp.NewToolResultError(fmt.Sprintf("%s: title already taken", op))
	case errors.Is(err, apperr.ErrInvalidTitle):
		return mcp.NewToolResultError(fmt.Sprintf("%s: title must not be empty", op))
	}
	s.logger.Error("mcp: tool failed", slog.String("tool", op), slog.String("error", err.Error()))
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items := s.svc.List(ctx)
	if len(items) == 0 {
		return mcp.NewToolResultText("no notes"), nil
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		line := fmt.Sprintf("%d\t%s", it.ID, it.Title)
		if len(it.Tags) > 0 {
			line += "\t[" + strings.Join(it.Tags, ", ") + "]"
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, failed := s.noteRef(ctx, "read_note", req)
	if failed != nil {
		return failed, nil
	}
	note, err := s.svc.Get(ctx, ref)
	if err != nil {
		return s.toolError("read_note", err), nil
	}
	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.Create(ctx, noteservice.NoteInput{
		Title:   title,
		Content: req.GetString("content", ""),
		Tags:    parser.ParseWords(req.GetString("tags", "")),
		Kids:    parser.ParseWords(req.GetString("kids", "")),
	})
	if err != nil {
		return s.toolError("create_note", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %d %s", note.ID, note.Title)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, failed := s.noteRef(ctx, "update_note", req)
	if failed != nil {
		return failed, nil
	}
	cur, err := s.svc.Get(ctx, ref)
	if err != nil {
		return s.toolError("update_note", err), nil
	}
	in := noteservice.NoteInput{
		Title:   req.GetString("title", cur.Title),
		Content: req.GetString("content", cur.Content),
		Tags:    cur.Tags,
		Kids:    cur.Kids,
	}
	args := req.GetArguments()
	if _, ok := args["tags"]; ok {
		in.Tags = parser.ParseWords(req.GetString("tags", ""))
	}
	if _, ok := args["kids"]; ok {
		in.Kids = parser.ParseWords(req.GetString("kids", ""))
	}
	note, err := s.svc.Update(ctx, fmt.Sprint(cur.ID), in)
	if err != nil {
		return s.toolError("update_note", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %d %s", note.ID, note.Title)), nil
}

func (s *Server) getKids(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, failed := s.noteRef(ctx, "get_kids", req)
	if failed != nil {
		return failed, nil
	}
	kids, err := s.svc.Kids(ctx, ref)
	if err != nil {
		return s.toolError("get_kids", err), nil
	}
	if len(kids) == 0 {
		return mcp.NewToolResultText("no kids found"), nil
	}
	titles := make([]string, 0, len(kids))
	for _, k := range kids {
		titles = append(titles, k.Title)
	}
	return mcp.NewToolResultText(strings.Join(titles, "\n")), nil
}

func (s *Server) getNoteFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormat), nil
}

func (s *Server) readNoteFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormat,
		},
	}, nil
}
