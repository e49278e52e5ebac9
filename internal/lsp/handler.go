package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pentops/log.go/log"
	"github.com/pentops/stanfmt/internal/fmterr"
	"github.com/pentops/stanfmt/internal/format"
	"github.com/pentops/stanfmt/internal/settings"
	"github.com/pentops/stanfmt/internal/stanc"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

type Config struct {
	Settings settings.Settings
	Version  string

	// Exec runs stanc, defaults to a stanc.Runner.
	Exec stanc.Exec
}

type ServerStream struct {
	files    *fileSet
	client   *client
	store    *settings.MemoryStore
	registry *format.Registry
	stale    *debounce[protocol.DocumentURI]
	version  string

	conn jsonrpc2.Conn
}

func NewServerStream(ctx context.Context, cfg Config) *ServerStream {
	exec := cfg.Exec
	if exec == nil {
		exec = &stanc.Runner{}
	}

	ss := &ServerStream{
		files:    newFileSet(),
		client:   &client{},
		store:    settings.NewMemoryStore(cfg.Settings),
		registry: format.NewRegistry(),
		version:  cfg.Version,
	}

	reporter := fmterr.NewReporter(ss.client, ss.client, ss.store)
	formatter := format.NewFormatter(ss.store, exec, ss.client, reporter)
	ss.registry.Register(ctx, formatter, format.StanSelectors...)

	// diagnostics from a failed format are stale once the user edits
	ss.stale = newDebounce(500*time.Millisecond, ss.clearDiagnostics)
	ss.files.onChange = ss.stale.request

	return ss
}

func (ss *ServerStream) Run(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	ss.conn = conn
	ss.client.setConn(conn)
	conn.Go(ctx, ss.handle)

	select {
	case <-conn.Done():
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
	}

	ss.stale.stop()
	return ss.registry.Close()
}

func doReqRes[REQ, RES any](ctx context.Context, replier jsonrpc2.Replier, jRequest jsonrpc2.Request, cb func(context.Context, *REQ) (RES, error)) error {
	params := new(REQ)
	if err := json.Unmarshal(jRequest.Params(), &params); err != nil {
		return replyParseError(ctx, replier, err)
	}
	res, err := cb(ctx, params)
	return replier(ctx, res, err)
}

func doReq[REQ any](ctx context.Context, replier jsonrpc2.Replier, jRequest jsonrpc2.Request, cb func(context.Context, *REQ) error) error {
	params := new(REQ)
	if err := json.Unmarshal(jRequest.Params(), &params); err != nil {
		return replyParseError(ctx, replier, err)
	}
	err := cb(ctx, params)
	return replier(ctx, nil, err)
}

func replyParseError(ctx context.Context, reply jsonrpc2.Replier, err error) error {
	return reply(ctx, nil, fmt.Errorf("%s: %w", jsonrpc2.ErrParse, err))
}

func (ss *ServerStream) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	method := req.Method()
	ctx = log.WithField(ctx, "method", method)
	log.Debug(ctx, "handling request")

	switch method {
	case protocol.MethodInitialize:
		return doReqRes(ctx, reply, req, ss.Initialize)
	case protocol.MethodInitialized:
		return doReq(ctx, reply, req, ss.Initialized)
	case protocol.MethodTextDocumentDidOpen:
		return doReq(ctx, reply, req, ss.files.DidOpen)
	case protocol.MethodTextDocumentDidClose:
		return doReq(ctx, reply, req, ss.files.DidClose)
	case protocol.MethodTextDocumentDidChange:
		return doReq(ctx, reply, req, ss.files.DidChange)
	case protocol.MethodTextDocumentDidSave:
		return doReq(ctx, reply, req, ss.files.DidSave)
	case protocol.MethodTextDocumentFormatting:
		return doReqRes(ctx, reply, req, ss.Formatting)
	case protocol.MethodWorkspaceDidChangeConfiguration:
		return doReq(ctx, reply, req, ss.DidChangeConfiguration)
	case protocol.MethodShutdown:
		return reply(ctx, nil, ss.Shutdown(ctx))
	case protocol.MethodExit:
		return ss.Exit(ctx)
	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

func (ss *ServerStream) Initialize(ctx context.Context, req *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	if req.InitializationOptions != nil {
		if err := ss.applySettings(ctx, req.InitializationOptions); err != nil {
			return nil, err
		}
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			DocumentFormattingProvider: true,
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save: &protocol.SaveOptions{
					IncludeText: true,
				},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "stanfmt",
			Version: ss.version,
		},
	}, nil
}

func (ss *ServerStream) Initialized(ctx context.Context, _ *protocol.InitializedParams) error {
	ss.client.AppendLine(ctx, "Initialized Stan formatting")
	return nil
}

func (ss *ServerStream) DidChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	return ss.applySettings(ctx, params.Settings)
}

func (ss *ServerStream) applySettings(ctx context.Context, raw interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", jsonrpc2.ErrInvalidParams, err)
	}
	values := settings.FromJSON(data)
	log.WithField(ctx, "keys", len(values)).Debug("Applying settings")
	if err := ss.store.Merge(ctx, values); err != nil {
		return fmt.Errorf("%s: %w", jsonrpc2.ErrInvalidParams, err)
	}
	return nil
}

func (ss *ServerStream) Shutdown(ctx context.Context) error {
	log.Info(ctx, "Shutting down")
	ss.stale.stop()
	return nil
}

// Exit closes the connection, which ends Run.
func (ss *ServerStream) Exit(ctx context.Context) error {
	if ss.conn == nil {
		return nil
	}
	if err := ss.conn.Close(); err != nil {
		log.WithError(ctx, err).Warn("failed to close connection")
	}
	return nil
}

// Formatting replies with no edits when formatting fails. The user has
// already been notified and an error reply would notify again.
func (ss *ServerStream) Formatting(ctx context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	doc, err := ss.files.getDocument(ctx, params.TextDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	ctx = log.WithField(ctx, "fileURI", doc.URI)

	provider, ok := ss.registry.Lookup(doc.LanguageID, doc.Scheme, doc.Path)
	if !ok {
		log.Debug(ctx, "No formatter for document")
		return nil, nil
	}

	edits, err := provider.Format(ctx, doc.Document)
	if perr := ss.client.publishDiagnostics(ctx, doc.URI, doc.Version, diagnosticsFor(err)); perr != nil {
		log.WithError(ctx, perr).Warn("failed to publish diagnostics")
	}
	if err != nil {
		log.WithError(ctx, err).Info("Formatting failed")
		return nil, nil
	}
	return edits, nil
}

func (ss *ServerStream) clearDiagnostics(ctx context.Context, uri protocol.DocumentURI) {
	if err := ss.client.publishDiagnostics(ctx, uri, 0, nil); err != nil {
		log.WithError(ctx, err).Warn("failed to clear diagnostics")
	}
}

func diagnosticsFor(err error) []protocol.Diagnostic {
	var fe *fmterr.Error
	if err == nil || !errors.As(err, &fe) || !fe.Kind.IsUserError() {
		return nil
	}

	diagnostics := make([]protocol.Diagnostic, 0, len(fe.Positions))
	for _, pos := range fe.Positions {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(pos.Start.Line), Character: uint32(pos.Start.Column)},
				End:   protocol.Position{Line: uint32(pos.End.Line), Character: uint32(pos.End.Column)},
			},
			Severity: protocol.DiagnosticSeverityError,
			Source:   "stanc",
			Message:  diagnosticMessage(fe),
		})
	}
	return diagnostics
}

func diagnosticMessage(fe *fmterr.Error) string {
	if fe.Stderr != "" {
		return fe.Stderr
	}
	return fe.Message
}
