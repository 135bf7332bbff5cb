package lsp

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"fortio.org/safecast"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/woxQAQ/config-props-lsp/internal/document"
	"github.com/woxQAQ/config-props-lsp/internal/metadata"
)

const codeRequestCancelled jsonrpc2.Code = -32800

type notifier interface {
	Notify(ctx context.Context, method string, params interface{}) error
}

type openDocument struct {
	uri     protocol.DocumentURI
	syntax  document.Syntax
	version uint32
	text    string

	// Reconcile state: seq identifies the latest scheduled run.
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

// session is the state of one client connection.
type session struct {
	server *Server
	client notifier
	logger *zap.Logger

	ctx  context.Context
	stop context.CancelFunc

	closeConn func() error

	mu       sync.Mutex
	docs     map[protocol.DocumentURI]*openDocument
	inflight map[string]context.CancelFunc
	shutdown bool
	exited   bool
}

func newSession(ctx context.Context, server *Server, client notifier) *session {
	ctx, stop := context.WithCancel(ctx)
	return &session{
		server:   server,
		client:   client,
		logger:   server.logger,
		ctx:      ctx,
		stop:     stop,
		docs:     make(map[protocol.DocumentURI]*openDocument),
		inflight: make(map[string]context.CancelFunc),
	}
}

func (s *session) close() {
	s.mu.Lock()
	for _, d := range s.docs {
		d.stopReconcile()
	}
	for _, cancel := range s.inflight {
		cancel()
	}
	s.mu.Unlock()
	s.stop()
}

func (s *session) exitedCleanly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited && s.shutdown
}

func (d *openDocument) stopReconcile() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func invalidParams(err error) error {
	return jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
}

func (s *session) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.logger.Debug("Received request", zap.String("method", req.Method()))

	s.mu.Lock()
	shutdown := s.shutdown
	s.mu.Unlock()
	if shutdown && req.Method() != "exit" {
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down"))
	}

	switch req.Method() {
	case "initialize":
		var params protocol.InitializeParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, invalidParams(err))
		}
		return reply(ctx, s.initialize(&params), nil)

	case "initialized":
		s.logger.Info("Client initialized")
		return reply(ctx, nil, nil)

	case "shutdown":
		s.mu.Lock()
		s.shutdown = true
		for _, d := range s.docs {
			d.stopReconcile()
		}
		s.mu.Unlock()
		return reply(ctx, nil, nil)

	case "exit":
		s.mu.Lock()
		s.exited = true
		s.mu.Unlock()
		s.stop()
		if s.closeConn != nil {
			if err := s.closeConn(); err != nil {
				s.logger.Debug("Failed to close connection on exit", zap.Error(err))
			}
		}
		return nil

	case "$/cancelRequest":
		var params struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, invalidParams(err))
		}
		s.mu.Lock()
		if cancel, ok := s.inflight[string(bytes.TrimSpace(params.ID))]; ok {
			cancel()
		}
		s.mu.Unlock()
		return nil

	case "textDocument/didOpen":
		var params protocol.DidOpenTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, invalidParams(err))
		}
		s.didOpen(&params)
		return reply(ctx, nil, nil)

	case "textDocument/didChange":
		var params protocol.DidChangeTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, invalidParams(err))
		}
		s.didChange(&params)
		return reply(ctx, nil, nil)

	case "textDocument/didClose":
		var params protocol.DidCloseTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, invalidParams(err))
		}
		s.didClose(&params)
		return reply(ctx, nil, nil)

	case "workspace/didChangeWatchedFiles":
		var params protocol.DidChangeWatchedFilesParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, invalidParams(err))
		}
		s.didChangeWatchedFiles(&params)
		return reply(ctx, nil, nil)

	case "textDocument/completion":
		var params protocol.CompletionParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, invalidParams(err))
		}
		doc, ok := s.document(params.TextDocument.URI)
		if !ok {
			return reply(ctx, nil, nil)
		}
		s.async(req, reply, func(rctx context.Context) (interface{}, error) {
			return s.completion(rctx, doc, params.Position), nil
		})
		return nil

	case "textDocument/hover":
		var params protocol.HoverParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, invalidParams(err))
		}
		doc, ok := s.document(params.TextDocument.URI)
		if !ok {
			return reply(ctx, nil, nil)
		}
		s.async(req, reply, func(rctx context.Context) (interface{}, error) {
			return s.hover(rctx, doc, params.Position), nil
		})
		return nil

	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

// async runs fn off the read loop so that $/cancelRequest can reach it. The
// document is captured by the caller before this returns, which keeps
// requests ordered with respect to edits.
func (s *session) async(req jsonrpc2.Request, reply jsonrpc2.Replier, fn func(context.Context) (interface{}, error)) {
	rctx, cancel := context.WithCancel(s.ctx)

	var key string
	if call, ok := req.(*jsonrpc2.Call); ok {
		if raw, err := json.Marshal(call.ID()); err == nil {
			key = string(raw)
			s.mu.Lock()
			s.inflight[key] = cancel
			s.mu.Unlock()
		}
	}

	go func() {
		defer func() {
			cancel()
			if key != "" {
				s.mu.Lock()
				delete(s.inflight, key)
				s.mu.Unlock()
			}
		}()

		result, err := fn(rctx)
		if rctx.Err() != nil && s.ctx.Err() == nil {
			s.logger.Debug("Request cancelled", zap.String("method", req.Method()))
			result, err = nil, jsonrpc2.NewError(codeRequestCancelled, "request cancelled")
		}
		if err := reply(s.ctx, result, err); err != nil {
			s.logger.Warn("Failed to send reply", zap.String("method", req.Method()), zap.Error(err))
		}
	}()
}

func (s *session) initialize(params *protocol.InitializeParams) *protocol.InitializeResult {
	if params.ClientInfo != nil {
		s.logger.Info("Initializing session",
			zap.String("client", params.ClientInfo.Name),
			zap.String("client_version", params.ClientInfo.Version),
		)
	}
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			HoverProvider: true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{".", "=", ":", "[", " "},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "config-props-lsp",
			Version: Version,
		},
	}
}

func toVersion(v int64) uint32 {
	u, err := safecast.Conv[uint32](v)
	if err != nil {
		return 0
	}
	return u
}

func (s *session) didOpen(params *protocol.DidOpenTextDocumentParams) {
	uri := params.TextDocument.URI
	syntax, ok := document.SyntaxForLanguageID(string(params.TextDocument.LanguageID))
	if !ok {
		syntax = document.SyntaxForPath(string(uri))
	}
	s.logger.Debug("Document opened",
		zap.String("uri", string(uri)),
		zap.Stringer("syntax", syntax),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.docs[uri]; ok {
		old.stopReconcile()
	}
	d := &openDocument{
		uri:     uri,
		syntax:  syntax,
		version: toVersion(int64(params.TextDocument.Version)),
		text:    params.TextDocument.Text,
	}
	s.docs[uri] = d
	s.scheduleReconcileLocked(d)
}

func (s *session) didChange(params *protocol.DidChangeTextDocumentParams) {
	if len(params.ContentChanges) == 0 {
		return
	}
	// Full sync: the last change holds the whole text.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[params.TextDocument.URI]
	if !ok {
		s.logger.Warn("Change for unopened document", zap.String("uri", string(params.TextDocument.URI)))
		return
	}
	d.text = text
	d.version = toVersion(int64(params.TextDocument.Version))
	s.scheduleReconcileLocked(d)
}

func (s *session) didClose(params *protocol.DidCloseTextDocumentParams) {
	uri := params.TextDocument.URI
	s.mu.Lock()
	if d, ok := s.docs[uri]; ok {
		d.stopReconcile()
		delete(s.docs, uri)
	}
	s.mu.Unlock()

	s.publish(uri, 0, []protocol.Diagnostic{})
}

func (s *session) didChangeWatchedFiles(params *protocol.DidChangeWatchedFilesParams) {
	relevant := false
	for _, change := range params.Changes {
		if metadata.IsDescriptorFile(string(change.URI)) {
			relevant = true
			break
		}
	}
	if !relevant {
		return
	}
	go func() {
		if _, err := s.server.metadata.Reload(s.ctx); err != nil {
			s.logger.Error("Failed to reload metadata", zap.Error(err))
		}
	}()
}

// document snapshots the current text of an open document.
func (s *session) document(uri protocol.DocumentURI) (*document.Document, bool) {
	s.mu.Lock()
	d, ok := s.docs[uri]
	var text string
	var syntax document.Syntax
	if ok {
		text, syntax = d.text, d.syntax
	}
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.server.docs.Document(text, syntax), true
}

func (s *session) completion(ctx context.Context, doc *document.Document, pos protocol.Position) *protocol.CompletionList {
	proposals := s.server.engine().Complete(ctx, doc, offsetAt(doc, pos))
	items := make([]protocol.CompletionItem, 0, len(proposals))
	for _, p := range proposals {
		items = append(items, completionItem(doc, p))
	}
	return &protocol.CompletionList{
		IsIncomplete: true,
		Items:        items,
	}
}

func (s *session) hover(ctx context.Context, doc *document.Document, pos protocol.Position) *protocol.Hover {
	info, ok := s.server.engine().Hover(ctx, doc, offsetAt(doc, pos))
	if !ok {
		return nil
	}
	return lspHover(doc, info)
}

// scheduleReconcileLocked restarts the debounce timer of d, cancelling any
// run in progress. s.mu must be held.
func (s *session) scheduleReconcileLocked(d *openDocument) {
	d.stopReconcile()
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(s.server.cfg.ReconcileDebounce(), func() {
		s.reconcile(d.uri, seq)
	})
}

func (s *session) reconcile(uri protocol.DocumentURI, seq uint64) {
	s.mu.Lock()
	d, ok := s.docs[uri]
	if !ok || d.seq != seq || s.shutdown {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	d.cancel = cancel
	text, syntax, version := d.text, d.syntax, d.version
	s.mu.Unlock()
	defer cancel()

	doc := s.server.docs.Document(text, syntax)
	diags := s.server.engine().Reconcile(ctx, doc)
	if ctx.Err() != nil {
		s.logger.Debug("Discarding cancelled reconcile", zap.String("uri", string(uri)))
		return
	}

	s.mu.Lock()
	d, ok = s.docs[uri]
	stale := !ok || d.seq != seq
	s.mu.Unlock()
	if stale {
		return
	}
	s.publish(uri, version, lspDiagnostics(doc, diags))
}

func (s *session) publish(uri protocol.DocumentURI, version uint32, diags []protocol.Diagnostic) {
	s.logger.Debug("Publishing diagnostics",
		zap.String("uri", string(uri)),
		zap.Int("count", len(diags)),
	)
	err := s.client.Notify(s.ctx, "textDocument/publishDiagnostics", &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: diags,
	})
	if err != nil && s.ctx.Err() == nil {
		s.logger.Warn("Failed to publish diagnostics", zap.String("uri", string(uri)), zap.Error(err))
	}
}

// watchMetadata re-reconciles every open document when a new metadata
// snapshot is published.
func (s *session) watchMetadata() {
	updates, cancel := s.server.metadata.Store().Subscribe()
	defer cancel()
	for {
		select {
		case <-s.ctx.Done():
			return
		case version, ok := <-updates:
			if !ok {
				return
			}
			s.logger.Info("Metadata changed, revalidating open documents", zap.Uint64("version", version))
			s.mu.Lock()
			if !s.shutdown {
				for _, d := range s.docs {
					s.scheduleReconcileLocked(d)
				}
			}
			s.mu.Unlock()
		}
	}
}
