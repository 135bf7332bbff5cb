package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/woxQAQ/config-props-lsp/internal/config"
	"github.com/woxQAQ/config-props-lsp/internal/index"
	"github.com/woxQAQ/config-props-lsp/internal/metadata"
	props "github.com/woxQAQ/config-props-lsp/pkg/protocol"
)

const testURI = protocol.DocumentURI("file:///app/application.properties")

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerAt(t, filepath.Join("..", "metadata", "testdata", "descriptors"))
}

func newTestServerAt(t *testing.T, paths ...string) *Server {
	t.Helper()
	logger := zap.NewNop()
	cfg := &config.ServerConfig{
		DocumentCacheBytes: 1 << 20,
		Completion:         config.CompletionConfig{MaxResults: 50},
	}
	manager := metadata.NewManager(
		paths,
		metadata.NewLoader(nil, logger),
		metadata.NewStore(),
		logger,
	)
	srv, err := NewServer(context.Background(), cfg, manager, logger)
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	t.Cleanup(func() { srv.Close(context.Background()) })
	return srv
}

type testClient struct {
	conn  jsonrpc2.Conn
	diags chan protocol.PublishDiagnosticsParams
}

func connect(t *testing.T, srv *Server) *testClient {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, serverSide) }()

	c := &testClient{
		conn:  jsonrpc2.NewConn(jsonrpc2.NewStream(clientSide)),
		diags: make(chan protocol.PublishDiagnosticsParams, 32),
	}
	c.conn.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() == "textDocument/publishDiagnostics" {
			var p protocol.PublishDiagnosticsParams
			if err := json.Unmarshal(req.Params(), &p); err == nil {
				c.diags <- p
			}
		}
		return reply(ctx, nil, nil)
	})
	t.Cleanup(func() {
		cancel()
		c.conn.Close()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	var result protocol.InitializeResult
	if _, err := c.conn.Call(ctx, "initialize", &protocol.InitializeParams{}, &result); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if result.ServerInfo == nil || result.ServerInfo.Name != "config-props-lsp" {
		t.Fatalf("unexpected server info: %+v", result.ServerInfo)
	}
	if err := c.conn.Notify(ctx, "initialized", &protocol.InitializedParams{}); err != nil {
		t.Fatalf("initialized failed: %v", err)
	}
	return c
}

func (c *testClient) open(t *testing.T, text string) {
	t.Helper()
	err := c.conn.Notify(context.Background(), "textDocument/didOpen", &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        testURI,
			LanguageID: "properties",
			Version:    1,
			Text:       text,
		},
	})
	if err != nil {
		t.Fatalf("didOpen failed: %v", err)
	}
}

// waitDiagnostics returns the first published diagnostics accepted by match.
func (c *testClient) waitDiagnostics(t *testing.T, match func(protocol.PublishDiagnosticsParams) bool) protocol.PublishDiagnosticsParams {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case p := <-c.diags:
			if match(p) {
				return p
			}
		case <-timeout:
			t.Fatal("timed out waiting for diagnostics")
			return protocol.PublishDiagnosticsParams{}
		}
	}
}

func hasCode(p protocol.PublishDiagnosticsParams, code string) bool {
	for _, d := range p.Diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestServerPublishesDiagnostics(t *testing.T) {
	c := connect(t, newTestServer(t))
	c.open(t, "server.port=abc\nlogging.level.com.acme=debug\n")

	p := c.waitDiagnostics(t, func(p protocol.PublishDiagnosticsParams) bool { return len(p.Diagnostics) > 0 })
	if p.URI != testURI {
		t.Errorf("URI got %s, want %s", p.URI, testURI)
	}
	if len(p.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(p.Diagnostics), p.Diagnostics)
	}
	d := p.Diagnostics[0]
	if d.Severity != protocol.DiagnosticSeverityError || d.Code != props.CodeTypeMismatch {
		t.Errorf("got %v %v, want error %s", d.Severity, d.Code, props.CodeTypeMismatch)
	}
	wantRange := protocol.Range{
		Start: protocol.Position{Line: 0, Character: 12},
		End:   protocol.Position{Line: 0, Character: 15},
	}
	if d.Range != wantRange {
		t.Errorf("Range got %v, want %v", d.Range, wantRange)
	}

	err := c.conn.Notify(context.Background(), "textDocument/didChange", &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "server.port=8080\n"}},
	})
	if err != nil {
		t.Fatalf("didChange failed: %v", err)
	}
	c.waitDiagnostics(t, func(p protocol.PublishDiagnosticsParams) bool {
		return p.Version == 2 && len(p.Diagnostics) == 0
	})

	err = c.conn.Notify(context.Background(), "textDocument/didClose", &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	if err != nil {
		t.Fatalf("didClose failed: %v", err)
	}
	c.waitDiagnostics(t, func(p protocol.PublishDiagnosticsParams) bool {
		return p.Version == 0 && len(p.Diagnostics) == 0
	})
}

func TestServerRevalidatesOnMetadataChange(t *testing.T) {
	srv := newTestServer(t)
	c := connect(t, srv)
	c.open(t, "server.port=abc\n")

	c.waitDiagnostics(t, func(p protocol.PublishDiagnosticsParams) bool {
		return hasCode(p, props.CodeTypeMismatch)
	})

	srv.metadata.Store().Publish(index.MustNew(&index.PropertyInfo{ID: "banner.charset"}))
	c.waitDiagnostics(t, func(p protocol.PublishDiagnosticsParams) bool {
		return hasCode(p, props.CodeUnknownProperty) && !hasCode(p, props.CodeTypeMismatch)
	})
}

func TestServerCompletion(t *testing.T) {
	c := connect(t, newTestServer(t))
	c.open(t, "server.po")

	var list protocol.CompletionList
	_, err := c.conn.Call(context.Background(), "textDocument/completion", &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 0, Character: 9},
		},
	}, &list)
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if len(list.Items) == 0 {
		t.Fatal("expected completion items")
	}
	first := list.Items[0]
	if first.Label != "server.port" {
		t.Errorf("first label got %q, want server.port", first.Label)
	}
	if first.TextEdit == nil || !strings.HasPrefix(first.TextEdit.NewText, "server.port=8080") {
		t.Errorf("first edit got %+v", first.TextEdit)
	}
}

func TestServerHover(t *testing.T) {
	c := connect(t, newTestServer(t))
	c.open(t, "server.port=8080\n")

	var hover protocol.Hover
	_, err := c.conn.Call(context.Background(), "textDocument/hover", &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
			Position:     protocol.Position{Line: 0, Character: 3},
		},
	}, &hover)
	if err != nil {
		t.Fatalf("hover failed: %v", err)
	}
	if !strings.Contains(hover.Contents.Value, "**server.port**") {
		t.Errorf("hover got %q", hover.Contents.Value)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	c := connect(t, newTestServer(t))
	_, err := c.conn.Call(context.Background(), "textDocument/definition", nil, nil)
	if err == nil {
		t.Fatal("expected method not found error")
	}
}

func TestServerReloadsOnWatchedDescriptorChange(t *testing.T) {
	dir := t.TempDir()
	descriptor := filepath.Join(dir, "greeting.json")
	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(descriptor, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(`{"properties": [{"name": "server.port", "type": "java.lang.Integer"}]}`)

	c := connect(t, newTestServerAt(t, dir))
	c.open(t, "greeting.text=hello\n")
	c.waitDiagnostics(t, func(p protocol.PublishDiagnosticsParams) bool {
		return hasCode(p, props.CodeUnknownProperty)
	})

	write(`{"properties": [{"name": "greeting.text", "type": "java.lang.String"}]}`)
	err := c.conn.Notify(context.Background(), "workspace/didChangeWatchedFiles", &protocol.DidChangeWatchedFilesParams{
		Changes: []*protocol.FileEvent{{
			URI:  protocol.DocumentURI("file://" + filepath.ToSlash(descriptor)),
			Type: protocol.FileChangeTypeChanged,
		}},
	})
	if err != nil {
		t.Fatalf("didChangeWatchedFiles failed: %v", err)
	}
	c.waitDiagnostics(t, func(p protocol.PublishDiagnosticsParams) bool {
		return p.URI == testURI && len(p.Diagnostics) == 0
	})
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, string, interface{}) error { return nil }

func TestSessionCancelRequest(t *testing.T) {
	sess := newSession(context.Background(), newTestServer(t), discardNotifier{})
	defer sess.close()

	call, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(7), "textDocument/completion", nil)
	if err != nil {
		t.Fatal(err)
	}
	started := make(chan struct{})
	replied := make(chan error, 1)
	sess.async(call, func(_ context.Context, _ interface{}, err error) error {
		replied <- err
		return nil
	}, func(ctx context.Context) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, nil
	})
	<-started

	cancel, err := jsonrpc2.NewNotification("$/cancelRequest", map[string]int{"id": 7})
	if err != nil {
		t.Fatal(err)
	}
	noReply := func(context.Context, interface{}, error) error {
		t.Error("$/cancelRequest must not be answered")
		return nil
	}
	if err := sess.handle(context.Background(), noReply, cancel); err != nil {
		t.Fatalf("handle($/cancelRequest) failed: %v", err)
	}

	select {
	case err := <-replied:
		var rpcErr *jsonrpc2.Error
		if !errors.As(err, &rpcErr) || rpcErr.Code != codeRequestCancelled {
			t.Errorf("reply error got %v, want code %d", err, codeRequestCancelled)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request was never answered")
	}
}
