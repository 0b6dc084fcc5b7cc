package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jfrchan18/rag-chatbot/internal/ai"
	"github.com/jfrchan18/rag-chatbot/internal/ai/aitest"
	"github.com/jfrchan18/rag-chatbot/internal/config"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
	"github.com/jfrchan18/rag-chatbot/internal/repo/repotest"
	"github.com/jfrchan18/rag-chatbot/internal/service"
)

const testDim = 4

type testServer struct {
	engine    *gin.Engine
	store     *repotest.Memory
	embedder  *aitest.Embedder
	generator *aitest.Generator
}

func newTestServer(t *testing.T, maxUpload int64, opts ...func(*config.RAGConfig)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	overlap := 20
	cfg := config.RAGConfig{
		ChunkSize:         200,
		ChunkOverlap:      &overlap,
		SearchTopK:        5,
		SearchMaxTopK:     50,
		AskTopK:           4,
		AskMaxTopK:        20,
		IngestConcurrency: 2,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	store := repotest.NewMemory(testDim)
	embedder := aitest.NewEmbedder(testDim)
	generator := &aitest.Generator{Reply: "grounded answer"}
	chunker, err := ai.NewChunker(cfg.ChunkSize, cfg.Overlap())
	require.NoError(t, err)

	retrieval := service.NewRetrievalService(store, embedder, cfg)
	extractor := func(ctx context.Context, data []byte) (string, error) {
		if len(data) == 0 {
			return "", fmt.Errorf("%w: empty pdf", appErr.ErrExtraction)
		}
		return string(data), nil
	}
	ingest := service.NewIngestService(store, embedder, chunker, cfg, service.WithPDFExtractor(extractor))

	r := gin.New()
	RegisterRoutes(r.Group(""), RouterDeps{
		Documents: NewDocumentHandler(service.NewDocumentService(store, embedder)),
		Search:    NewSearchHandler(retrieval, service.NewAnswerService(retrieval, embedder, generator)),
		Chat:      NewChatHandler(service.NewChatService(store)),
		Upload:    NewUploadHandler(ingest, maxUpload),
	})
	return &testServer{engine: r, store: store, embedder: embedder, generator: generator}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload-pdf", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)
	code, body := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["ok"])
	require.Equal(t, "api", body["service"])
	require.Equal(t, "0.1.0", body["version"])
	require.EqualValues(t, 0, body["documents"])

	s.store.CountErr = appErr.ErrStorage
	code, body = s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, code)
	require.Nil(t, body["documents"])
}

func TestDocumentAndChunkFlow(t *testing.T) {
	s := newTestServer(t, 0)

	code, body := s.do(t, http.MethodPost, "/documents", gin.H{"doc_name": "notes"})
	require.Equal(t, http.StatusOK, code)
	docID := body["doc_id"]
	require.EqualValues(t, 1, docID)

	code, body = s.do(t, http.MethodPost, "/chunks", gin.H{
		"doc_id":    docID,
		"content":   "manual chunk",
		"embedding": []float32{1, 0, 0, 0},
	})
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 1, body["chunk_id"])

	code, body = s.do(t, http.MethodPost, "/embed-and-chunk", gin.H{"doc_id": docID, "content": "server embedded"})
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 2, body["chunk_id"])

	code, body = s.do(t, http.MethodPost, "/search", gin.H{"embedding": []float32{1, 0, 0, 0}, "top_k": 1})
	require.Equal(t, http.StatusOK, code)
	results := body["results"].([]interface{})
	require.Len(t, results, 1)
	first := results[0].(map[string]interface{})
	require.Equal(t, "manual chunk", first["content"])
	require.EqualValues(t, 1, first["doc_id"])
	require.InDelta(t, 0, first["distance"], 1e-6)
}

func TestCreateDocumentValidation(t *testing.T) {
	s := newTestServer(t, 0)
	code, body := s.do(t, http.MethodPost, "/documents", gin.H{"doc_name": "  "})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "invalid", body["code"])

	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	code, body = s.serve(t, req)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "invalid", body["code"])
}

func TestChunkErrors(t *testing.T) {
	s := newTestServer(t, 0)

	code, body := s.do(t, http.MethodPost, "/chunks", gin.H{"doc_id": 1, "content": "x", "embedding": []float32{1, 0}})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "invalid", body["code"])

	code, body = s.do(t, http.MethodPost, "/chunks", gin.H{"doc_id": 42, "content": "x", "embedding": []float32{1, 0, 0, 0}})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "foreign_key", body["code"])

	s.embedder.Err = fmt.Errorf("%w: provider down", appErr.ErrExternalAPI)
	code, body = s.do(t, http.MethodPost, "/embed-and-chunk", gin.H{"doc_id": 1, "content": "x"})
	require.Equal(t, http.StatusBadGateway, code)
	require.Equal(t, "external_api", body["code"])
	require.Contains(t, body["detail"], "provider down")
}

func TestSearchTopKBoundary(t *testing.T) {
	s := newTestServer(t, 0)
	for _, k := range []int{0, 51} {
		code, body := s.do(t, http.MethodPost, "/search-text", gin.H{"text": "q", "top_k": k})
		require.Equal(t, http.StatusBadRequest, code, "top_k=%d", k)
		require.Equal(t, "invalid", body["code"])
	}
	code, _ := s.do(t, http.MethodPost, "/ask", gin.H{"question": "q", "top_k": 21})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, 0, s.embedder.Calls())

	code, body := s.do(t, http.MethodPost, "/search-text", gin.H{"text": "q"})
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, body["results"])
}

func TestAskEmptyStoreSkipsModel(t *testing.T) {
	s := newTestServer(t, 0)
	code, body := s.do(t, http.MethodPost, "/ask", gin.H{"question": "anything?"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, service.UnknownAnswer, body["answer"])
	require.Empty(t, body["sources"])
	require.Empty(t, s.generator.Calls())
}

func TestAskAndDebug(t *testing.T) {
	s := newTestServer(t, 0)
	_, body := s.do(t, http.MethodPost, "/documents", gin.H{"doc_name": "kb"})
	docID := body["doc_id"]
	for _, content := range []string{"alpha facts", "beta facts"} {
		code, _ := s.do(t, http.MethodPost, "/embed-and-chunk", gin.H{"doc_id": docID, "content": content})
		require.Equal(t, http.StatusOK, code)
	}

	code, body := s.do(t, http.MethodPost, "/ask", gin.H{"question": "alpha facts", "top_k": 2})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "grounded answer", body["answer"])
	sources := body["sources"].([]interface{})
	require.Len(t, sources, 2)
	require.Equal(t, "alpha facts", sources[0].(map[string]interface{})["content"])

	code, body = s.do(t, http.MethodPost, "/ask-debug", gin.H{"question": "alpha facts", "top_k": 1})
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["hits"], 1)
	require.Equal(t, "- alpha facts", body["context"])
	require.Len(t, s.generator.Calls(), 1)

	s.generator.Err = fmt.Errorf("%w: timeout", appErr.ErrExternalAPI)
	code, body = s.do(t, http.MethodPost, "/ask", gin.H{"question": "alpha facts"})
	require.Equal(t, http.StatusBadGateway, code)
	require.Equal(t, "external_api", body["code"])
}

func TestChatHistory(t *testing.T) {
	s := newTestServer(t, 0)
	for _, m := range []gin.H{
		{"session_id": "s1", "role": "user", "message": "hi"},
		{"session_id": "s1", "role": "Assistant", "message": "hello"},
		{"session_id": "s1", "role": "user", "message": "bye"},
		{"session_id": "s2", "role": "user", "message": "other"},
	} {
		code, body := s.do(t, http.MethodPost, "/chat", m)
		require.Equal(t, http.StatusOK, code)
		require.NotZero(t, body["chat_id"])
	}

	code, body := s.do(t, http.MethodPost, "/chat", gin.H{"session_id": "s1", "role": "system", "message": "x"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body["detail"], "role must be 'user' or 'assistant'")

	code, body = s.do(t, http.MethodGet, "/chat/s1", nil)
	require.Equal(t, http.StatusOK, code)
	history := body["history"].([]interface{})
	require.Len(t, history, 3)
	var got []string
	for _, h := range history {
		item := h.(map[string]interface{})
		require.NotEmpty(t, item["created_at"])
		got = append(got, item["role"].(string)+":"+item["message"].(string))
	}
	require.Equal(t, []string{"user:hi", "assistant:hello", "user:bye"}, got)

	code, body = s.do(t, http.MethodGet, "/chat/nobody", nil)
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, body["history"])
}

func TestUploadPDF(t *testing.T) {
	s := newTestServer(t, 1024)

	code, body := s.serve(t, uploadRequest(t, "notes.txt", []byte("text")))
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Only PDF files are supported", body["detail"])

	code, body = s.serve(t, uploadRequest(t, "big.pdf", bytes.Repeat([]byte("a"), 2048)))
	require.Equal(t, http.StatusRequestEntityTooLarge, code)
	require.Equal(t, "too_large", body["code"])
	require.Equal(t, "file too large (max 1KB)", body["detail"])

	code, body = s.serve(t, uploadRequest(t, "empty.pdf", nil))
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "extraction_failed", body["code"])

	text := "first paragraph of the manual\n\nsecond paragraph of the manual"
	code, body = s.serve(t, uploadRequest(t, "manual.PDF", []byte(text)))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, uploadMessage, body["message"])
	require.Equal(t, "manual.PDF", body["filename"])
	require.EqualValues(t, 1, body["doc_id"])
	require.EqualValues(t, len(text), body["text_length"])
	require.EqualValues(t, 1, body["chunks_created"])
	require.Len(t, body["chunk_ids"], 1)
	require.Len(t, s.store.Chunks(), 1)
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	s := newTestServer(t, 1024)
	req := uploadRequest(t, "huge.pdf", bytes.Repeat([]byte("a"), 200*1024))
	req.ContentLength = -1
	code, body := s.serve(t, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, code)
	require.Equal(t, "too_large", body["code"])

	code, body = s.serve(t, uploadRequest(t, "huge.pdf", bytes.Repeat([]byte("a"), 200*1024)))
	require.Equal(t, http.StatusRequestEntityTooLarge, code)
	require.Equal(t, "too_large", body["code"])
	require.Empty(t, s.store.Documents())
}

// paragraphText builds n paragraphs that each land in their own chunk.
func paragraphText(n int, marker string) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := fmt.Sprintf("section %02d %s", i, strings.Repeat("y", 150))
		if i == n-1 {
			p = marker + " " + p
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "\n\n")
}

func TestUploadPartialFailureReportsProgress(t *testing.T) {
	atomic := false
	s := newTestServer(t, 0, func(cfg *config.RAGConfig) {
		cfg.AtomicIngest = &atomic
		cfg.IngestConcurrency = 1
	})
	s.embedder.FailOn = "BROKEN"

	code, body := s.serve(t, uploadRequest(t, "manual.pdf", []byte(paragraphText(5, "BROKEN"))))
	require.Equal(t, http.StatusBadGateway, code)
	require.Equal(t, "external_api", body["code"])
	require.EqualValues(t, 1, body["doc_id"])
	require.EqualValues(t, 4, body["chunks_created"])
	require.Equal(t, []interface{}{float64(1), float64(2), float64(3), float64(4)}, body["chunk_ids"])
	require.Len(t, s.store.Chunks(), 4)
}

func TestUploadAtomicFailureReportsNothingStored(t *testing.T) {
	s := newTestServer(t, 0)
	s.embedder.FailOn = "BROKEN"

	code, body := s.serve(t, uploadRequest(t, "manual.pdf", []byte(paragraphText(5, "BROKEN"))))
	require.Equal(t, http.StatusBadGateway, code)
	require.EqualValues(t, 0, body["doc_id"])
	require.EqualValues(t, 0, body["chunks_created"])
	require.Equal(t, []interface{}{}, body["chunk_ids"])
	require.Empty(t, s.store.Documents())
	require.Empty(t, s.store.Chunks())
}

func TestUploadRequiresFile(t *testing.T) {
	s := newTestServer(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/upload-pdf", strings.NewReader(""))
	code, body := s.serve(t, req)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "file is required", body["detail"])
}

func TestResetDatabase(t *testing.T) {
	s := newTestServer(t, 0)
	_, body := s.do(t, http.MethodPost, "/documents", gin.H{"doc_name": "kb"})
	s.do(t, http.MethodPost, "/embed-and-chunk", gin.H{"doc_id": body["doc_id"], "content": "c"})
	s.do(t, http.MethodPost, "/chat", gin.H{"session_id": "s", "role": "user", "message": "m"})

	code, body := s.do(t, http.MethodDelete, "/reset-database", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Database reset successfully", body["message"])
	require.Equal(t, true, body["chat_history_deleted"])
	require.Empty(t, s.store.Documents())
	require.Empty(t, s.store.Chunks())

	_, body = s.do(t, http.MethodGet, "/health", nil)
	require.EqualValues(t, 0, body["documents"])
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: x", appErr.ErrInvalid), http.StatusBadRequest, "invalid"},
		{fmt.Errorf("%w: x", appErr.ErrExtraction), http.StatusBadRequest, "extraction_failed"},
		{fmt.Errorf("insert: %w", appErr.ErrForeignKey), http.StatusBadRequest, "foreign_key"},
		{appErr.ErrNotFound, http.StatusNotFound, "not_found"},
		{appErr.ErrDimension, http.StatusInternalServerError, "dimension_mismatch"},
		{appErr.ErrStorage, http.StatusInternalServerError, "storage"},
		{appErr.ErrConnection, http.StatusInternalServerError, "connection"},
		{&service.IngestError{Err: appErr.ErrExternalAPI}, http.StatusBadGateway, "external_api"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, code := classify(tc.err)
		require.Equal(t, tc.status, status, tc.err.Error())
		require.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestFormatUploadLimit(t *testing.T) {
	require.Equal(t, "0B", formatUploadLimit(0))
	require.Equal(t, "10B", formatUploadLimit(10))
	require.Equal(t, "1KB", formatUploadLimit(1024))
	require.Equal(t, "20MB", formatUploadLimit(20*1024*1024))
}
