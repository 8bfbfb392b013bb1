// Package server exposes the document Q&A engine over HTTP: multipart
// uploads, batch question answering with an optional source-file filter,
// the uploaded-files listing, a destructive clear, and a WebSocket chat.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/websocket"

	"github.com/askdocs/askdocs/pkg/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Config struct {
	Port      string
	UploadDir string
}

type Server struct {
	config Config
	engine *engine.Engine
}

func New(config Config, eng *engine.Engine) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.UploadDir == "" {
		config.UploadDir = "docs"
	}
	return &Server{config: config, engine: eng}
}

// Handler returns the route table; split out so tests can drive it with
// httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/files", s.handleFiles)
	mux.HandleFunc("/clear", s.handleClear)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) Start() error {
	log.Printf("Starting server on port %s", s.config.Port)
	return http.ListenAndServe(":"+s.config.Port, s.Handler())
}

// handleUpload accepts one or more files in a multipart form, persists the
// raw bytes under the upload folder (later files overwrite earlier ones
// with the same name) and ingests them into the index.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(s.config.UploadDir, 0o755); err != nil {
		http.Error(w, "failed to create upload folder", http.StatusInternalServerError)
		return
	}

	var paths []string
	for _, header := range files {
		path, err := s.saveUpload(header)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to save %s: %v", header.Filename, err), http.StatusInternalServerError)
			return
		}
		paths = append(paths, path)
	}

	report, err := s.engine.IngestFiles(r.Context(), paths)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to process files: %v", err), http.StatusInternalServerError)
		return
	}

	failed := make([]string, 0, len(report.Failed))
	for _, fe := range report.Failed {
		failed = append(failed, fe.Error())
	}

	writeJSON(w, map[string]any{
		"message": "Files uploaded and processed successfully.",
		"files":   report.Files,
		"chunks":  report.Chunks,
		"failed":  failed,
	})
}

func (s *Server) saveUpload(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(s.config.UploadDir, filepath.Base(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

type askRequest struct {
	Questions []string `json:"questions"`
}

// handleAsk answers a batch of questions, optionally restricted to a single
// source file via the source_file query parameter. Responses preserve the
// question order.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Questions) == 0 {
		http.Error(w, "questions are required", http.StatusBadRequest)
		return
	}

	sourceFile := r.URL.Query().Get("source_file")

	exchanges, err := s.engine.Ask(r.Context(), req.Questions, sourceFile)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to answer questions: %v", err), http.StatusBadGateway)
		return
	}

	writeJSON(w, map[string]any{"responses": exchanges})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	records, err := s.engine.Files(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list files: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, records)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cleared, err := s.engine.Clear(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to clear data: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"message": "All files and embeddings cleared successfully.",
		"cleared": cleared,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type != "question" || msg.Content == "" {
			s.sendMessage(conn, "error", "expected a question message")
			continue
		}

		exchanges, err := s.engine.Ask(r.Context(), []string{msg.Content}, "")
		if err != nil {
			s.sendMessage(conn, "error", fmt.Sprintf("failed to answer: %v", err))
			continue
		}
		s.sendMessage(conn, "response", exchanges[0].Answer)
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType, content string) {
	if err := conn.WriteJSON(Message{Type: msgType, Content: content}); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
