package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/solenne/bistoury/rag_type"
	"github.com/solenne/bistoury/services/notification_service"
)

const maxUploadBytes = 32 << 20 // 32 MB per request

// DocumentProcessor is the slice of the ingestion pipeline the upload
// handler needs; tests substitute a fake.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, doc rag_type.Document) (*rag_type.RAGResponse, error)
}

type UploadResponse struct {
	Documents []rag_type.RAGResponse `json:"documents"`
	Count     int                    `json:"count"`
}

// UploadHandler ingests one or more uploaded documents. Each file is
// processed independently: a document that fails is reported as failed in
// the response while its siblings still complete.
type UploadHandler struct {
	processor DocumentProcessor
	notifier  *notification_service.SMSNotifier
	logger    *slog.Logger
}

func NewUploadHandler(processor DocumentProcessor, notifier *notification_service.SMSNotifier, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		processor: processor,
		notifier:  notifier,
		logger:    logger,
	}
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Received file upload request")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		writeJSONError(w, "No files in request", http.StatusBadRequest)
		return
	}

	responses := make([]rag_type.RAGResponse, 0, len(files))
	for _, header := range files {
		resp := h.processFile(r.Context(), header)
		if resp.Status == "failed" {
			h.notifier.NotifyIngestFailure(resp.Filename, resp.Error)
		}
		responses = append(responses, resp)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(UploadResponse{Documents: responses, Count: len(responses)}); err != nil {
		h.logger.Error("Failed to write upload response",
			slog.String("error", err.Error()))
	}
}

func (h *UploadHandler) processFile(ctx context.Context, header *multipart.FileHeader) rag_type.RAGResponse {
	failed := func(message, reason string) rag_type.RAGResponse {
		return rag_type.RAGResponse{
			Filename: header.Filename,
			Message:  message,
			Status:   "failed",
			Error:    reason,
		}
	}

	kind := rag_type.KindFromFilename(header.Filename)
	if kind == "" {
		h.logger.Error("Unsupported file type",
			slog.String("filename", header.Filename))
		return failed("Unsupported file type", "no extractor for file extension")
	}

	file, err := header.Open()
	if err != nil {
		return failed("Failed to open uploaded file", err.Error())
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return failed("Failed to read uploaded file", err.Error())
	}

	h.logger.Debug("Starting document ingestion",
		slog.String("filename", header.Filename),
		slog.String("media_kind", string(kind)),
		slog.Int64("size", header.Size))

	resp, err := h.processor.ProcessDocument(ctx, rag_type.Document{
		Filename:  header.Filename,
		MediaKind: kind,
		Content:   content,
	})
	if err != nil {
		// Backend unavailable; the document never reached the index.
		h.logger.Error("Document ingestion failed",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()))
		return failed("Failed to ingest document", err.Error())
	}
	return *resp
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
