package server

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/docuchat/docuchat/internal/logging"
)

// maxUploadBytes bounds the in-memory portion of a multipart upload;
// larger files spill to temporary disk storage during parsing.
const maxUploadBytes = 32 << 20

// defaultIngestSource labels raw-text ingests that carry no source name.
const defaultIngestSource = "user_upload"

// handleIngest handles POST /api/ingest: chunk and index raw text.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		jsonError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Source == "" {
		req.Source = defaultIngestSource
	}

	count, err := s.engine.IngestText(r.Context(), req.Text, req.Source, req.SessionID)
	if err != nil {
		jsonError(w, engineStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{Status: "success", ChunksAdded: count})
}

// handleUpload handles POST /api/upload: save a multipart file to the upload
// store, then extract and index it. The saved file is kept for later download;
// on ingest failure it is removed again so the document list and the upload
// directory stay in sync.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.files == nil {
		jsonError(w, http.StatusServiceUnavailable, "uploads are disabled")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	sessionID := r.FormValue("sessionId")

	path, err := s.files.Save(header.Filename, file)
	if err != nil {
		log.Error("upload save failed",
			slog.String("filename", header.Filename),
			slog.Any("error", err),
		)
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	count, err := s.engine.IngestFile(r.Context(), path, header.Filename, sessionID)
	if err != nil {
		if rmErr := s.files.Remove(header.Filename); rmErr != nil {
			log.Warn("upload cleanup failed",
				slog.String("filename", header.Filename),
				slog.Any("error", rmErr),
			)
		}
		log.Error("upload ingest failed",
			slog.String("filename", header.Filename),
			slog.Any("error", err),
		)
		jsonError(w, engineStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Status:      "success",
		Filename:    header.Filename,
		ChunksAdded: count,
	})
}

// handleDocuments handles GET /api/documents: list the distinct indexed sources.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.engine.ListDocuments(r.Context())
	if err != nil {
		jsonError(w, engineStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, documentsResponse{Documents: docs})
}

// handleDocumentDelete handles DELETE /api/documents/{filename}: remove all
// index entries for the document and its stored original, if any.
func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	if !s.engine.DeleteDocument(r.Context(), filename) {
		jsonError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	// The stored original is best effort: the index entries are already gone.
	if s.files != nil {
		if err := s.files.Remove(filename); err != nil {
			logging.FromContext(r.Context()).Warn("stored file removal failed",
				slog.String("filename", filename),
				slog.Any("error", err),
			)
		}
	}

	writeJSON(w, http.StatusOK, deleteDocumentResponse{Status: "deleted", Filename: filename})
}

// handleDocumentDownload handles GET /api/documents/{filename}/download,
// serving the stored original upload as an attachment.
func (s *Server) handleDocumentDownload(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	if s.files == nil {
		jsonError(w, http.StatusNotFound, "File not found")
		return
	}
	f, err := s.files.Open(filename)
	if err != nil {
		jsonError(w, http.StatusNotFound, "File not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// FormatMediaType escapes quotes and other specials in the stored name.
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, filename, info.ModTime(), f)
}
