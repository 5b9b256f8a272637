package uploadserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Upload errors are sent to clients verbatim as the "error" field.
var (
	ErrMissingFile          = errors.New("Missing file")
	ErrUnsupportedExtension = errors.New("Only .xlsx/.xls files are supported")
	ErrInvalidName          = errors.New("Invalid file name")
)

const maxFormMemory = 50 << 20

// ProjectID derives the project identifier from an uploaded file name: any
// directory components are dropped and a trailing .xlsx or .xls (any case)
// is stripped. The stem keeps its original case.
func ProjectID(filename string) (string, error) {
	if i := strings.LastIndexAny(filename, `/\`); i != -1 {
		filename = filename[i+1:]
	}

	lower := strings.ToLower(filename)
	var stem string
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		stem = filename[:len(filename)-len(".xlsx")]
	case strings.HasSuffix(lower, ".xls"):
		stem = filename[:len(filename)-len(".xls")]
	default:
		return "", ErrUnsupportedExtension
	}

	if stem == "" || stem == "." || stem == ".." {
		return "", ErrInvalidName
	}
	return stem, nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type uploadResponse struct {
	OK        bool   `json:"ok"`
	ProjectID string `json:"projectId"`
	SavedPath string `json:"savedPath"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Accepts multipart form with a single "file" field holding an .xlsx/.xls
// workbook. The bytes are stored as <projectId>.xlsx, replacing any earlier
// upload with the same id.
// Returns on 200: { ok: true, projectId, savedPath }
func uploadHandler(store Store, m *metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}

		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			log.Printf("upload: parse form: %v", err)
			if isMalformedForm(err) {
				m.observe(resultMissingFile, 0)
				respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrMissingFile.Error()})
				return
			}
			// Spilling a large part to disk or reading the body failed.
			m.observe(resultIOError, 0)
			respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, hdr, err := r.FormFile("file")
		if err != nil {
			m.observe(resultMissingFile, 0)
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrMissingFile.Error()})
			return
		}
		defer file.Close()

		projectID, err := ProjectID(hdr.Filename)
		if err != nil {
			log.Printf("upload: rejected %q: %v", hdr.Filename, err)
			m.observe(resultFor(err), 0)
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			log.Printf("upload: read %q: %v", hdr.Filename, err)
			m.observe(resultIOError, 0)
			respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		savedPath, err := store.Save(ctx, projectID, data)
		if err != nil {
			log.Printf("upload: save %q: %v", projectID, err)
			m.observe(resultIOError, len(data))
			respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}

		log.Printf("upload: saved %q (%d bytes, type %q) to %s",
			hdr.Filename, len(data), hdr.Header.Get("Content-Type"), savedPath)
		m.observe(resultOK, len(data))
		respondJSON(w, http.StatusOK, uploadResponse{OK: true, ProjectID: projectID, SavedPath: savedPath})
	}
}

// isMalformedForm reports whether a ParseMultipartForm error means the request
// carries no usable multipart form, as opposed to a server side I/O failure.
func isMalformedForm(err error) bool {
	return errors.Is(err, http.ErrNotMultipart) ||
		errors.Is(err, http.ErrMissingBoundary) ||
		errors.Is(err, multipart.ErrMessageTooLarge)
}

func debugList(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		files, err := store.List(ctx)
		if err != nil {
			log.Printf("debugList: %v", err)
			respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{"backend": store.Describe(), "files": files})
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
