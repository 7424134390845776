package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"front50store/internal/objects"
	"front50store/internal/storage"
)

const maxObjectBodyBytes = 8 << 20

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	backend, bucket := s.svc.Describe()
	s.writeJSON(w, http.StatusOK, statusResponse{
		Backend:            backend,
		Bucket:             bucket,
		RootFolder:         s.svc.RootFolder(),
		SupportsVersioning: s.svc.SupportsVersioning(),
	})
}

func (s *Server) handleTypes(w http.ResponseWriter, _ *http.Request) {
	types := s.registry.Types()
	resp := typesResponse{Types: make([]typeResponse, 0, len(types))}
	for _, t := range types {
		resp.Types = append(resp.Types, typeResponse{
			Name:             t.Name,
			Group:            t.Group,
			MetadataFilename: t.MetadataFilename,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupType(w, r)
	if !ok {
		return
	}
	keys, err := s.svc.ListObjectKeys(r.Context(), t)
	if err != nil {
		s.writeObjectError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listResponse{Type: t.Group, Keys: keys})
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupType(w, r)
	if !ok {
		return
	}
	item, err := s.svc.LoadObject(r.Context(), t, chi.URLParam(r, "key"))
	if err != nil {
		s.writeObjectError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupType(w, r)
	if !ok {
		return
	}

	item := t.NewValue()
	if err := decodeJSONRequest(w, r, item); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_body", fmt.Sprintf("decode object: %v", err))
		return
	}
	if err := s.svc.StoreObject(r.Context(), t, chi.URLParam(r, "key"), item); err != nil {
		s.writeObjectError(w, err)
		return
	}
	// The backend assigns the timestamp; a GET returns it.
	item.Stamped().LastModified = 0
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupType(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteObject(r.Context(), t, chi.URLParam(r, "key")); err != nil {
		s.writeObjectError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) lookupType(w http.ResponseWriter, r *http.Request) (objects.ObjectType, bool) {
	t, err := s.registry.Lookup(chi.URLParam(r, "type"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "unknown_type", err.Error())
		return objects.ObjectType{}, false
	}
	return t, true
}

func (s *Server) writeObjectError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	s.writeError(w, status, code, err.Error())
}

func classifyError(err error) (int, string) {
	var decodeErr *objects.DeserializationError
	switch {
	case errors.Is(err, objects.ErrInvalidKey), errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest, "invalid_key"
	case errors.Is(err, objects.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity, "deserialization_failed"
	case errors.Is(err, objects.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusBadGateway, "storage_error"
	}
}

func decodeJSONRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxObjectBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code string, message string) {
	s.writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
