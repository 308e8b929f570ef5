package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/registry"
)

// generatorInfo is the public view of a registered generator.
type generatorInfo struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	ConfigKey   string `json:"config_key"`
	ClassName   string `json:"class_name"`
	Signature   string `json:"signature"`
}

func newGeneratorInfo(d registry.Descriptor) generatorInfo {
	return generatorInfo{
		Name:        d.Name,
		Category:    d.Category,
		Description: d.Description,
		ConfigKey:   d.ConfigKey,
		ClassName:   d.ClassName,
		Signature:   string(d.Signature()),
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.factory.ListCategories())
}

func (s *Server) handleListGenerators(w http.ResponseWriter, r *http.Request) {
	names := s.factory.ListNames(r.URL.Query().Get("category"))
	out := make([]generatorInfo, 0, len(names))
	for _, name := range names {
		if d, ok := s.factory.Metadata(name); ok {
			out = append(out, newGeneratorInfo(d))
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGenerator(w http.ResponseWriter, r *http.Request) {
	d, ok := s.factory.Metadata(chi.URLParam(r, "name"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "generator not found")
		return
	}
	s.writeJSON(w, http.StatusOK, newGeneratorInfo(d))
}
