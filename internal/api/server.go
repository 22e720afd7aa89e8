package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pbaille/taxonomist/internal/domain"
	"github.com/pbaille/taxonomist/internal/imageinfo"
	"github.com/pbaille/taxonomist/internal/labels"
	"github.com/pbaille/taxonomist/internal/session"
)

// Server exposes one classification session over HTTP
type Server struct {
	sess      *session.Session
	labelsDir string
	addr      string
	logger    *slog.Logger
}

// New creates a new API server
func New(sess *session.Session, labelsDir, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{sess: sess, labelsDir: labelsDir, addr: addr, logger: logger}
}

// Router builds the route table
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(Logger(s.logger))
	r.Use(Recovery(s.logger))

	// Health check
	r.Get("/health", s.health)

	// Label sets
	r.Get("/labels", s.listLabelSets)

	// Session
	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.getState)
		r.Get("/image", s.currentImage)
		r.Get("/choices", s.listChoices)
		r.Post("/classify", s.classify)
		r.Post("/ignore", s.ignore)
		r.Post("/undo", s.undo)
	})

	return r
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.logger.Info("starting server", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Router())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LabelSetsResponse lists the usable label sets
type LabelSetsResponse struct {
	LabelsDir string            `json:"labels_dir"`
	Sets      []domain.LabelSet `json:"sets"`
}

func (s *Server) listLabelSets(w http.ResponseWriter, r *http.Request) {
	catalog, err := labels.Load(s.labelsDir)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}

	resp := LabelSetsResponse{LabelsDir: s.labelsDir, Sets: []domain.LabelSet{}}
	for _, name := range catalog.Names() {
		resp.Sets = append(resp.Sets, catalog[name])
	}
	writeJSON(w, http.StatusOK, resp)
}

// StateResponse describes where the session stands
type StateResponse struct {
	Labels     []string        `json:"labels"`
	InputDir   string          `json:"input_dir"`
	OutputDir  string          `json:"output_dir"`
	Index      int             `json:"index"`
	Total      int             `json:"total"`
	Remaining  bool            `json:"remaining"`
	Current    string          `json:"current,omitempty"`
	Image      *imageinfo.Info `json:"image,omitempty"`
	LastChoice *domain.Choice  `json:"last_choice,omitempty"`
}

func (s *Server) state() StateResponse {
	snap := s.sess.Snapshot()
	resp := StateResponse{
		Labels:     s.sess.Labels(),
		InputDir:   s.sess.InputDir(),
		OutputDir:  s.sess.OutputDir(),
		Index:      snap.Index,
		Total:      snap.Total,
		Remaining:  snap.HasCurrent,
		Current:    snap.Current,
		LastChoice: snap.LastChoice,
	}

	if snap.HasCurrent {
		if info, err := imageinfo.Describe(snap.Current); err == nil {
			resp.Image = &info
		}
	}
	return resp
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) currentImage(w http.ResponseWriter, r *http.Request) {
	current, ok := s.sess.CurrentImagePath()
	if !ok {
		s.writeSessionError(w, domain.ErrNoImagesRemaining)
		return
	}
	http.ServeFile(w, r, current)
}

func (s *Server) listChoices(w http.ResponseWriter, r *http.Request) {
	choices := s.sess.Choices()
	if choices == nil {
		choices = []domain.Choice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"choices": choices})
}

// ClassifyRequest is the request body for classifying the current image
type ClassifyRequest struct {
	Label string `json:"label"`
}

// ActionResponse returns the affected choice with the new state
type ActionResponse struct {
	Choice domain.Choice `json:"choice"`
	State  StateResponse `json:"state"`
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	choice, err := s.sess.Classify(req.Label)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Choice: choice, State: s.state()})
}

func (s *Server) ignore(w http.ResponseWriter, r *http.Request) {
	choice, err := s.sess.Ignore()
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Choice: choice, State: s.state()})
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	choice, err := s.sess.Undo()
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Choice: choice, State: s.state()})
}

// writeSessionError maps session failures to status codes
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownLabel):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoImagesRemaining), errors.Is(err, domain.ErrNoChoicesToUndo):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("session operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
