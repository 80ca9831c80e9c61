package mockserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/betbot/gridhedge/pkg/sdk/api"
)

func (s *Server) handleSpecsList(c *gin.Context) {
	writeJSON(c, http.StatusOK, s.specs)
}

func (s *Server) handleInstrumentsList(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Instrument, 0, len(s.order))
	for _, symbol := range s.order {
		out = append(out, api.InstrumentFromDomain(s.instruments[symbol]))
	}
	writeJSON(c, http.StatusOK, out)
}

type createInstrumentRequest struct {
	Symbol string `json:"symbol"`
}

func (s *Server) handleInstrumentCreate(c *gin.Context) {
	var req createInstrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	spec, ok := s.specFor(symbol)
	if !ok {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("Unknown symbol %s", symbol))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.instruments[symbol]; exists {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("Instrument %s already exists", symbol))
		return
	}
	inst := defaultInstrument(spec)
	s.instruments[symbol] = inst
	s.order = append(s.order, symbol)
	log.Infof("instrument created: %s", symbol)
	writeJSON(c, http.StatusCreated, api.InstrumentFromDomain(inst))
}

func (s *Server) handleInstrumentUpdate(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	var body api.InstrumentPatch
	if err := c.ShouldBindJSON(&body); err != nil {
		writeValidationError(c, err)
		return
	}
	patch, ok := body.ToDomain()
	if !ok {
		writeValidationError(c, fmt.Errorf("tpLevels must contain exactly 2 levels"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.instruments[symbol]
	if !exists {
		writeError(c, http.StatusNotFound, fmt.Sprintf("Instrument %s not found", symbol))
		return
	}
	next := current.Apply(patch)
	if err := next.CheckConsistency(); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	s.instruments[symbol] = next
	writeJSON(c, http.StatusOK, api.InstrumentFromDomain(next))
}

func (s *Server) handleInstrumentDelete(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.instruments[symbol]; exists {
		delete(s.instruments, symbol)
		kept := s.order[:0]
		for _, sym := range s.order {
			if sym != symbol {
				kept = append(kept, sym)
			}
		}
		s.order = kept
		log.Infof("instrument deleted: %s", symbol)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSettingsStatus(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(c, http.StatusOK, api.SettingsStatus{Configured: s.settings.Configured()})
}

func (s *Server) handleSettingsAuthorize(c *gin.Context) {
	var req api.PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}
	if !s.verifyPassword(req.Password) {
		writeError(c, http.StatusUnauthorized, "Invalid password")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(c, http.StatusOK, s.settings)
}

func (s *Server) handleSettingsUpdate(c *gin.Context) {
	var req api.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}
	if !s.verifyPassword(req.Password) {
		writeError(c, http.StatusUnauthorized, "Invalid password")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.BybitAPIKey != nil {
		s.settings.BybitAPIKey = strings.TrimSpace(*req.BybitAPIKey)
	}
	if req.BybitSecretKey != nil {
		s.settings.BybitSecretKey = strings.TrimSpace(*req.BybitSecretKey)
	}
	log.Infof("settings updated, configured=%v", s.settings.Configured())
	writeJSON(c, http.StatusOK, s.settings)
}
