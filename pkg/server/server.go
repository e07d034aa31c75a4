// Package server exposes the HTTP surface: game discovery, WebRTC
// negotiation, session params, and service health.
package server

import (
	"net/http"

	"github.com/oneirogames/oneiro/pkg/config"
	"github.com/oneirogames/oneiro/pkg/games"
	"github.com/oneirogames/oneiro/pkg/logger"
	"github.com/oneirogames/oneiro/pkg/network/httpx"
	"github.com/oneirogames/oneiro/pkg/session"
)

type Server struct {
	conf     config.ServerConfig
	library  games.GameLibrary
	sessions *session.Manager
	log      *logger.Logger
}

func New(conf config.ServerConfig, library games.GameLibrary, sessions *session.Manager, log *logger.Logger) *Server {
	return &Server{
		conf:     conf,
		library:  library,
		sessions: sessions,
		log:      log.Extend(log.With().Str("m", "http")),
	}
}

func (s *Server) NewHTTPServer() (*httpx.Server, error) {
	return httpx.NewServer(
		s.conf.Oneiro.Server.GetAddr(),
		func(*httpx.Server) http.Handler { return s.routes() },
		httpx.WithServerConfig(s.conf.Oneiro.Server),
		httpx.WithLogger(s.log),
	)
}

func (s *Server) routes() http.Handler {
	h := httpx.NewServeMux()
	h.HandleFunc("GET /health", s.health)
	h.HandleFunc("GET /status", s.status)
	h.HandleFunc("GET /game_info", s.gameList)
	h.HandleFunc("GET /game_info/{type}", s.gameListType)
	h.HandleFunc("GET /game_info/{type}/{id}", s.gameInfo)
	h.HandleFunc("GET /turn-credentials", s.turnCredentials)
	h.HandleFunc("POST /offer/{type}/{id}", s.offer)
	h.HandleFunc("POST /params/{sid}", s.updateParams)
	h.HandleFunc("GET /params/{sid}/schema", s.paramsSchema)
	h.HandleFunc("DELETE /session/{sid}", s.endSession)
	h.HandleFunc("GET /thumb/{type}/{id}", s.thumb)
	return h
}
