// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// DefaultListLimit caps /api/runs when no limit is given.
const DefaultListLimit = 20

// latestRunID addresses the most recent run in run routes.
const latestRunID = "latest"

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

// Router registers the API routes on a fresh engine.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/runs", s.listRuns)
	r.GET("/api/runs/:id", s.getRun)
	r.GET("/api/runs/:id/cities", s.getCities)
	r.GET("/api/runs/:id/countries", s.getCountries)
	r.GET("/api/runs/:id/breakdown", s.getBreakdown)

	return r
}

func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) listRuns(ctx *gin.Context) {
	limit := DefaultListLimit

	if param := ctx.Query("limit"); param != "" {
		n, err := strconv.Atoi(param)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})

			return
		}

		limit = n
	}

	runs, err := s.repo.ListRuns(ctx.Request.Context(), limit)
	if err != nil {
		log.Printf("Error listing runs: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, runs)
}

// lookup resolves the :id param, writing the error response when it fails.
func (s *Server) lookup(ctx *gin.Context) (*Run, bool) {
	id := ctx.Param("id")

	var (
		run *Run
		err error
	)

	if id == latestRunID {
		run, err = s.repo.LatestRun(ctx.Request.Context())
	} else {
		run, err = s.repo.GetRun(ctx.Request.Context(), id)
	}

	switch {
	case errors.Is(err, ErrRunNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "run not found: " + id})

		return nil, false
	case err != nil:
		log.Printf("Error getting run %s: %v", id, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return nil, false
	}

	return run, true
}

func (s *Server) getRun(ctx *gin.Context) {
	if run, ok := s.lookup(ctx); ok {
		ctx.JSON(http.StatusOK, run)
	}
}

func (s *Server) getCities(ctx *gin.Context) {
	if run, ok := s.lookup(ctx); ok {
		ctx.JSON(http.StatusOK, run.Cities)
	}
}

func (s *Server) getCountries(ctx *gin.Context) {
	if run, ok := s.lookup(ctx); ok {
		ctx.JSON(http.StatusOK, run.Countries)
	}
}

func (s *Server) getBreakdown(ctx *gin.Context) {
	if run, ok := s.lookup(ctx); ok {
		ctx.JSON(http.StatusOK, run.SignalBreakdown)
	}
}
