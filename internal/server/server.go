package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/derekprior/potdraw/internal/config"
	"github.com/derekprior/potdraw/internal/draw"
	"github.com/derekprior/potdraw/internal/excel"
	"github.com/derekprior/potdraw/internal/schedule"
	"github.com/derekprior/potdraw/internal/validator"
)

// Options configures the HTTP server.
type Options struct {
	// AllowOrigins lists the origins allowed by CORS. Empty allows any.
	AllowOrigins []string
}

// Server exposes draws and fixtures over HTTP.
type Server struct {
	cfg    *config.Config
	store  *Store
	engine *gin.Engine
	seed   func() int64
}

func New(cfg *config.Config, opts Options) *Server {
	s := &Server{
		cfg:   cfg,
		store: NewStore(),
		seed:  func() int64 { return time.Now().UnixNano() },
	}

	r := gin.Default()
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(opts.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowOrigins
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", s.health)
	r.GET("/pots", s.listPots)

	draws := r.Group("/draws")
	{
		draws.POST("", s.createDraw)
		draws.GET("/:id", s.getDraw)
		draws.GET("/:id/teams/:team", s.getTeam)
		draws.POST("/:id/fixtures", s.createFixtures)
		draws.GET("/:id/fixtures", s.getFixtures)
		draws.GET("/:id/workbook", s.getWorkbook)
	}

	s.engine = r
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until the server fails.
func (s *Server) Run(addr string) error {
	log.Printf("Server starting on %s", addr)
	return s.engine.Run(addr)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, draw.ErrUnsatisfiableConstraints):
		return http.StatusUnprocessableEntity
	case errors.Is(err, schedule.ErrNoFeasibleSchedule):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Server is running",
		"draws":   s.store.Len(),
	})
}

func (s *Server) listPots(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"quota": s.cfg.Quota,
		"pots":  newPotResponses(draw.GroupsFromConfig(s.cfg.Pots)),
	})
}

type potRequest struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Teams []string `json:"teams"`
}

type createDrawRequest struct {
	Seed  *int64       `json:"seed"`
	Quota int          `json:"quota"`
	Pots  []potRequest `json:"pots"`
}

type createFixturesRequest struct {
	Seed *int64 `json:"seed"`
}

// bindOptional binds a JSON body when one is sent.
func bindOptional(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) createDraw(c *gin.Context) {
	var req createDrawRequest
	if !bindOptional(c, &req) {
		return
	}

	groups := draw.GroupsFromConfig(s.cfg.Pots)
	if len(req.Pots) > 0 {
		groups = make([]draw.Group, len(req.Pots))
		for i, p := range req.Pots {
			groups[i] = draw.Group{ID: p.ID, Label: p.Label}
			for _, name := range p.Teams {
				groups[i].Teams = append(groups[i].Teams, draw.Team{Name: name})
			}
		}
		groups = draw.NormalizeGroups(groups)
		seen := make(map[string]bool)
		for _, g := range groups {
			for _, t := range g.Teams {
				if seen[t.Name] {
					c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("team %q appears more than once", t.Name)})
					return
				}
				seen[t.Name] = true
			}
		}
	}

	opts := draw.OptionsFromConfig(s.cfg)
	if req.Quota != 0 {
		opts.Quota = req.Quota
	}

	seed := s.seed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	p, err := draw.NewGenerator(opts, rand.New(rand.NewSource(seed))).Generate(groups)
	if err != nil {
		log.Printf("draw failed (seed %d): %v", seed, err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if errs := validator.Errors(validator.CheckPairing(p)); len(errs) > 0 {
		log.Printf("draw failed validation (seed %d): %d violations", seed, len(errs))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generated draw failed validation", "violations": messages(errs)})
		return
	}

	rec := s.store.Add(seed, p)
	log.Printf("draw %s created (seed %d, %d teams, %d matches, attempts %d, fallback %t)",
		rec.ID, seed, len(p.Teams), len(p.Edges), p.Attempts, p.Deterministic)
	c.JSON(http.StatusCreated, newDrawResponse(rec))
}

func (s *Server) record(c *gin.Context) (Record, bool) {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "draw not found"})
	}
	return rec, ok
}

func (s *Server) getDraw(c *gin.Context) {
	rec, ok := s.record(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newDrawResponse(rec))
}

func (s *Server) getTeam(c *gin.Context) {
	rec, ok := s.record(c)
	if !ok {
		return
	}
	e, ok := rec.Pairing.Entry(c.Param("team"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "team not found"})
		return
	}
	c.JSON(http.StatusOK, newEntryResponse(e))
}

// slotsFor returns the configured template when it fits the draw.
func (s *Server) slotsFor(p *draw.Pairing) []schedule.Slot {
	slots := schedule.GenerateSlots(s.cfg)
	if len(slots)*2 != len(p.Teams) {
		return nil
	}
	return slots
}

func (s *Server) createFixtures(c *gin.Context) {
	rec, ok := s.record(c)
	if !ok {
		return
	}
	var req createFixturesRequest
	if !bindOptional(c, &req) {
		return
	}

	seed := rec.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}

	result, err := schedule.Schedule(rec.Pairing, s.slotsFor(rec.Pairing), schedule.OptionsFromConfig(s.cfg),
		rand.New(rand.NewSource(seed)))
	if err != nil {
		log.Printf("fixtures for draw %s failed: %v", rec.ID, err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if errs := validator.Errors(validator.CheckSchedule(rec.Pairing, result)); len(errs) > 0 {
		log.Printf("fixtures for draw %s failed validation: %d violations", rec.ID, len(errs))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generated fixtures failed validation", "violations": messages(errs)})
		return
	}

	if !s.store.SetFixtures(rec.ID, result) {
		c.JSON(http.StatusNotFound, gin.H{"error": "draw not found"})
		return
	}
	log.Printf("fixtures for draw %s created (%d weeks, %d restarts)", rec.ID, len(result.Weeks), result.Restarts)
	c.JSON(http.StatusCreated, newFixturesResponse(rec.ID, result))
}

func (s *Server) getFixtures(c *gin.Context) {
	rec, ok := s.record(c)
	if !ok {
		return
	}
	if rec.Fixtures == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no fixtures generated for this draw"})
		return
	}
	c.JSON(http.StatusOK, newFixturesResponse(rec.ID, rec.Fixtures))
}

func (s *Server) getWorkbook(c *gin.Context) {
	rec, ok := s.record(c)
	if !ok {
		return
	}
	f, err := excel.Generate(rec.Pairing, rec.Fixtures, s.slotsFor(rec.Pairing))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="draw-%s.xlsx"`, rec.ID))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		log.Printf("writing workbook for draw %s: %v", rec.ID, err)
	}
}

func messages(violations []validator.Violation) []string {
	out := make([]string, len(violations))
	for i, v := range violations {
		out[i] = v.Message
	}
	return out
}
