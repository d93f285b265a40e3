// Package service implements the coaching API operations on top of the
// job registry, the artifact store and the pipeline dispatcher.
package service

import (
	"go.uber.org/zap"

	"github.com/perfectpitch/pitch-coach/internal/artifacts"
	"github.com/perfectpitch/pitch-coach/internal/config"
	"github.com/perfectpitch/pitch-coach/internal/store"
)

// Enqueuer is the dispatcher surface the service submits jobs through.
type Enqueuer interface {
	Enqueue(sessionID, taskID string) error
}

type CoachService struct {
	store      store.Store
	files      *artifacts.Store
	dispatcher Enqueuer
	cfg        *config.Config
	log        *zap.SugaredLogger
}

func NewCoachService(s store.Store, files *artifacts.Store, dispatcher Enqueuer, cfg *config.Config) *CoachService {
	return &CoachService{
		store:      s,
		files:      files,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        zap.S().Named("service"),
	}
}
