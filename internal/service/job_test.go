package service_test

import (
	"context"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perfectpitch/pitch-coach/internal/artifacts"
	"github.com/perfectpitch/pitch-coach/internal/config"
	"github.com/perfectpitch/pitch-coach/internal/pipeline"
	"github.com/perfectpitch/pitch-coach/internal/service"
	"github.com/perfectpitch/pitch-coach/internal/store"
	"github.com/perfectpitch/pitch-coach/internal/store/model"
)

type fakeEnqueuer struct {
	enqueued []string
	err      error
}

func (f *fakeEnqueuer) Enqueue(sessionID, taskID string) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, taskID)
	return nil
}

var _ = Describe("job submission", Ordered, func() {
	var (
		s        store.Store
		files    *artifacts.Store
		enqueuer *fakeEnqueuer
		cfg      *config.Config
		svc      *service.CoachService
	)

	BeforeEach(func() {
		root := GinkgoT().TempDir()
		s = store.NewMemoryStore()
		files = artifacts.NewStore(filepath.Join(root, "uploads"), filepath.Join(root, "artifacts"))
		enqueuer = &fakeEnqueuer{}
		cfg = config.NewDefault()
		svc = service.NewCoachService(s, files, enqueuer, cfg)
	})

	newSession := func() string {
		created, err := svc.CreateSession(context.TODO())
		Expect(err).To(BeNil())
		return created.SessionID
	}

	Context("submit", func() {
		It("queues a job and reports PENDING", func() {
			sessionID := newSession()

			started, err := svc.Submit(context.TODO(), sessionID)
			Expect(err).To(BeNil())
			Expect(started.TaskID).NotTo(BeEmpty())
			Expect(enqueuer.enqueued).To(ConsistOf(started.TaskID))

			status, err := svc.Status(context.TODO(), started.TaskID)
			Expect(err).To(BeNil())
			Expect(string(status.State)).To(Equal("PENDING"))
			Expect(status.ProgressPct).To(Equal(0))
		})

		It("rejects an unknown session", func() {
			_, err := svc.Submit(context.TODO(), strings.Repeat("0", 32))
			Expect(err).To(BeAssignableToTypeOf(&service.ErrSessionNotFound{}))
		})

		It("rejects a second submission while one is active", func() {
			sessionID := newSession()

			first, err := svc.Submit(context.TODO(), sessionID)
			Expect(err).To(BeNil())

			_, err = svc.Submit(context.TODO(), sessionID)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrSessionBusy{}))
			Expect(err.(*service.ErrSessionBusy).TaskID).To(Equal(first.TaskID))
		})

		It("allows resubmission after the previous run finished", func() {
			sessionID := newSession()

			first, err := svc.Submit(context.TODO(), sessionID)
			Expect(err).To(BeNil())
			_, err = s.Job().Update(context.TODO(), first.TaskID,
				model.NewJobUpdate().WithState(model.JobStateDone).WithProgress(100))
			Expect(err).To(BeNil())

			second, err := svc.Submit(context.TODO(), sessionID)
			Expect(err).To(BeNil())
			Expect(second.TaskID).NotTo(Equal(first.TaskID))
		})

		It("allows concurrent submissions when dedupe is off", func() {
			cfg.Service.Dedupe = "allow"
			sessionID := newSession()

			_, err := svc.Submit(context.TODO(), sessionID)
			Expect(err).To(BeNil())
			_, err = svc.Submit(context.TODO(), sessionID)
			Expect(err).To(BeNil())
			Expect(enqueuer.enqueued).To(HaveLen(2))
		})

		It("surfaces backpressure and records the failed job", func() {
			enqueuer.err = pipeline.ErrQueueFull
			sessionID := newSession()

			_, err := svc.Submit(context.TODO(), sessionID)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrQueueFull{}))

			// The rejected job is visible in the registry as FAILED.
			active, err := s.Job().ActiveForSession(context.TODO(), sessionID)
			Expect(active).To(BeNil())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("status", func() {
		It("returns not found for an unknown task", func() {
			_, err := svc.Status(context.TODO(), "missing")
			Expect(err).To(BeAssignableToTypeOf(&service.ErrTaskNotFound{}))
		})
	})
})
