package store_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perfectpitch/pitch-coach/internal/config"
	"github.com/perfectpitch/pitch-coach/internal/store"
	"github.com/perfectpitch/pitch-coach/internal/store/model"
)

func newTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// registryBehavior runs the same expectations against any Job
// implementation.
func registryBehavior(name string, newStore func() store.Store) bool {
	return Describe(name, Ordered, func() {
		var s store.Store

		BeforeEach(func() {
			s = newStore()
		})

		AfterEach(func() {
			_ = s.Close()
		})

		Context("create", func() {
			It("creates a pending job", func() {
				taskID := newTaskID()
				job, err := s.Job().Create(context.TODO(), taskID, "session-a")
				Expect(err).To(BeNil())
				Expect(job.TaskID).To(Equal(taskID))
				Expect(job.SessionID).To(Equal("session-a"))
				Expect(job.State).To(Equal(model.JobStatePending))
				Expect(job.ProgressPct).To(Equal(0))
			})

			It("is idempotent for the same task id", func() {
				taskID := newTaskID()
				_, err := s.Job().Create(context.TODO(), taskID, "session-a")
				Expect(err).To(BeNil())

				again, err := s.Job().Create(context.TODO(), taskID, "session-a")
				Expect(err).To(BeNil())
				Expect(again.TaskID).To(Equal(taskID))
			})
		})

		Context("update", func() {
			It("merges only the given fields", func() {
				taskID := newTaskID()
				_, err := s.Job().Create(context.TODO(), taskID, "session-a")
				Expect(err).To(BeNil())

				job, err := s.Job().Update(context.TODO(), taskID, model.NewJobUpdate().
					WithState(model.JobStateRunning).
					WithStage("asr").
					WithProgress(30))
				Expect(err).To(BeNil())
				Expect(job.State).To(Equal(model.JobStateRunning))
				Expect(job.Stage).To(Equal("asr"))
				Expect(job.ProgressPct).To(Equal(30))

				job, err = s.Job().Update(context.TODO(), taskID, model.NewJobUpdate().WithProgress(60))
				Expect(err).To(BeNil())
				Expect(job.Stage).To(Equal("asr"))
				Expect(job.ProgressPct).To(Equal(60))
				Expect(job.SessionID).To(Equal("session-a"))
			})

			It("records a failure with its code", func() {
				taskID := newTaskID()
				_, err := s.Job().Create(context.TODO(), taskID, "session-a")
				Expect(err).To(BeNil())

				job, err := s.Job().Update(context.TODO(), taskID, model.NewJobUpdate().
					WithState(model.JobStateFailed).
					WithStage("parse").
					WithError("INPUT_NOT_FOUND", "no presentation uploaded"))
				Expect(err).To(BeNil())
				Expect(job.State).To(Equal(model.JobStateFailed))
				Expect(job.ErrorCode).To(Equal("INPUT_NOT_FOUND"))
				Expect(job.ErrorMessage).To(ContainSubstring("presentation"))
			})
		})

		Context("get", func() {
			It("returns not found for an unknown task", func() {
				_, err := s.Job().Get(context.TODO(), newTaskID())
				Expect(err).To(MatchError(store.ErrRecordNotFound))
			})
		})

		Context("concurrency", func() {
			// Writers always set stage and progress together with a value
			// pair that matches; any snapshot mixing two updates would
			// break the pairing.
			It("never exposes a half-merged job to readers", func() {
				taskID := newTaskID()
				_, err := s.Job().Create(context.TODO(), taskID, "session-c")
				Expect(err).To(BeNil())

				pairedStage := func(p int) string { return fmt.Sprintf("step-%03d", p) }

				var writers sync.WaitGroup
				for w := 0; w < 4; w++ {
					writers.Add(1)
					go func(w int) {
						defer GinkgoRecover()
						defer writers.Done()
						for i := 0; i < 50; i++ {
							p := w*50 + i
							_, err := s.Job().Update(context.TODO(), taskID, model.NewJobUpdate().
								WithStage(pairedStage(p)).
								WithProgress(p))
							Expect(err).To(BeNil())
						}
					}(w)
				}

				stop := make(chan struct{})
				var readers sync.WaitGroup
				for r := 0; r < 2; r++ {
					readers.Add(1)
					go func() {
						defer GinkgoRecover()
						defer readers.Done()
						for {
							select {
							case <-stop:
								return
							default:
							}
							job, err := s.Job().Get(context.TODO(), taskID)
							Expect(err).To(BeNil())
							if job.Stage != "" {
								Expect(job.Stage).To(Equal(pairedStage(job.ProgressPct)))
							}
						}
					}()
				}

				writers.Wait()
				close(stop)
				readers.Wait()

				job, err := s.Job().Get(context.TODO(), taskID)
				Expect(err).To(BeNil())
				Expect(job.Stage).To(Equal(pairedStage(job.ProgressPct)))
			})
		})

		Context("active for session", func() {
			It("sees pending and running jobs only", func() {
				taskID := newTaskID()
				_, err := s.Job().Create(context.TODO(), taskID, "session-b")
				Expect(err).To(BeNil())

				active, err := s.Job().ActiveForSession(context.TODO(), "session-b")
				Expect(err).To(BeNil())
				Expect(active.TaskID).To(Equal(taskID))

				_, err = s.Job().Update(context.TODO(), taskID,
					model.NewJobUpdate().WithState(model.JobStateRunning))
				Expect(err).To(BeNil())
				_, err = s.Job().ActiveForSession(context.TODO(), "session-b")
				Expect(err).To(BeNil())

				_, err = s.Job().Update(context.TODO(), taskID,
					model.NewJobUpdate().WithState(model.JobStateDone).WithProgress(100))
				Expect(err).To(BeNil())
				_, err = s.Job().ActiveForSession(context.TODO(), "session-b")
				Expect(err).To(MatchError(store.ErrRecordNotFound))
			})
		})
	})
}

var _ = registryBehavior("memory registry", func() store.Store {
	return store.NewMemoryStore()
})

var _ = registryBehavior("database registry", func() store.Store {
	db, err := store.InitDB(config.NewDefault())
	Expect(err).To(BeNil())
	s := store.NewStore(db)
	Expect(s.InitialMigration()).To(Succeed())
	return s
})
