package events

import (
	"bytes"
	"context"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", Ordered, func() {
	Context("write", func() {
		It("writes successfully", func() {
			w := newTestWriter()
			ep := NewEventProducer(w)

			err := ep.Write(context.TODO(), ReportMessageKind, bytes.NewReader([]byte(`{"session_id":"s1"}`)))
			Expect(err).To(BeNil())

			err = ep.Write(context.TODO(), JobFailedMessageKind, bytes.NewReader([]byte(`{"session_id":"s2"}`)))
			Expect(err).To(BeNil())

			Eventually(w.Count, 2*time.Second, 10*time.Millisecond).Should(Equal(2))

			msgs := w.Snapshot()
			Expect(msgs[0].Type()).To(Equal(ReportMessageKind))
			Expect(msgs[0].Source()).To(Equal("perfectpitch.coach-api"))
			Expect(msgs[1].Type()).To(Equal(JobFailedMessageKind))

			ep.Close()
		})

		It("honors the topic option", func() {
			w := newTestWriter()
			ep := NewEventProducer(w, WithOutputTopic("custom.topic"))

			err := ep.Write(context.TODO(), ReportMessageKind, bytes.NewReader([]byte(`{}`)))
			Expect(err).To(BeNil())

			Eventually(w.Count, 2*time.Second, 10*time.Millisecond).Should(Equal(1))
			Expect(w.Topics()).To(ConsistOf("custom.topic"))

			ep.Close()
		})
	})
})

type testwriter struct {
	mu       sync.Mutex
	messages []cloudevents.Event
	topics   []string
}

func newTestWriter() *testwriter {
	return &testwriter{}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, e)
	t.topics = append(t.topics, topic)
	return nil
}

func (t *testwriter) Close(_ context.Context) error {
	return nil
}

func (t *testwriter) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

func (t *testwriter) Snapshot() []cloudevents.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]cloudevents.Event(nil), t.messages...)
}

func (t *testwriter) Topics() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.topics...)
}
