package events

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("buffer", Ordered, func() {
	Context("buffer", func() {
		It("add successfully", func() {
			buffer := newBuffer()

			buffer.PushBack(&message{Kind: ReportMessageKind, Data: []byte("msg1")})
			Expect(buffer.Size()).To(Equal(1))

			buffer.PushBack(&message{Kind: ReportMessageKind, Data: []byte("msg2")})
			Expect(buffer.Size()).To(Equal(2))

			buffer.PushBack(&message{Kind: ReportMessageKind, Data: []byte("msg3")})
			Expect(buffer.Size()).To(Equal(3))
		})

		It("pop in fifo order", func() {
			buffer := newBuffer()

			buffer.PushBack(&message{Kind: ReportMessageKind, Data: []byte("msg1")})
			buffer.PushBack(&message{Kind: ReportMessageKind, Data: []byte("msg2")})
			buffer.PushBack(&message{Kind: JobFailedMessageKind, Data: []byte("msg3")})
			Expect(buffer.Size()).To(Equal(3))

			m := buffer.Pop()
			Expect(m).NotTo(BeNil())
			Expect(m.Data).To(Equal([]byte("msg1")))
			Expect(buffer.Size()).To(Equal(2))

			m = buffer.Pop()
			Expect(m.Data).To(Equal([]byte("msg2")))

			m = buffer.Pop()
			Expect(m.Data).To(Equal([]byte("msg3")))
			Expect(m.Kind).To(Equal(JobFailedMessageKind))
			Expect(buffer.Size()).To(Equal(0))

			Expect(buffer.Pop()).To(BeNil())
		})
	})
})
