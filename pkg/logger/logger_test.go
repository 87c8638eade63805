package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/procurement/pkg/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("context fields", func() {
	var (
		buf *bytes.Buffer
		log *slog.Logger
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		log = slog.New(logger.NewContextHandler(slog.NewJSONHandler(buf, nil)))
	})

	It("adds fields stored on the context to each record", func() {
		ctx := logger.With(context.Background(), "trace_id", "t-1")
		ctx = logger.With(ctx, "pr_id", "PR-9")
		log.InfoContext(ctx, "hello")

		Expect(buf.String()).To(ContainSubstring(`"trace_id":"t-1"`))
		Expect(buf.String()).To(ContainSubstring(`"pr_id":"PR-9"`))
	})

	It("keeps the fields through With and WithGroup", func() {
		ctx := logger.With(context.Background(), "trace_id", "t-2")
		log.With("component", "worker").WithGroup("job").InfoContext(ctx, "tick", "n", 1)

		Expect(buf.String()).To(ContainSubstring(`"component":"worker"`))
		Expect(buf.String()).To(ContainSubstring(`"trace_id":"t-2"`))
	})

	It("does not leak fields into a parent context", func() {
		parent := logger.With(context.Background(), "a", 1)
		_ = logger.With(parent, "b", 2)

		Expect(logger.Fields(parent)).To(Equal([]any{"a", 1}))
	})

	It("does not wrap a handler twice", func() {
		h := logger.NewContextHandler(slog.NewTextHandler(buf, nil))
		Expect(logger.NewContextHandler(h)).To(Equal(h))
	})
})
