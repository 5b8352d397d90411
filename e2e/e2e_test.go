// Copyright 2021 The apitest Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package e2e

import (
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/apitestutils/apitest"
	"github.com/apitestutils/apitest/internal/fakeapi"
	"github.com/apitestutils/apitest/poll"
	"github.com/apitestutils/apitest/request"
	"github.com/apitestutils/apitest/retry"
)

var _ = Describe("Retrying requests", func() {
	var waits []time.Duration

	BeforeEach(func() {
		waits = nil
		client.RetryPolicy = retry.NewPolicy(retry.DefaultDecider, retry.NewPowWaiter(10*time.Millisecond))
		client.Handlers.PushBack(apitest.BeforeRetryWait, apitest.HandlerFunc(func(_ apitest.Event, e *request.Execution) {
			waits = append(waits, e.Wait)
		}))
	})

	Context("When the server refuses twice before accepting", func() {
		It("should return the accepted response after waits of 0 and 1 units", func() {
			server.Script("/api/orders",
				fakeapi.Status(http.StatusTooManyRequests),
				fakeapi.Status(http.StatusTooManyRequests),
				fakeapi.JSON(http.StatusOK, `{"orders":[]}`))

			e, err := client.Get(ctx, "orders", request.WithRetries(true), request.WithMaxRetries(4))

			Expect(err).NotTo(HaveOccurred())
			Expect(e.StatusCode()).To(Equal(http.StatusOK))
			Expect(string(e.Body)).To(Equal(`{"orders":[]}`))
			Expect(e.Attempts()).To(Equal(3))
			Expect(waits).To(Equal([]time.Duration{0, 10 * time.Millisecond}))
			Expect(server.Requests("/api/orders")).To(HaveLen(3))
		})
	})

	Context("When every attempt is refused", func() {
		DescribeTable("should stop after the attempt limit",
			func(code, limit int) {
				server.Script("/api/busy", fakeapi.Status(code))

				e, err := client.Post(ctx, "/busy",
					request.WithJSON(map[string]string{"sku": "a1"}),
					request.WithRetries(true),
					request.WithMaxRetries(limit))

				var exhausted *retry.ExhaustedError
				Expect(err).To(BeAssignableToTypeOf(exhausted))
				Expect(err).To(MatchError(retry.ExhaustedMsg))
				Expect(e.StatusCode()).To(Equal(code))
				Expect(server.Requests("/api/busy")).To(HaveLen(limit))
				Expect(waits).To(HaveLen(limit - 1))
			},
			Entry("429 Too Many Requests", http.StatusTooManyRequests, 3),
			Entry("503 Service Unavailable", http.StatusServiceUnavailable, 2),
			Entry("409 Conflict", http.StatusConflict, 1),
		)
	})

	Context("When the response is not retryable", func() {
		It("should return it after one attempt", func() {
			server.Script("/api/missing", fakeapi.Text(http.StatusNotFound, "no such order"))

			e, err := client.Get(ctx, "missing", request.WithRetries(true))

			Expect(err).NotTo(HaveOccurred())
			Expect(e.StatusCode()).To(Equal(http.StatusNotFound))
			Expect(apitest.ExpectStatus(e, http.StatusOK)).To(MatchError(ContainSubstring("STATUS CODE: 404")))
			Expect(waits).To(BeEmpty())
		})
	})
})

var _ = Describe("Polling", func() {
	Context("When the resource appears after a while", func() {
		It("should record every response until the first 200", func() {
			server.Script("/api/jobs/1",
				fakeapi.Status(http.StatusNotFound),
				fakeapi.JSON(http.StatusOK, `{"state":"done"}`))

			records, err := poll.Until(ctx, poll.Request(client, http.MethodGet, "jobs/1"),
				poll.WithInterval(5*time.Millisecond))

			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].StatusCode).To(Equal(http.StatusNotFound))
			Expect(records[1].Body).To(Equal(map[string]interface{}{"state": "done"}))
		})
	})

	Context("When the predicate holds on the first response", func() {
		It("should return a history of one", func() {
			server.Script("/api/jobs/2", fakeapi.Text(http.StatusOK, "ready"))

			records, err := poll.Until(ctx, poll.Request(client, http.MethodGet, "jobs/2"))

			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(ConsistOf(HaveField("Body", "ready")))
		})
	})

	Context("When the server always answers 404", func() {
		It("should time out with the 404 as the last record", func() {
			server.Script("/api/jobs/3", fakeapi.Text(http.StatusNotFound, "gone"))

			records, err := poll.Until(ctx, poll.Request(client, http.MethodGet, "jobs/3"),
				poll.WithTimeout(100*time.Millisecond),
				poll.WithInterval(30*time.Millisecond))

			var timeoutErr *poll.TimeoutError
			Expect(err).To(BeAssignableToTypeOf(timeoutErr))
			timeoutErr = err.(*poll.TimeoutError)
			Expect(records).NotTo(BeEmpty())
			Expect(timeoutErr.Last().StatusCode).To(Equal(http.StatusNotFound))
			Expect(err.Error()).To(HavePrefix("last status: 404\nlast headers:"))
			Expect(err.Error()).To(HaveSuffix("\nlast body:gone"))
		})

		It("should time out with at most one record when the interval exceeds the timeout", func() {
			server.Script("/api/jobs/4", fakeapi.Status(http.StatusNotFound))

			records, err := poll.Until(ctx, poll.Request(client, http.MethodGet, "jobs/4"),
				poll.WithTimeout(20*time.Millisecond),
				poll.WithInterval(time.Second))

			Expect(err).To(BeAssignableToTypeOf(&poll.TimeoutError{}))
			Expect(len(records)).To(BeNumerically("<=", 1))
		})
	})

	Context("When waiting for a deletion", func() {
		It("should stop on 404", func() {
			server.Script("/api/jobs/5",
				fakeapi.Status(http.StatusAccepted),
				fakeapi.Status(http.StatusNotFound))

			records, err := poll.Until(ctx, poll.Request(client, http.MethodDelete, "jobs/5"),
				poll.WithPredicate(poll.Is404),
				poll.WithInterval(time.Millisecond))

			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			for _, r := range server.Requests("/api/jobs/5") {
				Expect(r.Method).To(Equal(http.MethodDelete))
				Expect(r.Header.Get("X-Environment")).To(Equal("e2e"))
				Expect(r.Header.Get(apitest.CorrelationHeader)).NotTo(BeEmpty())
			}
		})
	})
})

var _ = Describe("Redirects", func() {
	BeforeEach(func() {
		server.Script("/api/old", fakeapi.Redirect("/api/new"))
		server.Script("/api/new", fakeapi.Text(http.StatusOK, "moved here"))
	})

	It("should follow redirects and record them", func() {
		e, err := client.Get(ctx, "old")

		Expect(err).NotTo(HaveOccurred())
		Expect(e.StatusCode()).To(Equal(http.StatusOK))
		Expect(string(e.Body)).To(Equal("moved here"))
		Expect(e.Redirects).To(HaveLen(1))
		Expect(e.Redirects[0].Path).To(Equal("/api/new"))
	})

	It("should return the redirect itself when asked not to follow", func() {
		e, err := client.Get(ctx, "old", request.WithRedirects(false))

		Expect(err).NotTo(HaveOccurred())
		Expect(e.StatusCode()).To(Equal(http.StatusFound))
		Expect(e.Header().Get("Location")).To(Equal("/api/new"))
		Expect(server.Requests("/api/new")).To(BeEmpty())
	})
})

var _ = Describe("Content decoding", func() {
	DescribeTable("should decode compressed bodies",
		func(encoding string) {
			server.Script("/api/compressed", fakeapi.Response{
				Header:   http.Header{"Content-Type": {"application/json"}},
				Body:     []fakeapi.Chunk{{Data: []byte(`{"a":1}`)}},
				Encoding: encoding,
			})

			records, err := poll.Until(ctx, poll.Request(client, http.MethodGet, "compressed"))

			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Body).To(Equal(map[string]interface{}{"a": float64(1)}))
		},
		Entry("gzip", "gzip"),
		Entry("deflate", "deflate"),
		Entry("brotli", "br"),
	)
})
