package otel_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/supportbot/common/otel"
	"basegraph.app/supportbot/core/config"
)

var _ = Describe("ParseHeaders", func() {
	DescribeTable("parses comma separated pairs",
		func(input string, expected map[string]string) {
			Expect(otel.ParseHeaders(input)).To(Equal(expected))
		},
		Entry("empty", "", map[string]string{}),
		Entry("single pair", "x-api-key=abc", map[string]string{"x-api-key": "abc"}),
		Entry("trims whitespace", " a = 1 , b=2", map[string]string{"a": "1", "b": "2"}),
		Entry("keeps '=' in values", "auth=Basic abc==", map[string]string{"auth": "Basic abc=="}),
		Entry("skips malformed pairs", "novalue,k=v", map[string]string{"k": "v"}),
	)
})

var _ = Describe("Setup", func() {
	It("returns nil telemetry when no endpoint is configured", func() {
		tel, err := otel.Setup(context.Background(), config.OTelConfig{}, config.ServiceTypeServer, "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(tel).To(BeNil())
		Expect(tel.Shutdown(context.Background())).To(Succeed())
	})
})
